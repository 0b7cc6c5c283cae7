package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending      AppointmentStatus = "pending"
	AppointmentStatusConfirmed    AppointmentStatus = "confirmed"
	AppointmentStatusRejected     AppointmentStatus = "rejected"
	AppointmentStatusCancelled    AppointmentStatus = "cancelled"
	AppointmentStatusDidNotArrive AppointmentStatus = "did_not_arrive"
	AppointmentStatusCompleted    AppointmentStatus = "completed"
)

// Blocks reports whether an appointment in this status occupies its slots.
// This partition is the single source of truth for availability computation.
func (s AppointmentStatus) Blocks() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCompleted:
		return true
	}
	return false
}

// BlockingStatuses returns the statuses that occupy slots for the given
// caller context. Public booking counts pending holds so a tentatively held
// slot cannot be sold twice; the admin view excludes them to show true
// remaining capacity.
func BlockingStatuses(includePending bool) []AppointmentStatus {
	if includePending {
		return []AppointmentStatus{
			AppointmentStatusPending,
			AppointmentStatusConfirmed,
			AppointmentStatusCompleted,
		}
	}
	return []AppointmentStatus{
		AppointmentStatusConfirmed,
		AppointmentStatusCompleted,
	}
}

type PatientType string

const (
	PatientTypeNew       PatientType = "new"
	PatientTypeReturning PatientType = "returning"
)

// Identity is the booking party: either a durable patient reference or
// temporary contact details captured before a patient record exists.
// Exactly one variant is set.
type Identity struct {
	Registered *RegisteredPatient
	Temporary  *TemporaryContact
}

type RegisteredPatient struct {
	PatientID uuid.UUID
	Name      string
}

type TemporaryContact struct {
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"max=32"`
}

func RegisteredIdentity(patientID uuid.UUID, name string) Identity {
	return Identity{Registered: &RegisteredPatient{PatientID: patientID, Name: name}}
}

func TemporaryIdentity(contact TemporaryContact) Identity {
	return Identity{Temporary: &contact}
}

func (i Identity) IsRegistered() bool {
	return i.Registered != nil
}

func (i Identity) DisplayName() string {
	if i.Registered != nil {
		return i.Registered.Name
	}
	if i.Temporary != nil {
		return strings.TrimSpace(i.Temporary.FirstName + " " + i.Temporary.LastName)
	}
	return ""
}

// Appointment occupies n contiguous 30-minute slots starting at StartTime,
// where n = DurationMinutes / 30.
type Appointment struct {
	Base
	Date            Date              `db:"date" json:"date"`
	StartTime       TimeOfDay         `db:"start_time" json:"start_time"`
	DurationMinutes int               `db:"duration_minutes" json:"duration_minutes"`
	Status          AppointmentStatus `db:"status" json:"status"`
	PatientType     PatientType       `db:"patient_type" json:"patient_type"`
	Reason          string            `db:"reason" json:"reason,omitempty"`

	// Identity columns: either PatientID is set (registered) or the Temp*
	// fields carry pre-onboarding contact details. Approval promotes a
	// temporary identity to a patient record and clears the Temp* fields.
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	PatientName string     `db:"patient_name" json:"patient_name,omitempty"`
	TempFirst   string     `db:"temp_first_name" json:"-"`
	TempLast    string     `db:"temp_last_name" json:"-"`
	TempEmail   string     `db:"temp_email" json:"-"`
	TempPhone   string     `db:"temp_phone" json:"-"`

	DentistID   *uuid.UUID `db:"dentist_id" json:"dentist_id,omitempty"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	DecidedBy   *uuid.UUID `db:"decided_by" json:"decided_by,omitempty"`

	// RescheduleTokenHash holds the bcrypt hash of the self-service token
	// issued on confirmation. The raw token only ever leaves through the
	// BookingConfirmed event.
	RescheduleTokenHash string `db:"reschedule_token_hash" json:"-"`

	StaffNotes string `db:"staff_notes" json:"staff_notes,omitempty"`
}

// EndTime is derived: StartTime + DurationMinutes.
func (a *Appointment) EndTime() TimeOfDay {
	return a.StartTime.AddMinutes(a.DurationMinutes)
}

// Identity reconstructs the booking party from the persisted columns.
func (a *Appointment) Identity() Identity {
	if a.PatientID != nil {
		return RegisteredIdentity(*a.PatientID, a.PatientName)
	}
	return TemporaryIdentity(TemporaryContact{
		FirstName: a.TempFirst,
		LastName:  a.TempLast,
		Email:     a.TempEmail,
		Phone:     a.TempPhone,
	})
}

func (a *Appointment) DisplayName() string {
	return a.Identity().DisplayName()
}

type AppointmentFilters struct {
	Date      *Date
	Status    AppointmentStatus
	PatientID *uuid.UUID
	DentistID *uuid.UUID
	FromDate  *Date
	ToDate    *Date
}

type CreateAppointmentRequest struct {
	Date            Date        `json:"date" binding:"required"`
	StartTime       TimeOfDay   `json:"start_time" binding:"required,slotaligned"`
	DurationMinutes int         `json:"duration_minutes" binding:"required,slotduration"`
	PatientType     PatientType `json:"patient_type" binding:"required,oneof=new returning"`
	Reason          string      `json:"reason" binding:"max=2000"`

	// Exactly one of PatientID or Contact must be supplied.
	PatientID *uuid.UUID        `json:"patient_id"`
	Contact   *TemporaryContact `json:"contact"`
}

type ApproveAppointmentRequest struct {
	DentistID  *uuid.UUID `json:"dentist_id"`
	StaffNotes string     `json:"staff_notes" binding:"max=2000"`
}

type RejectAppointmentRequest struct {
	StaffNotes string `json:"staff_notes" binding:"max=2000"`
}

type RescheduleAppointmentRequest struct {
	Date      Date      `json:"date" binding:"required"`
	StartTime TimeOfDay `json:"start_time" binding:"required,slotaligned"`
}

type TokenCancelRequest struct {
	Token string `json:"token" binding:"required"`
}

// DaySummary aggregates one date's appointments for the admin dashboard.
type DaySummary struct {
	Date         Date `json:"date"`
	HasConfig    bool `json:"has_config"`
	Total        int  `json:"total"`
	Pending      int  `json:"pending"`
	Confirmed    int  `json:"confirmed"`
	Completed    int  `json:"completed"`
	Cancelled    int  `json:"cancelled"`
	Rejected     int  `json:"rejected"`
	DidNotArrive int  `json:"did_not_arrive"`
}
