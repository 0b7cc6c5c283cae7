package model

import (
	"github.com/google/uuid"
)

// Booking event types published through the outbox for the notification
// collaborator. The core performs no I/O beyond persisting the event row.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingRejected  = "booking.rejected"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is the payload carried by every booking event.
type BookingEvent struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Date          Date      `json:"date"`
	StartTime     TimeOfDay `json:"start_time"`
	EndTime       TimeOfDay `json:"end_time"`
	PatientName   string    `json:"patient_name"`
	ContactEmail  string    `json:"contact_email,omitempty"`

	// RescheduleToken is only present on booking.confirmed; consumers use
	// it to build self-service cancellation links.
	RescheduleToken string `json:"reschedule_token,omitempty"`
}

func NewBookingEvent(a *Appointment) BookingEvent {
	return BookingEvent{
		AppointmentID: a.ID,
		Date:          a.Date,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime(),
		PatientName:   a.DisplayName(),
		ContactEmail:  a.TempEmail,
	}
}
