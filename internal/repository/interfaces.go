package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
)

// All repository interfaces in one file
type (
	// ScheduleRepository handles per-date operating window configuration.
	ScheduleRepository interface {
		Create(ctx context.Context, day *model.ScheduleDay) error
		GetByDate(ctx context.Context, date model.Date) (*model.ScheduleDay, error)
		ExistsForDate(ctx context.Context, date model.Date) (bool, error)
		ListRange(ctx context.Context, from, to model.Date) ([]*model.ScheduleDay, error)
		Update(ctx context.Context, day *model.ScheduleDay) error
		Delete(ctx context.Context, id uuid.UUID) error
		// DeleteFrom removes all configuration on or after the given date.
		// Appointments are deliberately left untouched.
		DeleteFrom(ctx context.Context, date model.Date) (int64, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appt *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appt *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListForDate returns the appointments on a date whose status is in
		// the given set, ordered by start time.
		ListForDate(ctx context.Context, date model.Date, statuses []model.AppointmentStatus) ([]*model.Appointment, error)
		// FindBlockingForPatient returns the patient's blocking appointment
		// on the date, if any (one-booking-per-day rule).
		FindBlockingForPatient(ctx context.Context, patientID uuid.UUID, date model.Date) (*model.Appointment, error)
		// HasCompletedVisit reports whether the patient has at least one
		// completed appointment on record.
		HasCompletedVisit(ctx context.Context, patientID uuid.UUID) (bool, error)
		CountByStatusForDate(ctx context.Context, date model.Date) (map[model.AppointmentStatus]int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string, retryAt *time.Time) error
	}

	// TxManager runs fn inside a single database transaction. Repository
	// calls made with the ctx it passes to fn join that transaction, so a
	// conflict check and the write depending on it cannot interleave with a
	// concurrent booking.
	TxManager interface {
		RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
)
