package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/repository"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/service/approval"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/service/availability"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/metrics"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/security"
)

// transitions is the full status machine. Anything not listed here is a
// forbidden move, including transitions out of the terminal statuses.
var transitions = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentStatusPending: {
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusRejected,
	},
	model.AppointmentStatusConfirmed: {
		model.AppointmentStatusCancelled,
		model.AppointmentStatusCompleted,
		model.AppointmentStatusDidNotArrive,
	},
}

func canTransition(from, to model.AppointmentStatus) bool {
	for _, allowed := range transitions[from] {
		if to == allowed {
			return true
		}
	}
	return false
}

// Config carries the lifecycle tuning knobs.
type Config struct {
	// NoticeHours is the minimum lead time between booking and the
	// appointment start.
	NoticeHours int
	// CancellationWindowHours is how far before the start a confirmed
	// appointment may still be cancelled.
	CancellationWindowHours int
}

// Service owns the appointment lifecycle. Every mutation that depends on
// slot occupancy runs inside one serializable transaction so two concurrent
// requests for the same slot cannot both succeed.
type Service struct {
	appts    repository.AppointmentRepository
	patients repository.PatientRepository
	outbox   repository.OutboxRepository
	txm      repository.TxManager
	avail    *availability.Service
	policy   approval.Policy
	tokens   security.TokenManager
	clock    clock.Clock
	cfg      Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(
	appts repository.AppointmentRepository,
	patients repository.PatientRepository,
	outbox repository.OutboxRepository,
	txm repository.TxManager,
	avail *availability.Service,
	policy approval.Policy,
	tokens security.TokenManager,
	clk clock.Clock,
	cfg Config,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		appts:    appts,
		patients: patients,
		outbox:   outbox,
		txm:      txm,
		avail:    avail,
		policy:   policy,
		tokens:   tokens,
		clock:    clk,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appts.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.appts.List(ctx, filters)
}

// Create books a pending appointment. The slot conflict check and the insert
// share one transaction; with auto-approval enabled and satisfied the
// appointment comes back already confirmed.
func (s *Service) Create(ctx context.Context, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	appt := &model.Appointment{
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          model.AppointmentStatusPending,
		PatientType:     req.PatientType,
		Reason:          req.Reason,
	}

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attachIdentity(ctx, appt, req); err != nil {
			return err
		}

		ok, msg, err := s.avail.IsAvailable(ctx, req.Date, req.StartTime, req.DurationMinutes, nil, true)
		if err != nil {
			return err
		}
		if !ok {
			if s.metrics != nil {
				s.metrics.SlotConflicts.Inc()
			}
			return errors.SlotConflict(msg)
		}

		if appt.PatientID != nil {
			existing, err := s.appts.FindBlockingForPatient(ctx, *appt.PatientID, req.Date)
			if err != nil {
				return err
			}
			if existing != nil {
				return errors.DoubleBooking(fmt.Sprintf(
					"you already have an appointment on %s", req.Date.Display()))
			}
		}

		if err := s.appts.Create(ctx, appt); err != nil {
			return err
		}
		if err := s.emit(ctx, model.EventBookingCreated, model.NewBookingEvent(appt)); err != nil {
			return err
		}

		auto, err := s.policy.ShouldAutoApprove(ctx, appt)
		if err != nil {
			return err
		}
		if auto {
			// The promotion re-checks confirmed capacity just like a manual
			// approval; a booking confirmed between the public check and this
			// point must surface as a conflict, never a silent double-book.
			ok, msg, err := s.avail.IsAvailable(ctx, appt.Date, appt.StartTime, appt.DurationMinutes, &appt.ID, false)
			if err != nil {
				return err
			}
			if !ok {
				if s.metrics != nil {
					s.metrics.SlotConflicts.Inc()
				}
				return errors.SlotConflict(msg)
			}
			return s.confirm(ctx, appt, nil, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.WithLabelValues(string(appt.Status)).Inc()
	}
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("date", appt.Date.String()).
		Str("start", appt.StartTime.String()).
		Str("status", string(appt.Status)).
		Msg("appointment created")
	return appt, nil
}

// Approve confirms a pending appointment. The slot is re-validated against
// the confirmed set, excluding the appointment itself, because a competing
// booking may have been confirmed since this one was requested.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, staffID uuid.UUID, req *model.ApproveAppointmentRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appts.Get(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(appt.Status, model.AppointmentStatusConfirmed) {
			return errors.InvalidTransition(string(appt.Status), string(model.AppointmentStatusConfirmed))
		}

		ok, msg, err := s.avail.IsAvailable(ctx, appt.Date, appt.StartTime, appt.DurationMinutes, &appt.ID, false)
		if err != nil {
			return err
		}
		if !ok {
			if s.metrics != nil {
				s.metrics.SlotConflicts.Inc()
			}
			return errors.SlotConflict(msg)
		}

		if req != nil {
			appt.DentistID = req.DentistID
			if req.StaffNotes != "" {
				appt.StaffNotes = req.StaffNotes
			}
		}
		return s.confirm(ctx, appt, &staffID, req)
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// confirm performs the pending to confirmed move inside the caller's
// transaction: promote a temporary identity to a patient record, issue the
// self-service token, stamp the confirmation, and emit the event carrying
// the one and only copy of the raw token.
func (s *Service) confirm(ctx context.Context, appt *model.Appointment, staffID *uuid.UUID, _ *model.ApproveAppointmentRequest) error {
	contactEmail := appt.TempEmail

	if appt.PatientID == nil {
		patient := &model.Patient{
			FirstName: appt.TempFirst,
			LastName:  appt.TempLast,
			Email:     appt.TempEmail,
			Phone:     appt.TempPhone,
		}
		if err := s.patients.Create(ctx, patient); err != nil {
			return err
		}
		appt.PatientID = &patient.ID
		appt.PatientName = patient.FullName()
		appt.TempFirst, appt.TempLast, appt.TempEmail, appt.TempPhone = "", "", "", ""
	}

	raw, hash, err := s.tokens.Generate()
	if err != nil {
		return err
	}
	appt.RescheduleTokenHash = hash

	from := appt.Status
	now := s.clock.Now()
	appt.Status = model.AppointmentStatusConfirmed
	appt.ConfirmedAt = &now
	appt.DecidedBy = staffID

	if err := s.appts.Update(ctx, appt); err != nil {
		return err
	}

	event := model.NewBookingEvent(appt)
	event.ContactEmail = contactEmail
	event.RescheduleToken = raw
	if err := s.emit(ctx, model.EventBookingConfirmed, event); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.BookingTransitions.WithLabelValues(string(from), string(appt.Status)).Inc()
	}
	return nil
}

// Reject declines a pending appointment and frees its slots.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, staffID uuid.UUID, req *model.RejectAppointmentRequest) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusRejected, func(appt *model.Appointment) error {
		if req != nil && req.StaffNotes != "" {
			appt.StaffNotes = req.StaffNotes
		}
		appt.DecidedBy = &staffID
		return nil
	}, model.EventBookingRejected)
}

// Cancel withdraws a confirmed appointment. Cancellation closes a fixed
// number of hours before the start; past that point the slot is committed
// and only the clinic can resolve it.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusCancelled, func(appt *model.Appointment) error {
		return s.checkCancellationWindow(appt)
	}, model.EventBookingCancelled)
}

// TokenCancel is the patient self-service path: the raw token from the
// confirmation notification must match the stored hash.
func (s *Service) TokenCancel(ctx context.Context, id uuid.UUID, rawToken string) (*model.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.RescheduleTokenHash == "" || s.tokens.Compare(appt.RescheduleTokenHash, rawToken) != nil {
		return nil, errors.Unauthorized(nil)
	}
	return s.Cancel(ctx, id)
}

// Complete records that the visit happened. Guarded against future dates so
// a fat-fingered click cannot mark tomorrow's visit as done.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusCompleted, func(appt *model.Appointment) error {
		return s.checkNotFuture(appt, "completed")
	}, "")
}

// MarkDidNotArrive records a no-show, with the same future-date guard as
// Complete.
func (s *Service) MarkDidNotArrive(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusDidNotArrive, func(appt *model.Appointment) error {
		return s.checkNotFuture(appt, "did not arrive")
	}, "")
}

// Reschedule moves a pending or confirmed appointment to a new slot. The
// availability check excludes the appointment itself so moving within its
// own footprint works.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appts.Get(ctx, id)
		if err != nil {
			return err
		}
		switch appt.Status {
		case model.AppointmentStatusPending, model.AppointmentStatusConfirmed:
		default:
			return errors.Validation("only pending or confirmed appointments can be rescheduled")
		}
		if err := s.checkNotice(req.Date, req.StartTime); err != nil {
			return err
		}

		ok, msg, err := s.avail.CheckTimeslot(ctx, req.Date, req.StartTime, appt.DurationMinutes, &appt.ID)
		if err != nil {
			return err
		}
		if !ok {
			if s.metrics != nil {
				s.metrics.SlotConflicts.Inc()
			}
			return errors.SlotConflict(msg)
		}

		appt.Date = req.Date
		appt.StartTime = req.StartTime
		return s.appts.Update(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("date", appt.Date.String()).
		Str("start", appt.StartTime.String()).
		Msg("appointment rescheduled")
	return appt, nil
}

// transition applies a guarded status change in one transaction and emits
// eventType when non-empty.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, guard func(*model.Appointment) error, eventType string) (*model.Appointment, error) {
	var appt *model.Appointment
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		appt, err = s.appts.Get(ctx, id)
		if err != nil {
			return err
		}
		if !canTransition(appt.Status, to) {
			return errors.InvalidTransition(string(appt.Status), string(to))
		}
		if guard != nil {
			if err := guard(appt); err != nil {
				return err
			}
		}

		from := appt.Status
		appt.Status = to
		if err := s.appts.Update(ctx, appt); err != nil {
			return err
		}
		if eventType != "" {
			if err := s.emit(ctx, eventType, model.NewBookingEvent(appt)); err != nil {
				return err
			}
		}
		if s.metrics != nil {
			s.metrics.BookingTransitions.WithLabelValues(string(from), string(to)).Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("status", string(appt.Status)).
		Msg("appointment status changed")
	return appt, nil
}

func (s *Service) validateCreate(req *model.CreateAppointmentRequest) error {
	if (req.PatientID == nil) == (req.Contact == nil) {
		return errors.Validation("exactly one of patient_id or contact must be provided")
	}
	if req.Date.Weekday() == model.ClosedWeekday {
		return errors.Validation("the clinic is closed on %ss", model.ClosedWeekday)
	}
	if req.Date.Before(s.clock.Today()) {
		return errors.Validation("cannot book an appointment for a past date")
	}
	return s.checkNotice(req.Date, req.StartTime)
}

func (s *Service) checkNotice(date model.Date, start model.TimeOfDay) error {
	if s.cfg.NoticeHours <= 0 {
		return nil
	}
	startAt := date.At(start, s.clock.Location())
	if startAt.Sub(s.clock.Now()) < time.Duration(s.cfg.NoticeHours)*time.Hour {
		return errors.Validation("appointments must be booked at least %d hours in advance", s.cfg.NoticeHours)
	}
	return nil
}

func (s *Service) checkCancellationWindow(appt *model.Appointment) error {
	startAt := appt.Date.At(appt.StartTime, s.clock.Location())
	window := time.Duration(s.cfg.CancellationWindowHours) * time.Hour
	if startAt.Sub(s.clock.Now()) <= window {
		return errors.CancellationWindow(fmt.Sprintf(
			"appointments can only be cancelled at least %d hours before the start time",
			s.cfg.CancellationWindowHours))
	}
	return nil
}

func (s *Service) checkNotFuture(appt *model.Appointment, action string) error {
	if appt.Date.After(s.clock.Today()) {
		return errors.FutureDate(fmt.Sprintf(
			"cannot mark a future appointment as %s", action))
	}
	return nil
}

func (s *Service) attachIdentity(ctx context.Context, appt *model.Appointment, req *model.CreateAppointmentRequest) error {
	if req.PatientID != nil {
		patient, err := s.patients.Get(ctx, *req.PatientID)
		if err != nil {
			return err
		}
		appt.PatientID = &patient.ID
		appt.PatientName = patient.FullName()
		return nil
	}
	appt.TempFirst = req.Contact.FirstName
	appt.TempLast = req.Contact.LastName
	appt.TempEmail = req.Contact.Email
	appt.TempPhone = req.Contact.Phone
	return nil
}

func (s *Service) emit(ctx context.Context, eventType string, payload model.BookingEvent) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   body,
		Status:    model.OutboxStatusPending,
	})
}
