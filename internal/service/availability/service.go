package availability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/repository"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/metrics"
)

type Service struct {
	scheduleRepo repository.ScheduleRepository
	apptRepo     repository.AppointmentRepository
	clock        clock.Clock
	metrics      *metrics.Metrics
}

func NewService(scheduleRepo repository.ScheduleRepository, apptRepo repository.AppointmentRepository, clk clock.Clock, m *metrics.Metrics) *Service {
	return &Service{
		scheduleRepo: scheduleRepo,
		apptRepo:     apptRepo,
		clock:        clk,
		metrics:      m,
	}
}

// AvailableStarts returns the valid start times on a date for the given
// service duration. Fails with a NoConfig error when the date has no
// operating window configured.
func (s *Service) AvailableStarts(ctx context.Context, date model.Date, durationMinutes int, includePending bool) ([]model.TimeOfDay, error) {
	defer s.observeQuery()()

	day, err := s.configFor(ctx, date)
	if err != nil {
		return nil, err
	}

	appointments, err := s.blockingAppointments(ctx, date, includePending)
	if err != nil {
		return nil, err
	}

	return AvailableStarts(day, appointments, durationMinutes, includePending)
}

// IsAvailable checks one candidate slot on a date, optionally excluding an
// appointment id so an edit does not conflict with itself.
func (s *Service) IsAvailable(ctx context.Context, date model.Date, start model.TimeOfDay, durationMinutes int, excludeID *uuid.UUID, includePending bool) (bool, string, error) {
	defer s.observeQuery()()

	day, err := s.configFor(ctx, date)
	if err != nil {
		return false, "", err
	}

	appointments, err := s.blockingAppointments(ctx, date, includePending)
	if err != nil {
		return false, "", err
	}

	return IsAvailable(day, appointments, start, durationMinutes, excludeID, includePending)
}

// CheckTimeslot is the public-booking availability check: pending holds
// count as blocking, and an unconfigured date is simply unavailable rather
// than an error.
func (s *Service) CheckTimeslot(ctx context.Context, date model.Date, start model.TimeOfDay, durationMinutes int, excludeID *uuid.UUID) (bool, string, error) {
	defer s.observeQuery()()

	day, err := s.scheduleRepo.GetByDate(ctx, date)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return false, fmt.Sprintf("no timeslots configured for %s", date.Display()), nil
		}
		return false, "", err
	}

	appointments, err := s.blockingAppointments(ctx, date, true)
	if err != nil {
		return false, "", err
	}

	return IsAvailable(day, appointments, start, durationMinutes, excludeID, true)
}

// NextAvailableDates lists the dates within daysAhead of today, starting
// tomorrow, that still have at least one free start for the duration.
// Closed weekdays and unconfigured dates are skipped.
func (s *Service) NextAvailableDates(ctx context.Context, daysAhead, durationMinutes int) ([]model.Date, error) {
	available := []model.Date{}
	date := s.clock.Today().AddDays(1)

	for i := 0; i < daysAhead; i++ {
		check := date.AddDays(i)
		if check.Weekday() == model.ClosedWeekday {
			continue
		}

		starts, err := s.AvailableStarts(ctx, check, durationMinutes, true)
		if err != nil {
			if errors.IsCode(err, errors.ErrNoConfig) {
				continue
			}
			return nil, err
		}
		if len(starts) > 0 {
			available = append(available, check)
		}
	}
	return available, nil
}

// DateAvailability is one date's entry in a range availability view.
type DateAvailability struct {
	Date       model.Date `json:"date"`
	HasConfig  bool       `json:"has_config"`
	TotalSlots int        `json:"total_slots"`
	FreeStarts int        `json:"free_starts"`
	// Pending is only populated for the admin view (includePending=false),
	// where unconfirmed holds are reported separately from real capacity.
	Pending int `json:"pending,omitempty"`
}

// RangeAvailability summarizes free capacity for each date in [from, to].
// Closed weekdays and past dates are omitted; configured dates report their
// free start count for the duration, unconfigured dates report zero.
func (s *Service) RangeAvailability(ctx context.Context, from, to model.Date, durationMinutes int, includePending bool) ([]DateAvailability, error) {
	days, err := s.scheduleRepo.ListRange(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[model.Date]*model.ScheduleDay, len(days))
	for _, day := range days {
		byDate[day.Date] = day
	}

	today := s.clock.Today()
	result := []DateAvailability{}
	for date := from; !date.After(to); date = date.AddDays(1) {
		if date.Weekday() == model.ClosedWeekday || date.Before(today) {
			continue
		}

		entry := DateAvailability{Date: date}
		day, ok := byDate[date]
		if ok {
			entry.HasConfig = true
			entry.TotalSlots = day.SlotCount()

			appointments, err := s.blockingAppointments(ctx, date, includePending)
			if err != nil {
				return nil, err
			}
			starts, err := AvailableStarts(day, appointments, durationMinutes, includePending)
			if err != nil {
				return nil, err
			}
			entry.FreeStarts = len(starts)

			if !includePending {
				counts, err := s.apptRepo.CountByStatusForDate(ctx, date)
				if err != nil {
					return nil, err
				}
				entry.Pending = counts[model.AppointmentStatusPending]
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// DaySummary aggregates a date's appointments by status for the dashboard.
func (s *Service) DaySummary(ctx context.Context, date model.Date) (*model.DaySummary, error) {
	summary := &model.DaySummary{Date: date}

	_, err := s.scheduleRepo.GetByDate(ctx, date)
	switch {
	case err == nil:
		summary.HasConfig = true
	case errors.IsCode(err, errors.ErrNotFound):
		summary.HasConfig = false
	default:
		return nil, err
	}

	counts, err := s.apptRepo.CountByStatusForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	summary.Pending = counts[model.AppointmentStatusPending]
	summary.Confirmed = counts[model.AppointmentStatusConfirmed]
	summary.Completed = counts[model.AppointmentStatusCompleted]
	summary.Cancelled = counts[model.AppointmentStatusCancelled]
	summary.Rejected = counts[model.AppointmentStatusRejected]
	summary.DidNotArrive = counts[model.AppointmentStatusDidNotArrive]
	for _, c := range counts {
		summary.Total += c
	}
	return summary, nil
}

func (s *Service) configFor(ctx context.Context, date model.Date) (*model.ScheduleDay, error) {
	day, err := s.scheduleRepo.GetByDate(ctx, date)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil, errors.NoConfig(fmt.Sprintf("no timeslots configured for %s", date.Display()))
		}
		return nil, err
	}
	return day, nil
}

func (s *Service) blockingAppointments(ctx context.Context, date model.Date, includePending bool) ([]*model.Appointment, error) {
	return s.apptRepo.ListForDate(ctx, date, model.BlockingStatuses(includePending))
}

func (s *Service) observeQuery() func() {
	if s.metrics == nil {
		return func() {}
	}
	s.metrics.AvailabilityQueries.Inc()
	timer := prometheus.NewTimer(s.metrics.AvailabilityLatency)
	return func() { timer.ObserveDuration() }
}
