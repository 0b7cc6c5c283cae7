package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/repository"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

// Service manages per-date operating window configuration. Deleting
// configuration never cascades to appointments: a date whose window was
// removed simply becomes an unconfigured day with legacy bookings.
type Service struct {
	repo   repository.ScheduleRepository
	txm    repository.TxManager
	clock  clock.Clock
	logger zerolog.Logger
}

func NewService(repo repository.ScheduleRepository, txm repository.TxManager, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		txm:    txm,
		clock:  clk,
		logger: logger,
	}
}

func (s *Service) Create(ctx context.Context, req *model.CreateScheduleDayRequest, createdBy *uuid.UUID) (*model.ScheduleDay, error) {
	if err := s.validateDate(req.Date); err != nil {
		return nil, err
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsForDate(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Validation("a schedule already exists for %s", req.Date.Display())
	}

	day := &model.ScheduleDay{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Notes:     req.Notes,
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, day); err != nil {
		return nil, fmt.Errorf("failed to create schedule day: %w", err)
	}

	s.logger.Info().
		Str("date", day.Date.String()).
		Str("window", fmt.Sprintf("%s-%s", day.StartTime, day.EndTime)).
		Msg("schedule day created")
	return day, nil
}

func (s *Service) GetByDate(ctx context.Context, date model.Date) (*model.ScheduleDay, error) {
	return s.repo.GetByDate(ctx, date)
}

func (s *Service) ListRange(ctx context.Context, from, to model.Date) ([]*model.ScheduleDay, error) {
	return s.repo.ListRange(ctx, from, to)
}

func (s *Service) Update(ctx context.Context, date model.Date, req *model.UpdateScheduleDayRequest) (*model.ScheduleDay, error) {
	day, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	if req.StartTime != nil {
		day.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		day.EndTime = *req.EndTime
	}
	if req.Notes != nil {
		day.Notes = *req.Notes
	}

	if err := validateWindow(day.StartTime, day.EndTime); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, day); err != nil {
		return nil, err
	}
	return day, nil
}

// Delete removes one date's configuration. Appointments on that date are
// left alone.
func (s *Service) Delete(ctx context.Context, date model.Date) error {
	day, err := s.repo.GetByDate(ctx, date)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, day.ID)
}

// DeleteFrom removes all configuration on or after the given date, returning
// the number of days removed.
func (s *Service) DeleteFrom(ctx context.Context, date model.Date) (int64, error) {
	deleted, err := s.repo.DeleteFrom(ctx, date)
	if err != nil {
		return 0, err
	}
	s.logger.Info().Str("from", date.String()).Int64("deleted", deleted).Msg("schedule days deleted")
	return deleted, nil
}

// BulkGenerate materializes schedule days across [StartDate, EndDate]
// inclusive with one shared window, skipping closed weekdays and dates that
// already have configuration. The whole run is one transaction: a failure
// mid-range rolls back every day created in this invocation.
func (s *Service) BulkGenerate(ctx context.Context, req *model.BulkGenerateRequest, createdBy *uuid.UUID) (*model.BulkGenerateResult, error) {
	if req.EndDate.Before(req.StartDate) {
		return nil, errors.Validation("end date must not be before start date")
	}
	if req.StartDate.Before(s.clock.Today()) {
		return nil, errors.Validation("cannot generate schedules for past dates")
	}
	if err := validateWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	result := &model.BulkGenerateResult{}
	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		for date := req.StartDate; !date.After(req.EndDate); date = date.AddDays(1) {
			if date.Weekday() == model.ClosedWeekday {
				result.SkippedClosed++
				continue
			}

			exists, err := s.repo.ExistsForDate(ctx, date)
			if err != nil {
				return err
			}
			if exists {
				result.SkippedExisting++
				continue
			}

			day := &model.ScheduleDay{
				Date:      date,
				StartTime: req.StartTime,
				EndTime:   req.EndTime,
				CreatedBy: createdBy,
			}
			if err := s.repo.Create(ctx, day); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("from", req.StartDate.String()).
		Str("to", req.EndDate.String()).
		Int("created", result.Created).
		Int("skipped_closed", result.SkippedClosed).
		Int("skipped_existing", result.SkippedExisting).
		Msg("bulk schedule generation finished")
	return result, nil
}

func (s *Service) validateDate(date model.Date) error {
	if date.Weekday() == model.ClosedWeekday {
		return errors.Validation("the clinic is closed on %ss", model.ClosedWeekday)
	}
	if date.Before(s.clock.Today()) {
		return errors.Validation("cannot create a schedule for a past date")
	}
	return nil
}

func validateWindow(start, end model.TimeOfDay) error {
	if !start.Aligned() || !end.Aligned() {
		return errors.Validation("start and end times must fall on %d-minute boundaries", model.SlotMinutes)
	}
	if start >= end {
		return errors.Validation("start time must be before end time")
	}
	if end.Sub(start) < model.SlotMinutes {
		return errors.Validation("operating window must span at least %d minutes", model.SlotMinutes)
	}
	return nil
}
