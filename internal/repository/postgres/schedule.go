package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	apperrors "github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

func (r *scheduleRepository) Create(ctx context.Context, day *model.ScheduleDay) error {
	query := `
		INSERT INTO schedule_days (
			id, date, start_time, end_time, notes, created_by,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	day.ID = uuid.New()
	day.CreatedAt = time.Now()
	day.UpdatedAt = time.Now()

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		day.ID,
		day.Date,
		day.StartTime,
		day.EndTime,
		day.Notes,
		day.CreatedBy,
		day.CreatedAt,
		day.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule day: %w", err)
	}
	return nil
}

func (r *scheduleRepository) GetByDate(ctx context.Context, date model.Date) (*model.ScheduleDay, error) {
	query := `
		SELECT id, date, start_time, end_time, notes, created_by,
			   created_at, updated_at
		FROM schedule_days
		WHERE date = $1
	`
	var day model.ScheduleDay
	err := sqlx.GetContext(ctx, q(ctx, r.db), &day, query, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("schedule day", err)
		}
		return nil, fmt.Errorf("failed to get schedule day: %w", err)
	}
	return &day, nil
}

func (r *scheduleRepository) ExistsForDate(ctx context.Context, date model.Date) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM schedule_days WHERE date = $1)`
	var exists bool
	if err := sqlx.GetContext(ctx, q(ctx, r.db), &exists, query, date); err != nil {
		return false, fmt.Errorf("failed to check schedule day existence: %w", err)
	}
	return exists, nil
}

func (r *scheduleRepository) ListRange(ctx context.Context, from, to model.Date) ([]*model.ScheduleDay, error) {
	query := `
		SELECT id, date, start_time, end_time, notes, created_by,
			   created_at, updated_at
		FROM schedule_days
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`
	var days []*model.ScheduleDay
	if err := sqlx.SelectContext(ctx, q(ctx, r.db), &days, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list schedule days: %w", err)
	}
	return days, nil
}

func (r *scheduleRepository) Update(ctx context.Context, day *model.ScheduleDay) error {
	query := `
		UPDATE schedule_days
		SET start_time = $1, end_time = $2, notes = $3, updated_at = $4
		WHERE id = $5
	`
	day.UpdatedAt = time.Now()

	result, err := q(ctx, r.db).ExecContext(ctx, query,
		day.StartTime,
		day.EndTime,
		day.Notes,
		day.UpdatedAt,
		day.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule day: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule day", nil)
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM schedule_days WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule day: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule day", nil)
	}
	return nil
}

func (r *scheduleRepository) DeleteFrom(ctx context.Context, date model.Date) (int64, error) {
	result, err := q(ctx, r.db).ExecContext(ctx, `DELETE FROM schedule_days WHERE date >= $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete schedule days: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
