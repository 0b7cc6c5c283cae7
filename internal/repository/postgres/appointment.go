package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	apperrors "github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

const appointmentColumns = `
	id, date, start_time, duration_minutes, status, patient_type, reason,
	patient_id, patient_name, temp_first_name, temp_last_name, temp_email, temp_phone,
	dentist_id, confirmed_at, decided_by, reschedule_token_hash, staff_notes,
	created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
				$11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	appt.ID = uuid.New()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = time.Now()

	_, err := q(ctx, r.db).ExecContext(ctx, query,
		appt.ID,
		appt.Date,
		appt.StartTime,
		appt.DurationMinutes,
		appt.Status,
		appt.PatientType,
		appt.Reason,
		appt.PatientID,
		appt.PatientName,
		appt.TempFirst,
		appt.TempLast,
		appt.TempEmail,
		appt.TempPhone,
		appt.DentistID,
		appt.ConfirmedAt,
		appt.DecidedBy,
		appt.RescheduleTokenHash,
		appt.StaffNotes,
		appt.CreatedAt,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appt model.Appointment
	err := sqlx.GetContext(ctx, q(ctx, r.db), &appt, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET date = $1, start_time = $2, duration_minutes = $3, status = $4,
			reason = $5, patient_id = $6, patient_name = $7,
			temp_first_name = $8, temp_last_name = $9, temp_email = $10, temp_phone = $11,
			dentist_id = $12, confirmed_at = $13, decided_by = $14,
			reschedule_token_hash = $15, staff_notes = $16, updated_at = $17
		WHERE id = $18
	`
	appt.UpdatedAt = time.Now()

	result, err := q(ctx, r.db).ExecContext(ctx, query,
		appt.Date,
		appt.StartTime,
		appt.DurationMinutes,
		appt.Status,
		appt.Reason,
		appt.PatientID,
		appt.PatientName,
		appt.TempFirst,
		appt.TempLast,
		appt.TempEmail,
		appt.TempPhone,
		appt.DentistID,
		appt.ConfirmedAt,
		appt.DecidedBy,
		appt.RescheduleTokenHash,
		appt.StaffNotes,
		appt.UpdatedAt,
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("appointment", nil)
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Date != nil {
			query += fmt.Sprintf(" AND date = $%d", argCount)
			args = append(args, *filters.Date)
			argCount++
		}
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.PatientID != nil {
			query += fmt.Sprintf(" AND patient_id = $%d", argCount)
			args = append(args, *filters.PatientID)
			argCount++
		}
		if filters.DentistID != nil {
			query += fmt.Sprintf(" AND dentist_id = $%d", argCount)
			args = append(args, *filters.DentistID)
			argCount++
		}
		if filters.FromDate != nil {
			query += fmt.Sprintf(" AND date >= $%d", argCount)
			args = append(args, *filters.FromDate)
			argCount++
		}
		if filters.ToDate != nil {
			query += fmt.Sprintf(" AND date <= $%d", argCount)
			args = append(args, *filters.ToDate)
			argCount++
		}
	}

	query += " ORDER BY date ASC, start_time ASC"

	var appointments []*model.Appointment
	if err := sqlx.SelectContext(ctx, q(ctx, r.db), &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForDate(ctx context.Context, date model.Date, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE date = $1 AND status = ANY($2)
		ORDER BY start_time ASC
	`
	statusStrings := make([]string, len(statuses))
	for i, s := range statuses {
		statusStrings[i] = string(s)
	}

	var appointments []*model.Appointment
	err := sqlx.SelectContext(ctx, q(ctx, r.db), &appointments, query, date, pq.Array(statusStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for date: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) FindBlockingForPatient(ctx context.Context, patientID uuid.UUID, date model.Date) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1 AND date = $2
		AND status IN ('pending', 'confirmed', 'completed')
		ORDER BY start_time ASC
		LIMIT 1
	`
	var appt model.Appointment
	err := sqlx.GetContext(ctx, q(ctx, r.db), &appt, query, patientID, date)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find blocking appointment: %w", err)
	}
	return &appt, nil
}

func (r *appointmentRepository) HasCompletedVisit(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient_id = $1 AND status = 'completed'
		)
	`
	var exists bool
	if err := sqlx.GetContext(ctx, q(ctx, r.db), &exists, query, patientID); err != nil {
		return false, fmt.Errorf("failed to check completed visits: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) CountByStatusForDate(ctx context.Context, date model.Date) (map[model.AppointmentStatus]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM appointments
		WHERE date = $1
		GROUP BY status
	`
	rows, err := q(ctx, r.db).QueryxContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.AppointmentStatus]int)
	for rows.Next() {
		var status model.AppointmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
