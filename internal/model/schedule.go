package model

import (
	"time"

	"github.com/google/uuid"
)

// ClosedWeekday is the clinic's fixed closed day. No schedule configuration
// or appointment may exist on this weekday.
const ClosedWeekday = time.Sunday

// ScheduleDay is one clinic-day's bookable operating window
// [StartTime, EndTime). A single record exists per date.
type ScheduleDay struct {
	Base
	Date      Date       `db:"date" json:"date"`
	StartTime TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay  `db:"end_time" json:"end_time"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	CreatedBy *uuid.UUID `db:"created_by" json:"created_by,omitempty"`
}

// Slot is a derived half-open interval [Start, End), always 30 minutes wide.
// Slots are never persisted; they are recomputed from the window on demand.
type Slot struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// SlotCount returns the number of whole 30-minute slots that tile the window.
func (d *ScheduleDay) SlotCount() int {
	span := d.EndTime.Sub(d.StartTime)
	if span <= 0 {
		return 0
	}
	return span / SlotMinutes
}

// Slots tiles [StartTime, EndTime) left to right with 30-minute slots aligned
// to StartTime. The trailing slot is included only when its end does not
// exceed EndTime.
func (d *ScheduleDay) Slots() []Slot {
	n := d.SlotCount()
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		start := d.StartTime.AddMinutes(i * SlotMinutes)
		slots = append(slots, Slot{Start: start, End: start.AddMinutes(SlotMinutes)})
	}
	return slots
}

// SlotIndex maps a lattice-aligned start time to its slot index, or -1 when
// the time falls outside the window or off the lattice.
func (d *ScheduleDay) SlotIndex(t TimeOfDay) int {
	offset := t.Sub(d.StartTime)
	if offset < 0 || offset%SlotMinutes != 0 {
		return -1
	}
	i := offset / SlotMinutes
	if i >= d.SlotCount() {
		return -1
	}
	return i
}

type CreateScheduleDayRequest struct {
	Date      Date      `json:"date" binding:"required"`
	StartTime TimeOfDay `json:"start_time" binding:"required,slotaligned"`
	EndTime   TimeOfDay `json:"end_time" binding:"required,slotaligned"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

type UpdateScheduleDayRequest struct {
	StartTime *TimeOfDay `json:"start_time" binding:"omitempty,slotaligned"`
	EndTime   *TimeOfDay `json:"end_time" binding:"omitempty,slotaligned"`
	Notes     *string    `json:"notes"`
}

type BulkGenerateRequest struct {
	StartDate Date      `json:"start_date" binding:"required"`
	EndDate   Date      `json:"end_date" binding:"required"`
	StartTime TimeOfDay `json:"start_time" binding:"required,slotaligned"`
	EndTime   TimeOfDay `json:"end_time" binding:"required,slotaligned"`
}

// BulkGenerateResult reports what a bulk generation run did. Skipped dates
// are counted separately by reason.
type BulkGenerateResult struct {
	Created         int `json:"created"`
	SkippedClosed   int `json:"skipped_closed_day"`
	SkippedExisting int `json:"skipped_existing"`
}
