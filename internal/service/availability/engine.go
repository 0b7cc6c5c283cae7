package availability

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
)

// The engine computes slot availability from an in-memory list of
// appointments fetched once per check. A day has at most a few dozen slots,
// so the nested interval scan is deliberately simple.

// AvailableStarts returns the ordered start times at which a service of the
// given duration fits entirely inside the day's window without overlapping
// any blocking appointment. Output is deterministic: identical inputs yield
// identical results.
func AvailableStarts(day *model.ScheduleDay, appointments []*model.Appointment, durationMinutes int, includePending bool) ([]model.TimeOfDay, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}
	n := durationMinutes / model.SlotMinutes

	slots := day.Slots()
	occupied := make([]bool, len(slots))

	for _, appt := range blockingOnly(appointments, includePending, nil) {
		// Mark every lattice slot whose start falls inside the
		// appointment's [start, end) interval. Marking is by interval
		// membership, never by object identity.
		for i, slot := range slots {
			if slot.Start >= appt.StartTime && slot.Start < appt.EndTime() {
				occupied[i] = true
			}
		}
	}

	starts := []model.TimeOfDay{}
	for i := range slots {
		if i+n > len(slots) {
			break
		}
		free := true
		for j := i; j < i+n; j++ {
			if occupied[j] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		if slots[i].Start.AddMinutes(durationMinutes) > day.EndTime {
			continue
		}
		starts = append(starts, slots[i].Start)
	}
	return starts, nil
}

// IsAvailable checks a single candidate (start, duration) against the day's
// window and blocking appointments. A conflict yields (false, message, nil)
// with the colliding appointment's start time in the message; window and
// duration violations are returned as errors.
func IsAvailable(day *model.ScheduleDay, appointments []*model.Appointment, start model.TimeOfDay, durationMinutes int, excludeID *uuid.UUID, includePending bool) (bool, string, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return false, "", err
	}

	if start < day.StartTime || start >= day.EndTime {
		return false, "", errors.OutOfWindow(fmt.Sprintf(
			"start time %s is outside the operating window %s - %s",
			start.Clock12(), day.StartTime.Clock12(), day.EndTime.Clock12(),
		))
	}

	end := start.AddMinutes(durationMinutes)
	if end > day.EndTime {
		return false, "", errors.ExceedsWindow(fmt.Sprintf(
			"a %d-minute appointment starting at %s would end at %s, past closing time %s",
			durationMinutes, start.Clock12(), end.Clock12(), day.EndTime.Clock12(),
		))
	}

	for _, appt := range blockingOnly(appointments, includePending, excludeID) {
		// Half-open intervals [a,b) and [c,d) overlap iff !(b <= c || a >= d).
		if end <= appt.StartTime || start >= appt.EndTime() {
			continue
		}
		return false, fmt.Sprintf(
			"conflicts with an existing appointment at %s", appt.StartTime.Clock12(),
		), nil
	}

	return true, fmt.Sprintf("%s - %s is available", start.Clock12(), end.Clock12()), nil
}

func validateDuration(durationMinutes int) error {
	if durationMinutes <= 0 || durationMinutes%model.SlotMinutes != 0 {
		return errors.InvalidDuration(fmt.Sprintf(
			"duration must be a positive multiple of %d minutes, got %d",
			model.SlotMinutes, durationMinutes,
		))
	}
	return nil
}

func blockingOnly(appointments []*model.Appointment, includePending bool, excludeID *uuid.UUID) []*model.Appointment {
	filtered := make([]*model.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		if excludeID != nil && appt.ID == *excludeID {
			continue
		}
		if appt.Status == model.AppointmentStatusPending && !includePending {
			continue
		}
		if !appt.Status.Blocks() {
			continue
		}
		filtered = append(filtered, appt)
	}
	return filtered
}
