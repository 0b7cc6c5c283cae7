package approval

import (
	"context"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/repository"
)

// Policy decides whether a freshly created booking may skip manual review
// and be confirmed immediately. Implementations must be side-effect free;
// the booking service re-checks slot availability before acting on a true
// verdict.
type Policy interface {
	ShouldAutoApprove(ctx context.Context, appt *model.Appointment) (bool, error)
}

// Config carries the tunable knobs for the default policy.
type Config struct {
	Enabled               bool
	RequireCompletedVisit bool
}

type policy struct {
	cfg  Config
	repo repository.AppointmentRepository
}

func NewPolicy(cfg Config, repo repository.AppointmentRepository) Policy {
	return &policy{cfg: cfg, repo: repo}
}

func (p *policy) ShouldAutoApprove(ctx context.Context, appt *model.Appointment) (bool, error) {
	if !p.cfg.Enabled {
		return false, nil
	}
	if !p.cfg.RequireCompletedVisit {
		return true, nil
	}
	// Only patients with at least one completed visit on record qualify.
	if appt.PatientID == nil {
		return false, nil
	}
	return p.repo.HasCompletedVisit(ctx, *appt.PatientID)
}

// Never is a policy that always declines, used when auto-approval is
// disabled outright.
type Never struct{}

func (Never) ShouldAutoApprove(context.Context, *model.Appointment) (bool, error) {
	return false, nil
}
