package clock

import (
	"time"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
)

// Clock supplies "now" and "today" in the clinic's civil timezone. Every
// past/future comparison in the booking core goes through it; nothing
// compares against UTC-naive wall time.
type Clock interface {
	Now() time.Time
	Today() model.Date
	Location() *time.Location
}

type clinicClock struct {
	loc *time.Location
}

func New(loc *time.Location) Clock {
	return &clinicClock{loc: loc}
}

func (c *clinicClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *clinicClock) Today() model.Date {
	return model.DateOf(c.Now())
}

func (c *clinicClock) Location() *time.Location {
	return c.loc
}

// Fixed returns a clock pinned to a single instant, for tests.
func Fixed(t time.Time) Clock {
	return &fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c *fixedClock) Now() time.Time           { return c.t }
func (c *fixedClock) Today() model.Date        { return model.DateOf(c.t) }
func (c *fixedClock) Location() *time.Location { return c.t.Location() }
