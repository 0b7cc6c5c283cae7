package model

import "strings"

// Patient is the minimal patient record the booking core needs: a durable
// identity that temporary contacts are promoted into on approval. The full
// patient chart lives outside this service.
type Patient struct {
	Base
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone,omitempty"`
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
