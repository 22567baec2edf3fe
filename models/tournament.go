package models

import "time"

// Tournament is a club tournament (clubkampioenschap or interclub).
// Regular rounds are created by the Sevilla import; this subsystem only
// manages its makeup days.
type Tournament struct {
	ID        int       `json:"id" db:"id"`
	Naam      string    `json:"naam" db:"naam"`
	Seizoen   string    `json:"seizoen,omitempty" db:"seizoen"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Rounds []Round `json:"rounds,omitempty" db:"-"`
}
