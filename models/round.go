package models

import "time"

// RoundType соответствует ENUM round_type в БД.
type RoundType string

const (
	RoundTypeRegular RoundType = "regular" // imported from Sevilla, never created here
	RoundTypeMakeup  RoundType = "makeup"  // inhaaldag, fully owned by this subsystem
)

// Round is one sitting of a tournament. Rounds are displayed ordered by
// ronde_datum ascending, ronde_nummer as tie-break. Within a tournament
// ronde_nummer is unique (enforced by a DB constraint).
type Round struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	Nummer       int       `json:"ronde_nummer" db:"ronde_nummer"`
	Datum        time.Time `json:"ronde_datum" db:"ronde_datum"`
	Startuur     string    `json:"startuur" db:"startuur"`
	Type         RoundType `json:"type" db:"type"`

	// Label is the display name of a makeup day ("Inhaaldag 1", ...).
	// Regular rounds have none.
	Label *string `json:"label,omitempty" db:"label"`

	// CalendarEventID points at the externally owned calendar entry, set
	// only for makeup rounds whose event sync succeeded.
	CalendarEventID *string `json:"calendar_event_id,omitempty" db:"calendar_event_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Games []Game `json:"games" db:"-"`
}

func (r *Round) IsMakeup() bool {
	return r.Type == RoundTypeMakeup
}
