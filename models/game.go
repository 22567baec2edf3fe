package models

import (
	"encoding/json"
	"time"
)

// GameStatus соответствует ENUM game_status в БД.
//
// The old portal overloaded the result column with the sentinel string
// "uitgesteld" to mark a postponed game. Here the status is an explicit
// enum and result only ever holds an outcome; the legacy sentinel
// survives in the JSON rendering so existing clients keep working.
type GameStatus string

const (
	GameStatusScheduled GameStatus = "scheduled"
	GameStatusPlayed    GameStatus = "played"
	GameStatusPostponed GameStatus = "postponed"
)

// Game outcome strings as Sevilla exports them.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "½-½"

	// legacyPostponedResult is what the result field used to contain for
	// a postponed game. Kept for wire compatibility only.
	legacyPostponedResult = "uitgesteld"
)

// Game is a single pairing inside a round. Speler2ID is nil for a bye.
// A postponed original is never deleted: it keeps its players and gets a
// successor game in a makeup round pointing back via OriginalGameID.
type Game struct {
	ID        int        `json:"id" db:"id"`
	RoundID   int        `json:"round_id" db:"round_id"`
	Speler1ID *int       `json:"speler1_id" db:"speler1_id"`
	Speler2ID *int       `json:"speler2_id" db:"speler2_id"`
	WinnaarID *int       `json:"winnaar_id,omitempty" db:"winnaar_id"`
	Status    GameStatus `json:"status" db:"status"`
	Result    *string    `json:"result" db:"result"`

	// PostponedAt records when the game was postponed; set together with
	// the postponed status, cleared again on undo.
	PostponedAt *time.Time `json:"uitgestelde_datum,omitempty" db:"uitgestelde_datum"`

	// OriginalGameID is set on the successor game created inside a makeup
	// round and is immutable once set.
	OriginalGameID *int `json:"original_game_id,omitempty" db:"original_game_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (g *Game) IsPostponed() bool {
	return g.Status == GameStatusPostponed
}

// MarshalJSON renders result as the legacy "uitgesteld" sentinel for
// postponed games, next to the explicit status field.
func (g Game) MarshalJSON() ([]byte, error) {
	type alias Game
	out := struct {
		alias
		Result *string `json:"result"`
	}{alias: alias(g), Result: g.Result}
	if g.Status == GameStatusPostponed {
		legacy := legacyPostponedResult
		out.Result = &legacy
	}
	return json.Marshal(out)
}

// DeriveWinner returns the winner for a decisive outcome, nil otherwise.
func DeriveWinner(result *string, speler1ID, speler2ID *int) *int {
	if result == nil {
		return nil
	}
	switch *result {
	case ResultWhiteWins:
		return speler1ID
	case ResultBlackWins:
		return speler2ID
	}
	return nil
}
