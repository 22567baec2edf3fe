package services

import (
	"fmt"
	"sort"

	"github.com/svanlaere/schaakclub-portal/models"
)

// MakeupRoundNumberOffset keeps makeup-round numbers far above the dense
// 1..N numbering that Sevilla assigns to regular rounds. A makeup day
// inserted after round 2 gets number 1002, so re-imports from the pairing
// tool never collide with it and the regular rounds keep their imported
// numbers.
const MakeupRoundNumberOffset = 1000

// NumberShift is one renumbering step to apply against the store.
type NumberShift struct {
	RoundID   int
	OldNumber int
	NewNumber int
}

// RoundNumberingPolicy is pure computation over already-fetched rounds;
// it raises no errors of its own. Errors surface from the store calls
// that apply its output.
type RoundNumberingPolicy struct{}

// ComputeMakeupRoundNumber returns the numeric slot for a makeup round
// inserted after the given regular round number.
func (RoundNumberingPolicy) ComputeMakeupRoundNumber(afterRoundNumber int) int {
	return afterRoundNumber + MakeupRoundNumberOffset
}

// NextMakeupDayLabel returns the default display label for a new makeup
// day: "Inhaaldag N", 1-indexed over the makeup rounds already present.
func (RoundNumberingPolicy) NextMakeupDayLabel(rounds []*models.Round) string {
	count := 0
	for _, r := range rounds {
		if r.Type == models.RoundTypeMakeup {
			count++
		}
	}
	return fmt.Sprintf("Inhaaldag %d", count+1)
}

// ShiftPlanAfter plans adding delta to every round with ronde_nummer >=
// fromNumber. The plan is ordered so that applying it one row at a time
// never trips the per-tournament uniqueness constraint: descending by
// current number when shifting up, ascending when shifting down.
func (RoundNumberingPolicy) ShiftPlanAfter(rounds []*models.Round, fromNumber, delta int) []NumberShift {
	if delta == 0 {
		return nil
	}

	shifts := make([]NumberShift, 0)
	for _, r := range rounds {
		if r.Nummer >= fromNumber {
			shifts = append(shifts, NumberShift{
				RoundID:   r.ID,
				OldNumber: r.Nummer,
				NewNumber: r.Nummer + delta,
			})
		}
	}

	sort.Slice(shifts, func(i, j int) bool {
		if delta > 0 {
			return shifts[i].OldNumber > shifts[j].OldNumber
		}
		return shifts[i].OldNumber < shifts[j].OldNumber
	})
	return shifts
}
