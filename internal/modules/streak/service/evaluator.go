package streak

import (
	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
)

type State string

const (
	StateActive State = "active"
	StateAtRisk State = "at_risk"
	StateBroken State = "broken"
)

// DefaultFreezeWindow is the largest gap, in days, that freezes may cover.
const DefaultFreezeWindow = 8

// Evaluation is the classification of a record on a given day.
type Evaluation struct {
	State      State        `json:"state"`
	MissedDays int          `json:"missed_days"`
	Gap        int          `json:"gap"`
	Today      calendar.Day `json:"today"`
}

// Evaluator classifies streak records. It never mutates its input, so a
// client can preview the outcome before committing to an action.
type Evaluator struct {
	freezeWindow int
}

func NewEvaluator(freezeWindow int) Evaluator {
	if freezeWindow < 2 {
		freezeWindow = DefaultFreezeWindow
	}
	return Evaluator{freezeWindow: freezeWindow}
}

func (e Evaluator) FreezeWindow() int {
	return e.freezeWindow
}

func (e Evaluator) Evaluate(record entity.StreakRecord, today calendar.Day) Evaluation {
	gap := today.DaysSince(record.LastCheckinDay)
	if gap < 0 {
		// Last check-in lies ahead of today, e.g. after the user moved west.
		gap = 0
	}

	ev := Evaluation{Gap: gap, Today: today}
	switch {
	case gap <= 1:
		ev.State = StateActive
	case gap <= e.freezeWindow:
		ev.State = StateAtRisk
		ev.MissedDays = gap - 1
	default:
		ev.State = StateBroken
		ev.MissedDays = gap - 1
	}
	return ev
}
