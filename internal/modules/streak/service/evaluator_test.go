package streak

import (
	"testing"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEvaluator_Evaluate(t *testing.T) {
	rec := record(uuid.New(), "2024-01-01", 5, 5, entity.FreezeBalance{})
	e := NewEvaluator(DefaultFreezeWindow)

	tests := []struct {
		name   string
		today  string
		state  State
		missed int
	}{
		{name: "same day", today: "2024-01-01", state: StateActive, missed: 0},
		{name: "next day", today: "2024-01-02", state: StateActive, missed: 0},
		{name: "one missed day", today: "2024-01-03", state: StateAtRisk, missed: 1},
		{name: "two missed days", today: "2024-01-04", state: StateAtRisk, missed: 2},
		{name: "edge of window", today: "2024-01-09", state: StateAtRisk, missed: 7},
		{name: "just past window", today: "2024-01-10", state: StateBroken, missed: 8},
		{name: "long absence", today: "2024-01-11", state: StateBroken, missed: 9},
		{name: "clock behind last check-in", today: "2023-12-31", state: StateActive, missed: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := e.Evaluate(rec, calendar.MustParse(tt.today))
			assert.Equal(t, tt.state, ev.State)
			assert.Equal(t, tt.missed, ev.MissedDays)
			assert.Equal(t, calendar.MustParse(tt.today), ev.Today)
		})
	}
}

func TestEvaluator_IsIdempotentAndPure(t *testing.T) {
	rec := record(uuid.New(), "2024-01-01", 5, 5, entity.FreezeBalance{})
	before := rec
	e := NewEvaluator(0)
	today := calendar.MustParse("2024-01-04")

	first := e.Evaluate(rec, today)
	second := e.Evaluate(rec, today)

	assert.Equal(t, first, second)
	assert.Equal(t, before, rec)
	assert.Equal(t, DefaultFreezeWindow, e.FreezeWindow())
}

func TestEvaluator_ZeroStreakIsClassifiedByGap(t *testing.T) {
	rec := record(uuid.New(), "2024-01-01", 0, 4, entity.FreezeBalance{})
	ev := NewEvaluator(DefaultFreezeWindow).Evaluate(rec, calendar.MustParse("2024-01-05"))
	assert.Equal(t, StateAtRisk, ev.State)
	assert.Equal(t, 3, ev.MissedDays)
}
