package streak

import (
	"context"
	"fmt"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ResetResult struct {
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	Changed       bool `json:"changed"`
}

// ResetStreak zeroes the current run. The longest run and the last check-in
// day stay as they are, and resetting twice is the same as resetting once.
func (s *streakService) ResetStreak(ctx context.Context, userID uuid.UUID) (*ResetResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("reset streak: empty user id: %w", apperror.ErrInvalidInput)
	}

	var changed bool
	rec, err := s.mutate(ctx, userID, "reset streak", func(rec entity.StreakRecord, _ calendar.Day) (*mutation, error) {
		changed = rec.CurrentStreak != 0
		if !changed {
			return nil, nil
		}
		rec.CurrentStreak = 0
		return &mutation{record: rec}, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("streak reset",
			zap.Stringer("user_id", userID),
			zap.Int("longest", rec.LongestStreak))
	}
	return &ResetResult{
		CurrentStreak: rec.CurrentStreak,
		LongestStreak: rec.LongestStreak,
		Changed:       changed,
	}, nil
}
