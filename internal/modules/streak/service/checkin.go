package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeStarted          Outcome = "started"
	OutcomeAlreadyCounted   Outcome = "already_counted"
	OutcomeExtended         Outcome = "extended"
	OutcomeAutoFrozen       Outcome = "auto_frozen"
	OutcomeDecisionRequired Outcome = "decision_required"
	OutcomeRestarted        Outcome = "restarted"
)

type CheckinResult struct {
	Outcome    Outcome             `json:"outcome"`
	Evaluation Evaluation          `json:"evaluation"`
	Record     entity.StreakRecord `json:"record"`
	Milestone  bool                `json:"milestone"`
}

// RecordCheckin counts the day that contains at towards the user's streak.
// A single missed day is covered by an auto credit when one is available;
// any other at-risk gap is left for the user to decide on.
func (s *streakService) RecordCheckin(ctx context.Context, userID uuid.UUID, at time.Time) (*CheckinResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("record check-in: empty user id: %w", apperror.ErrInvalidInput)
	}

	today := calendar.Resolve(at, s.location(ctx, userID))
	rec, created, err := s.loadOrCreate(ctx, userID, today, 1)
	if err != nil {
		return nil, err
	}
	if created {
		return s.finishCheckin(ctx, userID, OutcomeStarted, s.evaluator.Evaluate(*rec, today), rec), nil
	}

	var (
		outcome Outcome
		ev      Evaluation
	)
	rec, err = s.mutateOn(ctx, userID, today, "record check-in", func(rec entity.StreakRecord, today calendar.Day) (*mutation, error) {
		ev = s.evaluator.Evaluate(rec, today)

		switch {
		case rec.CurrentStreak == 0:
			outcome = OutcomeStarted
			rec.CurrentStreak = 1
			rec.LastCheckinDay = today
			rec.LongestStreak = max(rec.LongestStreak, 1)
			return &mutation{record: rec}, nil
		case ev.Gap == 0:
			outcome = OutcomeAlreadyCounted
			return nil, nil
		case ev.Gap == 1:
			outcome = OutcomeExtended
			rec.CurrentStreak++
			rec.LastCheckinDay = today
			rec.LongestStreak = max(rec.LongestStreak, rec.CurrentStreak)
			return &mutation{record: rec}, nil
		case ev.State == StateAtRisk && ev.MissedDays == 1 && rec.FreezeBalance.AutoCredits >= 1:
			outcome = OutcomeAutoFrozen
			m, _, err := applyFreeze(rec, ev, s.clock())
			return m, err
		case ev.State == StateAtRisk:
			outcome = OutcomeDecisionRequired
			return nil, nil
		default:
			outcome = OutcomeRestarted
			rec.CurrentStreak = 1
			rec.LastCheckinDay = today
			return &mutation{record: rec}, nil
		}
	})
	if err != nil {
		return nil, err
	}

	return s.finishCheckin(ctx, userID, outcome, ev, rec), nil
}

func (s *streakService) finishCheckin(ctx context.Context, userID uuid.UUID, outcome Outcome, ev Evaluation, rec *entity.StreakRecord) *CheckinResult {
	result := &CheckinResult{Outcome: outcome, Evaluation: ev, Record: *rec}

	switch outcome {
	case OutcomeStarted, OutcomeExtended:
		s.log.Debug("streak check-in counted",
			zap.Stringer("user_id", userID),
			zap.String("outcome", string(outcome)),
			zap.Int("streak", rec.CurrentStreak))
		if s.hook != nil && s.hook.IsMilestone(rec.CurrentStreak) {
			result.Milestone = true
			s.hook.OnMilestone(ctx, userID, rec.CurrentStreak, rec.LastCheckinDay)
		}
	case OutcomeAutoFrozen:
		s.log.Info("auto freeze applied on check-in",
			zap.Stringer("user_id", userID),
			zap.Int("streak", rec.CurrentStreak),
			zap.Int("auto_left", rec.FreezeBalance.AutoCredits))
	case OutcomeRestarted:
		s.log.Info("streak broken, new run started",
			zap.Stringer("user_id", userID),
			zap.Int("missed_days", ev.MissedDays),
			zap.Int("longest", rec.LongestStreak))
	}
	return result
}
