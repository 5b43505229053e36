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

// maxRequestedDays bounds the client's missed-day hint; anything above is malformed.
const maxRequestedDays = 3650

// FreezeRequest is advisory: the service re-derives the missed days and the
// credit kind from the stored record.
type FreezeRequest struct {
	Type       entity.FreezeKind
	MissedDays int
}

type FreezeResult struct {
	// Applied is false when there was nothing to forgive.
	Applied       bool                 `json:"applied"`
	Type          entity.FreezeKind    `json:"type,omitempty"`
	DaysCovered   int                  `json:"days_covered"`
	Remaining     entity.FreezeBalance `json:"remaining"`
	CurrentStreak int                  `json:"current_streak"`
	LongestStreak int                  `json:"longest_streak"`
}

// selectFreeze picks the credits that cover missed days: one auto credit for
// a single-day gap when available, otherwise exactly missed manual credits.
func selectFreeze(b entity.FreezeBalance, missed int) (entity.FreezeKind, entity.FreezeBalance, error) {
	if missed == 1 && b.AutoCredits >= 1 {
		next, err := TryDebit(b, entity.FreezeAuto, 1)
		return entity.FreezeAuto, next, err
	}
	next, err := TryDebit(b, entity.FreezeManual, missed)
	if err != nil {
		return "", b, err
	}
	return entity.FreezeManual, next, nil
}

// applyFreeze builds the mutation that spends credits for ev. The streak
// counters are left as they are; only the check-in day moves to today.
func applyFreeze(rec entity.StreakRecord, ev Evaluation, at time.Time) (*mutation, entity.FreezeKind, error) {
	kind, balance, err := selectFreeze(rec.FreezeBalance, ev.MissedDays)
	if err != nil {
		return nil, "", err
	}

	spent := ev.MissedDays
	if kind == entity.FreezeAuto {
		spent = 1
	}

	rec.FreezeBalance = balance
	rec.LastCheckinDay = ev.Today

	return &mutation{
		record: rec,
		freezeTx: &entity.FreezeTransaction{
			UserID:          rec.UserID,
			Type:            kind,
			DaysCovered:     ev.MissedDays,
			CreditsSpent:    spent,
			ResultingStreak: rec.CurrentStreak,
			AppliedOn:       ev.Today,
			AppliedAt:       at,
		},
	}, kind, nil
}

// UseStreakFreeze spends freeze credits to cover the days missed since the
// last check-in. Eligibility is re-evaluated inside every attempt.
func (s *streakService) UseStreakFreeze(ctx context.Context, userID uuid.UUID, req FreezeRequest) (*FreezeResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("use freeze: empty user id: %w", apperror.ErrInvalidInput)
	}
	if req.MissedDays < 0 || req.MissedDays > maxRequestedDays {
		return nil, fmt.Errorf("use freeze: missed days %d out of range: %w", req.MissedDays, apperror.ErrInvalidInput)
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, fmt.Errorf("use freeze: unknown freeze type %q: %w", req.Type, apperror.ErrInvalidInput)
	}

	var (
		applied bool
		sawGap  bool
		kind    entity.FreezeKind
		ev      Evaluation
	)
	rec, err := s.mutate(ctx, userID, "use freeze", func(rec entity.StreakRecord, today calendar.Day) (*mutation, error) {
		applied, kind = false, ""
		ev = s.evaluator.Evaluate(rec, today)

		switch {
		case sawGap && (rec.CurrentStreak == 0 || ev.MissedDays == 0):
			// An earlier attempt saw the gap and lost the write; whoever won
			// settled it, so this request did not.
			return nil, fmt.Errorf("gap settled by a concurrent request: %w", apperror.ErrConcurrencyConflict)
		case rec.CurrentStreak == 0:
			// Nothing to protect.
			return nil, nil
		case ev.State == StateBroken:
			return nil, fmt.Errorf("%d missed days exceed the %d day window: %w", ev.MissedDays, s.evaluator.FreezeWindow()-1, apperror.ErrGapTooLarge)
		case ev.MissedDays == 0:
			return nil, nil
		}

		sawGap = true
		m, k, err := applyFreeze(rec, ev, s.clock())
		if err != nil {
			return nil, err
		}
		applied, kind = true, k
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	if req.MissedDays != ev.MissedDays || (req.Type != "" && req.Type != kind && applied) {
		s.log.Debug("freeze request differs from server evaluation",
			zap.Stringer("user_id", userID),
			zap.Int("requested_days", req.MissedDays),
			zap.Int("missed_days", ev.MissedDays),
			zap.String("requested_type", string(req.Type)),
			zap.String("applied_type", string(kind)))
	}
	if applied {
		s.log.Info("streak freeze applied",
			zap.Stringer("user_id", userID),
			zap.String("type", string(kind)),
			zap.Int("days", ev.MissedDays),
			zap.Int("streak", rec.CurrentStreak))
	}

	result := &FreezeResult{
		Applied:       applied,
		Type:          kind,
		Remaining:     rec.FreezeBalance,
		CurrentStreak: rec.CurrentStreak,
		LongestStreak: rec.LongestStreak,
	}
	if applied {
		result.DaysCovered = ev.MissedDays
	}
	return result, nil
}
