package streak

import (
	"context"
	"fmt"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TryDebit removes amount credits of kind from b. On failure b is returned
// unchanged together with ErrInsufficientCredits.
func TryDebit(b entity.FreezeBalance, kind entity.FreezeKind, amount int) (entity.FreezeBalance, error) {
	if amount < 0 || !kind.Valid() {
		return b, fmt.Errorf("debit %d %s credits: %w", amount, kind, apperror.ErrInvalidInput)
	}
	switch kind {
	case entity.FreezeAuto:
		if b.AutoCredits < amount {
			return b, fmt.Errorf("need %d auto credits, have %d: %w", amount, b.AutoCredits, apperror.ErrInsufficientCredits)
		}
		b.AutoCredits -= amount
	case entity.FreezeManual:
		if b.ManualCredits < amount {
			return b, fmt.Errorf("need %d manual credits, have %d: %w", amount, b.ManualCredits, apperror.ErrInsufficientCredits)
		}
		b.ManualCredits -= amount
	}
	return b, nil
}

// Credit adds credits to b. Manual credits saturate at MaxManualCapacity and
// the overflow is discarded; accepted reports how many were kept.
func Credit(b entity.FreezeBalance, kind entity.FreezeKind, amount int) (next entity.FreezeBalance, accepted int) {
	if amount <= 0 {
		return b, 0
	}
	switch kind {
	case entity.FreezeAuto:
		b.AutoCredits += amount
		return b, amount
	case entity.FreezeManual:
		room := b.MaxManualCapacity - b.ManualCredits
		if room <= 0 {
			return b, 0
		}
		accepted = min(amount, room)
		b.ManualCredits += accepted
		return b, accepted
	}
	return b, 0
}

type CreditResult struct {
	Balance   entity.FreezeBalance `json:"balance"`
	Accepted  int                  `json:"accepted"`
	Discarded int                  `json:"discarded"`
}

// FreezeLedger owns a user's freeze balances. Every change is committed
// through the same optimistic update as the streak itself.
type FreezeLedger interface {
	Balance(ctx context.Context, userID uuid.UUID) (entity.FreezeBalance, error)
	Credit(ctx context.Context, userID uuid.UUID, kind entity.FreezeKind, amount int) (*CreditResult, error)
	Debit(ctx context.Context, userID uuid.UUID, kind entity.FreezeKind, amount int) (entity.FreezeBalance, error)
}

type freezeLedger struct {
	*unitOfWork
}

func NewFreezeLedger(repo streakRepo.StreakRepository, locations LocationSource, clock Clock, opts Options, log *zap.Logger) FreezeLedger {
	return &freezeLedger{unitOfWork: newUnitOfWork(repo, locations, clock, opts, log.Named("freeze_ledger"))}
}

func (l *freezeLedger) Balance(ctx context.Context, userID uuid.UUID) (entity.FreezeBalance, error) {
	rec, err := l.repo.FindByUserID(ctx, userID)
	if err != nil {
		return entity.FreezeBalance{}, err
	}
	return rec.FreezeBalance, nil
}

func (l *freezeLedger) Credit(ctx context.Context, userID uuid.UUID, kind entity.FreezeKind, amount int) (*CreditResult, error) {
	if !kind.Valid() || amount <= 0 {
		return nil, fmt.Errorf("credit %d %q credits: %w", amount, kind, apperror.ErrInvalidInput)
	}
	if _, _, err := l.loadOrCreate(ctx, userID, l.today(ctx, userID), 0); err != nil {
		return nil, err
	}

	var accepted int
	rec, err := l.mutate(ctx, userID, "credit freeze", func(rec entity.StreakRecord, _ calendar.Day) (*mutation, error) {
		rec.FreezeBalance, accepted = Credit(rec.FreezeBalance, kind, amount)
		if accepted == 0 {
			return nil, nil
		}
		return &mutation{record: rec}, nil
	})
	if err != nil {
		return nil, err
	}

	if accepted < amount {
		l.log.Info("manual freeze credits capped",
			zap.Stringer("user_id", userID),
			zap.Int("requested", amount),
			zap.Int("accepted", accepted))
	}
	return &CreditResult{Balance: rec.FreezeBalance, Accepted: accepted, Discarded: amount - accepted}, nil
}

func (l *freezeLedger) Debit(ctx context.Context, userID uuid.UUID, kind entity.FreezeKind, amount int) (entity.FreezeBalance, error) {
	if amount <= 0 {
		return entity.FreezeBalance{}, fmt.Errorf("debit %d credits: %w", amount, apperror.ErrInvalidInput)
	}
	rec, err := l.mutate(ctx, userID, "debit freeze", func(rec entity.StreakRecord, _ calendar.Day) (*mutation, error) {
		next, err := TryDebit(rec.FreezeBalance, kind, amount)
		if err != nil {
			return nil, err
		}
		rec.FreezeBalance = next
		return &mutation{record: rec}, nil
	})
	if err != nil {
		return entity.FreezeBalance{}, err
	}
	return rec.FreezeBalance, nil
}
