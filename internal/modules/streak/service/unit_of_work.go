package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts    = 3
	DefaultManualCapacity = 3
)

// Clock supplies the current instant. Production uses time.Now.
type Clock func() time.Time

// LocationSource resolves the reference timezone for a user.
type LocationSource interface {
	Location(ctx context.Context, userID uuid.UUID) *time.Location
}

type Options struct {
	FreezeWindow   int
	MaxAttempts    int
	ManualCapacity int
}

// mutation is the outcome of one decision step. A nil *mutation is a no-op.
type mutation struct {
	record   entity.StreakRecord
	freezeTx *entity.FreezeTransaction
}

type decideFunc func(rec entity.StreakRecord, today calendar.Day) (*mutation, error)

// unitOfWork runs read-decide-write cycles against a single user's row with
// optimistic concurrency, retrying a bounded number of times on conflict.
type unitOfWork struct {
	repo           streakRepo.StreakRepository
	locations      LocationSource
	clock          Clock
	maxAttempts    int
	manualCapacity int
	log            *zap.Logger
}

func newUnitOfWork(repo streakRepo.StreakRepository, locations LocationSource, clock Clock, opts Options, log *zap.Logger) *unitOfWork {
	if clock == nil {
		clock = time.Now
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.ManualCapacity < 0 {
		opts.ManualCapacity = DefaultManualCapacity
	}
	return &unitOfWork{
		repo:           repo,
		locations:      locations,
		clock:          clock,
		maxAttempts:    opts.MaxAttempts,
		manualCapacity: opts.ManualCapacity,
		log:            log,
	}
}

func (u *unitOfWork) location(ctx context.Context, userID uuid.UUID) *time.Location {
	if u.locations == nil {
		return time.UTC
	}
	return u.locations.Location(ctx, userID)
}

func (u *unitOfWork) today(ctx context.Context, userID uuid.UUID) calendar.Day {
	return calendar.Resolve(u.clock(), u.location(ctx, userID))
}

// loadOrCreate returns the user's record, inserting a fresh one anchored on
// today with the given streak when none exists yet. created is true only for
// the caller whose insert won.
func (u *unitOfWork) loadOrCreate(ctx context.Context, userID uuid.UUID, today calendar.Day, streak int) (rec *entity.StreakRecord, created bool, err error) {
	rec, err = u.repo.FindByUserID(ctx, userID)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, apperror.ErrRecordNotFound) {
		return nil, false, err
	}

	now := u.clock()
	fresh := &entity.StreakRecord{
		UserID:         userID,
		LastCheckinDay: today,
		CurrentStreak:  streak,
		LongestStreak:  streak,
		FreezeBalance:  entity.FreezeBalance{MaxManualCapacity: u.manualCapacity},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err = u.repo.CreateIfAbsent(ctx, fresh)
	if err != nil {
		return nil, false, fmt.Errorf("create streak record: %w", err)
	}
	if created {
		u.log.Info("streak record created", zap.Stringer("user_id", userID), zap.Int("streak", streak))
		return fresh, true, nil
	}
	// Lost the insert race; the winner's row is authoritative.
	rec, err = u.repo.FindByUserID(ctx, userID)
	return rec, false, err
}

// mutate loads the record, lets decide compute the next state and commits
// it with a version check. decide sees a copy and may be called again on
// conflict, so it must not have side effects.
func (u *unitOfWork) mutate(ctx context.Context, userID uuid.UUID, op string, decide decideFunc) (*entity.StreakRecord, error) {
	return u.mutateOn(ctx, userID, u.today(ctx, userID), op, decide)
}

// mutateOn is mutate with the calendar day fixed by the caller.
func (u *unitOfWork) mutateOn(ctx context.Context, userID uuid.UUID, today calendar.Day, op string, decide decideFunc) (*entity.StreakRecord, error) {
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		current, err := u.repo.FindByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}

		m, err := decide(*current, today)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return current, nil
		}

		next := m.record
		next.UserID = current.UserID
		next.UpdatedAt = u.clock()
		if err := next.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		err = u.repo.CompareAndSwap(ctx, &next, current.Version, m.freezeTx)
		if err == nil {
			next.Version = current.Version + 1
			return &next, nil
		}
		if !errors.Is(err, apperror.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		u.log.Debug("optimistic update conflict",
			zap.String("op", op),
			zap.Stringer("user_id", userID),
			zap.Int("attempt", attempt))
	}

	u.log.Warn("optimistic update attempts exhausted",
		zap.String("op", op),
		zap.Stringer("user_id", userID),
		zap.Int("attempts", u.maxAttempts))
	return nil, fmt.Errorf("%s after %d attempts: %w", op, u.maxAttempts, apperror.ErrConcurrencyConflict)
}
