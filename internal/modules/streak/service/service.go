package streak

import (
	"context"
	"errors"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RewardHook is told when a check-in lifts a streak onto a milestone. The
// milestone table belongs to the hook; the service only guarantees one call
// per committed crossing.
type RewardHook interface {
	IsMilestone(streak int) bool
	OnMilestone(ctx context.Context, userID uuid.UUID, streak int, achievedOn calendar.Day)
}

// Lookup is either absent or present; use Get to reach the record.
type Lookup struct {
	record *entity.StreakRecord
}

func (l Lookup) Get() (entity.StreakRecord, bool) {
	if l.record == nil {
		return entity.StreakRecord{}, false
	}
	return *l.record, true
}

// Status is the answer to CheckStreak.
type Status struct {
	Evaluation
	Record entity.StreakRecord
}

type LeaderboardEntry struct {
	Position      int       `json:"position"`
	UserID        uuid.UUID `json:"user_id"`
	Username      string    `json:"username"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
}

type StreakService interface {
	Lookup(ctx context.Context, userID uuid.UUID) (Lookup, error)
	CheckStreak(ctx context.Context, userID uuid.UUID) (*Status, error)
	RecordCheckin(ctx context.Context, userID uuid.UUID, at time.Time) (*CheckinResult, error)
	UseStreakFreeze(ctx context.Context, userID uuid.UUID, req FreezeRequest) (*FreezeResult, error)
	ResetStreak(ctx context.Context, userID uuid.UUID) (*ResetResult, error)
	FreezeHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.FreezeTransaction, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

type streakService struct {
	*unitOfWork
	evaluator Evaluator
	hook      RewardHook
}

func NewStreakService(repo streakRepo.StreakRepository, locations LocationSource, clock Clock, hook RewardHook, opts Options, log *zap.Logger) StreakService {
	return &streakService{
		unitOfWork: newUnitOfWork(repo, locations, clock, opts, log.Named("streak")),
		evaluator:  NewEvaluator(opts.FreezeWindow),
		hook:       hook,
	}
}

func (s *streakService) Lookup(ctx context.Context, userID uuid.UUID) (Lookup, error) {
	rec, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrRecordNotFound) {
		return Lookup{}, nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{record: rec}, nil
}

// CheckStreak classifies the user's streak for today. A user without a
// record gets an empty one anchored on today.
func (s *streakService) CheckStreak(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if userID == uuid.Nil {
		return nil, apperror.ErrInvalidInput
	}

	today := s.today(ctx, userID)
	rec, _, err := s.loadOrCreate(ctx, userID, today, 0)
	if err != nil {
		return nil, err
	}

	return &Status{
		Evaluation: s.evaluator.Evaluate(*rec, today),
		Record:     *rec,
	}, nil
}

func (s *streakService) FreezeHistory(ctx context.Context, userID uuid.UUID, limit int) ([]entity.FreezeTransaction, error) {
	return s.repo.ListFreezeTransactions(ctx, userID, clampLimit(limit))
}

func (s *streakService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := s.repo.TopByCurrentStreak(ctx, clampLimit(limit))
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Position:      i + 1,
			UserID:        row.UserID,
			Username:      row.Username,
			CurrentStreak: row.CurrentStreak,
			LongestStreak: row.LongestStreak,
		})
	}
	return entries, nil
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}
