package reward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	notifService "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/service"
	rewardDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/dto"
	rewardRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/repository"
	streak "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dedupeTTL    = 48 * time.Hour
	grantTimeout = 10 * time.Second
	resumeBatch  = 100
)

// RewardService pays out streak milestones. It is the streak engine's
// RewardHook.
type RewardService interface {
	streak.RewardHook
	Summary(ctx context.Context, userID uuid.UUID, recent int) (*rewardDto.RewardSummary, error)
	// ResumePending finishes payouts that were interrupted part way and
	// reports how many it completed.
	ResumePending(ctx context.Context) (int, error)
	// Close waits for in-flight payouts.
	Close()
}

type rewardService struct {
	repo                rewardRepo.RewardRepository
	ledger              streak.FreezeLedger
	notificationService notifService.NotificationService
	redisClient         *redis.Client
	log                 *zap.Logger
	now                 func() time.Time
	inflight            sync.WaitGroup
}

func NewRewardService(repo rewardRepo.RewardRepository, ledger streak.FreezeLedger, notificationService notifService.NotificationService, redisClient *redis.Client, log *zap.Logger) RewardService {
	return &rewardService{
		repo:                repo,
		ledger:              ledger,
		notificationService: notificationService,
		redisClient:         redisClient,
		log:                 log.Named("reward"),
		now:                 time.Now,
	}
}

func (s *rewardService) IsMilestone(streak int) bool {
	_, ok := milestoneFor(streak)
	return ok
}

// OnMilestone pays out in the background so the check-in request is not
// held up by credit writes and notifications.
func (s *rewardService) OnMilestone(ctx context.Context, userID uuid.UUID, streak int, achievedOn calendar.Day) {
	m, ok := milestoneFor(streak)
	if !ok {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), grantTimeout)
		defer cancel()

		if err := s.grant(ctx, userID, m, achievedOn); err != nil {
			s.log.Error("milestone payout failed",
				zap.Stringer("user_id", userID),
				zap.Int("milestone", m.Days),
				zap.Error(err))
		}
	}()
}

func (s *rewardService) Close() {
	s.inflight.Wait()
}

func dedupeKey(userID uuid.UUID, milestone int, day calendar.Day) string {
	return fmt.Sprintf("reward:milestone:%s:%d:%s", userID, milestone, day)
}

// grant pays m once per (user, milestone, day). Redis filters repeats
// cheaply; the unique index on reward_logs is the authority.
func (s *rewardService) grant(ctx context.Context, userID uuid.UUID, m Milestone, day calendar.Day) (err error) {
	key := dedupeKey(userID, m.Days, day)
	if s.redisClient != nil {
		ok, rerr := s.redisClient.SetNX(ctx, key, "1", dedupeTTL).Result()
		switch {
		case rerr != nil:
			s.log.Warn("reward dedupe unavailable", zap.Error(rerr))
		case !ok:
			return nil
		default:
			defer func() {
				if err != nil {
					_ = s.redisClient.Del(context.Background(), key).Err()
				}
			}()
		}
	}

	log := &entity.RewardLog{
		UserID:         userID,
		Milestone:      m.Days,
		AchievedOn:     day,
		CreditsGranted: m.ManualCredits + m.AutoCredits,
		Points:         m.Points,
		CreatedAt:      s.now().UTC(),
	}
	created, err := s.repo.CreateLog(ctx, log)
	if err != nil {
		return fmt.Errorf("create reward log: %w", err)
	}
	if !created {
		if log, err = s.repo.FindLog(ctx, userID, m.Days, day); err != nil {
			return fmt.Errorf("load reward log: %w", err)
		}
		if log.PaidAt != nil {
			return nil
		}
	}

	return s.settle(ctx, log, m)
}

// settle runs the payout steps the log has not recorded yet. A step that
// fails leaves the log pending; the next grant or ResumePending picks up
// from there.
func (s *rewardService) settle(ctx context.Context, log *entity.RewardLog, m Milestone) error {
	discarded := 0
	for _, c := range []struct {
		kind   entity.FreezeKind
		amount int
		paid   bool
		step   string
	}{
		{entity.FreezeManual, m.ManualCredits, log.ManualPaid, entity.RewardStepManual},
		{entity.FreezeAuto, m.AutoCredits, log.AutoPaid, entity.RewardStepAuto},
	} {
		if c.amount == 0 || c.paid {
			continue
		}
		res, err := s.ledger.Credit(ctx, log.UserID, c.kind, c.amount)
		if err != nil {
			return fmt.Errorf("credit %s freezes: %w", c.kind, err)
		}
		discarded += res.Discarded
		if err := s.repo.MarkStep(ctx, log.ID, c.step); err != nil {
			return fmt.Errorf("mark %s credited: %w", c.kind, err)
		}
	}

	if !log.PointsPaid {
		if err := s.repo.AddPointsForLog(ctx, log); err != nil {
			return fmt.Errorf("add reward points: %w", err)
		}
	}

	completed, err := s.repo.Complete(ctx, log.ID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("complete reward log: %w", err)
	}
	if !completed {
		return nil
	}

	s.log.Info("milestone rewarded",
		zap.Stringer("user_id", log.UserID),
		zap.Int("milestone", m.Days),
		zap.Int("points", m.Points),
		zap.Int("credits_discarded", discarded))

	if s.notificationService != nil {
		s.sendMilestoneNotification(ctx, log.UserID, m)
	}
	return nil
}

// ResumePending settles logs left unpaid for longer than a payout may
// take. Running it next to live payouts is safe: every step is guarded by
// its flag.
func (s *rewardService) ResumePending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx, s.now().UTC().Add(-grantTimeout), resumeBatch)
	if err != nil {
		return 0, fmt.Errorf("list pending rewards: %w", err)
	}

	done := 0
	for i := range pending {
		log := &pending[i]
		m, ok := milestoneFor(log.Milestone)
		if !ok {
			s.log.Warn("pending reward for unknown milestone", zap.Uint("log_id", log.ID), zap.Int("milestone", log.Milestone))
			continue
		}
		if err := s.settle(ctx, log, m); err != nil {
			s.log.Error("resume payout failed",
				zap.Uint("log_id", log.ID),
				zap.Stringer("user_id", log.UserID),
				zap.Error(err))
			continue
		}
		done++
	}
	return done, nil
}

func (s *rewardService) sendMilestoneNotification(ctx context.Context, userID uuid.UUID, m Milestone) {
	notification := &entity.Notification{
		UserID:     userID,
		ActorID:    userID, // Self-triggered
		EntityID:   userID,
		EntityType: "streak",
		Type:       entity.NotificationStreakMilestone,
		Message:    fmt.Sprintf("%s! %d days in a row, +%d points.", m.Title, m.Days, m.Points),
	}

	if err := s.notificationService.CreateNotification(ctx, notification); err != nil {
		s.log.Warn("milestone notification failed", zap.Stringer("user_id", userID), zap.Error(err))
	}
}

func (s *rewardService) Summary(ctx context.Context, userID uuid.UUID, recent int) (*rewardDto.RewardSummary, error) {
	summary := &rewardDto.RewardSummary{Recent: []entity.RewardLog{}}

	stats, err := s.repo.GetStats(ctx, userID)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		summary.TotalPoints = stats.TotalPoints
		summary.MilestonesReached = stats.MilestonesReached
	}

	logs, err := s.repo.ListLogs(ctx, userID, recent)
	if err != nil {
		return nil, err
	}
	if logs != nil {
		summary.Recent = logs
	}
	return summary, nil
}
