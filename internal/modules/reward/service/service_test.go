package reward

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	notifRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/repository"
	notifService "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/service"
	rewardRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/repository"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	streak "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"
	"github.com/GalitskyKK/kirakira-sub003/internal/testutil"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db      *gorm.DB
	mr      *miniredis.Miniredis
	service *rewardService
	ledger  streak.FreezeLedger
	notifs  notifService.NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := func() time.Time { return time.Date(2024, time.July, 7, 8, 0, 0, 0, time.UTC) }
	ledger := streak.NewFreezeLedger(streakRepo.NewStreakRepository(db), nil, clock, streak.Options{ManualCapacity: 3}, zap.NewNop())
	notifs := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), client, zap.NewNop())
	svc := NewRewardService(rewardRepo.NewRewardRepository(db), ledger, notifs, client, zap.NewNop()).(*rewardService)
	svc.now = clock

	return &fixture{db: db, mr: mr, service: svc, ledger: ledger, notifs: notifs}
}

var errUnavailable = errors.New("unavailable")

// failingLedger fails the next `failures` credits of one kind.
type failingLedger struct {
	streak.FreezeLedger
	kind     entity.FreezeKind
	failures int
}

func (l *failingLedger) Credit(ctx context.Context, userID uuid.UUID, kind entity.FreezeKind, amount int) (*streak.CreditResult, error) {
	if kind == l.kind && l.failures > 0 {
		l.failures--
		return nil, errUnavailable
	}
	return l.FreezeLedger.Credit(ctx, userID, kind, amount)
}

// failingPoints fails the next `failures` point writes.
type failingPoints struct {
	rewardRepo.RewardRepository
	failures int
}

func (r *failingPoints) AddPointsForLog(ctx context.Context, log *entity.RewardLog) error {
	if r.failures > 0 {
		r.failures--
		return errUnavailable
	}
	return r.RewardRepository.AddPointsForLog(ctx, log)
}

func (f *fixture) rewardLog(t *testing.T, userID uuid.UUID, milestone int) entity.RewardLog {
	t.Helper()
	var log entity.RewardLog
	require.NoError(t, f.db.Where("user_id = ? AND milestone = ?", userID, milestone).First(&log).Error)
	return log
}

func TestIsMilestone(t *testing.T) {
	svc := &rewardService{}
	for _, days := range []int{3, 7, 14, 30, 60, 100, 365} {
		assert.True(t, svc.IsMilestone(days), days)
	}
	for _, days := range []int{0, 1, 2, 4, 8, 364, 366} {
		assert.False(t, svc.IsMilestone(days), days)
	}
}

func TestNextMilestone(t *testing.T) {
	m, ok := NextMilestone(0)
	require.True(t, ok)
	assert.Equal(t, 3, m.Days)

	m, ok = NextMilestone(7)
	require.True(t, ok)
	assert.Equal(t, 14, m.Days)

	_, ok = NextMilestone(365)
	assert.False(t, ok)
}

func TestGrant_PaysOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	day := calendar.MustParse("2024-07-07")
	m, _ := milestoneFor(7)

	require.NoError(t, f.service.grant(ctx, userID, m, day))
	require.NoError(t, f.service.grant(ctx, userID, m, day))

	balance, err := f.ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, balance.ManualCredits)
	assert.Equal(t, 1, balance.AutoCredits)

	summary, err := f.service.Summary(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, summary.TotalPoints)
	assert.Equal(t, 1, summary.MilestonesReached)
	require.Len(t, summary.Recent, 1)
	assert.Equal(t, 7, summary.Recent[0].Milestone)

	count, err := f.notifs.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGrant_DatabaseIsTheAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	day := calendar.MustParse("2024-07-07")
	m, _ := milestoneFor(3)

	require.NoError(t, f.service.grant(ctx, userID, m, day))
	// Losing the Redis key must not lead to a second payout.
	f.mr.FlushAll()
	require.NoError(t, f.service.grant(ctx, userID, m, day))

	balance, err := f.ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, balance.AutoCredits)

	var logs int64
	require.NoError(t, f.db.Model(&entity.RewardLog{}).Where("user_id = ?", userID).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestGrant_NewRunPaysAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	m, _ := milestoneFor(3)

	require.NoError(t, f.service.grant(ctx, userID, m, calendar.MustParse("2024-07-03")))
	require.NoError(t, f.service.grant(ctx, userID, m, calendar.MustParse("2024-07-20")))

	summary, err := f.service.Summary(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MilestonesReached)
	assert.Equal(t, 20, summary.TotalPoints)
	assert.Equal(t, "2024-07-20", summary.Recent[0].AchievedOn.String())
}

func TestGrant_ManualCreditsSaturate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.ledger.Credit(ctx, userID, entity.FreezeManual, 3)
	require.NoError(t, err)

	m, _ := milestoneFor(60)
	require.NoError(t, f.service.grant(ctx, userID, m, calendar.MustParse("2024-07-07")))

	balance, err := f.ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, balance.ManualCredits)
}

func TestOnMilestone_RunsInBackground(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()

	f.service.OnMilestone(context.Background(), userID, 14, calendar.MustParse("2024-07-07"))
	f.service.OnMilestone(context.Background(), userID, 15, calendar.MustParse("2024-07-08"))
	f.service.Close()

	summary, err := f.service.Summary(context.Background(), userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.TotalPoints)
	assert.Equal(t, 1, summary.MilestonesReached)
}

func TestSummary_Empty(t *testing.T) {
	f := newFixture(t)

	summary, err := f.service.Summary(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalPoints)
	assert.NotNil(t, summary.Recent)
	assert.Empty(t, summary.Recent)
}

func TestGrant_RetryAfterFailedCreditPaysInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	day := calendar.MustParse("2024-07-07")
	m, _ := milestoneFor(7)

	f.service.ledger = &failingLedger{FreezeLedger: f.ledger, kind: entity.FreezeAuto, failures: 1}

	err := f.service.grant(ctx, userID, m, day)
	require.ErrorIs(t, err, errUnavailable)
	assert.False(t, f.mr.Exists(dedupeKey(userID, 7, day)), "a failed payout must release the dedupe key")

	log := f.rewardLog(t, userID, 7)
	assert.True(t, log.ManualPaid)
	assert.False(t, log.AutoPaid)
	assert.False(t, log.PointsPaid)
	assert.Nil(t, log.PaidAt)

	require.NoError(t, f.service.grant(ctx, userID, m, day))
	require.NoError(t, f.service.grant(ctx, userID, m, day))

	balance, err := f.ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, balance.ManualCredits, "manual credits are not paid twice")
	assert.Equal(t, 1, balance.AutoCredits)

	summary, err := f.service.Summary(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, summary.TotalPoints)
	assert.Equal(t, 1, summary.MilestonesReached)

	log = f.rewardLog(t, userID, 7)
	assert.NotNil(t, log.PaidAt)

	count, err := f.notifs.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResumePending_SettlesInterruptedPayouts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	day := calendar.MustParse("2024-07-03")
	m, _ := milestoneFor(3)

	f.service.repo = &failingPoints{RewardRepository: f.service.repo, failures: 1}
	require.Error(t, f.service.grant(ctx, userID, m, day))

	// Too fresh: a live payout may still be working on it.
	n, err := f.service.ResumePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	base := f.service.now()
	f.service.now = func() time.Time { return base.Add(time.Hour) }

	n, err = f.service.ResumePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	balance, err := f.ledger.Balance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, balance.AutoCredits, "credits paid before the failure are not paid again")

	summary, err := f.service.Summary(ctx, userID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, summary.TotalPoints)
	assert.Equal(t, 1, summary.MilestonesReached)
	assert.NotNil(t, f.rewardLog(t, userID, 3).PaidAt)

	n, err = f.service.ResumePending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
