package streak

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memRepo is an in-memory StreakRepository with the same compare-and-swap
// contract as the gorm one. conflicts forces that many CAS calls to lose.
// interleave, when set, commits a competing write in place of the next CAS.
type memRepo struct {
	mu         sync.Mutex
	records    map[uuid.UUID]entity.StreakRecord
	txs        []entity.FreezeTransaction
	conflicts  int
	casCalls   int
	interleave func(rec *entity.StreakRecord)
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[uuid.UUID]entity.StreakRecord{}}
}

func (m *memRepo) put(rec entity.StreakRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.Version == 0 {
		rec.Version = 1
	}
	m.records[rec.UserID] = rec
}

func (m *memRepo) get(userID uuid.UUID) entity.StreakRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[userID]
}

func (m *memRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StreakRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, apperror.ErrRecordNotFound)
	}
	return &rec, nil
}

func (m *memRepo) CreateIfAbsent(ctx context.Context, record *entity.StreakRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.UserID]; ok {
		return false, nil
	}
	m.records[record.UserID] = *record
	return true, nil
}

func (m *memRepo) CompareAndSwap(ctx context.Context, next *entity.StreakRecord, expectedVersion int64, freezeTx *entity.FreezeTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.interleave != nil {
		cur := m.records[next.UserID]
		m.interleave(&cur)
		m.interleave = nil
		cur.Version++
		m.records[next.UserID] = cur
		return apperror.ErrConcurrencyConflict
	}
	if m.conflicts > 0 {
		m.conflicts--
		return apperror.ErrConcurrencyConflict
	}
	cur, ok := m.records[next.UserID]
	if !ok || cur.Version != expectedVersion {
		return apperror.ErrConcurrencyConflict
	}
	stored := *next
	stored.Version = expectedVersion + 1
	m.records[next.UserID] = stored
	if freezeTx != nil {
		tx := *freezeTx
		tx.ID = uuid.New()
		m.txs = append(m.txs, tx)
	}
	return nil
}

func (m *memRepo) ListFreezeTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]entity.FreezeTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.FreezeTransaction
	for i := len(m.txs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memRepo) TopByCurrentStreak(ctx context.Context, limit int) ([]streakRepo.LeaderboardRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []streakRepo.LeaderboardRow
	for _, rec := range m.records {
		if rec.CurrentStreak > 0 {
			rows = append(rows, streakRepo.LeaderboardRow{
				UserID:        rec.UserID,
				CurrentStreak: rec.CurrentStreak,
				LongestStreak: rec.LongestStreak,
			})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CurrentStreak > rows[j].CurrentStreak })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *memRepo) freezeTxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *memRepo) lastFreezeTx() entity.FreezeTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs[len(m.txs)-1]
}

func (m *memRepo) lookup(userID uuid.UUID) (entity.StreakRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	return rec, ok
}

type fixedZone struct {
	loc *time.Location
}

func (z fixedZone) Location(ctx context.Context, userID uuid.UUID) *time.Location {
	return z.loc
}

// recordingHook collects milestone calls synchronously.
type recordingHook struct {
	mu         sync.Mutex
	milestones map[int]bool
	calls      []int
}

func newRecordingHook(ms ...int) *recordingHook {
	h := &recordingHook{milestones: map[int]bool{}}
	for _, m := range ms {
		h.milestones[m] = true
	}
	return h
}

func (h *recordingHook) IsMilestone(streak int) bool { return h.milestones[streak] }

func (h *recordingHook) OnMilestone(ctx context.Context, userID uuid.UUID, streak int, achievedOn calendar.Day) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, streak)
}

// noon returns a clock pinned to midday UTC on day.
func noon(day string) Clock {
	t := calendar.MustParse(day).Start(time.UTC).Add(12 * time.Hour)
	return func() time.Time { return t }
}

func newTestService(repo *memRepo, clock Clock, hook RewardHook) *streakService {
	svc := NewStreakService(repo, fixedZone{loc: time.UTC}, clock, hook, Options{ManualCapacity: 3}, zap.NewNop())
	return svc.(*streakService)
}

func record(userID uuid.UUID, last string, current, longest int, balance entity.FreezeBalance) entity.StreakRecord {
	if balance.MaxManualCapacity == 0 {
		balance.MaxManualCapacity = 3
	}
	return entity.StreakRecord{
		UserID:         userID,
		LastCheckinDay: calendar.MustParse(last),
		CurrentStreak:  current,
		LongestStreak:  longest,
		FreezeBalance:  balance,
		Version:        1,
	}
}
