package streak

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func credits(b entity.FreezeBalance, kind entity.FreezeKind) int {
	if kind == entity.FreezeAuto {
		return b.AutoCredits
	}
	return b.ManualCredits
}

func randomKind(rng *rand.Rand) entity.FreezeKind {
	if rng.Intn(2) == 0 {
		return entity.FreezeAuto
	}
	return entity.FreezeManual
}

// randomGap favours same-day and next-day activity but regularly jumps past
// the freeze window.
func randomGap(rng *rand.Rand) int {
	switch r := rng.Intn(10); {
	case r < 3:
		return 0
	case r < 7:
		return 1
	default:
		return 2 + rng.Intn(9)
	}
}

func expectedFailure(err error) bool {
	return errors.Is(err, apperror.ErrRecordNotFound) ||
		errors.Is(err, apperror.ErrInsufficientCredits) ||
		errors.Is(err, apperror.ErrGapTooLarge)
}

func TestOperations_InvariantsHoldOverMixedSequences(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 2024, 90210} {
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			repo := newMemRepo()
			userID := uuid.New()
			ctx := context.Background()

			day := calendar.MustParse("2024-01-01")
			clock := func() time.Time { return day.Start(time.UTC).Add(12 * time.Hour) }
			svc := newTestService(repo, clock, nil)
			ledger := NewFreezeLedger(repo, fixedZone{loc: time.UTC}, clock, Options{ManualCapacity: 3}, zap.NewNop())

			// Running total of credits that entered minus credits that left.
			net := 0

			for step := 0; step < 400; step++ {
				day = day.AddDays(randomGap(rng))
				before, existed := repo.lookup(userID)
				txs := repo.freezeTxCount()

				var (
					op       string
					err      error
					accepted int
					debited  int
					kind     = randomKind(rng)
				)
				switch rng.Intn(6) {
				case 0, 1:
					op = "checkin"
					_, err = svc.RecordCheckin(ctx, userID, clock())
				case 2:
					op = "freeze"
					_, err = svc.UseStreakFreeze(ctx, userID, FreezeRequest{MissedDays: rng.Intn(4)})
				case 3:
					op = "reset"
					_, err = svc.ResetStreak(ctx, userID)
				case 4:
					op = "credit"
					var res *CreditResult
					res, err = ledger.Credit(ctx, userID, kind, 1+rng.Intn(3))
					if err == nil {
						accepted = res.Accepted
					}
				case 5:
					op = "debit"
					amount := 1 + rng.Intn(2)
					if _, err = ledger.Debit(ctx, userID, kind, amount); err == nil {
						debited = amount
					}
				}
				msg := fmt.Sprintf("step %d (%s on %s)", step, op, day)

				if err != nil {
					require.True(t, expectedFailure(err), "%s: unexpected error %v", msg, err)
					after, _ := repo.lookup(userID)
					if existed {
						assert.Equal(t, before, after, "%s: a failed operation must not write", msg)
					}
					assert.Equal(t, txs, repo.freezeTxCount(), msg)
					continue
				}

				after, ok := repo.lookup(userID)
				if !ok {
					continue
				}

				assert.GreaterOrEqual(t, after.CurrentStreak, 0, msg)
				assert.LessOrEqual(t, after.CurrentStreak, after.LongestStreak, msg)
				assert.GreaterOrEqual(t, after.FreezeBalance.ManualCredits, 0, msg)
				assert.LessOrEqual(t, after.FreezeBalance.ManualCredits, after.FreezeBalance.MaxManualCapacity, msg)
				assert.GreaterOrEqual(t, after.FreezeBalance.AutoCredits, 0, msg)
				assert.GreaterOrEqual(t, after.LongestStreak, before.LongestStreak, "%s: longest never shrinks", msg)

				spent := 0
				switch appended := repo.freezeTxCount() - txs; appended {
				case 0:
				case 1:
					tx := repo.lastFreezeTx()
					spent = tx.CreditsSpent
					assert.Equal(t, credits(before.FreezeBalance, tx.Type)-credits(after.FreezeBalance, tx.Type), tx.CreditsSpent,
						"%s: balance drop must match the recorded spend", msg)
					assert.Equal(t, after.CurrentStreak, tx.ResultingStreak, msg)
					assert.Equal(t, day, tx.AppliedOn, msg)
				default:
					t.Fatalf("%s: %d freeze transactions for one operation", msg, appended)
				}

				total := func(b entity.FreezeBalance) int { return b.ManualCredits + b.AutoCredits }
				assert.Equal(t, total(before.FreezeBalance)+accepted-debited-spent, total(after.FreezeBalance),
					"%s: credits are conserved", msg)

				net += accepted - debited - spent
				assert.Equal(t, net, total(after.FreezeBalance), "%s: running credit total", msg)
			}
		})
	}
}
