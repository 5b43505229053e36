package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RewardRepository interface {
	// CreateLog inserts the log unless the same crossing is already recorded.
	CreateLog(ctx context.Context, log *entity.RewardLog) (created bool, err error)
	FindLog(ctx context.Context, userID uuid.UUID, milestone int, day calendar.Day) (*entity.RewardLog, error)
	// MarkStep flips one payout flag on the log.
	MarkStep(ctx context.Context, logID uint, column string) error
	// AddPointsForLog adds the log's points to the user's stats unless the
	// log already paid them. Both writes share one transaction.
	AddPointsForLog(ctx context.Context, log *entity.RewardLog) error
	// Complete stamps paid_at. It reports false when another caller got
	// there first.
	Complete(ctx context.Context, logID uint, at time.Time) (bool, error)
	// ListPending returns unfinished payouts created before the cutoff.
	ListPending(ctx context.Context, before time.Time, limit int) ([]entity.RewardLog, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*entity.RewardStats, error)
	ListLogs(ctx context.Context, userID uuid.UUID, limit int) ([]entity.RewardLog, error)
}

type rewardRepository struct {
	db *gorm.DB
}

func NewRewardRepository(db *gorm.DB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) CreateLog(ctx context.Context, log *entity.RewardLog) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "milestone"}, {Name: "achieved_on"}},
			DoNothing: true,
		}).
		Create(log)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *rewardRepository) FindLog(ctx context.Context, userID uuid.UUID, milestone int, day calendar.Day) (*entity.RewardLog, error) {
	var log entity.RewardLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND milestone = ? AND achieved_on = ?", userID, milestone, day).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reward log %s/%d/%s: %w", userID, milestone, day, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *rewardRepository) MarkStep(ctx context.Context, logID uint, column string) error {
	switch column {
	case entity.RewardStepManual, entity.RewardStepAuto:
	default:
		return fmt.Errorf("unknown payout step %q", column)
	}
	return r.db.WithContext(ctx).Model(&entity.RewardLog{}).
		Where("id = ?", logID).
		Update(column, true).Error
}

func (r *rewardRepository) AddPointsForLog(ctx context.Context, log *entity.RewardLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.RewardLog{}).
			Where("id = ? AND points_paid = ?", log.ID, false).
			Update("points_paid", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		// Using GORM OnConflict for Upsert
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_points":       gorm.Expr("reward_stats.total_points + ?", log.Points),
				"milestones_reached": gorm.Expr("reward_stats.milestones_reached + 1"),
				"last_updated_at":    gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).Create(&entity.RewardStats{
			UserID:            log.UserID,
			TotalPoints:       log.Points,
			MilestonesReached: 1,
		}).Error
	})
}

func (r *rewardRepository) Complete(ctx context.Context, logID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entity.RewardLog{}).
		Where("id = ? AND paid_at IS NULL", logID).
		Update("paid_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *rewardRepository) ListPending(ctx context.Context, before time.Time, limit int) ([]entity.RewardLog, error) {
	var logs []entity.RewardLog
	err := r.db.WithContext(ctx).
		Where("paid_at IS NULL AND created_at < ?", before).
		Order("id ASC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func (r *rewardRepository) GetStats(ctx context.Context, userID uuid.UUID) (*entity.RewardStats, error) {
	var stats []entity.RewardStats
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&stats).Error; err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("reward stats for %s: %w", userID, apperror.ErrNotFound)
	}
	return &stats[0], nil
}

func (r *rewardRepository) ListLogs(ctx context.Context, userID uuid.UUID, limit int) ([]entity.RewardLog, error) {
	var logs []entity.RewardLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("achieved_on DESC, milestone DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
