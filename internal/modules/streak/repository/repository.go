package repository

import (
	"context"
	"fmt"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRow is one line of the current-streak ranking.
type LeaderboardRow struct {
	UserID        uuid.UUID
	Username      string
	CurrentStreak int
	LongestStreak int
}

type StreakRepository interface {
	// FindByUserID returns apperror.ErrRecordNotFound when the user has no record.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StreakRecord, error)
	// CreateIfAbsent inserts record unless one exists; created reports which happened.
	CreateIfAbsent(ctx context.Context, record *entity.StreakRecord) (created bool, err error)
	// CompareAndSwap writes next if the stored version still equals
	// expectedVersion, appending freezeTx in the same transaction. A lost
	// race yields apperror.ErrConcurrencyConflict and writes nothing.
	CompareAndSwap(ctx context.Context, next *entity.StreakRecord, expectedVersion int64, freezeTx *entity.FreezeTransaction) error
	ListFreezeTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]entity.FreezeTransaction, error)
	TopByCurrentStreak(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

type streakRepository struct {
	db *gorm.DB
}

func NewStreakRepository(db *gorm.DB) StreakRepository {
	return &streakRepository{db: db}
}

func (r *streakRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.StreakRecord, error) {
	// Find with a slice keeps gorm from logging "record not found" on every first visit.
	var records []entity.StreakRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, apperror.ErrRecordNotFound)
	}
	return &records[0], nil
}

func (r *streakRepository) CreateIfAbsent(ctx context.Context, record *entity.StreakRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *streakRepository) CompareAndSwap(ctx context.Context, next *entity.StreakRecord, expectedVersion int64, freezeTx *entity.FreezeTransaction) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.StreakRecord{}).
			Where("user_id = ? AND version = ?", next.UserID, expectedVersion).
			Updates(map[string]interface{}{
				"last_checkin_day":    next.LastCheckinDay,
				"current_streak":      next.CurrentStreak,
				"longest_streak":      next.LongestStreak,
				"manual_credits":      next.FreezeBalance.ManualCredits,
				"auto_credits":        next.FreezeBalance.AutoCredits,
				"max_manual_capacity": next.FreezeBalance.MaxManualCapacity,
				"version":             expectedVersion + 1,
				"updated_at":          next.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.ErrConcurrencyConflict
		}

		if freezeTx != nil {
			if err := tx.Create(freezeTx).Error; err != nil {
				return fmt.Errorf("append freeze transaction: %w", err)
			}
		}
		return nil
	})
}

func (r *streakRepository) ListFreezeTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]entity.FreezeTransaction, error) {
	var txs []entity.FreezeTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *streakRepository) TopByCurrentStreak(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.db.WithContext(ctx).
		Model(&entity.StreakRecord{}).
		Select("streak_records.user_id, COALESCE(users.username, '') AS username, streak_records.current_streak, streak_records.longest_streak").
		Joins("LEFT JOIN users ON users.id = streak_records.user_id").
		Where("streak_records.current_streak > 0").
		Order("streak_records.current_streak DESC, streak_records.longest_streak DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
