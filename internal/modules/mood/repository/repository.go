package repository

import (
	"context"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MoodRepository interface {
	Create(ctx context.Context, entry *entity.MoodEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.MoodEntry, error)
}

type moodRepository struct {
	db *gorm.DB
}

func NewMoodRepository(db *gorm.DB) MoodRepository {
	return &moodRepository{db: db}
}

func (r *moodRepository) Create(ctx context.Context, entry *entity.MoodEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *moodRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.MoodEntry, error) {
	var entries []entity.MoodEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC, created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
