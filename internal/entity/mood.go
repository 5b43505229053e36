package entity

import (
	"time"

	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MoodMin = 1
	MoodMax = 5
)

// MoodEntry is one mood check-in; it is the qualifying activity for streaks.
type MoodEntry struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;index:idx_mood_user_day,priority:1" json:"user_id"`
	Mood      int          `gorm:"not null" json:"mood"`
	Note      string       `gorm:"type:text" json:"note"`
	Day       calendar.Day `gorm:"type:date;not null;index:idx_mood_user_day,priority:2" json:"day"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (m *MoodEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID, err = uuid.NewV7()
	}
	return
}
