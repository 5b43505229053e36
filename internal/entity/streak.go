package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvariantViolated = errors.New("streak invariant violated")

type FreezeKind string

const (
	FreezeManual FreezeKind = "manual"
	FreezeAuto   FreezeKind = "auto"
)

func (k FreezeKind) Valid() bool {
	return k == FreezeManual || k == FreezeAuto
}

// FreezeBalance is persisted in the streak_records row of its owner.
type FreezeBalance struct {
	ManualCredits     int `gorm:"not null" json:"manual"`
	AutoCredits       int `gorm:"not null" json:"auto"`
	MaxManualCapacity int `gorm:"not null" json:"max_manual"`
}

// StreakRecord is the per-user continuity state. Version is bumped on every
// write and is the optimistic concurrency token.
type StreakRecord struct {
	UserID         uuid.UUID     `gorm:"type:uuid;primaryKey" json:"user_id"`
	LastCheckinDay calendar.Day  `gorm:"type:date;not null" json:"last_checkin_day"`
	CurrentStreak  int           `gorm:"not null;index" json:"current_streak"`
	LongestStreak  int           `gorm:"not null" json:"longest_streak"`
	FreezeBalance  FreezeBalance `gorm:"embedded" json:"freezes"`
	Version        int64         `gorm:"not null" json:"-"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (StreakRecord) TableName() string {
	return "streak_records"
}

// Validate checks the invariants that must hold after every mutation.
func (r *StreakRecord) Validate() error {
	switch {
	case r.CurrentStreak < 0:
		return fmt.Errorf("%w: current streak %d is negative", ErrInvariantViolated, r.CurrentStreak)
	case r.CurrentStreak > r.LongestStreak:
		return fmt.Errorf("%w: current streak %d exceeds longest %d", ErrInvariantViolated, r.CurrentStreak, r.LongestStreak)
	case r.FreezeBalance.ManualCredits < 0:
		return fmt.Errorf("%w: manual credits %d are negative", ErrInvariantViolated, r.FreezeBalance.ManualCredits)
	case r.FreezeBalance.ManualCredits > r.FreezeBalance.MaxManualCapacity:
		return fmt.Errorf("%w: manual credits %d exceed capacity %d", ErrInvariantViolated, r.FreezeBalance.ManualCredits, r.FreezeBalance.MaxManualCapacity)
	case r.FreezeBalance.AutoCredits < 0:
		return fmt.Errorf("%w: auto credits %d are negative", ErrInvariantViolated, r.FreezeBalance.AutoCredits)
	case r.LastCheckinDay.IsZero():
		return fmt.Errorf("%w: last check-in day is unset", ErrInvariantViolated)
	}
	return nil
}

// FreezeTransaction is an append-only audit row for every freeze spend.
type FreezeTransaction struct {
	ID              uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID    `gorm:"type:uuid;not null;index:idx_freeze_tx_user_applied,priority:1" json:"user_id"`
	Type            FreezeKind   `gorm:"size:10;not null" json:"type"`
	DaysCovered     int          `gorm:"not null" json:"days_covered"`
	CreditsSpent    int          `gorm:"not null" json:"credits_spent"`
	ResultingStreak int          `gorm:"not null" json:"resulting_streak"`
	AppliedOn       calendar.Day `gorm:"type:date;not null" json:"applied_on"`
	AppliedAt       time.Time    `gorm:"not null;index:idx_freeze_tx_user_applied,priority:2" json:"applied_at"`
}

func (t *FreezeTransaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}
