package entity

import (
	"time"

	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
)

// RewardLog records one milestone crossing. The unique index on
// (user_id, milestone, achieved_on) makes a crossing rewardable once.
// Each payout step flips its own flag so an interrupted payout resumes
// where it stopped; PaidAt is set once every step has landed.
type RewardLog struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID    `gorm:"type:uuid;not null;index:idx_reward_unique,unique,priority:1" json:"user_id"`
	Milestone      int          `gorm:"not null;index:idx_reward_unique,unique,priority:2" json:"milestone"`
	AchievedOn     calendar.Day `gorm:"type:date;not null;index:idx_reward_unique,unique,priority:3" json:"achieved_on"`
	CreditsGranted int          `gorm:"not null" json:"credits_granted"`
	Points         int          `gorm:"not null" json:"points"`
	ManualPaid     bool         `gorm:"not null;default:false" json:"-"`
	AutoPaid       bool         `gorm:"not null;default:false" json:"-"`
	PointsPaid     bool         `gorm:"not null;default:false" json:"-"`
	PaidAt         *time.Time   `gorm:"index" json:"paid_at,omitempty"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// Payout step columns on reward_logs.
const (
	RewardStepManual = "manual_paid"
	RewardStepAuto   = "auto_paid"
)

type RewardStats struct {
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	TotalPoints       int       `gorm:"not null" json:"total_points"`
	MilestonesReached int       `gorm:"not null" json:"milestones_reached"`
	LastUpdatedAt     time.Time `gorm:"autoUpdateTime" json:"last_updated_at"`
}
