package dto

import "github.com/GalitskyKK/kirakira-sub003/internal/entity"

type RewardSummary struct {
	TotalPoints       int                `json:"total_points"`
	MilestonesReached int                `json:"milestones_reached"`
	Recent            []entity.RewardLog `json:"recent"`
}
