package dto

import (
	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	streakDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/dto"
)

type CreateMoodRequest struct {
	Mood int    `json:"mood" binding:"required,min=1,max=5"`
	Note string `json:"note" binding:"max=1000"`
}

type CreateMoodResponse struct {
	Entry  entity.MoodEntry          `json:"entry"`
	Streak *streakDto.CheckinSummary `json:"streak"`
}
