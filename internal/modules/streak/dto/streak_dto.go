package dto

import (
	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
)

type UseFreezeRequest struct {
	FreezeType string `json:"freeze_type" binding:"omitempty,oneof=auto manual"`
	MissedDays int    `json:"missed_days" binding:"min=0,max=3650"`
}

type GrantCreditsRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=auto manual"`
	Amount int    `json:"amount" binding:"required,min=1,max=100"`
}

type FreezeBalanceResponse struct {
	Manual    int `json:"manual"`
	Auto      int `json:"auto"`
	MaxManual int `json:"max_manual"`
}

type StreakStatusResponse struct {
	State          string                `json:"state"`
	MissedDays     int                   `json:"missed_days"`
	CurrentStreak  int                   `json:"current_streak"`
	LongestStreak  int                   `json:"longest_streak"`
	LastCheckinDay calendar.Day          `json:"last_checkin_day"`
	Today          calendar.Day          `json:"today"`
	Freezes        FreezeBalanceResponse `json:"freezes"`
}

type UseFreezeResponse struct {
	Success       bool                  `json:"success"`
	Applied       bool                  `json:"applied"`
	FreezeType    string                `json:"freeze_type,omitempty"`
	DaysCovered   int                   `json:"days_covered"`
	Remaining     FreezeBalanceResponse `json:"remaining"`
	CurrentStreak int                   `json:"current_streak"`
	LongestStreak int                   `json:"longest_streak"`
}

type ResetStreakResponse struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

type CheckinSummary struct {
	Outcome       string                `json:"outcome"`
	State         string                `json:"state"`
	MissedDays    int                   `json:"missed_days"`
	CurrentStreak int                   `json:"current_streak"`
	LongestStreak int                   `json:"longest_streak"`
	Milestone     bool                  `json:"milestone"`
	Freezes       FreezeBalanceResponse `json:"freezes"`
}

type GrantCreditsResponse struct {
	Accepted  int                   `json:"accepted"`
	Discarded int                   `json:"discarded"`
	Balance   FreezeBalanceResponse `json:"balance"`
}

func ToBalanceResponse(b entity.FreezeBalance) FreezeBalanceResponse {
	return FreezeBalanceResponse{
		Manual:    b.ManualCredits,
		Auto:      b.AutoCredits,
		MaxManual: b.MaxManualCapacity,
	}
}
