package streak

import (
	"github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/dto"
)

func (s *Status) Response() dto.StreakStatusResponse {
	return dto.StreakStatusResponse{
		State:          string(s.State),
		MissedDays:     s.MissedDays,
		CurrentStreak:  s.Record.CurrentStreak,
		LongestStreak:  s.Record.LongestStreak,
		LastCheckinDay: s.Record.LastCheckinDay,
		Today:          s.Today,
		Freezes:        dto.ToBalanceResponse(s.Record.FreezeBalance),
	}
}

func (r *FreezeResult) Response() dto.UseFreezeResponse {
	return dto.UseFreezeResponse{
		Success:       true,
		Applied:       r.Applied,
		FreezeType:    string(r.Type),
		DaysCovered:   r.DaysCovered,
		Remaining:     dto.ToBalanceResponse(r.Remaining),
		CurrentStreak: r.CurrentStreak,
		LongestStreak: r.LongestStreak,
	}
}

func (r *ResetResult) Response() dto.ResetStreakResponse {
	return dto.ResetStreakResponse{
		CurrentStreak: r.CurrentStreak,
		LongestStreak: r.LongestStreak,
	}
}

func (r *CheckinResult) Summary() dto.CheckinSummary {
	return dto.CheckinSummary{
		Outcome:       string(r.Outcome),
		State:         string(r.Evaluation.State),
		MissedDays:    r.Evaluation.MissedDays,
		CurrentStreak: r.Record.CurrentStreak,
		LongestStreak: r.Record.LongestStreak,
		Milestone:     r.Milestone,
		Freezes:       dto.ToBalanceResponse(r.Record.FreezeBalance),
	}
}
