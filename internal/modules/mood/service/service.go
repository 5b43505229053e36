package mood

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	moodDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/dto"
	"github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/repository"
	streak "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/calendar"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

type MoodService interface {
	CreateMood(ctx context.Context, userID uuid.UUID, req moodDto.CreateMoodRequest) (*moodDto.CreateMoodResponse, error)
	ListMoods(ctx context.Context, userID uuid.UUID, limit int) ([]entity.MoodEntry, error)
}

type moodService struct {
	repo      repository.MoodRepository
	streaks   streak.StreakService
	locations streak.LocationSource
	clock     streak.Clock
	sanitizer *bluemonday.Policy
	log       *zap.Logger
}

func NewMoodService(repo repository.MoodRepository, streaks streak.StreakService, locations streak.LocationSource, clock streak.Clock, log *zap.Logger) MoodService {
	if clock == nil {
		clock = time.Now
	}
	return &moodService{
		repo:      repo,
		streaks:   streaks,
		locations: locations,
		clock:     clock,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log.Named("mood"),
	}
}

// CreateMood stores the entry and counts it as the day's check-in. A failed
// check-in does not undo the entry; the next entry of the day retries it.
func (s *moodService) CreateMood(ctx context.Context, userID uuid.UUID, req moodDto.CreateMoodRequest) (*moodDto.CreateMoodResponse, error) {
	if req.Mood < entity.MoodMin || req.Mood > entity.MoodMax {
		return nil, fmt.Errorf("mood %d outside %d..%d: %w", req.Mood, entity.MoodMin, entity.MoodMax, apperror.ErrInvalidInput)
	}

	now := s.clock()
	entry := &entity.MoodEntry{
		UserID: userID,
		Mood:   req.Mood,
		Note:   s.cleanNote(req.Note),
		Day:    calendar.Resolve(now, s.locations.Location(ctx, userID)),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	resp := &moodDto.CreateMoodResponse{Entry: *entry}
	result, err := s.streaks.RecordCheckin(ctx, userID, now)
	if err != nil {
		s.log.Error("check-in after mood entry failed",
			zap.Stringer("user_id", userID),
			zap.Stringer("entry_id", entry.ID),
			zap.Error(err))
		return resp, nil
	}

	summary := result.Summary()
	resp.Streak = &summary
	return resp, nil
}

func (s *moodService) ListMoods(ctx context.Context, userID uuid.UUID, limit int) ([]entity.MoodEntry, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// cleanNote strips markup and collapses whitespace.
func (s *moodService) cleanNote(note string) string {
	clean := html.UnescapeString(s.sanitizer.Sanitize(note))
	return strings.Join(strings.Fields(clean), " ")
}
