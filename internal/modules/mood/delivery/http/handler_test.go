package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	moodDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/dto"
	streakDto "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMoods struct {
	got   moodDto.CreateMoodRequest
	limit int
}

func (s *stubMoods) CreateMood(ctx context.Context, userID uuid.UUID, req moodDto.CreateMoodRequest) (*moodDto.CreateMoodResponse, error) {
	s.got = req
	return &moodDto.CreateMoodResponse{
		Entry:  entity.MoodEntry{UserID: userID, Mood: req.Mood},
		Streak: &streakDto.CheckinSummary{Outcome: "extended", CurrentStreak: 4, LongestStreak: 4},
	}, nil
}

func (s *stubMoods) ListMoods(ctx context.Context, userID uuid.UUID, limit int) ([]entity.MoodEntry, error) {
	s.limit = limit
	return []entity.MoodEntry{{UserID: userID, Mood: 2}}, nil
}

func newRouter(svc *stubMoods) *gin.Engine {
	h := NewMoodHandler(svc)
	userID := uuid.New()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})
	r.POST("/api/moods", h.CreateMood)
	r.GET("/api/moods", h.ListMoods)
	return r
}

func post(r *gin.Engine, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/moods", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateMood(t *testing.T) {
	svc := &stubMoods{}
	r := newRouter(svc)

	w := post(r, gin.H{"mood": 4, "note": "fine"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, moodDto.CreateMoodRequest{Mood: 4, Note: "fine"}, svc.got)

	var body struct {
		Streak streakDto.CheckinSummary `json:"streak"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "extended", body.Streak.Outcome)
	assert.Equal(t, 4, body.Streak.CurrentStreak)
}

func TestCreateMood_Validation(t *testing.T) {
	r := newRouter(&stubMoods{})

	for _, body := range []gin.H{{"mood": 0}, {"mood": 9}, {"note": "no mood"}} {
		w := post(r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "mood")
	}
}

func TestListMoods(t *testing.T) {
	svc := &stubMoods{}
	r := newRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/moods", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30, svc.limit)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
