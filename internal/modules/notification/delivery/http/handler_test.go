package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	notifRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/repository"
	notification "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/service"
	"github.com/GalitskyKK/kirakira-sub003/internal/testutil"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	mr      *miniredis.Miniredis
	service notification.NotificationService
	router  *gin.Engine
	userID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := notification.NewNotificationService(notifRepo.NewNotificationRepository(testutil.NewDB(t)), client, zap.NewNop())
	h := NewNotificationHandler(svc, client, nil, zap.NewNop())
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID.String())
		c.Next()
	})
	r.GET("/api/notifications", h.GetNotifications)
	r.GET("/api/notifications/unread-count", h.UnreadCount)
	r.PUT("/api/notifications/:id/read", h.MarkAsRead)
	r.PUT("/api/notifications/read-all", h.MarkAllAsRead)
	r.GET("/api/notifications/ws", h.HandleWebSocket)

	return &fixture{mr: mr, service: svc, router: r, userID: userID}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNotificationRoutes(t *testing.T) {
	f := newFixture(t)
	n := &entity.Notification{UserID: f.userID, ActorID: f.userID, EntityType: "streak", Type: entity.NotificationStreakMilestone, Message: "3 days"}
	require.NoError(t, f.service.CreateNotification(context.Background(), n))

	w := f.do(http.MethodGet, "/api/notifications?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"3 days"`)

	w = f.do(http.MethodGet, "/api/notifications/unread-count")
	assert.JSONEq(t, `{"count": 1}`, w.Body.String())

	w = f.do(http.MethodPut, "/api/notifications/"+uuid.NewString()+"/read")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPut, "/api/notifications/"+n.ID.String()+"/read")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodPut, "/api/notifications/read-all")
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/notifications/unread-count")
	assert.JSONEq(t, `{"count": 0}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/notifications?limit=0&offset=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebSocket_ForwardsNotifications(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/notifications/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	channel := notification.Channel(f.userID)
	require.Eventually(t, func() bool {
		return f.mr.PubSubNumSub(channel)[channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	n := &entity.Notification{UserID: f.userID, ActorID: f.userID, EntityType: "streak", Type: entity.NotificationStreakMilestone, Message: "7 days"}
	require.NoError(t, f.service.CreateNotification(context.Background(), n))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), n.ID.String())
	assert.Contains(t, string(payload), `"message":"7 days"`)
}
