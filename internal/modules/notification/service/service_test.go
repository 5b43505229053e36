package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	notifRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/repository"
	"github.com/GalitskyKK/kirakira-sub003/internal/testutil"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (NotificationService, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := notifRepo.NewNotificationRepository(testutil.NewDB(t))
	return NewNotificationService(repo, client, zap.NewNop()), client
}

func TestCreateNotification_PersistsAndPublishes(t *testing.T) {
	svc, client := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	sub := client.Subscribe(ctx, Channel(userID))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := &entity.Notification{
		UserID:     userID,
		ActorID:    userID,
		EntityType: "streak",
		Type:       entity.NotificationStreakMilestone,
		Message:    "7 day streak!",
	}
	require.NoError(t, svc.CreateNotification(ctx, n))
	assert.NotEqual(t, uuid.Nil, n.ID)

	select {
	case msg := <-sub.Channel():
		var got entity.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, n.ID, got.ID)
		assert.Equal(t, "7 day streak!", got.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not published")
	}

	list, err := svc.GetNotifications(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMarkAsRead_ScopedToOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	owner, stranger := uuid.New(), uuid.New()

	n := &entity.Notification{UserID: owner, ActorID: owner, EntityType: "streak", Type: entity.NotificationStreakMilestone}
	require.NoError(t, svc.CreateNotification(ctx, n))

	err := svc.MarkAsRead(ctx, stranger, n.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, svc.MarkAsRead(ctx, owner, n.ID))
	count, err := svc.UnreadCount(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllAsRead(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.CreateNotification(ctx, &entity.Notification{
			UserID: userID, ActorID: userID, EntityType: "streak", Type: entity.NotificationStreakMilestone,
		}))
	}
	require.NoError(t, svc.MarkAllAsRead(ctx, userID))

	count, err := svc.UnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateNotification_WithoutRedis(t *testing.T) {
	repo := notifRepo.NewNotificationRepository(testutil.NewDB(t))
	svc := NewNotificationService(repo, nil, zap.NewNop())
	userID := uuid.New()

	require.NoError(t, svc.CreateNotification(context.Background(), &entity.Notification{
		UserID: userID, ActorID: userID, EntityType: "streak", Type: entity.NotificationStreakMilestone,
	}))
}
