package service

import (
	"context"
	"fmt"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	users map[string]*entity.User
	calls int
}

func (f *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	f.users[user.ID.String()] = user
	return nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*entity.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperror.ErrNotFound)
	}
	return u, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return nil, apperror.ErrNotFound
}

func (f *fakeUserRepo) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	return nil, apperror.ErrNotFound
}

func (f *fakeUserRepo) UpdateTimezone(ctx context.Context, id string, timezone string) error {
	f.users[id].Timezone = timezone
	return nil
}

func newResolver(t *testing.T, repo *fakeUserRepo) *timezoneResolver {
	t.Helper()
	r, err := NewTimezoneResolver(repo, time.UTC, 16, zap.NewNop())
	require.NoError(t, err)
	return r.(*timezoneResolver)
}

func TestTimezoneResolver_UsesUserZoneAndCaches(t *testing.T) {
	id := uuid.New()
	repo := &fakeUserRepo{users: map[string]*entity.User{
		id.String(): {ID: id, Username: "mira", Timezone: "Europe/Moscow"},
	}}
	r := newResolver(t, repo)

	loc := r.Location(context.Background(), id)
	assert.Equal(t, "Europe/Moscow", loc.String())

	loc = r.Location(context.Background(), id)
	assert.Equal(t, "Europe/Moscow", loc.String())
	assert.Equal(t, 1, repo.calls, "second lookup should be served from cache")
}

func TestTimezoneResolver_Fallbacks(t *testing.T) {
	noZone := uuid.New()
	badZone := uuid.New()
	repo := &fakeUserRepo{users: map[string]*entity.User{
		noZone.String():  {ID: noZone, Username: "a"},
		badZone.String(): {ID: badZone, Username: "b", Timezone: "Mars/Olympus"},
	}}
	r := newResolver(t, repo)

	assert.Equal(t, time.UTC, r.Location(context.Background(), noZone))
	assert.Equal(t, time.UTC, r.Location(context.Background(), badZone))
	assert.Equal(t, time.UTC, r.Location(context.Background(), uuid.New()), "unknown user")
}

func TestTimezoneResolver_ExpiryAndInvalidate(t *testing.T) {
	id := uuid.New()
	repo := &fakeUserRepo{users: map[string]*entity.User{
		id.String(): {ID: id, Username: "mira", Timezone: "Asia/Tokyo"},
	}}
	r := newResolver(t, repo)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Location(context.Background(), id)
	now = now.Add(timezoneTTL + time.Second)
	r.Location(context.Background(), id)
	assert.Equal(t, 2, repo.calls, "expired entry should be reloaded")

	repo.users[id.String()].Timezone = "Europe/Berlin"
	r.Invalidate(id)
	assert.Equal(t, "Europe/Berlin", r.Location(context.Background(), id).String())
}
