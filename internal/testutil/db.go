// Package testutil holds helpers shared by repository tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(entity.Models()...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedUser inserts a member with the given username and timezone.
func SeedUser(t *testing.T, db *gorm.DB, username, timezone string) *entity.User {
	t.Helper()
	u := &entity.User{Username: username, Timezone: timezone}
	require.NoError(t, db.Create(u).Error)
	return u
}
