package bootstrap

import (
	"context"
	"errors"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(entity.Models()...)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Operator with access to credit grants"},
		{Name: entity.RoleMember, Description: "Diary owner"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedAdminUser creates the development operator account if it is missing
// and returns it either way.
func SeedAdminUser(ctx context.Context, db *gorm.DB, log *zap.Logger) (*entity.User, error) {
	var adminRole entity.Role
	if err := db.WithContext(ctx).Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return nil, err
	}

	var existing entity.User
	err := db.WithContext(ctx).Preload("Role").Where("username = ?", "admin").First(&existing).Error
	if err == nil {
		log.Debug("admin user already exists, skipping seed")
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	adminUser := entity.User{
		Username: "admin",
		RoleID:   &adminRole.ID,
		Role:     adminRole,
	}
	if err := db.WithContext(ctx).Omit("Role").Create(&adminUser).Error; err != nil {
		return nil, err
	}

	log.Info("admin user seeded", zap.String("user_id", adminUser.ID.String()))
	return &adminUser, nil
}
