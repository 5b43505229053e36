package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	"github.com/GalitskyKK/kirakira-sub003/internal/modules/user/dto"
	"github.com/GalitskyKK/kirakira-sub003/internal/modules/user/repository"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService covers the little of the account the streak backend owns:
// the reference timezone, and seeding users and tokens for operators.
type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*dto.MeResponse, error)
	UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error
	CreateUser(ctx context.Context, username, timezone, role string) (*entity.User, error)
	IssueToken(user *entity.User) (*dto.TokenResponse, error)
}

type userService struct {
	repo      repository.UserRepository
	timezones TimezoneResolver
	secret    string
	tokenTTL  time.Duration
	log       *zap.Logger
}

func NewUserService(repo repository.UserRepository, timezones TimezoneResolver, secret string, tokenTTL time.Duration, log *zap.Logger) UserService {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	if secret == "" {
		secret = "12345"
	}
	return &userService{
		repo:      repo,
		timezones: timezones,
		secret:    secret,
		tokenTTL:  tokenTTL,
		log:       log.Named("user"),
	}
}

func (s *userService) GetMe(ctx context.Context, userID uuid.UUID) (*dto.MeResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role.Name,
		Timezone: user.Timezone,
	}, nil
}

// UpdateTimezone only accepts names from the IANA database. The new zone
// applies from the next request on.
func (s *userService) UpdateTimezone(ctx context.Context, userID uuid.UUID, timezone string) error {
	timezone = strings.TrimSpace(timezone)
	if _, err := time.LoadLocation(timezone); err != nil || timezone == "" || strings.EqualFold(timezone, "local") {
		return fmt.Errorf("unknown timezone %q: %w", timezone, apperror.ErrInvalidInput)
	}

	if err := s.repo.UpdateTimezone(ctx, userID.String(), timezone); err != nil {
		return err
	}
	s.timezones.Invalidate(userID)

	s.log.Info("timezone updated", zap.Stringer("user_id", userID), zap.String("timezone", timezone))
	return nil
}

func (s *userService) CreateUser(ctx context.Context, username, timezone, role string) (*entity.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required: %w", apperror.ErrInvalidInput)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return nil, fmt.Errorf("unknown timezone %q: %w", timezone, apperror.ErrInvalidInput)
		}
	}

	user := &entity.User{Username: username, Timezone: timezone}
	if role != "" {
		r, err := s.repo.FindRoleByName(ctx, role)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, fmt.Errorf("role %q: %w", role, apperror.ErrInvalidInput)
			}
			return nil, err
		}
		user.RoleID = &r.ID
		user.Role = *r
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) IssueToken(user *entity.User) (*dto.TokenResponse, error) {
	expiresAt := time.Now().Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokenTTL.Seconds()),
	}, nil
}
