package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/config"
	"github.com/GalitskyKK/kirakira-sub003/internal/entity"
	notifRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/repository"
	notifService "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/service"
	rewardRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/repository"
	reward "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/service"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	streak "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"
	userRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/repository"
	userService "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/service"
	"github.com/GalitskyKK/kirakira-sub003/pkg/apperror"
	"github.com/GalitskyKK/kirakira-sub003/pkg/database"
	"github.com/GalitskyKK/kirakira-sub003/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the slice of the service the CLI drives. The streak service has
// no reward hook: operators never record check-ins. Rewards is there to
// settle payouts a crashed server left behind.
type App struct {
	DB       *gorm.DB
	Users    userRepo.UserRepository
	Accounts userService.UserService
	Streaks  streak.StreakService
	Ledger   streak.FreezeLedger
	Rewards  reward.RewardService
	Log      *zap.Logger

	closeDB func()
}

// Opener connects an App; verbose raises the log level to debug.
type Opener func(ctx context.Context, verbose bool) (*App, error)

func NewApp(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	fallback, err := time.LoadLocation(cfg.Streak.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("default timezone: %w", err)
	}

	users := userRepo.NewUserRepository(db)
	timezones, err := userService.NewTimezoneResolver(users, fallback, cfg.TimezoneCacheSize, log)
	if err != nil {
		return nil, err
	}

	opts := streak.Options{
		FreezeWindow:   cfg.Streak.FreezeWindow,
		MaxAttempts:    cfg.Streak.MaxAttempts,
		ManualCapacity: cfg.Streak.ManualCreditCapacity,
	}
	repo := streakRepo.NewStreakRepository(db)
	ledger := streak.NewFreezeLedger(repo, timezones, time.Now, opts, log)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil, log)

	return &App{
		DB:       db,
		Users:    users,
		Accounts: userService.NewUserService(users, timezones, cfg.JWTSecret, cfg.TokenTTL, log),
		Streaks:  streak.NewStreakService(repo, timezones, time.Now, nil, opts, log),
		Ledger:   ledger,
		Rewards:  reward.NewRewardService(rewardRepo.NewRewardRepository(db), ledger, notifications, nil, log),
		Log:      log,
	}, nil
}

// OpenFromEnv loads configuration the same way the server does.
func OpenFromEnv(ctx context.Context, verbose bool) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, Path: cfg.LogPath})
	zap.ReplaceGlobals(log)

	db, err := database.Connect(database.Options{DSN: cfg.DSN(), Debug: verbose, MaxOpenConns: 4}, log)
	if err != nil {
		return nil, err
	}
	app, err := NewApp(cfg, db, log)
	if err != nil {
		return nil, err
	}
	app.closeDB = func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return app, nil
}

func (a *App) Close() {
	a.Rewards.Close()
	_ = a.Log.Sync()
	if a.closeDB != nil {
		a.closeDB()
	}
}

// FindUser accepts either a user id or a username.
func (a *App) FindUser(ctx context.Context, ref string) (*entity.User, error) {
	var (
		u   *entity.User
		err error
	)
	if _, perr := uuid.Parse(ref); perr == nil {
		u, err = a.Users.FindByID(ctx, ref)
	} else {
		u, err = a.Users.FindByUsername(ctx, ref)
	}
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("user %q not found", ref), err)
	}
	return u, err
}

func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := opts.open(ctx, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer app.Close()
	return fn(ctx, app)
}
