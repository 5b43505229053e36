package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GalitskyKK/kirakira-sub003/internal/config"
	"github.com/GalitskyKK/kirakira-sub003/internal/middleware"

	moodHttp "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/delivery/http"
	moodRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/repository"
	moodService "github.com/GalitskyKK/kirakira-sub003/internal/modules/mood/service"

	notiHttp "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/delivery/http"
	notifRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/repository"
	notifService "github.com/GalitskyKK/kirakira-sub003/internal/modules/notification/service"

	rewardHttp "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/delivery/http"
	rewardRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/repository"
	rewardService "github.com/GalitskyKK/kirakira-sub003/internal/modules/reward/service"

	streakHttp "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/delivery/http"
	streakRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/repository"
	streakService "github.com/GalitskyKK/kirakira-sub003/internal/modules/streak/service"

	userHttp "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/delivery/http"
	userRepo "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/repository"
	userService "github.com/GalitskyKK/kirakira-sub003/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	http        *http.Server
	db          *gorm.DB
	redisClient *redis.Client
	rewards     rewardService.RewardService
	log         *zap.Logger
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log *zap.Logger) (*Server, error) {
	fallback, err := time.LoadLocation(cfg.Streak.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("default timezone: %w", err)
	}

	userRepository := userRepo.NewUserRepository(db)
	timezones, err := userService.NewTimezoneResolver(userRepository, fallback, cfg.TimezoneCacheSize, log)
	if err != nil {
		return nil, err
	}
	userSvc := userService.NewUserService(userRepository, timezones, cfg.JWTSecret, cfg.TokenTTL, log)
	userHandler := userHttp.NewUserHandler(userSvc)

	streakOpts := streakService.Options{
		FreezeWindow:   cfg.Streak.FreezeWindow,
		MaxAttempts:    cfg.Streak.MaxAttempts,
		ManualCapacity: cfg.Streak.ManualCreditCapacity,
	}
	streakRepository := streakRepo.NewStreakRepository(db)
	ledger := streakService.NewFreezeLedger(streakRepository, timezones, time.Now, streakOpts, log)

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient, log)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient, originMatcher(cfg.AllowedOrigins), log)

	rewardSvc := rewardService.NewRewardService(rewardRepo.NewRewardRepository(db), ledger, notificationSvc, redisClient, log)
	rewardHandler := rewardHttp.NewRewardHandler(rewardSvc)

	streakSvc := streakService.NewStreakService(streakRepository, timezones, time.Now, rewardSvc, streakOpts, log)
	streakHandler := streakHttp.NewStreakHandler(streakSvc, ledger)

	moodSvc := moodService.NewMoodService(moodRepo.NewMoodRepository(db), streakSvc, timezones, time.Now, log)
	moodHandler := moodHttp.NewMoodHandler(moodSvc)

	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/api/notifications/ws"},
	}))

	s := &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		rewards:     rewardSvc,
		log:         log.Named("server"),
	}

	router.GET("/healthz", s.health)

	authMiddleware := middleware.NewAuthMiddleware(userRepository, cfg.JWTSecret, log)
	freezeLimiter := middleware.NewUserRateLimiter(cfg.RateLimitFreeze, 1)

	api := router.Group("/api")

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/streak/:user_id/credits", streakHandler.GrantCredits)
		}

		// Streak routes
		protected.GET("/streak", streakHandler.GetStreak)
		protected.POST("/streak/freeze", freezeLimiter.Limit(), streakHandler.UseFreeze)
		protected.POST("/streak/reset", streakHandler.Reset)
		protected.GET("/streak/freezes", streakHandler.FreezeHistory)
		protected.GET("/streak/leaderboard", streakHandler.Leaderboard)

		// Mood routes
		protected.POST("/moods", moodHandler.CreateMood)
		protected.GET("/moods", moodHandler.ListMoods)

		// Reward routes
		protected.GET("/rewards", rewardHandler.GetSummary)
		protected.GET("/rewards/milestones", rewardHandler.GetMilestones)

		// Account routes
		protected.GET("/me", userHandler.GetMe)
		protected.PUT("/me/timezone", userHandler.UpdateTimezone)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	s.http = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// pending reward payouts.
func (s *Server) Run(ctx context.Context) error {
	resumed := make(chan struct{})
	go func() {
		defer close(resumed)
		s.resumeRewards(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		<-resumed
		s.rewards.Close()
		return err
	case <-ctx.Done():
	}

	<-resumed
	return s.Shutdown(context.Background())
}

// resumeRewards settles milestone payouts a previous process left unpaid.
func (s *Server) resumeRewards(ctx context.Context) {
	n, err := s.rewards.ResumePending(ctx)
	if err != nil {
		s.log.Warn("resuming reward payouts failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("resumed reward payouts", zap.Int("count", n))
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	s.log.Info("shutting down http server")
	err := s.http.Shutdown(ctx)
	s.rewards.Close()
	return err
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok", "redis": "disabled"}
	code := http.StatusOK

	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status["database"] = "down"
		code = http.StatusServiceUnavailable
	}
	if s.redisClient != nil {
		status["redis"] = "ok"
		if err := s.redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, status)
}

func splitOrigins(allowedOrigins string) []string {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}

func originMatcher(allowedOrigins string) func(string) bool {
	origins := splitOrigins(allowedOrigins)
	return func(origin string) bool {
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(allowedOrigins),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
