package routes

import (
	"MediCare/cache"
	"MediCare/config"
	"MediCare/controllers"
	"MediCare/database"
	"MediCare/handlers"
	"MediCare/middlewares"
	"MediCare/repositories"
	"MediCare/services"
	"MediCare/utils"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies are the long-lived handles the HTTP layer is built from.
// Mailer may be nil when SMTP is not configured.
type Dependencies struct {
	Config *config.AppConfig
	DB     *gorm.DB
	Redis  *redis.Client
	Push   services.PushSender
	Mailer services.Mailer
	Now    func() time.Time
	Log    zerolog.Logger
}

// SetupRoutes initializes the routes and middleware for the server
func SetupRoutes(deps Dependencies) (http.Handler, error) {
	cfg := deps.Config
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middlewares.LoggingMiddleware(deps.Log))
	router.Use(middlewares.CorsMiddleware(middlewares.DefaultCorsConfig(cfg.CORSOrigins)))
	router.Use(middlewares.NewRateLimiterMiddleware(middlewares.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	router.Use(middlewares.ValidateAPIKey(cfg.GetAPIKey()))

	redisCache, err := cache.NewCache(deps.Redis)
	if err != nil {
		return nil, err
	}
	tokens, err := utils.NewTokenMaker(cfg.SymmetricKey, deps.Now)
	if err != nil {
		return nil, err
	}
	locker := database.NewLocker(deps.Redis, cfg.LockTTL, cfg.LockRetries, cfg.LockRetryDelay)

	userRepo := repositories.NewUserRepository(deps.DB)
	medicationRepo := repositories.NewMedicationRepository(deps.DB)
	doseLogRepo := repositories.NewDoseLogRepository(deps.DB, locker, deps.Log)
	linkRepo := repositories.NewLinkRepository(deps.DB)
	notificationRepo := repositories.NewNotificationRepository(deps.DB)

	scheduleService := services.NewScheduleService(medicationRepo, doseLogRepo, userRepo, redisCache, cfg.ScheduleCacheTTL, deps.Now, deps.Log)
	medicationService := services.NewMedicationService(medicationRepo, scheduleService)
	doseService := services.NewDoseService(services.DoseServiceDeps{
		Medications:   medicationRepo,
		DoseLogs:      doseLogRepo,
		Users:         userRepo,
		Notifications: notificationRepo,
		Schedules:     scheduleService,
		Push:          deps.Push,
		Mailer:        deps.Mailer,
		Now:           deps.Now,
		Log:           deps.Log,
	})
	alertService := services.NewAlertService(userRepo, linkRepo, notificationRepo, deps.Push, services.AlertConfig{
		PushTimeout:        cfg.PushTimeout,
		Concurrency:        cfg.FanoutConcurrency,
		RecordWithoutToken: cfg.SOSRecordWithoutToken,
	}, deps.Now, deps.Log)
	linkService := services.NewLinkService(userRepo, linkRepo)
	userService := services.NewUserService(userRepo, utils.NewResetCodeStore(redisCache), deps.Mailer, deps.Log)
	notificationService := services.NewNotificationService(notificationRepo, deps.Now)

	auth := middlewares.TokenAuthMiddleware(tokens)

	authController := controllers.NewAuthController(handlers.NewAuthHandler(userService, linkService, tokens), auth)
	authController.RegisterRoutes(router)

	controllers.SetupCareRoutes(
		router,
		auth,
		handlers.NewMedicationHandler(medicationService, scheduleService, linkService),
		handlers.NewDoseHandler(doseService, medicationService, linkService),
		handlers.NewNotificationHandler(alertService, notificationService),
	)

	controllers.SetupRootRoute(router, map[string]controllers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := deps.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		},
	})

	return router, nil
}
