package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/course-portal-api/internal/config"
	"github.com/noah-isme/course-portal-api/internal/database"
	"github.com/noah-isme/course-portal-api/internal/handler"
	"github.com/noah-isme/course-portal-api/internal/middleware"
	"github.com/noah-isme/course-portal-api/internal/observability"
	"github.com/noah-isme/course-portal-api/internal/repository"
	"github.com/noah-isme/course-portal-api/internal/router"
	"github.com/noah-isme/course-portal-api/internal/service"
	cloud "github.com/noah-isme/course-portal-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not set; dashboard cache and cross-node notifications disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	var photos service.PhotoStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Enabled() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		photos = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials not set; teacher photo uploads disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	observability.RegisterMetrics()

	userRepo := repository.NewUserRepository(db)
	majorRepo := repository.NewMajorClassRepository(db)
	classRepo := repository.NewTeachingClassRepository(db)
	forumRepo := repository.NewForumRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	dashboardService := service.NewDashboardService(assignmentRepo, forumRepo, userRepo, notificationRepo, redisClient, cfg.DashboardCacheTTL, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.NotificationChannel, natsConn, dashboardService, logger)
	authService := service.NewAuthService(userRepo, majorRepo, activityService, service.TokenConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL}, validate, logger)
	classService := service.NewTeachingClassService(classRepo, majorRepo, activityService, validate, logger)
	forumService := service.NewForumService(forumRepo, userRepo, classRepo, notificationService, activityService, dashboardService, validate, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, submissionRepo, classRepo, userRepo, notificationService, activityService, dashboardService, validate, cfg.Location(), logger)
	submissionService := service.NewSubmissionService(assignmentRepo, submissionRepo, userRepo, dashboardService, validate, logger)
	gradingService := service.NewGradingService(assignmentRepo, submissionRepo, notificationService, activityService, validate, logger)
	teacherService := service.NewTeacherService(userRepo, photos, logger)
	seedService := service.NewSeedService(forumRepo, majorRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	seeded, err := seedService.Defaults(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed reference data")
	}
	logger.Info().Int64("categories", seeded.Categories).Int64("major_classes", seeded.MajorClasses).Msg("reference data ready")

	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:          handler.NewAuthHandler(authService, logger),
		ClassHandler:         handler.NewClassHandler(classService, logger),
		ForumHandler:         handler.NewForumHandler(forumService, logger),
		AssignmentHandler:    handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:    handler.NewSubmissionHandler(submissionService, logger),
		GradingHandler:       handler.NewGradingHandler(gradingService, logger),
		DashboardHandler:     handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler:  handler.NewNotificationHandler(notificationService, logger, cfg.SSEKeepAlive),
		TeacherHandler:       handler.NewTeacherHandler(teacherService, logger),
		AdminActivityHandler: handler.NewAdminActivityHandler(activityService, logger),
		SeedHandler:          handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes:         healthProbes(db, redisClient, natsConn),
		ExposeMetrics:        true,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return fmt.Errorf("nats connection %s", natsConn.Status())
			}
			return nil
		}
	}
	return probes
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
