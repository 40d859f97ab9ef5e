package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionnaire-api/internal/config"
	"github.com/noah-isme/questionnaire-api/internal/database"
	"github.com/noah-isme/questionnaire-api/internal/events"
	"github.com/noah-isme/questionnaire-api/internal/handler"
	"github.com/noah-isme/questionnaire-api/internal/middleware"
	"github.com/noah-isme/questionnaire-api/internal/repository"
	"github.com/noah-isme/questionnaire-api/internal/router"
	"github.com/noah-isme/questionnaire-api/internal/service"
	"github.com/noah-isme/questionnaire-api/pkg/linkcode"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis not configured: statistics cache and session revocation disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	publisher := events.NewPublisher(natsConn, redisClient, cfg.EventSubjectPrefix, middleware.CorrelationIDFromContext, logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	surveyRepo := repository.NewSurveyRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	authService := service.NewAuthService(userRepo, redisClient, service.AuthConfig{
		Secret:            cfg.SessionSecret,
		TTL:               cfg.SessionTTL,
		TeacherInviteCode: cfg.TeacherInviteCode,
	}, validate, logger)
	activityService := service.NewActivityService(activityRepo, validate, logger)
	statisticsService := service.NewStatisticsService(surveyRepo, submissionRepo, redisClient, cfg.StatisticsCacheTTL, logger)
	surveyService := service.NewSurveyService(surveyRepo, submissionRepo, activityService, publisher, statisticsService, validate, logger)
	submissionService := service.NewSubmissionService(surveyRepo, submissionRepo, statisticsService, publisher, logger)
	exportService := service.NewExportService(surveyRepo, submissionRepo, logger)
	accessService := service.NewAccessService(surveyRepo, linkcode.NewEncoder(linkcode.DefaultSize), cfg.SurveyLink, logger)
	feedbackService := service.NewFeedbackService(feedbackRepo, activityService, publisher, validate, logger)
	dashboardService := service.NewDashboardService(surveyService, submissionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:            &logger,
		Verifier:          authService,
		SessionCookieName: cfg.SessionCookieName,
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, handler.AuthHandlerConfig{
			CookieName:   cfg.SessionCookieName,
			SecureCookie: cfg.IsProduction(),
			LoginLimiter: middleware.RateLimit("login", cfg.LoginRateLimit, cfg.LoginRateLimitWindow),
		}, logger),
		AccountHandler:       handler.NewAccountHandler(authService, dashboardService, logger),
		SurveyHandler:        handler.NewSurveyHandler(surveyService, statisticsService, exportService, accessService, submissionService, logger),
		StudentSurveyHandler: handler.NewStudentSurveyHandler(surveyService, submissionService, logger),
		FeedbackHandler:      handler.NewFeedbackHandler(feedbackService, logger),
		ActivityHandler:      handler.NewActivityHandler(activityService, logger),
		AccessHandler:        handler.NewAccessHandler(accessService, logger),
		DatabasePing:         sqlDB.PingContext,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
