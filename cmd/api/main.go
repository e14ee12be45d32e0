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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradia-go-api/internal/config"
	"github.com/noah-isme/gradia-go-api/internal/connector"
	"github.com/noah-isme/gradia-go-api/internal/database"
	"github.com/noah-isme/gradia-go-api/internal/handler"
	"github.com/noah-isme/gradia-go-api/internal/middleware"
	"github.com/noah-isme/gradia-go-api/internal/models"
	"github.com/noah-isme/gradia-go-api/internal/repository"
	"github.com/noah-isme/gradia-go-api/internal/router"
	"github.com/noah-isme/gradia-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Exercise{},
		&models.TestCase{},
		&models.AnalysisCategory{},
		&models.Participation{},
		&models.Submission{},
		&models.Result{},
		&models.Feedback{},
		&models.ScheduledTask{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	gateway, err := connector.NewHTTPGateway(connector.GatewayConfig{
		BaseURL: cfg.GatewayBaseURL,
		Token:   cfg.GatewayToken,
		Timeout: cfg.GatewayTimeout,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create gateway connector: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	exerciseRepo := repository.NewExerciseRepository(db)
	testCaseRepo := repository.NewTestCaseRepository(db)
	categoryRepo := repository.NewAnalysisCategoryRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	taskRepo := repository.NewScheduledTaskRepository(db)

	locks := service.NewParticipationLocks()
	eventService := service.NewEventService(natsConn, cfg.EventSubjectBase, logger)
	cacheService := service.NewResultCacheService(redisClient, cfg.ResultCacheTTL, logger)
	testCaseService := service.NewTestCaseService(testCaseRepo, exerciseRepo, eventService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, participationRepo, gateway, gateway, locks, service.SubmissionConfig{
		CIUserName:         cfg.CIUserName,
		CIUserEmail:        cfg.CIUserEmail,
		SetupCommitMessage: cfg.CISetupCommitMessage,
		DefaultBranch:      cfg.DefaultBranch,
	}, logger)
	gradingService := service.NewGradingService(resultRepo, submissionRepo, participationRepo, exerciseRepo, categoryRepo, testCaseService, eventService, cacheService, gateway, locks, logger)
	scheduleService := service.NewScheduleService(taskRepo, exerciseRepo, participationRepo, gradingService, submissionService, gateway, cfg.CombineCommitsLead, logger)
	defer scheduleService.Stop()

	if err := scheduleService.RecoverPendingTasks(context.Background()); err != nil {
		log.Fatalf("failed to recover scheduled tasks: %v", err)
	}

	webhookHandler := handler.NewWebhookHandler(submissionService, gradingService, validate, logger)
	testCaseHandler := handler.NewTestCaseHandler(testCaseService, gradingService, validate, logger)
	scheduleHandler := handler.NewScheduleHandler(exerciseRepo, scheduleService, validate, logger)
	resultHandler := handler.NewResultHandler(gradingService, submissionService, logger)
	scoreHandler := handler.NewScoreHandler(validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		WebhookHandler:  webhookHandler,
		TestCaseHandler: testCaseHandler,
		ScheduleHandler: scheduleHandler,
		ResultHandler:   resultHandler,
		ScoreHandler:    scoreHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
