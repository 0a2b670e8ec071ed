package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammonsd/activitytracking/internal/app"
	"github.com/ammonsd/activitytracking/internal/audit"
	"github.com/ammonsd/activitytracking/internal/auth"
	"github.com/ammonsd/activitytracking/internal/csvimport"
	"github.com/ammonsd/activitytracking/internal/dropdowns"
	"github.com/ammonsd/activitytracking/internal/expenses"
	"github.com/ammonsd/activitytracking/internal/observability"
	"github.com/ammonsd/activitytracking/internal/platform/cache"
	"github.com/ammonsd/activitytracking/internal/platform/db"
	"github.com/ammonsd/activitytracking/internal/rbac"
	"github.com/ammonsd/activitytracking/internal/receipts"
	"github.com/ammonsd/activitytracking/internal/reports"
	"github.com/ammonsd/activitytracking/internal/shared"
	"github.com/ammonsd/activitytracking/internal/taskactivity"
	"github.com/ammonsd/activitytracking/internal/users"
	"github.com/ammonsd/activitytracking/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	approvalRecorder := shared.NewApprovalRecorder(pool, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	revocations := auth.NewRevocationStore(pool, redisClient, logger)
	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Logger: logger}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, revocations, cfg.MaxFailedLogins)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := &auth.Middleware{
		Tokens:      tokens,
		Revocations: revocations,
		Permissions: rbacService,
		Logger:      logger,
	}

	var store receipts.Store
	switch cfg.ReceiptBackend {
	case "s3":
		s3Store, err := receipts.NewS3Store(cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			logger.Error("init s3 receipt store", slog.Any("error", err))
			os.Exit(1)
		}
		store = s3Store
	default:
		localStore, err := receipts.NewLocalStore(cfg.ReceiptDir)
		if err != nil {
			logger.Error("init local receipt store", slog.Any("error", err))
			os.Exit(1)
		}
		store = localStore
	}

	dropdownRepo := dropdowns.NewPGRepository(pool)
	dropdownService := dropdowns.NewService(dropdownRepo, auditLogger, logger)
	dropdownHandler := dropdowns.NewHandler(logger, dropdownService, &rbacMiddleware)

	userRepo := users.NewPGRepository(pool)
	userService := users.NewService(userRepo, auditLogger, logger, cfg.PasswordExpiryDays)
	userHandler := users.NewHandler(logger, userService, &rbacMiddleware)

	roleHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	taskRepo := taskactivity.NewPGRepository(pool)
	taskService := taskactivity.NewService(taskRepo, dropdownService, auditLogger, logger)
	taskHandler := taskactivity.NewHandler(logger, taskService, &rbacMiddleware)

	expenseRepo := expenses.NewPGRepository(pool)
	expenseService := expenses.NewService(expenseRepo, approvalRecorder, dropdownService, auditLogger, logger)
	expenseHandler := expenses.NewHandler(logger, expenseService, &rbacMiddleware, store)

	importer := csvimport.NewImporter(taskRepo, expenseRepo, userRepo, dropdownService, auditLogger, logger)
	importHandler := csvimport.NewHandler(logger, importer, &rbacMiddleware)

	reportRepo := reports.NewPGRepository(pool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(reportRepo, reportCache, logger, cfg.StaleProjectDays)
	reportHandler := reports.NewHandler(logger, reportService, &rbacMiddleware)

	auditService := audit.NewService(audit.NewPGRepository(pool))
	auditHandler := audit.NewHandler(logger, auditService, &rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		TaskHandler:     taskHandler,
		ExpenseHandler:  expenseHandler,
		DropdownHandler: dropdownHandler,
		UserHandler:     userHandler,
		RoleHandler:     roleHandler,
		ReportHandler:   reportHandler,
		ImportHandler:   importHandler,
		AuditHandler:    auditHandler,
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
