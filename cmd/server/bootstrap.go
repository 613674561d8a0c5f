package main

import (
	"html/template"

	"github.com/stockyard-ci/stockyard/internal/cache"
	"github.com/stockyard-ci/stockyard/internal/config"
	"github.com/stockyard-ci/stockyard/internal/handlers"
	"github.com/stockyard-ci/stockyard/internal/middleware"
	"github.com/stockyard-ci/stockyard/internal/models"
	"github.com/stockyard-ci/stockyard/internal/services"
	"github.com/stockyard-ci/stockyard/internal/summary"
	"github.com/stockyard-ci/stockyard/internal/views"
	"github.com/stockyard-ci/stockyard/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds the initialized services and handlers of the process.
type appServices struct {
	db          *gorm.DB
	store       cache.Store
	taskQueue   services.TaskQueue
	worker      *services.Worker
	retention   *services.RetentionService
	auth        *services.AdminAuthService
	intakeToken string
	limiter     *middleware.RateLimiter
	templates   *template.Template
	upload      *handlers.UploadHandler
	latest      *handlers.LatestHandler
	pages       *handlers.ViewHandler
	admin       *handlers.AdminHandler
	channels    *handlers.NotificationChannelHandler
	notify      *handlers.NotificationHandler
	health      *handlers.HealthHandler
	metrics     *handlers.MetricsHandler
}

// bootstrap initializes the database, cache, queue, schedulers and handlers.
func bootstrap(cfg *config.Config) *appServices {
	db, err := models.Open(&cfg.Database, &cfg.Log)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Infof("Database ready (%s)", cfg.Database.Driver)

	store := cache.New(&cfg.Redis)

	thresholds := summary.CoverageThresholds{
		NoCoverage: cfg.Dashboard.NoCoverageThreshold,
		Good:       cfg.Dashboard.GoodCoverageThreshold,
	}
	templates, err := views.Load(thresholds)
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	repos := services.NewRepositoryService(db)
	reports := services.NewReports(db)
	owners := handlers.NewOwnerDirectory(store, repos)
	channelService := services.NewNotificationChannelService(db)
	notificationService := services.NewNotificationService(cfg, channelService)

	// Redis when enabled and reachable, otherwise in-process delivery
	taskQueue := services.NewTaskQueue(&cfg.Redis, notificationService.Dispatch)
	var worker *services.Worker
	if taskQueue.Mode() == services.QueueModeAsync {
		worker = services.NewWorker(&cfg.Redis, &cfg.Notification, notificationService.Dispatch)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start notification worker")
				worker = nil
			}
		}
	}

	retention := services.NewRetentionService(db, cfg.Retention)
	if err := retention.Start(); err != nil {
		logger.Fatalf("Failed to start retention scheduler: %v", err)
	}

	auth := services.NewAdminAuthService(&cfg.Admin, &cfg.LDAP, store)
	if cfg.Admin.Password == "" && !cfg.LDAP.Enabled {
		logger.Warn().Msg("No admin password configured, admin login is disabled")
	}
	if cfg.Notification.IntakeToken == "" {
		logger.Warn().Msg("No notification intake token configured, build events require an admin session")
	}

	return &appServices{
		db:          db,
		store:       store,
		taskQueue:   taskQueue,
		worker:      worker,
		retention:   retention,
		auth:        auth,
		intakeToken: cfg.Notification.IntakeToken,
		limiter:     middleware.NewRateLimiter(cfg.RateLimit.UploadRPS, cfg.RateLimit.UploadBurst),
		templates:   templates,
		upload:      handlers.NewUploadHandler(repos, reports, owners, cfg.Dashboard.DefaultBranch),
		latest:      handlers.NewLatestHandler(repos, reports, owners),
		pages:       handlers.NewViewHandler(repos, reports, owners, thresholds, cfg.Dashboard.DefaultBranch),
		admin:       handlers.NewAdminHandler(auth, repos, owners, retention),
		channels:    handlers.NewNotificationChannelHandler(channelService),
		notify:      handlers.NewNotificationHandler(taskQueue),
		health:      handlers.NewHealthHandler(db, taskQueue, store),
		metrics:     handlers.NewMetricsHandler(db, taskQueue, store),
	}
}

// shutdown stops schedulers and workers, drains the queue and closes
// connections.
func (s *appServices) shutdown() {
	s.retention.Stop()
	s.limiter.Close()
	logger.Info().Msg("Schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if err := s.taskQueue.Close(); err != nil {
		logger.Warn().Err(err).Msg("Task queue close failed")
	}
	if err := s.store.Close(); err != nil {
		logger.Warn().Err(err).Msg("Cache close failed")
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
