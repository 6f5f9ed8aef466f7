package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/medivuno/telehealth-server/internal/availability"
	"github.com/medivuno/telehealth-server/internal/config"
	"github.com/medivuno/telehealth-server/internal/dashboard"
	"github.com/medivuno/telehealth-server/internal/handlers"
	"github.com/medivuno/telehealth-server/internal/logger"
	"github.com/medivuno/telehealth-server/internal/metrics"
	"github.com/medivuno/telehealth-server/internal/middleware"
	"github.com/medivuno/telehealth-server/internal/models"
	"github.com/medivuno/telehealth-server/internal/reports"
	"github.com/medivuno/telehealth-server/internal/routes"
	"github.com/medivuno/telehealth-server/internal/scheduling"
	"github.com/medivuno/telehealth-server/internal/store"
)

func newServeCommand() *cobra.Command {
	var (
		shutdownTimeout time.Duration
		autoMigrate     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, autoMigrate, shutdownTimeout)
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "maximum time to wait for in-flight requests on shutdown")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger, autoMigrate bool, shutdownTimeout time.Duration) error {
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if autoMigrate {
		if err := models.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect redis at %s: %w", cfg.Redis.Addr, err)
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	users := store.NewUserStore(db)
	hours := availability.NewStore(rdb, cfg.Scheduling.DefaultTimezone)

	appointments := store.NewAppointmentStore(db)

	schedulingSvc := scheduling.NewService(appointments, hours, users, scheduling.Options{
		Granularity: cfg.Scheduling.SlotGranularity(),
		MaxDuration: cfg.Scheduling.MaxAppointment(),
		Metrics:     metrics.NewSchedulingMetrics(reg),
		Logger:      log,
	})
	dashboardSvc := dashboard.NewService(store.NewDashboardStore(db), cfg.Scheduling.Location(), log)
	reportSvc := reports.NewService(store.NewReportStore(db), users, appointments, files, metrics.NewReportMetrics(reg), log)

	h := routes.Handlers{
		Auth:         handlers.NewAuthHandler(users, store.NewTokenStore(db), cfg, log),
		Users:        handlers.NewUserHandler(users, log),
		Appointments: handlers.NewAppointmentHandler(schedulingSvc, log),
		WorkingHours: handlers.NewWorkingHoursHandler(hours, users, log),
		Dashboard:    handlers.NewDashboardHandler(dashboardSvc, users, log),
		Reports:      handlers.NewReportHandler(reportSvc, log),
		Messages:     handlers.NewMessageHandler(store.NewMessageStore(db), users, log),
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	opts := routes.Options{JWTSecret: cfg.JWTSecret}
	if cfg.MetricsEnabled {
		opts.Metrics = reg
	}
	routes.SetupRoutes(router, h, opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"port":        cfg.Port,
			"environment": cfg.Environment,
			"storage":     cfg.Storage.Backend,
		}).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newFileStore(ctx context.Context, cfg config.StorageConfig) (reports.FileStore, error) {
	switch cfg.Backend {
	case "s3":
		s, err := reports.NewS3Store(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init s3 report storage: %w", err)
		}
		return s, nil
	default:
		s, err := reports.NewLocalStore(cfg.ReportDir)
		if err != nil {
			return nil, fmt.Errorf("init local report storage: %w", err)
		}
		return s, nil
	}
}
