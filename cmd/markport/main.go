package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/markport/internal/config"
	"github.com/xxxsen/markport/internal/db"
	"github.com/xxxsen/markport/internal/filestore"
	"github.com/xxxsen/markport/internal/handler"
	"github.com/xxxsen/markport/internal/job"
	"github.com/xxxsen/markport/internal/metrics"
	"github.com/xxxsen/markport/internal/middleware"
	"github.com/xxxsen/markport/internal/reconcile"
	"github.com/xxxsen/markport/internal/remote"
	"github.com/xxxsen/markport/internal/repo"
	"github.com/xxxsen/markport/internal/schedule"
	"github.com/xxxsen/markport/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "markport",
		Short: "bookmark import server and tools",
	}
	rootCmd.AddCommand(newRunCmd(), newSweepCmd(), newImportCmd(), newConvertCmd())

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func newRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run markport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return runServer(cfg, sqlDB)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

func newSweepCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "remove stale import jobs once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			archive, err := filestore.New(cfg.Archive)
			if err != nil {
				return fmt.Errorf("init archive: %w", err)
			}
			store := repo.NewImportStore(sqlDB, cfg.Database.Driver, cfg.Import.ChunkSize)
			cleanup := job.NewImportCleanupJob(store, archive, time.Duration(cfg.Import.JobTTLHours)*time.Hour)
			return schedule.RunOnce(cmd.Context(), cleanup, "manual")
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	return cmd
}

// bootstrap loads the config, sets up logging and opens the migrated database.
func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	sqlDB, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, sqlDB, nil
}

func runServer(cfg *config.Config, sqlDB *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("archive", cfg.Archive.Type),
	)

	archive, err := filestore.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("init archive: %w", err)
	}
	store := repo.NewImportStore(sqlDB, cfg.Database.Driver, cfg.Import.ChunkSize)
	sessionRepo := repo.NewSessionRepo(sqlDB, cfg.Database.Driver)
	connector := remote.NewSessionConnector(
		sessionRepo,
		&http.Client{Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second},
		cfg.Remote.SessionCacheSize,
		time.Duration(cfg.Remote.SessionCacheTTLMinutes)*time.Minute,
	)
	collections := remote.Collections{
		Bookmark:   cfg.Remote.BookmarkCollection,
		Annotation: cfg.Remote.AnnotationCollection,
		Tag:        cfg.Remote.TagCollection,
	}

	importService := service.NewImportService(store, connector, archive, service.ImportOptions{
		Collections: collections,
		URLPolicy: reconcile.URLPolicy{
			StripTrailingSlash: cfg.Dedup.StripTrailingSlash,
			StripWWW:           cfg.Dedup.StripWWW,
		},
		MaxOps:   cfg.Import.MaxOpsPerWrite,
		PageSize: cfg.Remote.PageSize,
	})
	bulkService := service.NewBulkService(connector, service.BulkOptions{
		Collections: collections,
		MaxOps:      cfg.Import.MaxOpsPerWrite,
		Concurrency: cfg.Import.BulkConcurrency,
		PageSize:    cfg.Remote.PageSize,
	})
	sessionService := service.NewSessionService(sessionRepo, connector)

	deps := handler.RouterDeps{
		Imports:         handler.NewImportHandler(importService, cfg.Import.MaxUploadSize),
		Bulk:            handler.NewBulkHandler(bulkService),
		Sessions:        handler.NewSessionHandler(sessionService),
		Metrics:         metrics.Handler(),
		JWTSecret:       []byte(cfg.JWTSecret),
		UploadRateLimit: time.Duration(cfg.Import.UploadRateLimitSeconds) * time.Second,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewImportCleanupJob(store, archive, time.Duration(cfg.Import.JobTTLHours)*time.Hour)
	if err := scheduler.AddJob(cleanup, cfg.Import.CleanupCron); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
