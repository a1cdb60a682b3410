package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"seedvigil/internal/backup"
	"seedvigil/internal/clientapi"
	"seedvigil/internal/config"
	"seedvigil/internal/engine"
	apphttp "seedvigil/internal/http"
	"seedvigil/internal/notify"
	"seedvigil/internal/repository"
	"seedvigil/internal/repository/sqlite"
	"seedvigil/internal/sites"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}
	if strings.TrimSpace(cfg.Auth.PasswordHash) == "" {
		logger.Fatalf("auth password hash is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	stateRepo := sqlite.NewStateRepository(db)
	if err := stateRepo.Init(ctx); err != nil {
		logger.Fatalf("init state repository: %v", err)
	}

	registry, err := sites.LoadRegistry(cfg.Engine.RegistryPath)
	if err != nil {
		logger.Fatalf("load site registry: %v", err)
	}

	if written, err := sites.EnsureSiteConfigFile(cfg.Engine.SiteConfigPath); err != nil {
		logger.Warnf("site config template: %v", err)
	} else if written {
		logger.Infof("wrote site config template to %s", cfg.Engine.SiteConfigPath)
	}
	siteConfigs, err := sites.LoadSiteConfigs(cfg.Engine.SiteConfigPath)
	if err != nil {
		logger.Fatalf("load site configs: %v", err)
	}

	notifier := buildNotifier(cfg, logger)

	engineCfg := engine.Config{
		Enabled:            cfg.Engine.Enabled,
		RunOnce:            cfg.Engine.RunOnce,
		DownloaderName:     cfg.Downloader.Name,
		Tag:                cfg.Engine.Tag,
		HRDuration:         cfg.Engine.HRDuration,
		HRRatio:            cfg.Engine.HRRatio,
		HRDeadlineDays:     cfg.Engine.HRDeadlineDays,
		AdditionalSeedTime: cfg.Engine.AdditionalSeedTime,
		RetentionDays:      cfg.Engine.RetentionDays,
		CheckPeriod:        time.Duration(cfg.Engine.CheckPeriodMinutes) * time.Minute,
		Sites:              registry.FilterEligible(cfg.Engine.Sites),
		SiteConfigs:        siteConfigs,
	}

	// Configuration validation failure is fatal-soft: the engine is force
	// disabled and a single operator alert is issued, but the process keeps
	// serving the API with the last-known-good state.
	if err := engineCfg.Validate(); err != nil {
		logger.Errorf("engine configuration invalid, disabling: %v", err)
		notifier.Send("Obligation Engine Disabled",
			fmt.Sprintf("Configuration invalid: %v", err), notify.SeverityWarning)
		engineCfg.Enabled = false
		engineCfg.RunOnce = false
	}

	qbit := clientapi.NewQBittorrent(cfg.Downloader.Host, cfg.Downloader.Username, cfg.Downloader.Password)
	if engineCfg.Enabled || engineCfg.RunOnce {
		if err := qbit.Login(ctx); err != nil {
			logger.Warnf("qbittorrent login: %v", err)
		}
	}

	reconciler := engine.NewReconciler(engineCfg, stateRepo, qbit, registry, notifier, logger)

	backupSvc, err := buildBackup(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup backup: %v", err)
	}

	runCycle := func(ctx context.Context) error {
		if err := reconciler.RunCheckCycle(ctx); err != nil {
			return err
		}
		snapshotState(ctx, backupSvc, stateRepo, cfg.Backup.KeepDays, logger)
		return nil
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(reconciler, registry, runCycle, apphttp.AuthConfig{
		JWTSecret:    cfg.Auth.JWTSecret,
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		TokenTTL:     time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	if engineCfg.RunOnce {
		logger.Info("running one check cycle immediately")
		if err := runCycle(ctx); err != nil {
			logger.Errorf("run-once cycle: %v", err)
		}
	}

	if engineCfg.Enabled {
		go runScheduler(ctx, engineCfg.CheckPeriod, runCycle, logger)
	} else {
		logger.Info("engine disabled, periodic checks are off")
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// runScheduler drives the periodic check cycle. An in-flight cycle always
// runs to completion; shutdown only prevents the next tick.
func runScheduler(ctx context.Context, period time.Duration, runCycle func(context.Context) error, logger *logrus.Logger) {
	if period <= 0 {
		period = 5 * time.Minute
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := runCycle(context.Background()); err != nil {
				logger.Errorf("check cycle: %v", err)
			}
		}
	}
}

func snapshotState(ctx context.Context, svc backup.Service, repo repository.StateRepository, keepDays int, logger *logrus.Logger) {
	if svc == nil {
		return
	}
	buckets, err := repo.Buckets(ctx)
	if err != nil {
		logger.Warnf("collect state for backup: %v", err)
		return
	}
	dest, err := svc.UploadSnapshot(ctx, buckets)
	if err != nil {
		logger.Warnf("upload state snapshot: %v", err)
		return
	}
	logger.Debugf("state snapshot uploaded to %s", dest)

	if pruned, err := svc.Prune(ctx, time.Duration(keepDays)*24*time.Hour); err != nil {
		logger.Warnf("prune state snapshots: %v", err)
	} else if pruned > 0 {
		logger.Infof("pruned %d stale state snapshots", pruned)
	}
}

func buildNotifier(cfg config.Config, logger *logrus.Logger) *notify.Dispatcher {
	sinks := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhookNotifier(cfg.Webhook.URL, logger))
	}
	return notify.NewDispatcher(notify.ParseMode(cfg.Engine.Notify), sinks...)
}

func buildBackup(ctx context.Context, cfg config.Config, logger *logrus.Logger) (backup.Service, error) {
	if cfg.Backup.Bucket == "" {
		return nil, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Backup.Region),
	}
	if cfg.Backup.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.Backup.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Backup.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("backing up state to s3 bucket %s (region %s)", cfg.Backup.Bucket, cfg.Backup.Region)
	return backup.NewS3Service(client, cfg.Backup.Bucket, cfg.Backup.KeyPrefix), nil
}
