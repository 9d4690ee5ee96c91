package app

import (
	"context"
	"fmt"

	"github.com/pgvault/pgvault/internal/adapter/archive"
	"github.com/pgvault/pgvault/internal/adapter/notify"
	"github.com/pgvault/pgvault/internal/adapter/postgres"
	"github.com/pgvault/pgvault/internal/adapter/storage"
	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/domain"
	"github.com/pgvault/pgvault/internal/infrastructure/logger"
	"github.com/pgvault/pgvault/internal/infrastructure/metrics"
	"github.com/pgvault/pgvault/internal/infrastructure/scheduler"
	"github.com/pgvault/pgvault/internal/usecase"
)

// App wires configuration into adapters and use cases.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	archiver  *archive.TarGz
	exclude   *domain.ExclusionFilter
	retention *usecase.Retention
	recorder  *metrics.Recorder
	catalog   *postgres.Catalog
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	exclude, err := domain.NewExclusionFilter(cfg.Backup.ExcludeNames, cfg.Backup.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    cfg,
		logger:    log,
		archiver:  archive.NewTarGz(),
		exclude:   exclude,
		retention: usecase.NewRetention(cfg.Backup.OutputDir, cfg.RetentionPolicy(), log),
	}

	if cfg.Metrics.Enabled {
		a.recorder = metrics.NewRecorder()
	}

	return a, nil
}

// Backup runs one backup of the given kind and returns the archive path.
func (a *App) Backup(ctx context.Context, kind string) (string, error) {
	catalog, err := a.openCatalog()
	if err != nil {
		return "", err
	}

	targets := a.uploadTargets()
	uc := usecase.NewBackup(usecase.BackupParams{
		Catalog:       catalog,
		Dumper:        postgres.NewDumper(&a.config.Database),
		Archiver:      a.archiver,
		Retention:     a.retention,
		OutputDir:     a.config.Backup.OutputDir,
		AdminDatabase: a.config.Database.AdminDatabase,
		Exclude:       a.exclude,
		ParallelDumps: a.config.Backup.ParallelDumps,
		UploadTargets: targets,
		RemoteCleanup: usecase.NewCleanup(targets, a.config.RetentionPolicy(), a.logger),
		Notifiers:     a.notifiers(),
		Metrics:       a.metricsRecorder(),
		Logger:        a.logger,
	})

	return uc.Run(ctx, kind)
}

// Restore replays an archive against the configured server.
func (a *App) Restore(ctx context.Context, archivePath string) error {
	uc := usecase.NewRestore(postgres.NewRestorer(&a.config.Database), a.archiver, a.logger)
	return uc.Execute(ctx, archivePath)
}

// Prune enforces retention standalone, over archives of one kind or all,
// locally and on the upload targets. The returned count covers local archives.
func (a *App) Prune(ctx context.Context, kind string) (int, error) {
	deleted, err := a.retention.Enforce(kind)
	if err != nil {
		return deleted, err
	}

	usecase.NewCleanup(a.uploadTargets(), a.config.RetentionPolicy(), a.logger).Execute(ctx, kind)

	return deleted, nil
}

// Serve runs the daemon: one cron job per configured backup kind, plus the
// metrics endpoint when enabled. Blocks until the context is cancelled.
func (a *App) Serve(ctx context.Context) error {
	if len(a.config.Backup.Kinds) == 0 {
		return fmt.Errorf("serve mode requires at least one entry under backup.kinds")
	}

	sched := scheduler.New()
	for kind, spec := range a.config.Backup.Kinds {
		kind := kind
		a.logger.Infof("Scheduling %q backups: %s", kind, spec)
		err := sched.AddJob(spec, func(jobCtx context.Context) error {
			if _, err := a.Backup(jobCtx, kind); err != nil {
				a.logger.Errorf("[%s] Scheduled backup failed: %v", kind, err)
				return err
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to schedule %q backups: %w", kind, err)
		}
	}

	if a.config.Metrics.Enabled {
		a.logger.Infof("Serving metrics on %s", a.config.Metrics.ListenAddr)
		go func() {
			if err := metrics.Serve(a.config.Metrics.ListenAddr); err != nil {
				a.logger.Errorf("Metrics server stopped: %v", err)
			}
		}()
	}

	sched.Start()
	a.logger.Infof("Scheduler started with %d backup kind(s)", len(a.config.Backup.Kinds))

	<-ctx.Done()
	sched.Stop()
	return nil
}

func (a *App) Shutdown() {
	if a.catalog != nil {
		_ = a.catalog.Close()
	}
	a.logger.Close()
}

func (a *App) openCatalog() (*postgres.Catalog, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	catalog, err := postgres.NewCatalog(&a.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog connection: %w", err)
	}
	a.catalog = catalog
	return catalog, nil
}

func (a *App) metricsRecorder() usecase.MetricsRecorder {
	if a.recorder == nil {
		return nil
	}
	return a.recorder
}

func (a *App) uploadTargets() []usecase.UploadTarget {
	var targets []usecase.UploadTarget

	for _, targetCfg := range a.config.GetEnabledUploadTargets() {
		var stor domain.Storage
		var err error

		switch targetCfg.Type {
		case "local":
			stor, err = storage.NewLocal(targetCfg.Path)
		case "s3":
			stor, err = storage.NewS3(&targetCfg)
		case "gdrive":
			stor, err = storage.NewGDrive(&targetCfg)
		}
		if err != nil {
			a.logger.Errorf("Failed to initialize %s upload target: %v", targetCfg.Type, err)
			continue
		}
		if stor == nil {
			continue
		}

		a.logger.Infof("Upload target enabled: %s", targetCfg.Type)
		targets = append(targets, usecase.UploadTarget{
			Name:    targetCfg.Type,
			Storage: stor,
		})
	}

	return targets
}

func (a *App) notifiers() []usecase.NotifyTarget {
	var targets []usecase.NotifyTarget

	if a.config.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(&a.config.Notify.Telegram)
		if err != nil {
			a.logger.Errorf("Failed to initialize telegram notifier: %v", err)
		} else {
			targets = append(targets, usecase.NotifyTarget{Name: "telegram", Notifier: tg})
		}
	}

	if a.config.Notify.Email.Enabled {
		targets = append(targets, usecase.NotifyTarget{
			Name:     "email",
			Notifier: notify.NewEmail(&a.config.Notify.Email),
		})
	}

	return targets
}
