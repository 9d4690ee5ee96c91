package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// Backup runs the full orchestration sequence: validate the kind label,
// prepare a staging directory, enumerate eligible databases, dump globals then
// each database, pack the staging directory into a tar.gz, remove the staging
// directory and enforce retention. Every step must succeed before the next
// one starts; the first failure aborts the whole run.
type Backup struct {
	catalog       domain.Catalog
	dumper        domain.Dumper
	archiver      domain.Archiver
	retention     *Retention
	outputDir     string
	adminDatabase string
	exclude       *domain.ExclusionFilter
	parallelDumps int
	uploadTargets []UploadTarget
	cleanup       *Cleanup
	notifiers     []NotifyTarget
	metrics       MetricsRecorder
	logger        Logger
	now           func() time.Time
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

type NotifyTarget struct {
	Name     string
	Notifier domain.Notifier
}

// MetricsRecorder receives the outcome of each run. Implementations must be
// safe to call from scheduler goroutines.
type MetricsRecorder interface {
	RecordRun(kind string, success bool, duration time.Duration, archiveBytes int64, databases int)
}

type BackupParams struct {
	Catalog       domain.Catalog
	Dumper        domain.Dumper
	Archiver      domain.Archiver
	Retention     *Retention
	OutputDir     string
	AdminDatabase string
	Exclude       *domain.ExclusionFilter
	ParallelDumps int
	UploadTargets []UploadTarget
	// RemoteCleanup, when set, applies the retention policy to the upload
	// targets after each successful run.
	RemoteCleanup *Cleanup
	Notifiers     []NotifyTarget
	Metrics       MetricsRecorder
	Logger        Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewBackup(p BackupParams) *Backup {
	parallel := p.ParallelDumps
	if parallel < 1 {
		parallel = 1
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &Backup{
		catalog:       p.Catalog,
		dumper:        p.Dumper,
		archiver:      p.Archiver,
		retention:     p.Retention,
		outputDir:     p.OutputDir,
		adminDatabase: p.AdminDatabase,
		exclude:       p.Exclude,
		parallelDumps: parallel,
		uploadTargets: p.UploadTargets,
		cleanup:       p.RemoteCleanup,
		notifiers:     p.Notifiers,
		metrics:       p.Metrics,
		logger:        p.Logger,
		now:           now,
	}
}

// Run executes one backup of the given kind and returns the archive path.
func (uc *Backup) Run(ctx context.Context, kind string) (string, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return "", fmt.Errorf("backup kind is required (e.g. daily, weekly, monthly)")
	}
	if strings.ContainsAny(kind, "/\\") {
		return "", fmt.Errorf("backup kind %q must not contain path separators", kind)
	}

	start := uc.now()
	run, err := uc.run(ctx, kind, start)

	if uc.metrics != nil {
		var size int64
		if err == nil {
			if info, statErr := os.Stat(run.ArchivePath); statErr == nil {
				size = info.Size()
			}
		}
		uc.metrics.RecordRun(kind, err == nil, time.Since(start), size, len(run.Databases))
	}

	if err != nil {
		uc.notify(ctx, fmt.Sprintf("Backup %q failed", kind), err.Error())
		return "", err
	}

	uc.logger.Infof("[%s] Backup completed in %s: %s",
		kind, time.Since(start).Round(time.Second), run.ArchivePath)
	uc.notify(ctx, fmt.Sprintf("Backup %q completed", kind),
		fmt.Sprintf("Archive: %s\nDatabases: %d\nDuration: %s",
			filepath.Base(run.ArchivePath), len(run.Databases), time.Since(start).Round(time.Second)))

	return run.ArchivePath, nil
}

func (uc *Backup) run(ctx context.Context, kind string, start time.Time) (domain.Run, error) {
	uc.logger.Infof("[%s] Starting backup...", kind)

	if err := uc.catalog.Ping(ctx); err != nil {
		return domain.Run{}, fmt.Errorf("server ping: %w", err)
	}

	baseName := archiveBaseName(start, kind)
	run := domain.Run{
		Kind:        kind,
		StartedAt:   start,
		StagingDir:  filepath.Join(uc.outputDir, baseName),
		ArchivePath: filepath.Join(uc.outputDir, baseName+archiveSuffix),
	}

	if err := uc.prepareStaging(run.StagingDir); err != nil {
		return run, fmt.Errorf("prepare staging: %w", err)
	}

	databases, err := uc.eligibleDatabases(ctx)
	if err != nil {
		uc.discardStaging(run.StagingDir)
		return run, fmt.Errorf("enumerate databases: %w", err)
	}
	run.Databases = databases
	uc.logger.Infof("[%s] %d database(s) eligible for backup", kind, len(databases))

	uc.logger.Infof("[%s] Dumping global objects...", kind)
	if err := uc.dumper.DumpGlobals(ctx, filepath.Join(run.StagingDir, GlobalsFilename)); err != nil {
		uc.discardStaging(run.StagingDir)
		return run, fmt.Errorf("dump globals: %w", err)
	}

	if err := uc.dumpDatabases(ctx, kind, run.StagingDir, databases); err != nil {
		uc.discardStaging(run.StagingDir)
		return run, err
	}

	uc.logger.Infof("[%s] Packing archive: %s", kind, run.ArchivePath)
	if err := uc.archiver.Pack(run.StagingDir, run.ArchivePath); err != nil {
		uc.discardStaging(run.StagingDir)
		return run, fmt.Errorf("pack archive: %w", err)
	}

	if err := os.RemoveAll(run.StagingDir); err != nil {
		return run, fmt.Errorf("remove staging directory: %w", err)
	}

	if deleted, err := uc.retention.Enforce(kind); err != nil {
		return run, fmt.Errorf("enforce retention: %w", err)
	} else if deleted > 0 {
		uc.logger.Infof("[%s] Retention removed %d old archive(s)", kind, deleted)
	}

	uc.upload(ctx, kind, run.ArchivePath)

	if uc.cleanup != nil {
		uc.cleanup.Execute(ctx, kind)
	}

	return run, nil
}

// prepareStaging creates the staging directory. A leftover non-empty
// directory with the same name means another run's contents would be merged
// into this archive, which is never acceptable.
func (uc *Backup) prepareStaging(stagingDir string) error {
	if entries, err := os.ReadDir(stagingDir); err == nil && len(entries) > 0 {
		return fmt.Errorf("staging directory %s already exists and is not empty", stagingDir)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// discardStaging is the failure-path cleanup. Best effort: the run is already
// failing, a leftover directory only costs disk, never correctness.
func (uc *Backup) discardStaging(stagingDir string) {
	if err := os.RemoveAll(stagingDir); err != nil {
		uc.logger.Warnf("Failed to remove staging directory %s: %v", stagingDir, err)
	}
}

// eligibleDatabases lists the server's non-template databases minus the
// administrative database, the template databases and the configured
// exclusions. Names are trimmed before use in paths and commands.
func (uc *Backup) eligibleDatabases(ctx context.Context) ([]string, error) {
	all, err := uc.catalog.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}

	reserved := map[string]struct{}{
		uc.adminDatabase: {},
		"template0":      {},
		"template1":      {},
	}

	var eligible []string
	for _, name := range all {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := reserved[name]; ok {
			continue
		}
		if uc.exclude != nil && uc.exclude.Excluded(name) {
			continue
		}
		eligible = append(eligible, name)
	}

	return eligible, nil
}

func (uc *Backup) dumpDatabases(ctx context.Context, kind, stagingDir string, databases []string) error {
	if uc.parallelDumps > 1 {
		return uc.dumpDatabasesParallel(ctx, kind, stagingDir, databases)
	}

	for _, name := range databases {
		uc.logger.Infof("[%s] Dumping database %s...", kind, name)
		if err := uc.dumper.DumpDatabase(ctx, name, filepath.Join(stagingDir, name+DumpSuffix)); err != nil {
			return fmt.Errorf("dump database %s: %w", name, err)
		}
	}
	return nil
}

// dumpDatabasesParallel is the opt-in bounded variant. Globals have already
// been dumped by the caller; the first failure cancels the remaining dumps
// and aborts the run.
func (uc *Backup) dumpDatabasesParallel(ctx context.Context, kind, stagingDir string, databases []string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	sem := make(chan struct{}, uc.parallelDumps)

	for _, name := range databases {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			uc.logger.Infof("[%s] Dumping database %s...", kind, name)
			if err := uc.dumper.DumpDatabase(ctx, name, filepath.Join(stagingDir, name+DumpSuffix)); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("dump database %s: %w", name, err)
				}
				mu.Unlock()
				cancel()
			}
		}(name)
	}

	wg.Wait()
	return firstErr
}

// upload copies the finished archive to the configured offsite targets. Like
// the retained set itself, offsite copies are an after-success concern:
// failures are logged and notified but never fail the run.
func (uc *Backup) upload(ctx context.Context, kind, archivePath string) {
	if len(uc.uploadTargets) == 0 {
		return
	}

	remoteName := filepath.Base(archivePath)
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			uc.logger.Infof("[%s] Uploading to %s...", kind, t.Name)
			if err := t.Storage.Upload(ctx, archivePath, remoteName); err != nil {
				uc.logger.Errorf("[%s] Failed to upload to %s: %v", kind, t.Name, err)
			} else {
				uc.logger.Infof("[%s] Successfully uploaded to %s", kind, t.Name)
			}
		}(target)
	}

	wg.Wait()
}

func (uc *Backup) notify(ctx context.Context, subject, message string) {
	for _, target := range uc.notifiers {
		if err := target.Notifier.Notify(ctx, subject, message); err != nil {
			uc.logger.Warnf("Failed to notify via %s: %v", target.Name, err)
		}
	}
}
