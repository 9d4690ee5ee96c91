package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgvault/pgvault/internal/domain"
)

// Restore replays an archive against a server: globals first, then
// drop/create/restore for every database dump found. The archive needs no
// metadata beyond its own contents.
type Restore struct {
	restorer domain.Restorer
	archiver domain.Archiver
	logger   Logger
}

func NewRestore(restorer domain.Restorer, archiver domain.Archiver, logger Logger) *Restore {
	return &Restore{
		restorer: restorer,
		archiver: archiver,
		logger:   logger,
	}
}

func (uc *Restore) Execute(ctx context.Context, archivePath string) error {
	workDir, err := os.MkdirTemp("", "pgvault_restore_")
	if err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	uc.logger.Infof("Extracting %s...", archivePath)
	if err := uc.archiver.Unpack(archivePath, workDir); err != nil {
		return fmt.Errorf("unpack archive: %w", err)
	}

	globalsPath := filepath.Join(workDir, GlobalsFilename)
	if _, err := os.Stat(globalsPath); err != nil {
		return fmt.Errorf("archive is missing %s: %w", GlobalsFilename, err)
	}

	uc.logger.Infof("Restoring global objects...")
	if err := uc.restorer.RestoreGlobals(ctx, globalsPath); err != nil {
		return fmt.Errorf("restore globals: %w", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		return fmt.Errorf("read extracted archive: %w", err)
	}

	restored := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), DumpSuffix) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), DumpSuffix)

		uc.logger.Infof("Restoring database %s...", name)
		if err := uc.restorer.RestoreDatabase(ctx, name, filepath.Join(workDir, entry.Name())); err != nil {
			return err
		}
		restored++
	}

	uc.logger.Infof("Restore completed: globals + %d database(s)", restored)
	return nil
}
