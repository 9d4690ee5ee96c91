package usecase

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

const (
	archivePrefix   = "pgvault"
	timestampLayout = "20060102T150405"
	archiveSuffix   = ".tar.gz"

	// GlobalsFilename is the cluster-wide objects dump inside every archive.
	GlobalsFilename = "global_objects.sql"
	// DumpSuffix is the per-database container dump extension.
	DumpSuffix = ".backup"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// archiveBaseName builds the staging directory / archive base name. The fixed
// timestamp layout keeps names of one kind lexically sorted in creation order.
func archiveBaseName(ts time.Time, kind string) string {
	return fmt.Sprintf("%s_%s_%s", archivePrefix, ts.Format(timestampLayout), kind)
}

// matchesArchive reports whether a file name follows the archive naming
// convention, optionally restricted to one kind. Foreign files in the output
// directory never participate in retention.
func matchesArchive(name, kind string) bool {
	if !strings.HasPrefix(name, archivePrefix+"_") || !strings.HasSuffix(name, archiveSuffix) {
		return false
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix+"_"), archiveSuffix)
	parts := strings.SplitN(rest, "_", 2)
	if len(parts) != 2 {
		return false
	}
	if _, err := time.Parse(timestampLayout, parts[0]); err != nil {
		return false
	}
	return kind == "" || parts[1] == kind
}

// listArchives returns matching archives in outputDir, newest first.
func listArchives(outputDir, kind string) ([]domain.Archive, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	var archives []domain.Archive
	for _, entry := range entries {
		if entry.IsDir() || !matchesArchive(entry.Name(), kind) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}
		archives = append(archives, domain.Archive{
			Name:    entry.Name(),
			Path:    filepath.Join(outputDir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].ModTime.After(archives[j].ModTime)
	})

	return archives, nil
}
