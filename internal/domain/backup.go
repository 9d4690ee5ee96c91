package domain

import "time"

// Run describes a single backup invocation. It is derived once at start and
// never mutated; the archive file is its only durable trace.
type Run struct {
	Kind        string
	StartedAt   time.Time
	StagingDir  string
	ArchivePath string
	Databases   []string
}

// Archive is one retained backup file in the output directory.
type Archive struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

type RetentionMode string

const (
	RetentionByAge   RetentionMode = "age"
	RetentionByCount RetentionMode = "count"
)

// RetentionPolicy controls which archives survive after a successful run.
// Exactly one of MaxAgeDays/MaxCount is meaningful depending on Mode.
type RetentionPolicy struct {
	Mode       RetentionMode
	MaxAgeDays int
	MaxCount   int
}
