package domain

import "context"

// CommandResult captures one external tool invocation: exit status plus both
// output streams. Callers inspect it explicitly instead of a shared
// last-exit-status register.
type CommandResult struct {
	Status int
	Stdout string
	Stderr string
}

// Catalog lists the databases present on the target server.
type Catalog interface {
	Ping(ctx context.Context) error
	ListDatabases(ctx context.Context) ([]string, error)
}

// Dumper produces logical dumps: cluster globals as plain SQL, individual
// databases in a container format that supports selective restore.
type Dumper interface {
	DumpGlobals(ctx context.Context, outputPath string) error
	DumpDatabase(ctx context.Context, name, outputPath string) error
}

// Restorer mirrors Dumper: globals first, then drop/create/restore per
// database file found in an extracted archive.
type Restorer interface {
	RestoreGlobals(ctx context.Context, dumpPath string) error
	RestoreDatabase(ctx context.Context, name, dumpPath string) error
}
