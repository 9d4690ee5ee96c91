package postgres

import (
	"context"
	"fmt"

	"github.com/pgvault/pgvault/internal/config"
)

// Dumper shells out to pg_dumpall and pg_dump. Globals are plain SQL;
// database dumps use the custom container format so they can be restored
// selectively or in parallel later.
type Dumper struct {
	cfg *config.DatabaseConfig
}

func NewDumper(cfg *config.DatabaseConfig) *Dumper {
	return &Dumper{cfg: cfg}
}

func (d *Dumper) DumpGlobals(ctx context.Context, outputPath string) error {
	args := append(connArgs(d.cfg),
		"--globals-only",
		fmt.Sprintf("--file=%s", outputPath),
	)

	_, err := runTool(ctx, d.cfg, "pg_dumpall", args...)
	return err
}

func (d *Dumper) DumpDatabase(ctx context.Context, name, outputPath string) error {
	args := append(connArgs(d.cfg),
		"--format=custom",
		"--compress=9",
		fmt.Sprintf("--file=%s", outputPath),
		name,
	)

	_, err := runTool(ctx, d.cfg, "pg_dump", args...)
	return err
}
