package postgres

import (
	"context"
	"fmt"

	"github.com/pgvault/pgvault/internal/config"
)

// Restorer mirrors the dump sequence: psql for the global-objects SQL, then
// drop-if-exists, create, pg_restore for each database file.
type Restorer struct {
	cfg *config.DatabaseConfig
}

func NewRestorer(cfg *config.DatabaseConfig) *Restorer {
	return &Restorer{cfg: cfg}
}

func (r *Restorer) RestoreGlobals(ctx context.Context, dumpPath string) error {
	args := append(connArgs(r.cfg),
		fmt.Sprintf("--dbname=%s", r.cfg.AdminDatabase),
		fmt.Sprintf("--file=%s", dumpPath),
	)

	_, err := runTool(ctx, r.cfg, "psql", args...)
	return err
}

func (r *Restorer) RestoreDatabase(ctx context.Context, name, dumpPath string) error {
	if _, err := runTool(ctx, r.cfg, "dropdb",
		append(connArgs(r.cfg), "--if-exists", name)...); err != nil {
		return fmt.Errorf("drop database %s: %w", name, err)
	}

	if _, err := runTool(ctx, r.cfg, "createdb",
		append(connArgs(r.cfg), name)...); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}

	args := append(connArgs(r.cfg),
		fmt.Sprintf("--dbname=%s", name),
		dumpPath,
	)
	if _, err := runTool(ctx, r.cfg, "pg_restore", args...); err != nil {
		return fmt.Errorf("restore database %s: %w", name, err)
	}

	return nil
}
