package postgres

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/pgvault/pgvault/internal/config"
	"github.com/pgvault/pgvault/internal/domain"
)

// runTool executes one PostgreSQL client tool to completion and captures exit
// status and both streams. The password is injected into the child
// environment for this call only; it is never exported by the process itself.
func runTool(ctx context.Context, cfg *config.DatabaseConfig, name string, args ...string) (domain.CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", cfg.Password))

	err := cmd.Run()

	result := domain.CommandResult{
		Status: -1,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		result.Status = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		return result, fmt.Errorf("%s failed: %w, stderr: %s", name, err, stderr.String())
	}
	return result, nil
}

func connArgs(cfg *config.DatabaseConfig) []string {
	return []string{
		fmt.Sprintf("--host=%s", cfg.Host),
		fmt.Sprintf("--port=%d", cfg.Port),
		fmt.Sprintf("--username=%s", cfg.User),
		"--no-password",
	}
}
