package domain

import (
	"context"
	"time"
)

// Storage is an offsite copy target for finished archives.
type Storage interface {
	Upload(ctx context.Context, localPath string, remoteName string) error
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, remoteName string) error
	GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error)
}

// Notifier reports run outcomes to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}
