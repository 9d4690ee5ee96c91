package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// Cleanup applies the retention policy to the offsite upload targets. Like
// uploads, offsite copies are an after-success concern: failures are logged
// per target and never fail a run. Only files following the archive naming
// convention are ever considered.
type Cleanup struct {
	targets []UploadTarget
	policy  domain.RetentionPolicy
	logger  Logger
	now     func() time.Time
}

func NewCleanup(targets []UploadTarget, policy domain.RetentionPolicy, logger Logger) *Cleanup {
	return &Cleanup{
		targets: targets,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// Execute prunes every target concurrently, restricted to one kind (every
// kind if empty).
func (uc *Cleanup) Execute(ctx context.Context, kind string) {
	if len(uc.targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, target := range uc.targets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			if err := uc.cleanupTarget(ctx, t, kind); err != nil {
				uc.logger.Errorf("Remote cleanup failed for %s: %v", t.Name, err)
			}
		}(target)
	}
	wg.Wait()
}

func (uc *Cleanup) cleanupTarget(ctx context.Context, target UploadTarget, kind string) error {
	expired, err := uc.expiredFiles(ctx, target, kind)
	if err != nil {
		return err
	}

	deleted := 0
	for _, name := range expired {
		uc.logger.Infof("Deleting expired archive from %s: %s", target.Name, name)
		if err := target.Storage.Delete(ctx, name); err != nil {
			uc.logger.Errorf("Failed to delete %s from %s: %v", name, target.Name, err)
		} else {
			deleted++
		}
	}

	if deleted > 0 {
		uc.logger.Infof("Deleted %d expired archive(s) from %s", deleted, target.Name)
	}
	return nil
}

func (uc *Cleanup) expiredFiles(ctx context.Context, target UploadTarget, kind string) ([]string, error) {
	switch uc.policy.Mode {
	case domain.RetentionByAge:
		files, err := target.Storage.GetOldFiles(ctx, uc.now().AddDate(0, 0, -uc.policy.MaxAgeDays))
		if err != nil {
			return nil, err
		}
		var expired []string
		for _, name := range files {
			if matchesArchive(name, kind) {
				expired = append(expired, name)
			}
		}
		return expired, nil

	case domain.RetentionByCount:
		files, err := target.Storage.List(ctx)
		if err != nil {
			return nil, err
		}
		var matching []string
		for _, name := range files {
			if matchesArchive(name, kind) {
				matching = append(matching, name)
			}
		}
		// Archive names of one kind sort lexically in creation order, so
		// reverse-sorted the newest come first.
		sort.Sort(sort.Reverse(sort.StringSlice(matching)))
		if len(matching) <= uc.policy.MaxCount {
			return nil, nil
		}
		return matching[uc.policy.MaxCount:], nil
	}

	return nil, nil
}
