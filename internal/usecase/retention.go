package usecase

import (
	"fmt"
	"os"
	"time"

	"github.com/pgvault/pgvault/internal/domain"
)

// Retention prunes old archives from the output directory. Enforcement only
// ever runs after a successful new archive has been produced, so a failed run
// can never shrink the retained set.
type Retention struct {
	outputDir string
	policy    domain.RetentionPolicy
	logger    Logger
	now       func() time.Time
	remove    func(string) error
}

func NewRetention(outputDir string, policy domain.RetentionPolicy, logger Logger) *Retention {
	return &Retention{
		outputDir: outputDir,
		policy:    policy,
		logger:    logger,
		now:       time.Now,
		remove:    os.Remove,
	}
}

// Enforce applies the policy to all archives of the given kind (every kind if
// empty) and returns how many were deleted. The first deletion failure aborts;
// the returned count still reflects the deletions that already happened.
func (uc *Retention) Enforce(kind string) (int, error) {
	archives, err := listArchives(uc.outputDir, kind)
	if err != nil {
		return 0, err
	}

	var expired []domain.Archive
	switch uc.policy.Mode {
	case domain.RetentionByAge:
		cutoff := uc.now().AddDate(0, 0, -uc.policy.MaxAgeDays)
		for _, archive := range archives {
			if archive.ModTime.Before(cutoff) {
				expired = append(expired, archive)
			}
		}
	case domain.RetentionByCount:
		if len(archives) > uc.policy.MaxCount {
			expired = archives[uc.policy.MaxCount:]
		}
	default:
		return 0, fmt.Errorf("unknown retention mode %q", uc.policy.Mode)
	}

	deleted := 0
	for _, archive := range expired {
		uc.logger.Infof("Deleting expired archive: %s", archive.Name)
		if err := uc.remove(archive.Path); err != nil {
			return deleted, fmt.Errorf("failed to delete %s: %w", archive.Name, err)
		}
		deleted++
	}

	return deleted, nil
}
