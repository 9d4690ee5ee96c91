package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ExclusionFilter decides which catalog databases are skipped. Exact names are
// matched exactly after trimming; patterns are matched unanchored, so the
// pattern "app" also excludes "app_test". That substring behavior mirrors the
// alternation matching of the cron scripts this tool replaces and is a known
// limitation: use exact names when partial collisions matter.
type ExclusionFilter struct {
	names    map[string]struct{}
	patterns []*regexp.Regexp
}

func NewExclusionFilter(names, patterns []string) (*ExclusionFilter, error) {
	f := &ExclusionFilter{names: make(map[string]struct{})}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			f.names[name] = struct{}{}
		}
	}

	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}

	return f, nil
}

func (f *ExclusionFilter) Excluded(name string) bool {
	if _, ok := f.names[name]; ok {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
