package deploy

import (
	"fmt"
	"sort"
	"strings"
)

// findDuplicates validates that no relative path was contributed by more
// than one source. It is a pure function over the collected contributions
// and must run after all of them and strictly before the mirror step: a
// tree with silently-overwritten duplicates must never be synced.
//
// Detection, not resolution: the error names every colliding path and its
// contributors, sorted for deterministic output.
func findDuplicates(contribs []contribution) error {
	sources := make(map[string][]string)
	for _, c := range contribs {
		for _, p := range c.Paths {
			sources[p] = append(sources[p], c.Source)
		}
	}

	var dups []string
	for path, srcs := range sources {
		if len(srcs) > 1 {
			sort.Strings(srcs)
			dups = append(dups, fmt.Sprintf("%s (from %s)", path, strings.Join(srcs, ", ")))
		}
	}
	if len(dups) == 0 {
		return nil
	}
	sort.Strings(dups)

	return fmt.Errorf("%w: %s", ErrDuplicateKey, strings.Join(dups, "; "))
}
