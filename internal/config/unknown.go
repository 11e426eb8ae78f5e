package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxSuggestDistance is the largest edit distance for a "did you mean?"
// suggestion.
const maxSuggestDistance = 3

// knownKeys lists every key of objwatch.toml, sorted so equally close
// suggestions resolve the same way every time.
var knownKeys = func() []string {
	keys := []string{"log_level", "format", "parallel", "journal_path", "golden_dir", "max_depth"}
	sort.Strings(keys)
	return keys
}()

// checkUnknownKeys turns undecoded TOML keys into errors, each with a
// suggestion when a known key is close.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error
	for _, key := range md.Undecoded() {
		name := key.String()
		if suggestion := closestMatch(name, knownKeys); suggestion != "" {
			errs = append(errs, fmt.Errorf("unknown config key %q, did you mean %q?", name, suggestion))
			continue
		}
		errs = append(errs, fmt.Errorf("unknown config key %q", name))
	}
	return errors.Join(errs...)
}

// closestMatch returns the known key nearest to unknown, or "" if none is
// within maxSuggestDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}
	return best
}

func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := range len(a) {
		curr[0] = i + 1
		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}
			curr[j+1] = min(prev[j+1]+1, curr[j]+1, prev[j]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
