package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ScenarioNotFoundError is returned when a path given to the suite doesn't
// exist.
type ScenarioNotFoundError struct {
	Path         string
	ResolvedPath string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist (resolved to: %s)", e.Path, e.ResolvedPath)
}

// DiscoverScenarios expands the given files and directories into a sorted,
// de-duplicated list of scenario files. Directories contribute their
// *.yaml and *.yml files, non-recursively.
func DiscoverScenarios(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	out := []string{}
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		resolved, err := filepath.Abs(p)
		if err != nil {
			resolved = p
		}
		info, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ScenarioNotFoundError{Path: p, ResolvedPath: resolved}
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(p))
			continue
		}
		for _, pattern := range []string{"*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(p, pattern))
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", p, err)
			}
			for _, m := range matches {
				add(filepath.Clean(m))
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

// SuiteResult summarizes a batch of scenario runs.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure describes one scenario that did not pass.
type ScenarioFailure struct {
	Scenario     string   `json:"scenario"`
	ScenarioPath string   `json:"scenario_path"`
	Error        string   `json:"error,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// Pass reports whether every scenario passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

// RunSuite loads and runs every scenario file, at most parallel at a time
// (parallel < 1 means one). Failures to load or execute a scenario are
// recorded as failures; only context cancellation aborts the suite.
// Failures are ordered by scenario path.
func RunSuite(ctx context.Context, files []string, parallel int, opts ...Option) (*SuiteResult, error) {
	if parallel < 1 {
		parallel = 1
	}

	result := &SuiteResult{Total: len(files)}
	var mu sync.Mutex
	record := func(f *ScenarioFailure) {
		mu.Lock()
		defer mu.Unlock()
		if f == nil {
			result.Passed++
			return
		}
		result.Failed++
		result.Failures = append(result.Failures, *f)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			record(runOne(gctx, file, opts))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].ScenarioPath < result.Failures[j].ScenarioPath
	})
	return result, nil
}

func runOne(ctx context.Context, file string, opts []Option) *ScenarioFailure {
	scenario, err := LoadScenario(file)
	if err != nil {
		return &ScenarioFailure{
			ScenarioPath: file,
			Error:        fmt.Sprintf("failed to load scenario: %v", err),
		}
	}

	res, err := RunContext(ctx, scenario, opts...)
	if err != nil {
		return &ScenarioFailure{
			Scenario:     scenario.Name,
			ScenarioPath: file,
			Error:        fmt.Sprintf("scenario execution failed: %v", err),
		}
	}
	if !res.Pass {
		return &ScenarioFailure{
			Scenario:     scenario.Name,
			ScenarioPath: file,
			Errors:       res.Errors,
		}
	}
	return nil
}
