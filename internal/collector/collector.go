// Package collector gathers the workspace facts the daemon needs at startup:
// the repository link shown on the presence and the list of ignored files.
package collector

import (
	"context"
)

// Collector gathers one kind of workspace information.
type Collector interface {
	// Collect inspects workDir and returns its contribution. Warnings are
	// non-fatal issues.
	Collect(ctx context.Context, workDir string) (CollectorResult, error)
}

// CollectorResult holds the output of a single collector.
type CollectorResult struct {
	RemoteLabel    string   // populated by GitCollector
	Branch         string   // populated by GitCollector
	IgnorePatterns []string // populated by IgnoreCollector
	Warnings       []string // non-fatal issues encountered
}

// Run runs every collector in order and merges their results. Later
// collectors do not override values already set.
func Run(ctx context.Context, workDir string, collectors ...Collector) (CollectorResult, error) {
	var merged CollectorResult
	for _, c := range collectors {
		r, err := c.Collect(ctx, workDir)
		if err != nil {
			return merged, err
		}
		if merged.RemoteLabel == "" {
			merged.RemoteLabel = r.RemoteLabel
		}
		if merged.Branch == "" {
			merged.Branch = r.Branch
		}
		merged.IgnorePatterns = append(merged.IgnorePatterns, r.IgnorePatterns...)
		merged.Warnings = append(merged.Warnings, r.Warnings...)
	}
	return merged, nil
}
