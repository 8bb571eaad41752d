package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Result is the per-file outcome of ScanDirectory.
type Result struct {
	File         FileInfo
	Deduplicated bool
	Err          string
}

// ScanDirectory walks root and calls fn for every accepted file whose
// content has not been seen by dedup (nil disables deduplication). Failing
// files are recorded and the walk continues.
func ScanDirectory(ctx context.Context, root string, skipHidden bool, dedup *Deduper, fn func(context.Context, FileInfo) error) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Result{File: FileInfo{Path: path}, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		info, err := Describe(path)
		if err != nil {
			results = append(results, Result{File: FileInfo{Path: path}, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if dedup != nil && !dedup.FirstSeen(info.HashHex) {
			results = append(results, Result{File: info, Deduplicated: true})
			stats.Deduplicated++
			return nil
		}
		if err := fn(ctx, info); err != nil {
			results = append(results, Result{File: info, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, Result{File: info})
		stats.Succeeded++
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
