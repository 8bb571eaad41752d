// Package training keeps the append-only corpus of known item numbers,
// the text patterns around them and the image regions they were found in,
// and scans new images with what it learned.
package training

import (
	"context"
	"fmt"
	"slices"

	"github.com/joseph-ayodele/refund-audit/internal/common"
	"github.com/joseph-ayodele/refund-audit/internal/preprocess"
)

// TimestampLayout is the added_at / created_at format of the corpus.
const TimestampLayout = "2006-01-02T15:04:05.000000"

const (
	PatternPrefix = "prefix"
	PatternSuffix = "suffix"
)

type Example struct {
	ItemNumber  string `json:"item_number"`
	ImagePath   string `json:"image_path"`
	Description string `json:"description"`
	AddedAt     string `json:"added_at"`
}

type Pattern struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	AddedAt string `json:"added_at"`
}

type Region struct {
	Name     string            `json:"name"`
	Location preprocess.Region `json:"location"`
	AddedAt  string            `json:"added_at"`
}

// Corpus is the whole training document.
type Corpus struct {
	Examples  []Example `json:"examples"`
	Patterns  []Pattern `json:"patterns"`
	Regions   []Region  `json:"regions"`
	CreatedAt string    `json:"created_at,omitempty"`
}

// Store persists a Corpus. Update runs fn on the current corpus under the
// store's lock and persists the result only if fn left every list a
// superset of what it was.
type Store interface {
	Load(ctx context.Context) (Corpus, error)
	Update(ctx context.Context, fn func(*Corpus) error) error
	Close() error
}

// emptyCorpus has no CreatedAt: a store stamps it when the corpus is first persisted.
func emptyCorpus() Corpus {
	return Corpus{
		Examples: []Example{},
		Patterns: []Pattern{},
		Regions:  []Region{},
	}
}

func (c Corpus) clone() Corpus {
	c.Examples = slices.Clone(c.Examples)
	c.Patterns = slices.Clone(c.Patterns)
	c.Regions = slices.Clone(c.Regions)
	return c
}

// HasLearned reports whether the corpus can bias a scan.
func (c Corpus) HasLearned() bool {
	return len(c.Regions) > 0 || len(c.Patterns) > 0
}

// checkAppendOnly rejects an update that removed or rewrote an existing entry.
func checkAppendOnly(before, after Corpus) error {
	if !isPrefix(before.Examples, after.Examples) {
		return fmt.Errorf("%w: examples changed", common.ErrNotAppendOnly)
	}
	if !isPrefix(before.Patterns, after.Patterns) {
		return fmt.Errorf("%w: patterns changed", common.ErrNotAppendOnly)
	}
	if !isPrefix(before.Regions, after.Regions) {
		return fmt.Errorf("%w: regions changed", common.ErrNotAppendOnly)
	}
	if before.CreatedAt != "" && after.CreatedAt != before.CreatedAt {
		return fmt.Errorf("%w: created_at changed", common.ErrNotAppendOnly)
	}
	return nil
}

func isPrefix[T comparable](before, after []T) bool {
	return len(after) >= len(before) && slices.Equal(before, after[:len(before)])
}
