// Package ingest gets files into the system: uploads saved under a unique
// name, an inbox directory walked for backlog and watched for new arrivals,
// and the preconditions every extraction starts with.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/refund-audit/constants"
	"github.com/joseph-ayodele/refund-audit/internal/common"
)

// FileInfo describes one accepted file.
type FileInfo struct {
	Path    string
	Ext     string
	Format  string // constants.IMAGE, TEXT or PDF
	Size    int64
	HashHex string
}

// VerifyFile checks the extraction preconditions: a path was given, the
// file exists and it is not empty.
func VerifyFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return common.ErrNoFile
	}
	st, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
	}
	if st.IsDir() {
		return fmt.Errorf("%w: %s is a directory", common.ErrFileNotFound, path)
	}
	if st.Size() == 0 {
		return fmt.Errorf("%w: %s", common.ErrEmptyFile, path)
	}
	return nil
}

// Describe verifies path and fills in its format and content hash.
func Describe(path string) (FileInfo, error) {
	if err := VerifyFile(path); err != nil {
		return FileInfo{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		return FileInfo{}, fmt.Errorf("%w: unsupported extension %q", common.ErrInvalidInput, ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileInfo{}, fmt.Errorf("hash: %w", err)
	}
	return FileInfo{Path: abs, Ext: ext, Format: format, Size: n, HashHex: hex.EncodeToString(h.Sum(nil))}, nil
}

// AllowedExt checks if a file extension is accepted for intake.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Deduper remembers content hashes already handed out for processing.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{})}
}

// FirstSeen records hash and reports whether it was new.
func (d *Deduper) FirstSeen(hash string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[hash]; ok {
		return false
	}
	d.seen[hash] = struct{}{}
	return true
}
