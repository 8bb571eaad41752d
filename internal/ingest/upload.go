package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/refund-audit/internal/common"
)

var (
	reUnsafeName = regexp.MustCompile(`[^A-Za-z0-9_.\-]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// SecureFilename reduces name to a safe base name of ASCII letters, digits,
// '_', '.' and '-'. It may return "".
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "/", " ")
	name = reSpaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = reUnsafeName.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// SaveUpload copies r into dir under "<uuid>_<secure name>" and returns the
// saved path. A file that ends up empty is removed and ErrEmptyFile returned.
func SaveUpload(dir, name string, r io.Reader) (string, error) {
	if r == nil || strings.TrimSpace(name) == "" {
		return "", common.ErrNoFile
	}
	safe := SecureFilename(name)
	if safe == "" || !AllowedExt(filepath.Ext(safe)) {
		return "", fmt.Errorf("%w: unsupported file name %q", common.ErrInvalidInput, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst := filepath.Join(dir, uuid.New().String()+"_"+safe)
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	_, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if copyErr != nil {
			return "", fmt.Errorf("write upload: %w", copyErr)
		}
		return "", fmt.Errorf("close upload: %w", closeErr)
	}
	if err := VerifyFile(dst); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return dst, nil
}
