package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ErrImageTooLarge is returned when an image exceeds the vision size gate.
var ErrImageTooLarge = errors.New("image too large for vision request")

// readAsDataURL base64-encodes the file at path as a data URL, refusing files
// over maxMB megabytes.
func readAsDataURL(path string, maxMB int) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if maxMB > 0 && st.Size() > int64(maxMB)*1024*1024 {
		return "", fmt.Errorf("%w: %d bytes", ErrImageTooLarge, st.Size())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	mt := mime.TypeByExtension("." + ext)
	if mt == "" {
		// fallbacks
		switch ext {
		case "jpg", "jpeg":
			mt = "image/jpeg"
		case "png":
			mt = "image/png"
		case "tif", "tiff":
			mt = "image/tiff"
		default:
			mt = "application/octet-stream"
		}
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// IsQuotaError reports whether err looks like an exhausted quota or a rate limit.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "insufficient_quota") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "rate_limit") ||
		strings.Contains(s, "429")
}
