package constants

import "strings"

// Source formats understood by the intake pipeline.
const (
	IMAGE = "IMAGE"
	TEXT  = "TEXT"
	PDF   = "PDF"
)

// ImageExtensions are the upload image types (lowercase, without '.').
var ImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
	"bmp":  {},
	"tiff": {},
	"tif":  {},
}

// TextExtensions are treated as fixed-width audit logs first.
var TextExtensions = map[string]struct{}{
	"txt": {},
	"log": {},
	"dat": {},
}

// AllowedExtensions is the union accepted by uploads and the inbox watcher.
var AllowedExtensions = func() map[string]struct{} {
	out := map[string]struct{}{"pdf": {}}
	for k := range ImageExtensions {
		out[k] = struct{}{}
	}
	for k := range TextExtensions {
		out[k] = struct{}{}
	}
	return out
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns IMAGE, TEXT, PDF or "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	if ext == "pdf" {
		return PDF
	}
	if _, ok := ImageExtensions[ext]; ok {
		return IMAGE
	}
	if _, ok := TextExtensions[ext]; ok {
		return TEXT
	}
	return ""
}

// MaxVisionMBDefault caps the image size attached to a vision request.
const MaxVisionMBDefault = 20
