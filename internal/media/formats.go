package media

import (
	"path/filepath"
	"strings"
)

// Category partitions supported image formats.
type Category string

const (
	CategoryRaw      Category = "RAW"
	CategoryStandard Category = "Standard"
)

// SidecarExt is the extension of metadata sidecar files that travel with
// their owning image.
const SidecarExt = ".xmp"

var rawExtensions = map[string]struct{}{
	".orf": {}, // Olympus
	".nef": {}, // Nikon
	".cr2": {}, // Canon
	".arw": {}, // Sony
	".rw2": {}, // Panasonic
	".raf": {}, // Fuji
	".dng": {}, // Adobe
}

var standardExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".tif":  {},
	".tiff": {},
	".png":  {},
}

// IsImage reports whether path has a supported image extension.
func IsImage(path string) bool {
	ext := normalizeExt(path)
	if _, ok := rawExtensions[ext]; ok {
		return true
	}
	_, ok := standardExtensions[ext]
	return ok
}

// IsSidecar reports whether path is a metadata sidecar file.
func IsSidecar(path string) bool {
	return normalizeExt(path) == SidecarExt
}

// CategoryOf returns the format category for a supported image path and
// whether the path is supported at all.
func CategoryOf(path string) (Category, bool) {
	ext := normalizeExt(path)
	if _, ok := rawExtensions[ext]; ok {
		return CategoryRaw, true
	}
	if _, ok := standardExtensions[ext]; ok {
		return CategoryStandard, true
	}
	return "", false
}

// SidecarPath returns the expected sidecar path for an image file.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + SidecarExt
}

func normalizeExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
