package metadata

import (
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// Reader reports the capture timestamp of an image file, or absence when the
// file carries no usable metadata. Implementations must not fail on
// unsupported or corrupt files; they report absence instead.
type Reader interface {
	CaptureTime(path string) (time.Time, bool)
}

// EXIFReader extracts DateTimeOriginal from embedded EXIF metadata.
type EXIFReader struct{}

// CaptureTime returns the DateTimeOriginal field if available. Unreadable
// files and files without EXIF data report absence, never an error; an
// uncertain timestamp must not cluster unrelated shots.
func (EXIFReader) CaptureTime(path string) (time.Time, bool) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, false
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, false
	}

	t, err := x.DateTime()
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

var _ Reader = EXIFReader{}
