// Package scan takes a one-time snapshot of a source directory: it discovers
// supported image files, pairs sidecar files with their owning images, and
// reads capture timestamps through a bounded worker pool. The snapshot feeds
// stacker.Group; the scan itself never mutates the filesystem.
package scan
