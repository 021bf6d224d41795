// Package metadata reads capture timestamps from image files.
//
// The Reader interface is the narrow collaborator contract the grouping
// pipeline depends on; EXIFReader is the production implementation backed by
// goexif. Absent or unreadable metadata is reported as absence, never as an
// error.
package metadata
