// Package media defines the supported image formats and sidecar naming rules
// shared by the scanner, importer, and engine input handling.
package media
