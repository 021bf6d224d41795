// Package importer copies images from a memory card into the library,
// organized as <library>/<year>/<date>/. Imports are idempotent: files whose
// destination already exists on disk or in the catalog are skipped, and
// sources are never touched.
package importer
