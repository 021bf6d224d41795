// Package stacker implements capture-time clustering of focus-bracketing
// series.
//
// Group partitions an unordered set of image entries into ordered stacks by
// walking capture timestamps and splitting wherever the gap between
// consecutive shots exceeds the configured threshold. Entries without a
// timestamp and groups below the minimum size are reported as singles. The
// algorithm is pure and deterministic so re-runs on an unchanged directory
// reproduce the same layout.
package stacker
