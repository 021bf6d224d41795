// Package layout writes the grouping result to disk: one directory per stack,
// members and sidecars moved in. Moves are destructive by contract; a failed
// move is reported and the rest proceed. After Apply returns, directory
// contents are the ground truth for all later stages.
package layout
