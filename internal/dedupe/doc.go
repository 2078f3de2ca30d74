// Package dedupe picks the single file worth keeping out of a group of
// duplicates and derives what to delete.
//
// Resolution is a cascade of filters over the group: duration guards, then
// resolution tier, codec preference, byte size, and finally an organized-flag
// tie-break. The first filter that empties the candidate set aborts with its
// reason; the first that leaves exactly one candidate decides the keeper,
// unless the group mixes organized and unorganized files and the winner is
// unorganized. Every outcome carries a reason string so batch reports can be
// audited.
//
// Resolve is a pure function: it takes no logger, performs no I/O, and may be
// called concurrently on independent groups.
package dedupe
