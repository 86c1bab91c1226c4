// Package vtree implements a virtual filesystem tree layer: uniform,
// diffable, symlink-composable views over file hierarchies, used as the
// I/O substrate of an incremental build pipeline.
//
// Four tree variants share a common read interface (Tree): ManualTree, an
// in-memory entry array with no disk binding; SourceTree, a lazily-scanned
// read-only view of a disk directory; WritableTree, a disk-backed tree
// that tracks its own mutations with collapsing rules so that Changes()
// always reports a minimal patch; and Projection, a non-owning filtered
// view over any of the above. MergeTree overlays several trees into one
// logical view with deterministic conflict handling.
//
// Diff and Apply operate on plain entry slices and are the building block
// every variant's Changes() reduces to internally.
package vtree
