// Package batch splits an ordered slice into consecutive fixed-size chunks.
//
// The rewriter uses it to partition the rows of one INSERT block into the
// statements it emits. Key properties:
//   - Configurable batch size (default 500 rows per batch, minimum 1)
//   - Chunks preserve input order and never overlap
//   - Progress tracking with an optional callback for logging
//   - Context-aware cancellation between chunks
package batch
