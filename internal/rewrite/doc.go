// Package rewrite splits the bulk INSERT statements of a SQL dump into
// statements of bounded row count.
//
// The input is treated as plain lines. A line of the exact form
//
//	INSERT INTO "table" VALUES
//
// opens a block. The table name is matched with Go's \w, which covers ASCII
// letters, digits and "_" only: a header naming a table with other characters,
// such as "kota_é", is not a block start and the whole block passes through
// unchanged. Each following line starting with "(" is a row; a line
// holding only ");" (or the end of input) closes the block. Every block is
// re-emitted as consecutive INSERT statements of at most the configured
// batch size, in the original row order. All other lines are copied through
// unchanged. Lines inside a block that are neither rows nor the terminator
// are dropped. Each emitted statement is followed by a blank line; a single
// blank line directly after a rewritten block's terminator is folded into it,
// so rewriting already batched output is a no-op.
//
// This is deliberately a line matcher and not a SQL parser: rows spanning
// several lines, comments inside blocks and other dialect features are not
// understood.
package rewrite
