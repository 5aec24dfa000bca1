package rewrite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrRowMismatch is returned by Verify when two texts do not carry the same rows.
var ErrRowMismatch = errors.New("row sequences differ")

// TableFingerprint is the order-sensitive digest of every row seen for a table.
type TableFingerprint struct {
	Table string
	Rows  int
	Sum   uint64
}

// Fingerprint holds one TableFingerprint per table, in order of first appearance.
type Fingerprint struct {
	Tables []TableFingerprint
}

// Lookup returns the fingerprint for table.
func (f Fingerprint) Lookup(table string) (TableFingerprint, bool) {
	for _, t := range f.Tables {
		if t.Table == table {
			return t, true
		}
	}
	return TableFingerprint{}, false
}

// Rows returns the total row count across tables.
func (f Fingerprint) Rows() int {
	n := 0
	for _, t := range f.Tables {
		n += t.Rows
	}
	return n
}

// digestEmitter hashes the rows of every batch it receives, ignoring
// passthrough lines.
type digestEmitter struct {
	order   []string
	digests map[string]*xxhash.Digest
	counts  map[string]int
}

func newDigestEmitter() *digestEmitter {
	return &digestEmitter{
		digests: make(map[string]*xxhash.Digest),
		counts:  make(map[string]int),
	}
}

func (d *digestEmitter) EmitLine(string) error { return nil }

func (d *digestEmitter) EmitBatch(b Batch) error {
	h, ok := d.digests[b.Table]
	if !ok {
		h = xxhash.New()
		d.digests[b.Table] = h
		d.order = append(d.order, b.Table)
	}
	for _, row := range b.Rows {
		_, _ = h.WriteString(normalizeRow(row))
		_, _ = h.Write([]byte{'\n'})
	}
	d.counts[b.Table] += len(b.Rows)
	return nil
}

func (d *digestEmitter) fingerprint() Fingerprint {
	fp := Fingerprint{Tables: make([]TableFingerprint, 0, len(d.order))}
	for _, table := range d.order {
		fp.Tables = append(fp.Tables, TableFingerprint{
			Table: table,
			Rows:  d.counts[table],
			Sum:   d.digests[table].Sum64(),
		})
	}
	return fp
}

// normalizeRow drops trailing separators and whitespace so a row hashes the
// same whether or not it ended a statement.
func normalizeRow(row string) string {
	return strings.TrimRight(row, ", \t\r")
}

// Digest scans lines with the block grammar and fingerprints the rows of
// each table. Batch boundaries do not affect the result.
func Digest(ctx context.Context, lines []string) (Fingerprint, error) {
	r := &Rewriter{batchSize: math.MaxInt}
	em := newDigestEmitter()
	if _, err := r.Run(ctx, lines, em); err != nil {
		return Fingerprint{}, err
	}
	return em.fingerprint(), nil
}

// Verify reports whether after carries exactly the rows of before, per
// table and in order. It returns an error wrapping ErrRowMismatch otherwise.
func Verify(ctx context.Context, before, after []string) error {
	want, err := Digest(ctx, before)
	if err != nil {
		return fmt.Errorf("digesting original: %w", err)
	}
	got, err := Digest(ctx, after)
	if err != nil {
		return fmt.Errorf("digesting rewritten: %w", err)
	}
	return Compare(want, got)
}

// Compare checks two fingerprints table by table.
func Compare(want, got Fingerprint) error {
	for _, w := range want.Tables {
		g, ok := got.Lookup(w.Table)
		if !ok {
			return fmt.Errorf("%w: table %q missing from rewritten output (%d rows expected)",
				ErrRowMismatch, w.Table, w.Rows)
		}
		if g.Rows != w.Rows || g.Sum != w.Sum {
			return fmt.Errorf("%w: table %q: %d rows (sum %016x) before, %d rows (sum %016x) after",
				ErrRowMismatch, w.Table, w.Rows, w.Sum, g.Rows, g.Sum)
		}
	}
	for _, g := range got.Tables {
		if _, ok := want.Lookup(g.Table); !ok {
			return fmt.Errorf("%w: unexpected table %q in rewritten output (%d rows)",
				ErrRowMismatch, g.Table, g.Rows)
		}
	}
	return nil
}
