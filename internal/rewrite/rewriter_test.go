package rewrite_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/sqlbatch/internal/rewrite"
)

func TestRewrite_CityExample(t *testing.T) {
	input := "INSERT INTO \"city\" VALUES\n(1,'A'),\n(2,'B'),\n(3,'C');"

	got, err := rewrite.Rewrite(input, 2)
	require.NoError(t, err)

	want := strings.Join([]string{
		`INSERT INTO "city" VALUES`,
		`(1,'A'),`,
		`(2,'B')`,
		`);`,
		``,
		`INSERT INTO "city" VALUES`,
		`(3,'C');`,
		`);`,
		``,
	}, "\n")
	assert.Equal(t, want, got)
}

func TestRewrite_Cases(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		batchSize int
		want      string
	}{
		{
			name:      "no insert blocks passes through",
			input:     "CREATE TABLE t (id int);\n\nSELECT 1;\n",
			batchSize: 3,
			want:      "CREATE TABLE t (id int);\n\nSELECT 1;\n",
		},
		{
			name:      "exactly batch size rows yields one statement",
			input:     "INSERT INTO \"t\" VALUES\n(1),\n(2),\n(3)\n);",
			batchSize: 3,
			want:      "INSERT INTO \"t\" VALUES\n(1),\n(2),\n(3)\n);\n",
		},
		{
			name:      "batch size plus one yields two statements",
			input:     "INSERT INTO \"t\" VALUES\n(1),\n(2),\n(3),\n(4)\n);",
			batchSize: 3,
			want:      "INSERT INTO \"t\" VALUES\n(1),\n(2),\n(3)\n);\n\nINSERT INTO \"t\" VALUES\n(4)\n);\n",
		},
		{
			name:      "stray line inside block is dropped",
			input:     "INSERT INTO \"t\" VALUES\n(1),\n-- note\n(2)\n);\nSELECT 1;",
			batchSize: 5,
			want:      "INSERT INTO \"t\" VALUES\n(1),\n(2)\n);\n\nSELECT 1;",
		},
		{
			name:      "unterminated block closes at end of input",
			input:     "INSERT INTO \"t\" VALUES\n(1),\n(2),",
			batchSize: 5,
			want:      "INSERT INTO \"t\" VALUES\n(1),\n(2)\n);\n",
		},
		{
			name:      "statement start with trailing content is not a block",
			input:     "INSERT INTO \"t\" VALUES (1);\nINSERT INTO \"t\" VALUES \n(1),",
			batchSize: 2,
			want:      "INSERT INTO \"t\" VALUES (1);\nINSERT INTO \"t\" VALUES \n(1),",
		},
		{
			name:      "new statement start abandons the open block",
			input:     "INSERT INTO \"a\" VALUES\n(1),\n(2),\nINSERT INTO \"b\" VALUES\n(3)\n);",
			batchSize: 2,
			want:      "INSERT INTO \"b\" VALUES\n(3)\n);\n",
		},
		{
			name:      "empty block emits nothing",
			input:     "INSERT INTO \"t\" VALUES\n);\n\nSELECT 1;",
			batchSize: 2,
			want:      "\nSELECT 1;",
		},
		{
			name:      "separator and trailing whitespace stripped from last row",
			input:     "INSERT INTO \"t\" VALUES\n(1),  \n(2),\t\n(3)\n);",
			batchSize: 2,
			want:      "INSERT INTO \"t\" VALUES\n(1),  \n(2)\n);\n\nINSERT INTO \"t\" VALUES\n(3)\n);\n",
		},
		{
			name:      "only one blank line after terminator is folded",
			input:     "INSERT INTO \"t\" VALUES\n(1)\n);\n\n\nSELECT 1;",
			batchSize: 2,
			want:      "INSERT INTO \"t\" VALUES\n(1)\n);\n\n\nSELECT 1;",
		},
		{
			name:      "carriage return keeps statement start from matching",
			input:     "INSERT INTO \"t\" VALUES\r\n(1),\r\n);\r",
			batchSize: 1,
			want:      "INSERT INTO \"t\" VALUES\r\n(1),\r\n);\r",
		},
		{
			name:      "non-ASCII table name is not a block start",
			input:     "INSERT INTO \"kota_é\" VALUES\n(1),\n(2)\n);",
			batchSize: 1,
			want:      "INSERT INTO \"kota_é\" VALUES\n(1),\n(2)\n);",
		},
		{
			name:      "empty input",
			input:     "",
			batchSize: 1,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rewrite.Rewrite(tt.input, tt.batchSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewrite_InvalidBatchSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := rewrite.Rewrite("x", size)
		require.ErrorIs(t, err, rewrite.ErrInvalidBatchSize)

		_, err = rewrite.New(size)
		require.ErrorIs(t, err, rewrite.ErrInvalidBatchSize)
	}
}

func TestRewriter_Stats(t *testing.T) {
	input, err := os.ReadFile(filepath.Join("testdata", "wilayah.sql"))
	require.NoError(t, err)

	r, err := rewrite.New(3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.BatchSize())

	out, stats, err := r.RewriteString(context.Background(), string(input))
	require.NoError(t, err)

	assert.Equal(t, 40, stats.InputLines)
	assert.Equal(t, 47, stats.OutputLines)
	assert.Len(t, rewrite.SplitLines(out), stats.OutputLines)
	assert.Equal(t, 4, stats.Blocks)
	assert.Equal(t, 14, stats.Rows)
	assert.Equal(t, 6, stats.Statements)
	assert.Equal(t, 1, stats.DroppedLines)
	assert.Zero(t, stats.AbandonedBlocks)

	names := make([]string, 0, len(stats.Tables))
	for _, ts := range stats.Tables {
		names = append(names, ts.Table)
	}
	assert.Equal(t, []string{"provinces", "regencies", "districts", "villages"}, names)

	provinces := stats.Table("provinces")
	require.NotNil(t, provinces)
	assert.Equal(t, 7, provinces.Rows)
	assert.Equal(t, 3, provinces.Statements)

	districts := stats.Table("districts")
	require.NotNil(t, districts)
	assert.Equal(t, 1, districts.Blocks)
	assert.Zero(t, districts.Statements)

	assert.Nil(t, stats.Table("cities"))
}

func TestRewriter_LogsBlockProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	r, err := rewrite.New(3)
	require.NoError(t, err)
	_, err = r.Run(ctx, rewrite.SplitLines("INSERT INTO \"t\" VALUES\n(1),\n(2),\n(3),\n(4)\n);"), &rewrite.TextEmitter{})
	require.NoError(t, err)

	var entry map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e["message"] == "block rewritten" {
			entry = e
		}
	}
	require.NotNil(t, entry, "no block rewritten entry in %s", buf.String())

	assert.Equal(t, "rewrite", entry["component"])
	assert.Equal(t, "t", entry["table"])
	assert.InDelta(t, 4, entry["rows"], 0)
	assert.InDelta(t, 2, entry["statements"], 0)
	assert.InDelta(t, 3, entry["batch_size"], 0)
	assert.Contains(t, entry, "elapsed")
	assert.Contains(t, entry, "rows_per_sec")
}

func TestRewriter_AbandonedBlockStats(t *testing.T) {
	r, _ := rewrite.New(2)
	_, stats, err := r.RewriteString(context.Background(),
		"INSERT INTO \"a\" VALUES\n(1),\nINSERT INTO \"b\" VALUES\n(3)\n);")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.AbandonedBlocks)
	assert.Equal(t, 1, stats.Blocks)
	assert.Equal(t, 1, stats.Rows)
}

func TestRewrite_Golden(t *testing.T) {
	input, err := os.ReadFile(filepath.Join("testdata", "wilayah.sql"))
	require.NoError(t, err)

	for _, size := range []int{1, 3, 500} {
		t.Run(fmt.Sprintf("batch_%d", size), func(t *testing.T) {
			want, readErr := os.ReadFile(filepath.Join("testdata", fmt.Sprintf("wilayah.b%d.golden", size)))
			require.NoError(t, readErr)

			got, rwErr := rewrite.Rewrite(string(input), size)
			require.NoError(t, rwErr)
			assert.Equal(t, string(want), got)
		})
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	input, err := os.ReadFile(filepath.Join("testdata", "wilayah.sql"))
	require.NoError(t, err)

	for _, size := range []int{1, 2, 3, 4, 500} {
		once, rwErr := rewrite.Rewrite(string(input), size)
		require.NoError(t, rwErr)
		twice, rwErr := rewrite.Rewrite(once, size)
		require.NoError(t, rwErr)
		assert.Equal(t, once, twice, "batch size %d", size)
	}
}

func TestWriterEmitter_MatchesTextEmitter(t *testing.T) {
	input, err := os.ReadFile(filepath.Join("testdata", "wilayah.sql"))
	require.NoError(t, err)
	lines := rewrite.SplitLines(string(input))

	r, _ := rewrite.New(2)

	var text rewrite.TextEmitter
	_, err = r.Run(context.Background(), lines, &text)
	require.NoError(t, err)

	var sb strings.Builder
	w := rewrite.NewWriterEmitter(&sb)
	_, err = r.Run(context.Background(), lines, w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	assert.Equal(t, text.String(), sb.String())
	assert.Equal(t, int64(sb.Len()), w.BytesWritten())
}

type failingEmitter struct {
	rewrite.TextEmitter
	failOn int
	seen   int
}

func (f *failingEmitter) EmitBatch(b rewrite.Batch) error {
	f.seen++
	if f.seen == f.failOn {
		return errors.New("disk full")
	}
	return f.TextEmitter.EmitBatch(b)
}

func TestRewriter_EmitterError(t *testing.T) {
	r, _ := rewrite.New(1)
	em := &failingEmitter{failOn: 2}
	_, err := r.Run(context.Background(), rewrite.SplitLines("INSERT INTO \"t\" VALUES\n(1),\n(2)\n);"), em)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), `table "t"`)
}

func TestRewriter_Cancelled(t *testing.T) {
	r, _ := rewrite.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, rewrite.SplitLines("INSERT INTO \"t\" VALUES\n(1)\n);"), &rewrite.TextEmitter{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatch_Render(t *testing.T) {
	b := rewrite.Batch{Table: "city", Index: 0, Rows: []string{"(1,'A'),", "(2,'B'),"}}

	assert.Equal(t, []string{`INSERT INTO "city" VALUES`, "(1,'A'),", "(2,'B')", ");", ""}, b.Lines())
	assert.Equal(t, "INSERT INTO \"city\" VALUES\n(1,'A'),\n(2,'B')\n);", b.Statement())
	// Rendering must not modify the batch.
	assert.Equal(t, "(2,'B'),", b.Rows[1])
}

func TestStripSeparator(t *testing.T) {
	tests := map[string]string{
		"(1),":    "(1)",
		"(1), \t": "(1)",
		"(1)":     "(1)",
		"(1) ":    "(1) ",
		"(1);":    "(1);",
		"(1),,":   "(1),",
	}
	for in, want := range tests {
		assert.Equal(t, want, rewrite.StripSeparator(in), "input %q", in)
	}
}

func TestMatchStatementStart(t *testing.T) {
	table, ok := rewrite.MatchStatementStart(`INSERT INTO "villages" VALUES`)
	require.True(t, ok)
	assert.Equal(t, "villages", table)

	for _, line := range []string{
		`INSERT INTO "villages" VALUES `,
		` INSERT INTO "villages" VALUES`,
		`INSERT INTO villages VALUES`,
		`INSERT INTO "public.villages" VALUES`,
		`insert into "villages" values`,
		`INSERT INTO "" VALUES`,
		`INSERT INTO "kota_é" VALUES`,
	} {
		_, ok := rewrite.MatchStatementStart(line)
		assert.False(t, ok, "line %q", line)
	}
}

// TestRewrite_RowPreservation checks the batching properties over generated
// dumps: ceil(N/B) statements per block, rows reproduced in order, and only
// the last row of each statement without a separator.
func TestRewrite_RowPreservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // deterministic test data

	for iter := range 200 {
		batchSize := 1 + rng.Intn(7)
		blocks := 1 + rng.Intn(4)

		var in []string
		var wantStatements int
		var wantRows []string
		for blk := range blocks {
			n := 1 + rng.Intn(30)
			wantStatements += (n + batchSize - 1) / batchSize
			in = append(in, fmt.Sprintf("-- block %d", blk), fmt.Sprintf(`INSERT INTO "t%d" VALUES`, blk))
			for row := range n {
				line := fmt.Sprintf("(%d,%d,'r')", blk, row)
				wantRows = append(wantRows, line)
				if row < n-1 || rng.Intn(2) == 0 {
					line += ","
				}
				in = append(in, line)
			}
			in = append(in, ");", "")
		}

		r, err := rewrite.New(batchSize)
		require.NoError(t, err)

		var collected []rewrite.Batch
		stats, err := r.Run(context.Background(), in, &collectEmitter{batches: &collected})
		require.NoError(t, err)
		require.Equal(t, wantStatements, stats.Statements, "iteration %d", iter)
		require.Len(t, collected, wantStatements)

		var gotRows []string
		for _, b := range collected {
			lines := b.Lines()
			rows := lines[1 : len(lines)-2]
			require.LessOrEqual(t, len(rows), batchSize)
			for i, row := range rows {
				if i == len(rows)-1 {
					require.False(t, strings.HasSuffix(row, ","), "last row %q keeps separator", row)
				} else {
					require.True(t, strings.HasSuffix(row, ","), "row %q lost separator", row)
				}
				gotRows = append(gotRows, strings.TrimSuffix(row, ","))
			}
		}
		require.Equal(t, wantRows, gotRows, "iteration %d", iter)
	}
}

type collectEmitter struct {
	batches *[]rewrite.Batch
}

func (c *collectEmitter) EmitLine(string) error { return nil }

func (c *collectEmitter) EmitBatch(b rewrite.Batch) error {
	*c.batches = append(*c.batches, b)
	return nil
}

func TestTee_ForwardsToAll(t *testing.T) {
	input := "-- head\nINSERT INTO \"t\" VALUES\n(1),\n(2),\n(3)\n);"
	r, _ := rewrite.New(2)

	var a, b rewrite.TextEmitter
	_, err := r.Run(context.Background(), rewrite.SplitLines(input), rewrite.Tee(&a, &b))
	require.NoError(t, err)

	want, err := rewrite.Rewrite(input, 2)
	require.NoError(t, err)
	assert.Equal(t, want, a.String())
	assert.Equal(t, want, b.String())
}

func TestTee_StopsAtFirstError(t *testing.T) {
	r, _ := rewrite.New(1)
	failing := &failingEmitter{failOn: 1}
	var after rewrite.TextEmitter

	_, err := r.Run(context.Background(), rewrite.SplitLines("INSERT INTO \"t\" VALUES\n(1)\n);"),
		rewrite.Tee(failing, &after))
	require.Error(t, err)
	assert.Empty(t, after.Lines())
}
