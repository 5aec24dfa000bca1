package rewrite

// TableStats counts what the rewriter did for one table.
type TableStats struct {
	Table      string
	Blocks     int
	Rows       int
	Statements int
}

// Stats summarizes one rewrite run.
type Stats struct {
	// InputLines is the number of lines read, the summary's "original lines".
	InputLines int
	// OutputLines is the number of lines emitted.
	OutputLines int
	// Blocks is the number of INSERT blocks closed by a terminator or end of input.
	Blocks int
	// Rows is the number of rows re-emitted.
	Rows int
	// Statements is the number of INSERT statements emitted.
	Statements int
	// DroppedLines counts stray lines inside blocks that were discarded.
	DroppedLines int
	// AbandonedBlocks counts blocks cut short by a new statement start before
	// their terminator; their rows are discarded.
	AbandonedBlocks int
	// Tables lists per-table counts in order of first appearance.
	Tables []*TableStats

	byName map[string]*TableStats
}

func newStats(inputLines int) *Stats {
	return &Stats{
		InputLines: inputLines,
		byName:     make(map[string]*TableStats),
	}
}

// Table returns the counts for name, or nil when the table never appeared.
func (s *Stats) Table(name string) *TableStats {
	if s == nil || s.byName == nil {
		return nil
	}
	return s.byName[name]
}

func (s *Stats) table(name string) *TableStats {
	if ts, ok := s.byName[name]; ok {
		return ts
	}
	ts := &TableStats{Table: name}
	s.byName[name] = ts
	s.Tables = append(s.Tables, ts)
	return ts
}
