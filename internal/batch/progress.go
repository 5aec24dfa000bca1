package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks how far a Processor has advanced through its items.
// All methods are safe for concurrent use.
type Progress struct {
	// TotalItems is the total number of items to process.
	TotalItems int

	// ProcessedItems is the number of items processed so far.
	ProcessedItems int

	// TotalBatches is the total number of batches.
	TotalBatches int

	// ProcessedBatches is the number of batches processed so far.
	ProcessedBatches int

	// BatchSize is the configured batch size.
	BatchSize int

	// StartTime is when processing started.
	StartTime time.Time

	mu sync.RWMutex
}

// NewProgress creates a new progress tracker.
func NewProgress(totalItems, totalBatches, batchSize int) *Progress {
	return &Progress{
		TotalItems:   totalItems,
		TotalBatches: totalBatches,
		BatchSize:    batchSize,
		StartTime:    time.Now(),
	}
}

// AddProcessed increments the processed items and batches count.
func (p *Progress) AddProcessed(itemsProcessed int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ProcessedItems += itemsProcessed
	p.ProcessedBatches++
}

// IsComplete returns true if all items have been processed.
func (p *Progress) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ProcessedItems >= p.TotalItems
}

// Snapshot returns a copy of the current progress state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ProgressSnapshot{
		TotalItems:       p.TotalItems,
		ProcessedItems:   p.ProcessedItems,
		TotalBatches:     p.TotalBatches,
		ProcessedBatches: p.ProcessedBatches,
		BatchSize:        p.BatchSize,
		PercentComplete:  p.percentCompleteUnsafe(),
		ElapsedTime:      time.Since(p.StartTime),
		ItemsPerSecond:   p.itemsPerSecondUnsafe(),
	}
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems       int
	ProcessedItems   int
	TotalBatches     int
	ProcessedBatches int
	BatchSize        int
	PercentComplete  float64
	ElapsedTime      time.Duration
	ItemsPerSecond   float64
}

// percentCompleteUnsafe must be called with the lock held.
func (p *Progress) percentCompleteUnsafe() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return (float64(p.ProcessedItems) / float64(p.TotalItems)) * percentMultiplier
}

// itemsPerSecondUnsafe must be called with the lock held.
func (p *Progress) itemsPerSecondUnsafe() float64 {
	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.ProcessedItems) / elapsed
}
