package batch

import (
	"context"
	"errors"
	"fmt"
)

// Default batch processing configuration.
const (
	// DefaultBatchSize is the default number of items per batch.
	DefaultBatchSize = 500

	// MinBatchSize is the minimum allowed batch size.
	MinBatchSize = 1
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
	ErrEmptyItems       = errors.New("items slice cannot be empty")
)

// BatchCallback is a function that processes a single batch of items.
// It receives the batch items and the batch index (0-based).
//
//nolint:revive // BatchCallback is the canonical name for this exported type.
type BatchCallback[T any] func(ctx context.Context, batch []T, batchIndex int) error

// ProgressCallback is an optional callback invoked after each batch is processed.
type ProgressCallback func(progress *Progress)

// Processor splits data into fixed-size batches and hands them to a callback in order.
type Processor[T any] struct {
	batchSize  int
	onProgress ProgressCallback
}

// NewProcessor creates a new batch processor with the given batch size.
func NewProcessor[T any](batchSize int) (*Processor[T], error) {
	if batchSize < MinBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}

	return &Processor[T]{
		batchSize: batchSize,
	}, nil
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// Process processes items in batches using the provided callback.
// Processing is sequential and stops on the first error.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback BatchCallback[T]) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}

	if callback == nil {
		return ErrNilCallback
	}

	bounds := p.CalculateBatches(len(items))
	progress := NewProgress(len(items), len(bounds), p.batchSize)

	for batchIndex, b := range bounds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch := items[b[0]:b[1]]

		if err := callback(ctx, batch, batchIndex); err != nil {
			return fmt.Errorf("batch %d failed: %w", batchIndex, err)
		}

		progress.AddProcessed(len(batch))

		if p.onProgress != nil {
			p.onProgress(progress)
		}
	}

	return nil
}

// GetBatchSize returns the configured batch size.
func (p *Processor[T]) GetBatchSize() int {
	return p.batchSize
}

// CalculateBatches returns the batch boundaries for the given item count.
// Returns a slice of [start, end) index pairs.
func (p *Processor[T]) CalculateBatches(totalItems int) [][2]int {
	totalBatches := p.TotalBatches(totalItems)
	batches := make([][2]int, totalBatches)

	for i := range totalBatches {
		start := i * p.batchSize
		end := min(start+p.batchSize, totalItems)
		batches[i] = [2]int{start, end}
	}

	return batches
}

// TotalBatches returns the number of batches needed for the given item count,
// i.e. ceil(totalItems / batchSize).
func (p *Processor[T]) TotalBatches(totalItems int) int {
	if totalItems <= 0 {
		return 0
	}
	batches := totalItems / p.batchSize
	if totalItems%p.batchSize > 0 {
		batches++
	}
	return batches
}
