package motion

import "fmt"

// Builder accumulates frames row by row into a single backing array.
type Builder struct {
	cols int
	data []float64
	rows int
}

// NewBuilder prepares a builder for rows of cols values. expectedRows sizes
// the backing array up front; it is a hint, not a limit.
func NewBuilder(cols, expectedRows int) *Builder {
	if expectedRows < 0 {
		expectedRows = 0
	}
	return &Builder{cols: cols, data: make([]float64, 0, cols*expectedRows)}
}

// Append adds one frame. The row must have exactly Cols values.
func (b *Builder) Append(row []float64) error {
	if len(row) != b.cols {
		return fmt.Errorf("frame has %d values, want %d", len(row), b.cols)
	}
	b.data = append(b.data, row...)
	b.rows++
	return nil
}

// Rows returns the number of frames appended so far.
func (b *Builder) Rows() int { return b.rows }

// Cols returns the configured row width.
func (b *Builder) Cols() int { return b.cols }

// Build hands the accumulated data to a new Matrix. The builder must not be
// used afterwards.
func (b *Builder) Build(frameTime float64) (*Matrix, error) {
	data := b.data
	b.data = nil
	return NewMatrix(b.rows, b.cols, frameTime, data)
}
