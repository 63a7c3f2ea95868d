package motion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Matrix is a time-ordered frames x channels matrix.
type Matrix struct {
	rows      int
	cols      int
	frameTime float64
	// dense is nil when the matrix has no rows or no columns; gonum does not
	// represent empty matrices.
	dense *mat.Dense
}

// NewMatrix wraps data (row-major, rows*cols values) without copying it. The
// caller must not modify data afterwards.
func NewMatrix(rows, cols int, frameTime float64, data []float64) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("negative matrix dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix data has %d values, want %d (%d frames x %d channels)", len(data), rows*cols, rows, cols)
	}
	if frameTime < 0 || math.IsNaN(frameTime) || math.IsInf(frameTime, 0) {
		return nil, fmt.Errorf("invalid frame time %v", frameTime)
	}
	m := &Matrix{rows: rows, cols: cols, frameTime: frameTime}
	if rows > 0 && cols > 0 {
		m.dense = mat.NewDense(rows, cols, data)
	}
	return m, nil
}

// FromRows copies a slice of equally sized rows into a new Matrix.
func FromRows(frameTime float64, rows [][]float64) (*Matrix, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	b := NewBuilder(cols, len(rows))
	for i, row := range rows {
		if err := b.Append(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return b.Build(frameTime)
}

// Rows returns the number of frames.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of channels per frame.
func (m *Matrix) Cols() int { return m.cols }

// FrameTime returns the sampling interval in seconds.
func (m *Matrix) FrameTime() float64 { return m.frameTime }

// Duration returns rows * frame time in seconds.
func (m *Matrix) Duration() float64 { return float64(m.rows) * m.frameTime }

// At returns the value of channel c at frame r.
func (m *Matrix) At(r, c int) float64 {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("motion: index (%d, %d) out of range %dx%d", r, c, m.rows, m.cols))
	}
	return m.dense.At(r, c)
}

// Row returns a copy of frame r.
func (m *Matrix) Row(r int) []float64 {
	return m.AppendRow(make([]float64, 0, m.cols), r)
}

// AppendRow appends frame r to dst and returns the extended slice.
func (m *Matrix) AppendRow(dst []float64, r int) []float64 {
	if r < 0 || r >= m.rows {
		panic(fmt.Sprintf("motion: row %d out of range [0, %d)", r, m.rows))
	}
	if m.cols == 0 {
		return dst
	}
	return append(dst, m.dense.RawRowView(r)...)
}

// Column returns a copy of channel c across all frames.
func (m *Matrix) Column(c int) []float64 {
	if c < 0 || c >= m.cols {
		panic(fmt.Sprintf("motion: column %d out of range [0, %d)", c, m.cols))
	}
	if m.rows == 0 {
		return nil
	}
	return mat.Col(nil, c, m.dense)
}

// Slice copies frames [start, end) into a new Matrix that owns its data.
func (m *Matrix) Slice(start, end int) (*Matrix, error) {
	if start < 0 || end > m.rows || start > end {
		return nil, fmt.Errorf("frame range [%d, %d) outside [0, %d)", start, end, m.rows)
	}
	out := &Matrix{rows: end - start, cols: m.cols, frameTime: m.frameTime}
	if out.rows > 0 && out.cols > 0 {
		out.dense = mat.DenseCopyOf(m.dense.Slice(start, end, 0, m.cols))
	}
	return out, nil
}

// Dense returns a copy of the matrix as a gonum Dense, or nil when empty.
func (m *Matrix) Dense() *mat.Dense {
	if m.dense == nil {
		return nil
	}
	return mat.DenseCopyOf(m.dense)
}

// EqualApprox reports whether m and other have the same shape, frame times
// within tol and element-wise values within tol.
func (m *Matrix) EqualApprox(other *Matrix, tol float64) bool {
	if m.rows != other.rows || m.cols != other.cols {
		return false
	}
	if math.Abs(m.frameTime-other.frameTime) > tol {
		return false
	}
	if m.dense == nil {
		return true
	}
	for r := range m.rows {
		if !floats.EqualApprox(m.dense.RawRowView(r), other.dense.RawRowView(r), tol) {
			return false
		}
	}
	return true
}

// ColumnStats summarises one channel across all frames.
type ColumnStats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Stats computes per-channel statistics. It returns nil for a matrix without
// frames.
func (m *Matrix) Stats() []ColumnStats {
	if m.dense == nil {
		return nil
	}
	out := make([]ColumnStats, m.cols)
	col := make([]float64, m.rows)
	for c := range m.cols {
		mat.Col(col, c, m.dense)
		mean, std := stat.MeanStdDev(col, nil)
		if m.rows == 1 {
			std = 0
		}
		out[c] = ColumnStats{Min: floats.Min(col), Max: floats.Max(col), Mean: mean, StdDev: std}
	}
	return out
}
