package motion_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mocap/internal/motion"
)

func rampMatrix(t *testing.T, rows, cols int) *motion.Matrix {
	t.Helper()
	b := motion.NewBuilder(cols, rows)
	for r := range rows {
		row := make([]float64, cols)
		for c := range cols {
			row[c] = float64(r*100 + c)
		}
		require.NoError(t, b.Append(row))
	}
	m, err := b.Build(1.0 / 30)
	require.NoError(t, err)
	return m
}

func TestBuilderRejectsWrongWidth(t *testing.T) {
	b := motion.NewBuilder(3, 1)
	assert.Error(t, b.Append([]float64{1, 2}))
	assert.NoError(t, b.Append([]float64{1, 2, 3}))
	assert.Equal(t, 1, b.Rows())
}

func TestSliceCopiesRequestedRows(t *testing.T) {
	m := rampMatrix(t, 10, 4)

	sub, err := m.Slice(2, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, sub.Rows())
	assert.Equal(t, 4, sub.Cols())
	assert.InDelta(t, m.FrameTime(), sub.FrameTime(), 1e-12)
	for r := range sub.Rows() {
		assert.Equal(t, m.Row(r+2), sub.Row(r))
	}

	empty, err := m.Slice(3, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows())

	_, err = m.Slice(5, 11)
	assert.Error(t, err)
	_, err = m.Slice(-1, 2)
	assert.Error(t, err)
	_, err = m.Slice(6, 2)
	assert.Error(t, err)
}

func TestSliceDoesNotAlias(t *testing.T) {
	m := rampMatrix(t, 4, 2)
	sub, err := m.Slice(0, 2)
	require.NoError(t, err)

	dense := sub.Dense()
	dense.Set(0, 0, -1)
	assert.Equal(t, 0.0, sub.At(0, 0))
	assert.Equal(t, 0.0, m.At(0, 0))
}

func TestEmptyMatrix(t *testing.T) {
	m, err := motion.NewMatrix(0, 12, 0.01, nil)
	require.NoError(t, err)
	assert.Nil(t, m.Dense())
	assert.Nil(t, m.Stats())
	assert.True(t, m.EqualApprox(m, 0))
	assert.Equal(t, 0.0, m.Duration())
}

func TestNewMatrixValidatesShape(t *testing.T) {
	_, err := motion.NewMatrix(2, 2, 0.1, []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = motion.NewMatrix(1, 1, math.NaN(), []float64{1})
	assert.Error(t, err)
}

func TestEqualApprox(t *testing.T) {
	a, err := motion.FromRows(0.1, [][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	b, err := motion.FromRows(0.1, [][]float64{{1, 2.0000001}, {3, 4}})
	require.NoError(t, err)
	c, err := motion.FromRows(0.1, [][]float64{{1, 2}})
	require.NoError(t, err)

	assert.True(t, a.EqualApprox(b, 1e-6))
	assert.False(t, a.EqualApprox(b, 1e-9))
	assert.False(t, a.EqualApprox(c, 1))
}

func TestStats(t *testing.T) {
	m, err := motion.FromRows(0.5, [][]float64{{1, 10}, {3, 10}})
	require.NoError(t, err)
	stats := m.Stats()
	require.Len(t, stats, 2)
	assert.InDelta(t, 2.0, stats[0].Mean, 1e-12)
	assert.Equal(t, 1.0, stats[0].Min)
	assert.Equal(t, 3.0, stats[0].Max)
	assert.InDelta(t, 0.0, stats[1].StdDev, 1e-12)
	assert.InDelta(t, 1.0, m.Duration(), 1e-12)
	assert.Equal(t, []float64{10, 10}, m.Column(1))
}
