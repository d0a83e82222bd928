package dynamo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryRecord(t *testing.T) {
	ens := NewEnsemble(testSpecies(3), 2)
	ens.Seed(rand.New(rand.NewSource(3)))
	h := NewHistory(3, 4, 0.5)

	assert.Equal(t, []float64{0, 0.5, 1, 1.5}, h.Time)
	h.Record(0, ens)
	ens.Membership[1] = Lost
	ens.Pos[Z][2] = 0.25
	h.Record(3, ens)

	s := h.At(3, 2)
	assert.Equal(t, 1, s.Membership)
	assert.Equal(t, 0.25, s.Pos[Z])
	assert.Equal(t, ens.Vel[Z][2], s.Vel[Z])
	assert.Equal(t, Lost, h.At(3, 1).Membership)
	assert.Equal(t, 1, h.At(0, 1).Membership)
	assert.Len(t, h.Row(0), 3*Channels)

	track := h.Track(2, 3)
	assert.Equal(t, []float64{0, 0, 0, 0.25}, track)
}

func TestHistorySelect(t *testing.T) {
	ens := NewEnsemble(testSpecies(4), 1)
	ens.Seed(rand.New(rand.NewSource(9)))
	h := NewHistory(4, 2, 1)
	h.Record(0, ens)
	h.Record(1, ens)

	sub := h.Select([]int{3, 1})
	assert.Equal(t, 2, sub.Particles())
	assert.Equal(t, 2, sub.Steps())
	assert.Equal(t, h.At(1, 3), sub.At(1, 0))
	assert.Equal(t, h.At(0, 1), sub.At(0, 1))
}

func TestNewHistoryFromRows(t *testing.T) {
	rows := [][]float64{
		{1, 0, 0, 0, 0, 0, 10},
		{1, 0, 0, 1, 0, 0, 10},
	}
	h, err := NewHistoryFromRows([]float64{0, 0.1}, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Particles())
	assert.Equal(t, 1.0, h.At(1, 0).Pos[Z])

	_, err = NewHistoryFromRows([]float64{0}, rows)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewHistoryFromRows([]float64{0}, [][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewHistoryFromRows([]float64{0, 1}, [][]float64{rows[0], rows[1][:6]})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
