package stats

import (
	"errors"
	"math"
	"testing"

	"goab/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess_FiniteValues(t *testing.T) {
	r := Success(1.5, 0.13)
	require.True(t, r.OK())

	s, p := r.Values()
	require.NotNil(t, s)
	require.NotNil(t, p)
	assert.Equal(t, 1.5, *s)
	assert.Equal(t, 0.13, *p)
}

func TestSuccess_NonFiniteBecomesFailure(t *testing.T) {
	for _, pair := range [][2]float64{
		{math.NaN(), 0.5},
		{1, math.NaN()},
		{math.Inf(1), 0},
	} {
		r := Success(pair[0], pair[1])
		assert.False(t, r.OK())
		assert.ErrorIs(t, r.Failure, core.ErrNonFinite)

		s, p := r.Values()
		assert.Nil(t, s)
		assert.Nil(t, p)
	}
}

func TestFailure_KeepsReason(t *testing.T) {
	reason := errors.New("zero variance")
	r := Failure(reason)
	assert.False(t, r.OK())
	assert.Equal(t, reason, r.Failure)
	assert.True(t, math.IsNaN(r.Statistic))
}

func TestStatistics_Derived(t *testing.T) {
	s := Statistics{Mean0: 0.5, Mean1: 0.6, Var0: 4, Var1: 9}
	assert.Equal(t, 2.0, s.Std0())
	assert.Equal(t, 3.0, s.Std1())
	assert.InDelta(t, 0.2, s.Lift(), 1e-12)
	assert.True(t, math.IsNaN(Statistics{}.Lift()))
}
