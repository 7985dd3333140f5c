package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oact/internal/signal"
)

func constant(v float64) Estimator {
	return EstimatorFunc(func(context.Context, signal.RiskSignal) (float64, error) { return v, nil })
}

func TestSuppliedScore(t *testing.T) {
	score, err := SuppliedScore{}.Score(context.Background(), signal.RiskSignal{RiskScore: 0.42})
	require.NoError(t, err)
	assert.Equal(t, 0.42, score)
}

func TestCompoundScorer(t *testing.T) {
	ctx := context.Background()

	t.Run("multiplies likelihood by impact", func(t *testing.T) {
		score, err := CompoundScorer{Probability: constant(0.8), Impact: constant(0.5)}.Score(ctx, signal.RiskSignal{})
		require.NoError(t, err)
		assert.InDelta(t, 0.4, score, 1e-12)
	})

	t.Run("rejects a product above one without clamping", func(t *testing.T) {
		_, err := CompoundScorer{Probability: constant(1.2), Impact: constant(0.9)}.Score(ctx, signal.RiskSignal{})
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	})

	t.Run("rejects a negative product", func(t *testing.T) {
		_, err := CompoundScorer{Probability: constant(-0.1), Impact: constant(0.5)}.Score(ctx, signal.RiskSignal{})
		assert.ErrorIs(t, err, ErrScoreOutOfRange)
	})

	t.Run("propagates estimator failures", func(t *testing.T) {
		boom := errors.New("model offline")
		failing := EstimatorFunc(func(context.Context, signal.RiskSignal) (float64, error) { return 0, boom })

		_, err := CompoundScorer{Probability: failing, Impact: constant(1)}.Score(ctx, signal.RiskSignal{})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "estimating probability")
	})

	t.Run("requires both estimators", func(t *testing.T) {
		_, err := CompoundScorer{Probability: constant(1)}.Score(ctx, signal.RiskSignal{})
		assert.Error(t, err)
	})
}
