package decision

import (
	"context"
	"errors"
	"fmt"
	"math"

	"oact/internal/signal"
)

// ErrScoreOutOfRange is returned when an estimator yields a compound score
// outside [0, 1]. The score is never clamped.
var ErrScoreOutOfRange = errors.New("compound risk score out of range [0, 1]")

// Scorer produces the risk score used for classification.
type Scorer interface {
	Score(ctx context.Context, sig signal.RiskSignal) (float64, error)
}

// Estimator is one factor of a compound score.
type Estimator interface {
	Estimate(ctx context.Context, sig signal.RiskSignal) (float64, error)
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context, sig signal.RiskSignal) (float64, error)

func (f EstimatorFunc) Estimate(ctx context.Context, sig signal.RiskSignal) (float64, error) {
	return f(ctx, sig)
}

// SuppliedScore uses the score carried by the signal as-is.
type SuppliedScore struct{}

func (SuppliedScore) Score(_ context.Context, sig signal.RiskSignal) (float64, error) {
	return sig.RiskScore, nil
}

// CompoundScorer computes likelihood x impact from two estimators.
type CompoundScorer struct {
	Probability Estimator
	Impact      Estimator
}

func (c CompoundScorer) Score(ctx context.Context, sig signal.RiskSignal) (float64, error) {
	if c.Probability == nil || c.Impact == nil {
		return 0, errors.New("compound scorer requires probability and impact estimators")
	}
	p, err := c.Probability.Estimate(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("estimating probability: %w", err)
	}
	i, err := c.Impact.Estimate(ctx, sig)
	if err != nil {
		return 0, fmt.Errorf("estimating impact: %w", err)
	}

	score := p * i
	if math.IsNaN(score) || score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v x %v = %v", ErrScoreOutOfRange, p, i, score)
	}
	return score, nil
}
