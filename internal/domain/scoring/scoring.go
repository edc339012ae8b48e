// Package scoring turns an officer's raw metrics into a composite score.
//
// Each metric is normalized onto [0,1] against the domain declared by the
// policy, optionally inverted for lower-is-better metrics, weighted and
// summed. Policies must carry weights summing to 1 so the result stays in
// [0,1] before rounding.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/patrolrank/internal/domain/model"
)

// scorePrecision fixes scores to three decimal places.
const scorePrecision = 1000

// Normalize maps value onto [0,1] relative to [min,max].
// A degenerate domain (max == min) yields 0.
func Normalize(value, max, min float64) float64 {
	if max == min {
		return 0
	}
	return math.Max(0, math.Min((value-min)/(max-min), 1))
}

// RoundScore rounds half away from zero to three decimals.
func RoundScore(x float64) float64 {
	return math.Round(x*scorePrecision) / scorePrecision
}

// Scorer computes composite scores.
type Scorer interface {
	Compute(m model.Metrics) float64
}

// Calculator is an immutable, validated view of a Policy laid out as
// parallel slices so a score is a single dot product.
type Calculator struct {
	policy  Policy
	names   []string
	weights []float64
}

// NewCalculator validates p and prepares it for scoring.
func NewCalculator(p Policy) (*Calculator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &Calculator{policy: p.clone()}
	for _, name := range model.MetricNames {
		rule, ok := p[name]
		if !ok {
			continue
		}
		c.names = append(c.names, name)
		c.weights = append(c.weights, rule.Weight)
	}
	return c, nil
}

// MustCalculator is NewCalculator for policies known to be valid.
func MustCalculator(p Policy) *Calculator {
	c, err := NewCalculator(p)
	if err != nil {
		panic(err)
	}
	return c
}

// Policy returns a copy of the policy backing the calculator.
func (c *Calculator) Policy() Policy {
	return c.policy.clone()
}

// Compute returns the weighted score for m, clamped to [0,1] and rounded.
func (c *Calculator) Compute(m model.Metrics) float64 {
	contributions := c.contributions(m)
	score := floats.Dot(c.weights, contributions)
	return RoundScore(math.Max(0, math.Min(score, 1)))
}

// Breakdown reports each metric's normalized (and possibly inverted)
// contribution before weighting.
func (c *Calculator) Breakdown(m model.Metrics) map[string]float64 {
	contributions := c.contributions(m)
	out := make(map[string]float64, len(c.names))
	for i, name := range c.names {
		out[name] = contributions[i]
	}
	return out
}

func (c *Calculator) contributions(m model.Metrics) []float64 {
	out := make([]float64, len(c.names))
	for i, name := range c.names {
		rule := c.policy[name]
		raw, _ := m.Value(name)
		n := Normalize(raw, rule.Max, rule.Min)
		if rule.Invert {
			n = 1 - n
		}
		out[i] = n
	}
	return out
}
