package scoring

import (
	"fmt"
	"math"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gonum.org/v1/gonum/floats"

	"github.com/okian/patrolrank/internal/domain/model"
)

// weightSumTolerance absorbs float error when summing decimal weights.
const weightSumTolerance = 1e-9

// MetricRule describes how one metric contributes to the score.
type MetricRule struct {
	Weight float64 `koanf:"weight" json:"weight"`
	Min    float64 `koanf:"min" json:"min"`
	Max    float64 `koanf:"max" json:"max"`
	Invert bool    `koanf:"invert" json:"invert"`
}

// Policy maps metric names to their rules.
type Policy map[string]MetricRule

// DefaultPolicy is the stock weighting scheme.
func DefaultPolicy() Policy {
	return Policy{
		model.MetricBodyCamPercent:         {Weight: 0.10, Max: 100},
		model.MetricPatrolFeedback:         {Weight: 0.15, Max: 5},
		model.MetricComplaintCount:         {Weight: 0.15, Max: 10, Invert: true},
		model.MetricArrestsMade:            {Weight: 0.10, Max: 30},
		model.MetricUseOfForceIncidents:    {Weight: 0.05, Max: 5, Invert: true},
		model.MetricTrainingScore:          {Weight: 0.10, Max: 1},
		model.MetricAvgResponseTimePeakHrs: {Weight: 0.15, Min: 2, Max: 30, Invert: true},
		model.MetricGeoPatrolCoverageIndex: {Weight: 0.10, Max: 1},
		model.MetricPublicFeedbackScore:    {Weight: 0.05, Max: 5},
		model.MetricOfficerAbsenteeismRate: {Weight: 0.05, Max: 0.25, Invert: true},
	}
}

// TotalWeight sums the policy weights.
func (p Policy) TotalWeight() float64 {
	ws := make([]float64, 0, len(p))
	for _, r := range p {
		ws = append(ws, r.Weight)
	}
	return floats.Sum(ws)
}

// Validate checks metric names, weights and domains.
func (p Policy) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPolicy
	}
	for name, r := range p {
		if !model.IsMetric(name) {
			return fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		if r.Weight < 0 || math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, name, r.Weight)
		}
		if r.Max < r.Min {
			return fmt.Errorf("%w: %s max %v < min %v", ErrInvalidDomain, name, r.Max, r.Min)
		}
	}
	if sum := p.TotalWeight(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: got %v", ErrWeightSum, sum)
	}
	return nil
}

func (p Policy) clone() Policy {
	out := make(Policy, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// LoadPolicy reads a YAML policy file of the form
//
//	metrics:
//	  body_cam_percent: {weight: 0.1, min: 0, max: 100, invert: false}
//
// and validates it.
func LoadPolicy(path string) (Policy, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadPolicy, path, err)
	}

	var p Policy
	if err := k.UnmarshalWithConf("metrics", &p, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadPolicy, path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
