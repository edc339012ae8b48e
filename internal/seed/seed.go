// Package seed creates officers with random but plausible metrics for demos
// and load testing.
package seed

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"sync"

	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/pkg/logger"
)

const (
	randomFloatDivisor = 1_000_000
	badgeBase          = 1000
)

// Grades officers are drawn from.
var Grades = []string{
	"Constable", "SeniorConstable", "HeadConstable", "AssistantSubInspector",
	"SubInspector", "Inspector", "DeputySuperintendent",
	"AdditionalSuperintendent", "Superintendent", "SeniorSuperintendent",
	"DirectorInspectorGeneral", "InspectorGeneral", "DirectorGeneralPolice",
}

// Creator persists officers.
type Creator interface {
	CreateOfficer(ctx context.Context, o *model.Officer) error
	CountOfficers(ctx context.Context) (int, error)
}

// Generator draws officer metrics from fixed ranges.
type Generator struct {
	src io.Reader
	log logger.Logger

	// mu spans the count and the inserts that follow it so concurrent
	// seeds cannot hand out the same badge.
	mu sync.Mutex
}

// NewGenerator returns a generator backed by crypto/rand.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{src: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Get().Named("seed")
	}
	return g
}

// randomFloat returns a value in [min,max] rounded to two decimals.
func (g *Generator) randomFloat(min, max float64) float64 {
	n, err := rand.Int(g.src, big.NewInt(randomFloatDivisor))
	if err != nil {
		return min
	}
	v := min + float64(n.Int64())/randomFloatDivisor*(max-min)
	return math.Round(v*100) / 100
}

// randomInt returns a value in [min,max].
func (g *Generator) randomInt(min, max int) int {
	n, err := rand.Int(g.src, big.NewInt(int64(max-min+1)))
	if err != nil {
		return min
	}
	return min + int(n.Int64())
}

// Officer builds the officer with the given sequence number. seq also
// determines the name and badge so repeated seeding never collides.
func (g *Generator) Officer(seq int) model.Officer {
	return model.Officer{
		Name:        fmt.Sprintf("Cop %d", seq+1),
		BadgeNumber: fmt.Sprintf("BADGE%d", badgeBase+seq),
		Grade:       Grades[g.randomInt(0, len(Grades)-1)],
		Metrics: model.Metrics{
			BodyCamPercent:         g.randomFloat(50, 100),
			PatrolFeedback:         g.randomFloat(2, 5),
			ComplaintCount:         g.randomInt(0, 5),
			ArrestsMade:            g.randomInt(5, 50),
			UseOfForceIncidents:    g.randomInt(0, 3),
			TrainingScore:          g.randomFloat(0.7, 1),
			AvgResponseTimePeakHrs: g.randomFloat(5, 20),
			GeoPatrolCoverageIndex: g.randomFloat(0.5, 1),
			PublicFeedbackScore:    g.randomFloat(3, 5),
			OfficerAbsenteeismRate: g.randomFloat(0, 0.15),
		},
	}
}

// Officers creates count random officers, numbering them after the ones
// already stored. Calls on the same Generator are serialized.
func (g *Generator) Officers(ctx context.Context, store Creator, count int) ([]model.Officer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d, must be positive", ErrInvalidCount, count)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	offset, err := store.CountOfficers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count officers: %w", err)
	}

	log := g.log
	created := make([]model.Officer, 0, count)
	for i := 0; i < count; i++ {
		o := g.Officer(offset + i)
		if err := store.CreateOfficer(ctx, &o); err != nil {
			return created, fmt.Errorf("create %s: %w", o.Name, err)
		}
		created = append(created, o)
		log.Debug(ctx, "created officer", logger.Int64("id", o.ID), logger.String("name", o.Name))
	}
	log.Info(ctx, "seeded officers", logger.Int("count", len(created)))
	return created, nil
}
