package service

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/patrolrank/pkg/metrics"
)

// ScoreDistribution summarizes the scores of ranked officers.
type ScoreDistribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// distribution computes summary statistics. scores is sorted in place.
func distribution(scores []float64) ScoreDistribution {
	d := ScoreDistribution{Count: len(scores)}
	if len(scores) == 0 {
		return d
	}
	sort.Float64s(scores)
	d.Min = scores[0]
	d.Max = scores[len(scores)-1]
	d.P50 = stat.Quantile(0.5, stat.Empirical, scores, nil)
	d.P90 = stat.Quantile(0.9, stat.Empirical, scores, nil)
	if len(scores) > 1 {
		d.Mean, d.StdDev = stat.MeanStdDev(scores, nil)
	} else {
		d.Mean = scores[0]
	}
	return d
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"storeDriver":    s.storeDriver,
		"scoringWorkers": s.scoringWorkers,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"throttleWindow": s.throttle.String(),
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	metrics.UpdateQueueSize(queueLen)

	processed, failed := s.worker.Counts()
	stats["jobsProcessed"] = processed
	stats["jobsFailed"] = failed
	if last := s.worker.Last(); last != nil {
		stats["lastJob"] = last
	}

	total, err := s.store.CountOfficers(ctx)
	if err != nil {
		stats["storeError"] = err.Error()
		return stats
	}
	stats["totalOfficers"] = total
	metrics.UpdateOfficerCount(total)

	if total > 0 {
		ranked, err := s.store.TopScores(ctx, total)
		if err != nil {
			stats["storeError"] = err.Error()
			return stats
		}
		scores := make([]float64, len(ranked))
		for i, r := range ranked {
			scores[i] = r.Score.Score
		}
		stats["scores"] = distribution(scores)
	}
	return stats
}
