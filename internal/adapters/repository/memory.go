package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/patrolrank/internal/domain/model"
	"github.com/okian/patrolrank/pkg/metrics"
)

// MemoryStore is an in-process Store guarded by a single RWMutex.
// Upserts are atomic under the write lock.
type MemoryStore struct {
	mu       sync.RWMutex
	officers map[int64]model.Officer
	scores   map[int64]model.Score
	logs     map[int64][]model.RankLog
	nextID   int64
	nextLog  int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		officers: make(map[int64]model.Officer),
		scores:   make(map[int64]model.Score),
		logs:     make(map[int64][]model.RankLog),
	}
}

func (s *MemoryStore) CreateOfficer(_ context.Context, o *model.Officer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o.ID = s.nextID
	s.officers[o.ID] = *o
	metrics.UpdateOfficerCount(len(s.officers))
	return nil
}

func (s *MemoryStore) GetOfficer(_ context.Context, id int64) (model.Officer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.officers[id]
	if !ok {
		return model.Officer{}, fmt.Errorf("%w: officer %d", ErrNotFound, id)
	}
	return o, nil
}

func (s *MemoryStore) ListOfficers(_ context.Context) ([]model.Officer, error) {
	s.mu.RLock()
	out := make([]model.Officer, 0, len(s.officers))
	for _, o := range s.officers {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountOfficers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.officers), nil
}

func (s *MemoryStore) GetScore(_ context.Context, officerID int64) (model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scores[officerID]
	if !ok {
		return model.Score{}, fmt.Errorf("%w: score for officer %d", ErrNotFound, officerID)
	}
	return sc, nil
}

func (s *MemoryStore) SaveScore(_ context.Context, officerID int64, score float64, at time.Time) (model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[officerID]; !ok {
		return model.Score{}, fmt.Errorf("%w: officer %d", ErrNotFound, officerID)
	}
	sc := s.scores[officerID]
	sc.OfficerID = officerID
	sc.Score = score
	sc.UpdatedAt = at.UTC()
	s.scores[officerID] = sc
	return sc, nil
}

func (s *MemoryStore) UpsertScore(_ context.Context, sc model.Score) (model.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[sc.OfficerID]; !ok {
		return model.Score{}, fmt.Errorf("%w: officer %d", ErrNotFound, sc.OfficerID)
	}
	sc.UpdatedAt = sc.UpdatedAt.UTC()
	s.scores[sc.OfficerID] = sc
	return sc, nil
}

func (s *MemoryStore) TopScores(_ context.Context, n int) ([]model.RankedOfficer, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	s.mu.RLock()
	out := make([]model.RankedOfficer, 0, n)
	for id, sc := range s.scores {
		if !sc.Ranked() {
			continue
		}
		o, ok := s.officers[id]
		if !ok {
			continue
		}
		out = append(out, model.RankedOfficer{Score: sc, Officer: o})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score.Rank != out[j].Score.Rank {
			return out[i].Score.Rank < out[j].Score.Rank
		}
		return out[i].Score.OfficerID < out[j].Score.OfficerID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) LatestRankLog(_ context.Context, officerID int64) (*model.RankLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *model.RankLog
	for i := range s.logs[officerID] {
		l := s.logs[officerID][i]
		if latest == nil || !l.Timestamp.Before(latest.Timestamp) {
			cp := l
			latest = &cp
		}
	}
	return latest, nil
}

func (s *MemoryStore) AppendRankLog(_ context.Context, l *model.RankLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.officers[l.OfficerID]; !ok {
		return fmt.Errorf("%w: officer %d", ErrNotFound, l.OfficerID)
	}
	s.nextLog++
	l.ID = s.nextLog
	l.Timestamp = l.Timestamp.UTC()
	s.logs[l.OfficerID] = append(s.logs[l.OfficerID], *l)
	return nil
}

func (s *MemoryStore) RankLogs(_ context.Context, officerID int64, limit int) ([]model.RankLog, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	s.mu.RLock()
	out := append([]model.RankLog(nil), s.logs[officerID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
