package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"govote/domain/core"
	"govote/domain/evaluation"
	"govote/ports"
)

// InMemoryLedgerAdapter implements ResultLedger with in-memory storage
type InMemoryLedgerAdapter struct {
	records map[core.RunID][]ports.EvaluationRecord
	order   []core.RunID
	mu      sync.RWMutex
}

func NewInMemoryLedgerAdapter() *InMemoryLedgerAdapter {
	return &InMemoryLedgerAdapter{
		records: make(map[core.RunID][]ports.EvaluationRecord),
	}
}

func (s *InMemoryLedgerAdapter) StoreEvaluation(ctx context.Context, runID core.RunID, fold int, result evaluation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[runID]; !ok {
		s.order = append(s.order, runID)
	}
	s.records[runID] = append(s.records[runID], ports.EvaluationRecord{
		RunID:     runID,
		Fold:      fold,
		Result:    result,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *InMemoryLedgerAdapter) ListEvaluations(ctx context.Context, runID core.RunID) ([]ports.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]ports.EvaluationRecord(nil), s.records[runID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fold < out[j].Fold })
	return out, nil
}

func (s *InMemoryLedgerAdapter) ListRuns(ctx context.Context, limit int) ([]core.RunID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.RunID, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.order[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
