package ports

import (
	"context"
	"time"

	"govote/domain/core"
	"govote/domain/evaluation"
)

// WholeSet marks an evaluation that was not part of a cross-validation fold.
const WholeSet = -1

// EvaluationRecord is one stored evaluation result.
type EvaluationRecord struct {
	RunID     core.RunID        `json:"run_id"`
	Fold      int               `json:"fold"`
	Result    evaluation.Result `json:"result"`
	CreatedAt time.Time         `json:"created_at"`
}

// LedgerWriterPort provides append-only write access to evaluation results
type LedgerWriterPort interface {
	StoreEvaluation(ctx context.Context, runID core.RunID, fold int, result evaluation.Result) error
}

// LedgerReaderPort provides read-only access to stored results
type LedgerReaderPort interface {
	// ListEvaluations returns a run's results ordered by fold.
	ListEvaluations(ctx context.Context, runID core.RunID) ([]EvaluationRecord, error)
	// ListRuns returns the most recent run ids, newest first.
	ListRuns(ctx context.Context, limit int) ([]core.RunID, error)
}

// ResultLedger combines read and write access
type ResultLedger interface {
	LedgerWriterPort
	LedgerReaderPort
}
