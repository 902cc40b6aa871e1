package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"govote/domain/core"
	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/ports"

	"github.com/jmoiron/sqlx"
)

// LedgerRepository implements ports.ResultLedger for PostgreSQL
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new PostgreSQL result ledger
func NewLedgerRepository(db *sqlx.DB) ports.ResultLedger {
	return &LedgerRepository{db: db}
}

type evaluationRow struct {
	RunID     string          `db:"run_id"`
	Fold      int             `db:"fold"`
	Objective sql.NullFloat64 `db:"objective"`
	Accuracy  sql.NullFloat64 `db:"accuracy"`
	Result    []byte          `db:"result"`
	CreatedAt time.Time       `db:"created_at"`
}

func toRow(runID core.RunID, fold int, result evaluation.Result) (evaluationRow, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return evaluationRow{}, errors.Wrap(err, "failed to encode evaluation result")
	}
	row := evaluationRow{RunID: runID.String(), Fold: fold, Result: payload}
	if result.Objective != nil {
		row.Objective = sql.NullFloat64{Float64: *result.Objective, Valid: true}
	}
	if result.Accuracy != nil {
		row.Accuracy = sql.NullFloat64{Float64: *result.Accuracy, Valid: true}
	}
	return row, nil
}

func (row evaluationRow) record() (ports.EvaluationRecord, error) {
	rec := ports.EvaluationRecord{
		RunID:     core.RunID(row.RunID),
		Fold:      row.Fold,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Result, &rec.Result); err != nil {
		return rec, errors.Wrapf(err, "failed to decode result for run %s fold %d", row.RunID, row.Fold)
	}
	return rec, nil
}

// StoreEvaluation records one result. Storing the same run and fold twice
// replaces the earlier result.
func (r *LedgerRepository) StoreEvaluation(ctx context.Context, runID core.RunID, fold int, result evaluation.Result) error {
	row, err := toRow(runID, fold, result)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO evaluation_runs (run_id, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (run_id) DO NOTHING
	`, row.RunID); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to register run"))
	}

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO evaluation_results (run_id, fold, objective, accuracy, result, created_at)
		VALUES (:run_id, :fold, :objective, :accuracy, :result, NOW())
		ON CONFLICT (run_id, fold) DO UPDATE
		SET objective = EXCLUDED.objective,
			accuracy = EXCLUDED.accuracy,
			result = EXCLUDED.result,
			created_at = EXCLUDED.created_at
	`, row); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to store evaluation"))
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, err)
	}
	return nil
}

// ListEvaluations returns a run's results ordered by fold
func (r *LedgerRepository) ListEvaluations(ctx context.Context, runID core.RunID) ([]ports.EvaluationRecord, error) {
	var rows []evaluationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT run_id, fold, objective, accuracy, result, created_at
		FROM evaluation_results
		WHERE run_id = $1
		ORDER BY fold
	`, runID.String())
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}

	out := make([]ports.EvaluationRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListRuns returns the most recent run ids, newest first
func (r *LedgerRepository) ListRuns(ctx context.Context, limit int) ([]core.RunID, error) {
	if limit <= 0 {
		limit = 50
	}
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT run_id
		FROM evaluation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, err)
	}

	out := make([]core.RunID, len(ids))
	for i, id := range ids {
		out[i] = core.RunID(id)
	}
	return out, nil
}
