package learner

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/internal/folds"
	"govote/internal/metrics"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/gonum/mat"
)

// SearchRequest is everything a GridSearcher needs to tune one member.
// X is already scaled and sampled.
type SearchRequest struct {
	Entry      Entry
	Base       Params
	Grid       ParamGrid
	X          *mat.Dense
	Y          []float64
	Encoder    *LabelEncoder
	Objective  metrics.Scorer
	Folds      int
	Seed       int64
	NumClasses int
}

// GridSearcher picks hyperparameters for one estimator. It returns the
// winning parameter overrides and their cross-validated objective score.
type GridSearcher interface {
	Search(ctx context.Context, req SearchRequest) (Params, float64, error)
}

// KFoldGridSearch scores every grid candidate by k-fold cross-validation
// on the training data and keeps the best mean score. Equal scores keep
// the earlier candidate in Expand order.
type KFoldGridSearch struct {
	// Workers bounds concurrently evaluated candidates; 0 means GOMAXPROCS.
	Workers int64
}

func (g KFoldGridSearch) Search(ctx context.Context, req SearchRequest) (Params, float64, error) {
	candidates := req.Grid.Expand()
	if len(candidates) == 0 {
		candidates = []Params{{}}
	}
	k := req.Folds
	if k < 2 {
		k = 3
	}
	assignment, err := searchFolds(req, k)
	if err != nil {
		return nil, 0, err
	}

	workers := g.Workers
	if workers <= 0 {
		workers = int64(runtime.GOMAXPROCS(0))
	}
	sem := semaphore.NewWeighted(workers)

	scores := make([]float64, len(candidates))
	errs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, cand := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, 0, err
		}
		wg.Add(1)
		go func(i int, cand Params) {
			defer wg.Done()
			defer sem.Release(1)
			scores[i], errs[i] = scoreCandidate(ctx, req, req.Base.Merge(cand), assignment, k)
		}(i, cand)
	}
	wg.Wait()

	best := -1
	for i := range candidates {
		if errs[i] != nil {
			return nil, 0, fmt.Errorf("grid candidate %v: %w", map[string]interface{}(candidates[i]), errs[i])
		}
		if math.IsNaN(scores[i]) {
			continue
		}
		if best < 0 || better(req.Objective, scores[i], scores[best]) {
			best = i
		}
	}
	if best < 0 {
		return nil, 0, fmt.Errorf("grid search produced no finite %s score", req.Objective.Name)
	}
	return candidates[best], scores[best], nil
}

func better(s metrics.Scorer, a, b float64) bool {
	if s.GreaterIsBetter {
		return a > b
	}
	return a < b
}

func searchFolds(req SearchRequest, k int) ([]int, error) {
	n, _ := req.X.Dims()
	if req.Entry.Kind == evaluation.Classifier {
		labels := make([]string, len(req.Y))
		for i, c := range req.Y {
			labels[i] = strconv.Itoa(int(c))
		}
		if a, err := folds.StratifiedKFold(labels, k, req.Seed); err == nil {
			return a, nil
		}
	}
	a, err := folds.KFold(n, k, req.Seed)
	if err != nil {
		return nil, errors.Wrapf(err, "grid search with %d folds", k)
	}
	return a, nil
}

func scoreCandidate(ctx context.Context, req SearchRequest, params Params, assignment []int, k int) (float64, error) {
	total := 0.0
	for f := 0; f < k; f++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		trainRows, testRows := folds.Indices(assignment, f)

		est, err := req.Entry.New(params)
		if err != nil {
			return 0, err
		}
		if c, ok := est.(Classifier); ok {
			c.SetNumClasses(req.NumClasses)
		}
		if err := est.Fit(selectRows(req.X, trainRows), pick(req.Y, trainRows)); err != nil {
			return 0, err
		}
		pred, err := est.Predict(selectRows(req.X, testRows))
		if err != nil {
			return 0, err
		}
		s, err := ScoreCodes(req.Objective, req.Encoder, pick(req.Y, testRows), pred)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total / float64(k), nil
}

// ScoreCodes scores predictions in estimator space. With an encoder,
// values are label codes and ordinal metrics see the decoded labels.
func ScoreCodes(s metrics.Scorer, enc *LabelEncoder, yTrue, yPred []float64) (float64, error) {
	if enc == nil || !s.Ordinal {
		return s.Score(yTrue, yPred)
	}
	t, err := decodeFloats(enc, yTrue)
	if err != nil {
		return 0, err
	}
	p, err := decodeFloats(enc, yPred)
	if err != nil {
		return 0, err
	}
	return s.ScoreLabels(t, p)
}

func decodeFloats(enc *LabelEncoder, codes []float64) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		l, err := enc.Decode(int(c))
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

func selectRows(X *mat.Dense, rows []int) *mat.Dense {
	_, d := X.Dims()
	out := mat.NewDense(len(rows), d, nil)
	for i, r := range rows {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

func pick(y []float64, rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
