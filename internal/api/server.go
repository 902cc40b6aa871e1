// Package api serves predictions from a trained ensemble over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"govote/domain/core"
	"govote/domain/featureset"
	"govote/internal/errors"
	"govote/internal/logging"
	"govote/internal/voting"
	"govote/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"
)

// Server exposes one trained ensemble and, optionally, the result ledger.
type Server struct {
	ensemble *voting.Ensemble
	ledger   ports.LedgerReaderPort
	sem      *semaphore.Weighted
	logger   *logging.Logger
	router   *chi.Mux
}

// NewServer builds the router. maxConcurrent bounds in-flight predictions;
// ledger may be nil.
func NewServer(ensemble *voting.Ensemble, ledger ports.LedgerReaderPort, maxConcurrent int64, logger *logging.Logger) (*Server, error) {
	if !ensemble.Trained() {
		return nil, errors.ConfigurationError("the prediction server needs a trained ensemble")
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = logging.NoopLogger()
	}
	s := &Server{
		ensemble: ensemble,
		ledger:   ledger,
		sem:      semaphore.NewWeighted(maxConcurrent),
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/model", s.handleModel)
	s.router.Post("/predict", s.handlePredict)
	s.router.Get("/runs", s.handleListRuns)
	s.router.Get("/runs/{id}", s.handleRun)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ModelSummary describes the served ensemble. ConfigHash fingerprints
// ModelParams.
type ModelSummary struct {
	LearnerType string                 `json:"learner_type"`
	Voting      string                 `json:"voting,omitempty"`
	Labels      []string               `json:"labels,omitempty"`
	Members     []string               `json:"members"`
	ModelParams map[string]interface{} `json:"model_params"`
	ConfigHash  string                 `json:"config_hash"`
}

// PredictRequest carries instances to predict. IDs are optional.
type PredictRequest struct {
	IDs           []string    `json:"ids,omitempty"`
	Features      [][]float64 `json:"features"`
	Probabilities bool        `json:"probabilities,omitempty"`
	Individual    bool        `json:"individual,omitempty"`
}

// PredictResponse holds one prediction per instance.
type PredictResponse struct {
	IDs           []string               `json:"ids"`
	Labels        []string               `json:"labels,omitempty"`
	Values        []float64              `json:"values,omitempty"`
	Probabilities [][]float64            `json:"probabilities,omitempty"`
	Individual    map[string]interface{} `json:"individual,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	a, err := s.ensemble.Artifact()
	if err != nil {
		writeError(w, err)
		return
	}
	params := s.ensemble.ModelParams()
	writeJSON(w, http.StatusOK, ModelSummary{
		LearnerType: string(a.LearnerType),
		Voting:      a.Voting,
		Labels:      a.Labels,
		Members:     a.Order,
		ModelParams: params,
		ConfigHash:  core.ComputeConfigHash(params).String(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidInput("request body is not valid JSON: "+err.Error()))
		return
	}
	if len(req.Features) == 0 {
		writeError(w, errors.InvalidInput("features must contain at least one row"))
		return
	}
	if req.IDs == nil {
		req.IDs = make([]string, len(req.Features))
		for i := range req.IDs {
			req.IDs[i] = "EXAMPLE_" + strconv.Itoa(i)
		}
	}
	fs, err := featureset.New("request", req.IDs, req.Features, nil, nil)
	if err != nil {
		writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}

	if err := s.sem.Acquire(r.Context(), 1); err != nil {
		writeError(w, err)
		return
	}
	defer s.sem.Release(1)

	pred, err := s.ensemble.Predict(r.Context(), fs, voting.PredictOptions{
		ClassLabels: true,
		Individual:  req.Individual,
	})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "prediction failed",
			"request_id", middleware.GetReqID(r.Context()),
			"rows", fs.Len(),
			"error", err,
		)
		writeError(w, err)
		return
	}

	resp := PredictResponse{IDs: pred.IDs, Labels: pred.Labels, Values: pred.Values}
	if req.Probabilities && pred.Probabilities != nil {
		resp.Probabilities = denseRows(pred.Output)
	}
	if req.Individual {
		resp.Individual = make(map[string]interface{}, len(pred.Individual))
		for name, o := range pred.Individual {
			switch {
			case o.Labels != nil:
				resp.Individual[name] = o.Labels
			default:
				resp.Individual[name] = o.Values
			}
		}
	}
	s.logger.DebugContext(r.Context(), "served predictions", "rows", fs.Len())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, errors.NotFound("result ledger"))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}
	runs, err := s.ledger.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, errors.NotFound("result ledger"))
		return
	}
	runID, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	records, err := s.ledger.ListEvaluations(r.Context(), runID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(records) == 0 {
		writeError(w, errors.NotFound("run "+runID.String()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "results": records})
}

func denseRows(o voting.Output) [][]float64 {
	r, c := o.Probabilities.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		copy(out[i], o.Probabilities.RawRowView(i))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput, errors.CodeConfiguration, errors.CodeCapability:
		status = http.StatusBadRequest
	case errors.CodeNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}
