package evaluation

import (
	"encoding/json"

	"govote/domain/core"
)

// LearnerType distinguishes classifier from regressor ensembles.
type LearnerType string

const (
	Classifier LearnerType = "classifier"
	Regressor  LearnerType = "regressor"
)

// MemberParams echoes the concrete configuration one member was fitted with.
type MemberParams struct {
	Name    string                 `json:"name"`
	Model   string                 `json:"model"`
	Params  map[string]interface{} `json:"params"`
	Scaling string                 `json:"feature_scaling"`
	Sampler string                 `json:"sampler,omitempty"`
}

// Result is the outcome of evaluating a trained ensemble on labeled data.
//
// ConfusionMatrix and Accuracy are nil for regressors, never zero-valued.
// Objective is nil when no objective was requested.
type Result struct {
	ConfusionMatrix [][]int                `json:"confusion_matrix"`
	Accuracy        *float64               `json:"accuracy"`
	Detail          map[string]interface{} `json:"detail"`
	ModelParams     map[string]interface{} `json:"model_params"`
	Objective       *float64               `json:"objective"`
	Metrics         map[string]float64     `json:"metrics"`
}

// RunResults is the exported form of one cross-validation run, one
// result per fold in fold order.
type RunResults struct {
	RunID    core.RunID    `json:"run_id"`
	FoldHash core.FoldHash `json:"fold_hash,omitempty"`
	Results  []Result      `json:"results"`
}

// Estimators returns the per-member parameters recorded in ModelParams.
func (r *Result) Estimators() []MemberParams {
	if r == nil || r.ModelParams == nil {
		return nil
	}
	members, _ := r.ModelParams["estimators"].([]MemberParams)
	return members
}

// Voting returns the combination mode recorded in ModelParams, or "" for regressors.
func (r *Result) Voting() string {
	if r == nil || r.ModelParams == nil {
		return ""
	}
	v, _ := r.ModelParams["voting"].(string)
	return v
}

// UnmarshalJSON restores the typed member list inside ModelParams.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if raw, ok := decoded.ModelParams["estimators"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		var members []MemberParams
		if err := json.Unmarshal(encoded, &members); err != nil {
			return err
		}
		decoded.ModelParams["estimators"] = members
	}
	*r = Result(decoded)
	return nil
}
