package learner

import (
	"slices"
	"sort"
	"strconv"
	"sync"

	"govote/internal/errors"
)

// LabelEncoder maps class labels to dense codes 0..L-1 in sorted label
// order. Labels sort numerically when every one of them parses as a number
// ("2" before "10"), lexicographically otherwise.
//
// With a positive label, a two-class encoding gives that label code 1
// whatever the sort order says.
//
// One encoder is shared by every member of an ensemble. Once frozen it
// never changes; fitting it with a different label set is an error.
type LabelEncoder struct {
	mu       sync.RWMutex
	labels   []string
	codes    map[string]int
	numeric  bool
	frozen   bool
	positive string
}

// NewLabelEncoder returns an empty, unfrozen encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{codes: map[string]int{}}
}

// NewPositiveEncoder returns an empty encoder that places positive at
// code 1 in binary encodings. An empty positive behaves like
// NewLabelEncoder.
func NewPositiveEncoder(positive string) *LabelEncoder {
	e := NewLabelEncoder()
	e.positive = positive
	return e
}

// NewOrderedEncoder returns a frozen encoder that keeps labels in the
// given order, as restored from a trained model.
func NewOrderedEncoder(labels []string) (*LabelEncoder, error) {
	if len(labels) == 0 {
		return nil, errors.ConfigurationError("cannot build a label encoder from zero labels")
	}
	e := NewLabelEncoder()
	e.numeric = true
	for i, l := range labels {
		if _, dup := e.codes[l]; dup {
			return nil, errors.ConfigurationError("duplicate label %q", l)
		}
		if _, err := strconv.ParseFloat(l, 64); err != nil {
			e.numeric = false
		}
		e.codes[l] = i
	}
	e.labels = append([]string(nil), labels...)
	e.frozen = true
	return e, nil
}

// NewFrozenEncoder builds an encoder over labels and freezes it.
func NewFrozenEncoder(labels []string) (*LabelEncoder, error) {
	e := NewLabelEncoder()
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	e.Freeze()
	return e, nil
}

// Fit sets the label order from the distinct values in labels. On a frozen
// encoder it only checks that labels adds nothing new.
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.ConfigurationError("cannot fit a label encoder on zero labels")
	}
	distinct, numeric := sortLabels(labels)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frozen {
		for _, l := range distinct {
			if _, ok := e.codes[l]; !ok {
				return errors.ConfigurationError(
					"label %q was not seen when the shared label encoding was frozen (known labels: %v)", l, e.labels)
			}
		}
		return nil
	}

	if e.positive != "" {
		at := slices.Index(distinct, e.positive)
		if at < 0 {
			return errors.ConfigurationError("positive label %q is not one of %v", e.positive, distinct)
		}
		if len(distinct) == 2 && at == 0 {
			distinct[0], distinct[1] = distinct[1], distinct[0]
		}
	}

	e.labels = distinct
	e.numeric = numeric
	e.codes = make(map[string]int, len(distinct))
	for i, l := range distinct {
		e.codes[l] = i
	}
	return nil
}

// Freeze prevents any further change to the label order.
func (e *LabelEncoder) Freeze() {
	e.mu.Lock()
	e.frozen = true
	e.mu.Unlock()
}

// Frozen reports whether the encoder has been frozen.
func (e *LabelEncoder) Frozen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frozen
}

// Encode returns the code for label.
func (e *LabelEncoder) Encode(label string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.codes[label]
	if !ok {
		return 0, errors.ConfigurationError("unknown label %q", label)
	}
	return c, nil
}

// EncodeAll encodes every label as a float64 code, the form estimators
// are fitted on.
func (e *LabelEncoder) EncodeAll(labels []string) ([]float64, error) {
	out := make([]float64, len(labels))
	for i, l := range labels {
		c, err := e.Encode(l)
		if err != nil {
			return nil, err
		}
		out[i] = float64(c)
	}
	return out, nil
}

// Decode returns the label for code.
func (e *LabelEncoder) Decode(code int) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if code < 0 || code >= len(e.labels) {
		return "", errors.InvalidInput("label code " + strconv.Itoa(code) + " out of range")
	}
	return e.labels[code], nil
}

// DecodeAll decodes a slice of codes.
func (e *LabelEncoder) DecodeAll(codes []int) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		l, err := e.Decode(c)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

// Labels returns the labels in code order.
func (e *LabelEncoder) Labels() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.labels...)
}

// Len returns the number of classes.
func (e *LabelEncoder) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.labels)
}

// Positive returns the configured positive label, or "".
func (e *LabelEncoder) Positive() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.positive
}

// Numeric reports whether every label is a number.
func (e *LabelEncoder) Numeric() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.numeric
}

func sortLabels(labels []string) ([]string, bool) {
	seen := make(map[string]struct{}, len(labels))
	var distinct []string
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		distinct = append(distinct, l)
	}

	values := make(map[string]float64, len(distinct))
	numeric := true
	for _, l := range distinct {
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			numeric = false
			break
		}
		values[l] = v
	}

	if numeric {
		sort.Slice(distinct, func(i, j int) bool {
			if values[distinct[i]] != values[distinct[j]] {
				return values[distinct[i]] < values[distinct[j]]
			}
			return distinct[i] < distinct[j]
		})
	} else {
		sort.Strings(distinct)
	}
	return distinct, numeric
}
