// Package predictions writes and reads the tab-separated prediction files
// produced by predict and cross-validation.
package predictions

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
)

// Mode selects the columns written after the id.
type Mode int

const (
	// Labels writes a single "prediction" column (labels or values).
	Labels Mode = iota
	// AllProbabilities writes one column per class label.
	AllProbabilities
	// PositiveProbability writes "Probability of '<label>'".
	PositiveProbability
	// Thresholded writes 1 when the positive probability meets the
	// threshold and 0 otherwise, under a "prediction" column.
	Thresholded
)

// Format describes one prediction file layout.
type Format struct {
	Mode Mode
	// ClassLabels are the column labels for AllProbabilities, in code order.
	ClassLabels []string
	// Positive is the code of the positive class for PositiveProbability
	// and Thresholded.
	Positive  int
	Threshold float64
}

// Header returns the file header for the format.
func (f Format) Header() []string {
	switch f.Mode {
	case AllProbabilities:
		return append([]string{"id"}, f.ClassLabels...)
	case PositiveProbability:
		label := strconv.Itoa(f.Positive)
		if f.Positive < len(f.ClassLabels) {
			label = f.ClassLabels[f.Positive]
		}
		return []string{"id", fmt.Sprintf("Probability of '%s'", label)}
	default:
		return []string{"id", "prediction"}
	}
}

// Row is one prediction. Prediction is used by Labels; Probabilities by the
// other modes.
type Row struct {
	ID            string
	Prediction    string
	Probabilities []float64
}

func (f Format) record(r Row) ([]string, error) {
	switch f.Mode {
	case Labels:
		return []string{r.ID, r.Prediction}, nil
	case AllProbabilities:
		out := make([]string, 0, len(r.Probabilities)+1)
		out = append(out, r.ID)
		for _, p := range r.Probabilities {
			out = append(out, FormatFloat(p))
		}
		return out, nil
	}

	if f.Positive < 0 || f.Positive >= len(r.Probabilities) {
		return nil, fmt.Errorf("positive class %d out of range for %d probabilities", f.Positive, len(r.Probabilities))
	}
	p := r.Probabilities[f.Positive]
	if f.Mode == Thresholded {
		v := "0"
		if p >= f.Threshold {
			v = "1"
		}
		return []string{r.ID, v}, nil
	}
	return []string{r.ID, FormatFloat(p)}, nil
}

// FormatFloat renders a value with the fewest digits that round-trip.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Writer appends prediction batches to one file or stream. The first
// batch writes the header (and creates or truncates a file); later batches
// append rows only.
type Writer struct {
	mu            sync.Mutex
	path          string
	out           io.Writer
	format        Format
	headerWritten bool
}

// NewWriter returns a writer for path. Nothing is written until Write.
func NewWriter(path string, format Format) *Writer {
	return &Writer{path: path, format: format}
}

// NewStreamWriter returns a writer that sends every batch to out.
func NewStreamWriter(out io.Writer, format Format) *Writer {
	return &Writer{out: out, format: format}
}

// Path returns the destination file, or "" for a stream writer.
func (w *Writer) Path() string { return w.path }

// Write appends rows, preceded by the header on the first call.
func (w *Writer) Write(rows []Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.out != nil {
		return w.writeTo(w.out, rows)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if !w.headerWritten {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(w.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open prediction file: %w", err)
	}

	if err := w.writeTo(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *Writer) writeTo(out io.Writer, rows []Row) error {
	cw := csv.NewWriter(out)
	cw.Comma = '\t'
	if !w.headerWritten {
		if err := cw.Write(w.format.Header()); err != nil {
			return fmt.Errorf("failed to write prediction header: %w", err)
		}
	}
	for _, r := range rows {
		rec, err := w.format.record(r)
		if err != nil {
			return err
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write prediction row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush predictions: %w", err)
	}
	w.headerWritten = true
	return nil
}

// Table is a prediction file read back into memory.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read parses a prediction file.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prediction file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse prediction file: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("prediction file %s is empty", path)
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// IDs returns the id column.
func (t *Table) IDs() []string {
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[0]
	}
	return out
}

// Column returns the named column, or false when absent.
func (t *Table) Column(name string) ([]string, bool) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, true
}
