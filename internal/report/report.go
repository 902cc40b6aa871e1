// Package report renders cross-validation runs and learning curves as
// markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"govote/domain/evaluation"
	"govote/internal/errors"
	"govote/internal/voting"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"
)

// CrossValidation renders a cross-validation run: one row per fold,
// mean and standard deviation of every score, and for classifiers the
// confusion matrix summed over folds.
func CrossValidation(title string, cv *voting.CVResult) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Run: `%s`\n", cv.RunID)
	fmt.Fprintf(&b, "- Folds: %d\n", len(cv.Results))
	fmt.Fprintf(&b, "- Fold assignment: `%s`\n", cv.FoldHash)
	if len(cv.Results) > 0 {
		first := cv.Results[0]
		if v := first.Voting(); v != "" {
			fmt.Fprintf(&b, "- Voting: %s\n", v)
		}
		for _, m := range first.Estimators() {
			fmt.Fprintf(&b, "- Member `%s`: %s (scaling %s)\n", m.Name, m.Model, m.Scaling)
		}
	}
	b.WriteString("\n")

	columns := scoreColumns(cv.Results)
	b.WriteString("| Fold | " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|---" + strings.Repeat("|---", len(columns)) + "|\n")
	scores := make(map[string][]float64, len(columns))
	for f, res := range cv.Results {
		cells := make([]string, len(columns))
		for j, c := range columns {
			v, ok := scoreOf(res, c)
			if !ok {
				cells[j] = "n/a"
				continue
			}
			cells[j] = fmt.Sprintf("%.4f", v)
			scores[c] = append(scores[c], v)
		}
		fmt.Fprintf(&b, "| %d | %s |\n", f, strings.Join(cells, " | "))
	}

	b.WriteString("\n## Summary\n\n| Score | Mean | Std |\n|---|---|---|\n")
	for _, c := range columns {
		data := stats.Float64Data(scores[c])
		mean, err := data.Mean()
		if err != nil {
			continue
		}
		std, _ := data.StandardDeviationPopulation()
		fmt.Fprintf(&b, "| %s | %.4f | %.4f |\n", c, mean, std)
	}

	if cm := summedConfusion(cv.Results); cm != nil {
		b.WriteString("\n## Confusion matrix (rows: truth, columns: prediction)\n\n")
		header := make([]string, len(cm))
		for j := range header {
			header[j] = fmt.Sprint(j)
		}
		b.WriteString("| | " + strings.Join(header, " | ") + " |\n")
		b.WriteString("|---" + strings.Repeat("|---", len(cm)) + "|\n")
		for i, row := range cm {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprint(v)
			}
			fmt.Fprintf(&b, "| **%d** | %s |\n", i, strings.Join(cells, " | "))
		}
	}
	return b.Bytes()
}

// LearningCurve renders per-size mean and standard deviation of the
// training and held-out scores.
func LearningCurve(title, metric string, curve *voting.Curve) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Metric: `%s`, %d splits per size.\n\n", metric, splitsOf(curve))
	b.WriteString("| Training examples | Train mean | Train std | Test mean | Test std |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, size := range curve.TrainSizes {
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.4f | %.4f |\n",
			size, curve.TrainMean[i], curve.TrainStd[i], curve.TestMean[i], curve.TestStd[i])
	}
	return b.Bytes()
}

// HTML converts markdown into a standalone HTML page.
func HTML(md []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "govote report",
	})
	return markdown.ToHTML(md, p, r)
}

// Write stores md at path, rendered as HTML when path ends in .html.
func Write(path string, md []byte) error {
	out := md
	if strings.EqualFold(filepath.Ext(path), ".html") {
		out = HTML(md)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write report %s", path)
	}
	return nil
}

func scoreColumns(results []*evaluation.Result) []string {
	var columns []string
	seen := map[string]bool{}
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			columns = append(columns, name)
		}
	}
	for _, r := range results {
		if r.Objective != nil {
			add("objective")
		}
		if r.Accuracy != nil {
			add("accuracy")
		}
	}
	var extra []string
	for _, r := range results {
		for name := range r.Metrics {
			if !seen[name] {
				seen[name] = true
				extra = append(extra, name)
			}
		}
	}
	sort.Strings(extra)
	return append(columns, extra...)
}

func scoreOf(r *evaluation.Result, column string) (float64, bool) {
	switch column {
	case "objective":
		if r.Objective == nil {
			return 0, false
		}
		return *r.Objective, true
	case "accuracy":
		if r.Accuracy == nil {
			return 0, false
		}
		return *r.Accuracy, true
	}
	v, ok := r.Metrics[column]
	return v, ok
}

func summedConfusion(results []*evaluation.Result) [][]int {
	var sum [][]int
	for _, r := range results {
		if r.ConfusionMatrix == nil {
			return nil
		}
		if sum == nil {
			sum = make([][]int, len(r.ConfusionMatrix))
			for i := range sum {
				sum[i] = make([]int, len(r.ConfusionMatrix))
			}
		}
		for i, row := range r.ConfusionMatrix {
			for j, v := range row {
				sum[i][j] += v
			}
		}
	}
	return sum
}

func splitsOf(curve *voting.Curve) int {
	if len(curve.TrainScores) == 0 {
		return 0
	}
	return len(curve.TrainScores[0])
}
