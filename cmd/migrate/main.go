package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"govote/adapters/postgres"
	"govote/domain/core"
	"govote/domain/evaluation"
	"govote/ports"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <results_dir>")
	}

	databaseURL := os.Args[1]
	resultsDir := os.Args[2]

	log.Printf("Importing evaluation results from %s", resultsDir)

	ctx := context.Background()
	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()
	ledger := postgres.NewLedgerRepository(db)

	files, err := findResultFiles(resultsDir)
	if err != nil {
		log.Fatalf("Failed to find result files: %v", err)
	}
	log.Printf("Found %d result files to import", len(files))

	imported := 0
	skipped := 0
	for _, file := range files {
		run, err := loadRunFromFile(file)
		if err != nil {
			log.Printf("Failed to load results from %s: %v", file, err)
			skipped++
			continue
		}
		if err := storeRun(ctx, ledger, run); err != nil {
			log.Printf("Failed to store run %s: %v", run.RunID, err)
			skipped++
			continue
		}
		imported++
		log.Printf("Imported run %s (%d results) from %s", run.RunID, len(run.Results), filepath.Base(file))
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
}

func findResultFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// loadRunFromFile accepts either an exported cross-validation run or a
// single evaluation result. Files without a run id get a deterministic one
// derived from the path, so re-importing a file overwrites its rows.
func loadRunFromFile(filePath string) (*evaluation.RunResults, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, err
	}

	var run evaluation.RunResults
	if _, ok := probe["results"]; ok {
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, err
		}
	} else {
		var single evaluation.Result
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, err
		}
		run.Results = []evaluation.Result{single}
	}

	if run.RunID.String() == "" {
		run.RunID = core.RunID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(filePath)).String())
	}
	return &run, nil
}

// storeRun writes fold results in order; a lone result is stored as a
// whole-set evaluation.
func storeRun(ctx context.Context, ledger ports.LedgerWriterPort, run *evaluation.RunResults) error {
	if len(run.Results) == 1 && run.FoldHash == "" {
		return ledger.StoreEvaluation(ctx, run.RunID, ports.WholeSet, run.Results[0])
	}
	for fold, res := range run.Results {
		if err := ledger.StoreEvaluation(ctx, run.RunID, fold, res); err != nil {
			return err
		}
	}
	return nil
}
