package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"govote/adapters/excel"
	"govote/adapters/postgres"
	"govote/domain/evaluation"
	"govote/domain/featureset"
	"govote/internal/api"
	"govote/internal/config"
	"govote/internal/testkit"
	"govote/internal/voting"
	"govote/ports"

	"github.com/joho/godotenv"
)

// trainingSet reads the configured training file, or draws synthetic data
// of the ensemble's kind when none is configured.
func trainingSet(appConfig *config.Config, kind evaluation.LearnerType, kit *testkit.TestKit) (*featureset.FeatureSet, error) {
	if appConfig.Data.TrainFile == "" {
		log.Printf("No training file configured, using synthetic %s data", kind)
		if kind == evaluation.Regressor {
			return kit.Regression(600, appConfig.Ensemble.Seed)
		}
		return kit.Classification(600, 2, appConfig.Ensemble.Seed)
	}

	log.Printf("Using training file: %s", appConfig.Data.TrainFile)
	reader, err := excel.NewDataReader(appConfig.Data.TrainFile, excel.ReaderConfig{
		IDColumn:    appConfig.Data.IDColumn,
		LabelColumn: appConfig.Data.LabelColumn,
	})
	if err != nil {
		return nil, err
	}
	return reader.ReadFeatureSet()
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := appConfig.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kit := testkit.NewTestKit()

	// The ledger is optional; without DATABASE_URL results stay in memory.
	var ledger ports.LedgerReaderPort = kit.LedgerAdapter()
	if appConfig.Database.URL != "" {
		db, err := postgres.Open(ctx, appConfig.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()
		ledger = postgres.NewLedgerRepository(db)
		log.Println("Result ledger connected")
	}

	ensemble, err := voting.New(appConfig.Ensemble.Members, appConfig.Ensemble.Options(logger)...)
	if err != nil {
		log.Fatalf("Failed to build ensemble: %v", err)
	}

	fs, err := trainingSet(appConfig, ensemble.Kind(), kit)
	if err != nil {
		log.Fatalf("Failed to read training data: %v", err)
	}

	start := time.Now()
	err = ensemble.Train(ctx, fs, voting.TrainOptions{
		Objective:  appConfig.Ensemble.Objective,
		GridSearch: appConfig.Ensemble.GridSearch,
		Seed:       appConfig.Ensemble.Seed,
	})
	if err != nil {
		log.Fatalf("Failed to train ensemble: %v", err)
	}
	log.Printf("Trained %d members on %d examples in %s", len(ensemble.Members()), fs.Len(), time.Since(start).Round(time.Millisecond))

	handler, err := api.NewServer(ensemble, ledger, appConfig.Server.MaxConcurrent, logger)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Starting govote prediction server on port %s", appConfig.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
