package testkit

import (
	"govote/domain/featureset"
	"govote/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	ledger *InMemoryLedgerAdapter // Shared ledger instance
}

// NewTestKit creates a new test kit instance with synthetic data
func NewTestKit() *TestKit {
	return &TestKit{ledger: NewInMemoryLedgerAdapter()}
}

// LedgerAdapter returns the shared in-memory result ledger
func (t *TestKit) LedgerAdapter() ports.ResultLedger {
	return t.ledger
}

// Classification returns balanced synthetic classification data with the
// given size, class count and seed.
func (t *TestKit) Classification(examples, classes int, seed int64) (*featureset.FeatureSet, error) {
	cfg := DefaultClassificationConfig()
	cfg.Examples = examples
	cfg.Classes = classes
	cfg.Seed = seed
	return MakeClassification(cfg)
}

// Regression returns synthetic linear regression data.
func (t *TestKit) Regression(examples int, seed int64) (*featureset.FeatureSet, error) {
	cfg := DefaultRegressionConfig()
	cfg.Examples = examples
	cfg.Seed = seed
	fs, _, err := MakeRegression(cfg)
	return fs, err
}
