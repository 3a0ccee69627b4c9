// Package config builds the component configurations the CLI wires
// together from flags and defaults.
package config

import (
	"fmt"

	"github.com/iammattholland/transfermatch/internal/matcher"
	"github.com/iammattholland/transfermatch/internal/parsers"
	"github.com/iammattholland/transfermatch/internal/patterns"
	"github.com/iammattholland/transfermatch/internal/reporter"
)

// CreateLedgerParserConfig creates the ledger parser configuration
// used by the CLI, with aliases for common export column names.
func CreateLedgerParserConfig() *parsers.LedgerParserConfig {
	config := parsers.DefaultLedgerParserConfig()
	config.ColumnAliases = map[string]string{
		// Common aliases for ledger export columns
		"id":      "id",
		"amount":  "amount",
		"date":    "date",
		"payee":   "payee",
		"memo":    "memo",
		"account": "account_id",
	}
	return config
}

// MatchOverrides carries the CLI flag overrides for a matching run.
// Negative numeric values and empty thresholds mean "keep the preset".
type MatchOverrides struct {
	Bulk             bool
	LookbackDays     int
	MaxDaysApart     int
	Limit            int
	MinScore         float64
	BucketWidthCents int64
	NoPatterns       bool
}

// CreateMatchConfig builds the matching configuration from a preset
// plus CLI overrides.
func CreateMatchConfig(overrides MatchOverrides) (*matcher.Config, error) {
	config := matcher.DefaultConfig()
	if overrides.Bulk {
		config = matcher.BulkImportConfig()
	}

	if overrides.LookbackDays > 0 {
		config.LookbackDays = overrides.LookbackDays
	}
	if overrides.MaxDaysApart > 0 {
		config.MaxDaysApart = overrides.MaxDaysApart
	}
	if overrides.Limit > 0 {
		config.Limit = overrides.Limit
	}
	if overrides.MinScore > 0 {
		config.MinScore = overrides.MinScore
	}
	if overrides.BucketWidthCents > 0 {
		config.BucketWidthCents = overrides.BucketWidthCents
	}
	if overrides.NoPatterns {
		config.UseLearnedPatterns = false
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}
	return config, nil
}

// CreateReportConfig builds the report configuration for an output
// format name.
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// OpenPatternStore opens the SQLite pattern store at path, or returns
// nil when path is empty so matching runs without learned patterns.
func OpenPatternStore(path string) (patterns.Store, error) {
	if path == "" {
		return nil, nil
	}
	return patterns.OpenSQLiteStore(path)
}
