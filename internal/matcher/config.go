// Package matcher implements transfer-pair candidate generation: it
// fetches eligible transactions, buckets them by quantized absolute
// amount, scores cross-account outflow/inflow pairs, and returns a
// bounded, deterministically ordered list of suggestions.
//
// The matching pipeline:
//  1. Fetch eligible transactions within the lookback window
//  2. Bucket by quantized absolute amount (adjacent buckets are probed
//     so tolerance-window matches are not lost at bucket boundaries)
//  3. Cross outflows against inflows from different accounts within
//     the day-distance limit
//  4. Extract features, score, filter by minimum score
//  5. Deduplicate by unordered pair key, sort, truncate
//
// Matching is advisory: a failed fetch yields an empty suggestion
// list, never an error.
package matcher

import (
	"fmt"
	"time"

	"github.com/iammattholland/transfermatch/internal/scoring"
)

// Config holds the parameters for one matching run. Configuration is
// always explicit: there is no process-wide matching state.
type Config struct {
	// LookbackDays bounds how far back eligible transactions are fetched
	LookbackDays int `json:"lookback_days"`

	// MaxDaysApart is the largest day distance between the two sides of
	// a candidate pair
	MaxDaysApart int `json:"max_days_apart"`

	// Limit bounds the number of suggestions returned
	Limit int `json:"limit"`

	// MinScore is the normalized score threshold in [0, 1]
	MinScore float64 `json:"min_score"`

	// BucketWidthCents quantizes absolute amounts into buckets; widen
	// it to tolerate fee-adjusted transfers
	BucketWidthCents int64 `json:"bucket_width_cents"`

	// UseLearnedPatterns enables the learned-pattern bonus in scoring
	UseLearnedPatterns bool `json:"use_learned_patterns"`

	// Weights overrides the scoring weights; nil uses the defaults
	Weights *scoring.Weights `json:"weights,omitempty"`
}

// DefaultConfig returns the configuration used for interactive
// suggestion runs.
func DefaultConfig() *Config {
	return &Config{
		LookbackDays:       90,
		MaxDaysApart:       7,
		Limit:              50,
		MinScore:           0.58,
		BucketWidthCents:   1,
		UseLearnedPatterns: true,
	}
}

// BulkImportConfig returns a relaxed configuration for matching right
// after a large import: a wider day window, a larger result limit, and
// buckets wide enough to tolerate transfer fees.
func BulkImportConfig() *Config {
	return &Config{
		LookbackDays:       90,
		MaxDaysApart:       14,
		Limit:              250,
		MinScore:           0.55,
		BucketWidthCents:   100,
		UseLearnedPatterns: true,
	}
}

// Validate checks if the matching configuration is valid
func (c *Config) Validate() error {
	if c.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be positive: %d", c.LookbackDays)
	}
	if c.MaxDaysApart < 0 {
		return fmt.Errorf("max days apart cannot be negative: %d", c.MaxDaysApart)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be positive: %d", c.Limit)
	}
	if c.MinScore < 0.0 || c.MinScore > 1.0 {
		return fmt.Errorf("min score must be between 0.0 and 1.0: %f", c.MinScore)
	}
	if c.BucketWidthCents <= 0 {
		return fmt.Errorf("bucket width cents must be positive: %d", c.BucketWidthCents)
	}
	if c.Weights != nil {
		if err := c.Weights.Validate(); err != nil {
			return fmt.Errorf("invalid weights: %w", err)
		}
	}
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	clone := *c
	if c.Weights != nil {
		weights := *c.Weights
		clone.Weights = &weights
	}
	return &clone
}

// LookbackWindow returns the start of the eligible-transaction window
// for a run anchored at now.
func (c *Config) LookbackWindow(now time.Time) time.Time {
	return now.AddDate(0, 0, -c.LookbackDays)
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Lookback: %d days, MaxApart: %d days, Limit: %d, MinScore: %.2f, BucketWidth: %d cents, Patterns: %t}",
		c.LookbackDays, c.MaxDaysApart, c.Limit, c.MinScore, c.BucketWidthCents, c.UseLearnedPatterns)
}
