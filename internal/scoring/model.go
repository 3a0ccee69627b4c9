// Package scoring converts a transfer-pair feature set, plus at most
// one matching learned pattern, into a confidence score. The model is a
// fixed weighted sum: identical features and identical pattern state
// always yield identical scores. The only time dependence is the
// recency penalty for recently rejected patterns, which uses the
// caller-supplied now rather than the wall clock.
package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/internal/patterns"
)

// MaxRawScore is the empirical ceiling used to normalize raw scores
// into [0, 1].
const MaxRawScore = 100.0

// Weights holds the contribution of each feature to the raw score.
// Amount agreement carries the largest weight; a Different amount
// classification short-circuits to zero regardless of anything else.
type Weights struct {
	AmountExact       float64 `json:"amount_exact"`
	AmountFeeAdjusted float64 `json:"amount_fee_adjusted"`
	AmountClose       float64 `json:"amount_close"`

	SameDay          float64 `json:"same_day"`
	WeekFloor        float64 `json:"week_floor"`
	BeyondWeekPerDay float64 `json:"beyond_week_per_day"`

	PayeeSimilarity float64 `json:"payee_similarity"`
	MemoSimilarity  float64 `json:"memo_similarity"`
	TransferKeyword float64 `json:"transfer_keyword"`

	CompatibleAccounts float64 `json:"compatible_accounts"`
	OppositeSigns      float64 `json:"opposite_signs"`
	DebitFirst         float64 `json:"debit_first"`
	RoundNumber        float64 `json:"round_number"`

	PatternMatch    float64 `json:"pattern_match"`
	PatternUsagePer float64 `json:"pattern_usage_per"`
	PatternUsageCap float64 `json:"pattern_usage_cap"`
	PatternAutoPer  float64 `json:"pattern_auto_per"`
	PatternAutoCap  float64 `json:"pattern_auto_cap"`
	RecentRejection float64 `json:"recent_rejection"`
	RejectDominant  float64 `json:"reject_dominant"`
}

// DefaultWeights returns the default scoring weights
func DefaultWeights() Weights {
	return Weights{
		AmountExact:       45,
		AmountFeeAdjusted: 36,
		AmountClose:       20,

		SameDay:          25,
		WeekFloor:        8,
		BeyondWeekPerDay: 0.5,

		PayeeSimilarity: 10,
		MemoSimilarity:  5,
		TransferKeyword: 8,

		CompatibleAccounts: 6,
		OppositeSigns:      5,
		DebitFirst:         3,
		RoundNumber:        4,

		PatternMatch:    15,
		PatternUsagePer: 0.5,
		PatternUsageCap: 5,
		PatternAutoPer:  0.5,
		PatternAutoCap:  4,
		RecentRejection: 12,
		RejectDominant:  10,
	}
}

// Validate checks the weights for obviously broken values
func (w Weights) Validate() error {
	if w.AmountExact <= 0 {
		return fmt.Errorf("amount exact weight must be positive: %f", w.AmountExact)
	}
	if w.AmountExact < w.AmountFeeAdjusted || w.AmountFeeAdjusted < w.AmountClose {
		return fmt.Errorf("amount weights must be ordered exact >= fee-adjusted >= close")
	}
	if w.SameDay < w.WeekFloor {
		return fmt.Errorf("same-day weight must be at least the week floor")
	}
	if w.BeyondWeekPerDay < 0 || w.RecentRejection < 0 || w.RejectDominant < 0 {
		return fmt.Errorf("penalty magnitudes cannot be negative")
	}
	return nil
}

// Model scores transfer-pair candidates
type Model struct {
	weights Weights
}

// NewModel creates a scoring model; nil-safe defaulting mirrors the
// config handling elsewhere in the engine.
func NewModel(weights *Weights) (*Model, error) {
	w := DefaultWeights()
	if weights != nil {
		w = *weights
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	return &Model{weights: w}, nil
}

// Weights returns a copy of the model's weights
func (m *Model) Weights() Weights {
	return m.weights
}

// Score computes the raw score for a feature set, optionally informed
// by the learned pattern for the account pair. The result is in
// [0, +inf); use Normalize to map it into [0, 1]. A Different amount
// classification always scores zero.
func (m *Model) Score(fs features.FeatureSet, pattern *patterns.TransferPattern, now time.Time) float64 {
	if fs.AmountMatch == features.AmountDifferent {
		return 0
	}

	w := m.weights
	score := 0.0

	switch fs.AmountMatch {
	case features.AmountExact:
		score += w.AmountExact
	case features.AmountFeeAdjusted:
		score += w.AmountFeeAdjusted
	case features.AmountClose:
		score += w.AmountClose
	}

	score += m.temporalContribution(fs)

	score += fs.PayeeSimilarity * w.PayeeSimilarity
	score += fs.MemoSimilarity * w.MemoSimilarity
	if fs.TransferKeyword {
		score += w.TransferKeyword
	}

	if fs.CompatibleAccounts {
		score += w.CompatibleAccounts
	}
	if fs.OppositeSigns {
		score += w.OppositeSigns
	}
	if fs.DebitFirst {
		score += w.DebitFirst
	}
	if fs.RoundNumber {
		score += w.RoundNumber
	}

	if pattern != nil {
		score += m.patternContribution(fs, pattern, now)
	}

	// The feature floor: a pattern penalty never drives the total
	// below zero.
	return math.Max(0, score)
}

// Normalize maps a raw score into [0, 1]
func Normalize(raw float64) float64 {
	normalized := raw / MaxRawScore
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// temporalContribution favors same-day pairs, decays through one week,
// and applies a small linear penalty for each day beyond a week.
func (m *Model) temporalContribution(fs features.FeatureSet) float64 {
	w := m.weights

	if fs.SameDay {
		return w.SameDay
	}

	const weekHours = 7 * 24
	if fs.HoursBetween <= weekHours {
		decay := (w.SameDay - w.WeekFloor) * (fs.HoursBetween / weekHours)
		return w.SameDay - decay
	}

	daysBeyond := (fs.HoursBetween - weekHours) / 24
	return -w.BeyondWeekPerDay * daysBeyond
}

// patternContribution applies the learned-pattern bonus and penalties.
// Only patterns whose learned ranges and payee substrings are
// consistent with the features earn the bonus; penalties for recent or
// dominant rejection apply to the pair regardless of fit.
func (m *Model) patternContribution(fs features.FeatureSet, pattern *patterns.TransferPattern, now time.Time) float64 {
	w := m.weights
	contribution := 0.0

	if pattern.MatchesFeatures(fs) {
		contribution += w.PatternMatch * pattern.Confidence
		contribution += math.Min(float64(pattern.UsageCount)*w.PatternUsagePer, w.PatternUsageCap)
		contribution += math.Min(float64(pattern.AutoDetectedCount)*w.PatternAutoPer, w.PatternAutoCap)
	}

	if pattern.LastRejectedAt != nil {
		hoursSince := now.Sub(*pattern.LastRejectedAt).Hours()
		const windowHours = 7 * 24
		if hoursSince >= 0 && hoursSince < windowHours {
			contribution -= w.RecentRejection * (1 - hoursSince/windowHours)
		}
	}

	if pattern.RejectedCount > pattern.SuccessCount {
		contribution -= w.RejectDominant
	}

	return contribution
}
