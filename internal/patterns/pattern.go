// Package patterns implements the learned-pattern layer of the
// transfer-matching engine: per-account-pair statistics built up from
// user feedback, used by the scorer to bias future suggestions.
//
// Pattern updates are modeled as a pure state transition
// (Apply(old, event) -> new) so the feedback loop is unit-testable
// without a persistence layer; the Store implementations only persist
// the result.
package patterns

import (
	"fmt"
	"strings"
	"time"

	"github.com/iammattholland/transfermatch/internal/features"

	"github.com/shopspring/decimal"
)

const (
	// MaxPayeeSubstrings caps the learned payee substring list; the
	// oldest entry is dropped when the cap is exceeded.
	MaxPayeeSubstrings = 8

	// MinReliableSuccesses is the minimum confirmed-match count before
	// a pattern is considered reliable.
	MinReliableSuccesses = 3

	// MinReliableConfidence is the minimum confidence before a pattern
	// is considered reliable.
	MinReliableConfidence = 0.6
)

// TransferPattern holds the learned statistics for one unordered
// account pair. The engine exclusively owns pattern lifecycle; external
// callers submit feedback events and never edit fields directly.
type TransferPattern struct {
	PairKey string `json:"pair_key"`

	// Confidence is a smoothed success ratio in (0, 1)
	Confidence float64 `json:"confidence"`

	UsageCount        int `json:"usage_count"`
	AutoDetectedCount int `json:"auto_detected_count"`
	SuccessCount      int `json:"success_count"`
	RejectedCount     int `json:"rejected_count"`

	LastRejectedAt *time.Time `json:"last_rejected_at,omitempty"`

	// Learned ranges; only meaningful when RangesLearned is true
	RangesLearned bool            `json:"ranges_learned"`
	AmountMin     decimal.Decimal `json:"amount_min"`
	AmountMax     decimal.Decimal `json:"amount_max"`
	HoursMin      float64         `json:"hours_min"`
	HoursMax      float64         `json:"hours_max"`

	// PayeeSubstrings seen in confirmed matches, oldest first
	PayeeSubstrings []string `json:"payee_substrings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FeedbackEvent describes one confirm/reject decision reported by the
// host application for a candidate pair.
type FeedbackEvent struct {
	Confirmed    bool
	AutoDetected bool
	Amount       decimal.Decimal
	HoursBetween float64
	PayeeText    string
	At           time.Time
}

// EventFromFeatures builds a feedback event from the feature set of the
// pair being confirmed or rejected.
func EventFromFeatures(fs features.FeatureSet, confirmed, autoDetected bool, at time.Time) FeedbackEvent {
	return FeedbackEvent{
		Confirmed:    confirmed,
		AutoDetected: autoDetected,
		Amount:       fs.Amount,
		HoursBetween: fs.HoursBetween,
		PayeeText:    fs.PayeeText,
		At:           at,
	}
}

// Apply folds a feedback event into a pattern and returns the updated
// copy. A nil old pattern with a confirm event creates a new pattern; a
// nil old pattern with a reject event returns nil (there is nothing to
// penalize yet).
func Apply(old *TransferPattern, pairKey string, event FeedbackEvent) *TransferPattern {
	if old == nil {
		if !event.Confirmed {
			return nil
		}
		return newFromConfirm(pairKey, event)
	}

	updated := old.clone()
	updated.UpdatedAt = event.At

	if event.Confirmed {
		updated.SuccessCount++
		updated.UsageCount++
		if event.AutoDetected {
			updated.AutoDetectedCount++
		}
		updated.widenRanges(event)
		updated.addPayeeSubstring(event.PayeeText)
	} else {
		updated.RejectedCount++
		at := event.At
		updated.LastRejectedAt = &at

		// A pattern whose rejections dominate its confirmations is no
		// longer acting on good information: drop the learned ranges
		// and substrings but keep the counters for history.
		if updated.RejectedCount > 2*updated.SuccessCount {
			updated.resetLearned()
		}
	}

	updated.Confidence = smoothedConfidence(updated.SuccessCount, updated.RejectedCount)
	return updated
}

func newFromConfirm(pairKey string, event FeedbackEvent) *TransferPattern {
	p := &TransferPattern{
		PairKey:       pairKey,
		SuccessCount:  1,
		UsageCount:    1,
		RangesLearned: true,
		AmountMin:     event.Amount,
		AmountMax:     event.Amount,
		HoursMin:      event.HoursBetween,
		HoursMax:      event.HoursBetween,
		CreatedAt:     event.At,
		UpdatedAt:     event.At,
	}
	if event.AutoDetected {
		p.AutoDetectedCount = 1
	}
	p.addPayeeSubstring(event.PayeeText)
	p.Confidence = smoothedConfidence(p.SuccessCount, p.RejectedCount)
	return p
}

// smoothedConfidence is a Laplace-smoothed success ratio: one synthetic
// success and one synthetic failure keep a single observation from
// claiming certainty in either direction.
func smoothedConfidence(successes, rejections int) float64 {
	return float64(successes+1) / float64(successes+rejections+2)
}

func (p *TransferPattern) widenRanges(event FeedbackEvent) {
	if !p.RangesLearned {
		p.RangesLearned = true
		p.AmountMin = event.Amount
		p.AmountMax = event.Amount
		p.HoursMin = event.HoursBetween
		p.HoursMax = event.HoursBetween
		return
	}

	if event.Amount.LessThan(p.AmountMin) {
		p.AmountMin = event.Amount
	}
	if event.Amount.GreaterThan(p.AmountMax) {
		p.AmountMax = event.Amount
	}
	if event.HoursBetween < p.HoursMin {
		p.HoursMin = event.HoursBetween
	}
	if event.HoursBetween > p.HoursMax {
		p.HoursMax = event.HoursBetween
	}
}

func (p *TransferPattern) addPayeeSubstring(payee string) {
	if payee == "" {
		return
	}
	for _, existing := range p.PayeeSubstrings {
		if existing == payee {
			return
		}
	}
	p.PayeeSubstrings = append(p.PayeeSubstrings, payee)
	if len(p.PayeeSubstrings) > MaxPayeeSubstrings {
		p.PayeeSubstrings = p.PayeeSubstrings[len(p.PayeeSubstrings)-MaxPayeeSubstrings:]
	}
}

func (p *TransferPattern) resetLearned() {
	p.RangesLearned = false
	p.AmountMin = decimal.Zero
	p.AmountMax = decimal.Zero
	p.HoursMin = 0
	p.HoursMax = 0
	p.PayeeSubstrings = nil
}

func (p *TransferPattern) clone() *TransferPattern {
	c := *p
	if p.LastRejectedAt != nil {
		at := *p.LastRejectedAt
		c.LastRejectedAt = &at
	}
	c.PayeeSubstrings = append([]string(nil), p.PayeeSubstrings...)
	return &c
}

// IsReliable reports whether the pattern has accumulated enough
// confirmed history to be trusted beyond an advisory hint.
func (p *TransferPattern) IsReliable() bool {
	return p.SuccessCount >= MinReliableSuccesses && p.Confidence >= MinReliableConfidence
}

// MatchesFeatures reports whether a candidate pair's features are
// consistent with this pattern's learned ranges and payee substrings.
// Patterns with reset ranges match nothing.
func (p *TransferPattern) MatchesFeatures(fs features.FeatureSet) bool {
	if !p.RangesLearned {
		return false
	}

	// Ranges widen with a small margin so a $500.00 pattern still
	// matches a $500.25 observation.
	margin := p.AmountMax.Sub(p.AmountMin).Abs().Mul(decimal.NewFromFloat(0.1)).Add(decimal.NewFromInt(1))
	if fs.Amount.LessThan(p.AmountMin.Sub(margin)) || fs.Amount.GreaterThan(p.AmountMax.Add(margin)) {
		return false
	}

	const hoursMargin = 24.0
	if fs.HoursBetween < p.HoursMin-hoursMargin || fs.HoursBetween > p.HoursMax+hoursMargin {
		return false
	}

	if len(p.PayeeSubstrings) == 0 {
		return true
	}
	for _, substring := range p.PayeeSubstrings {
		if substring != "" && strings.Contains(fs.PayeeText, substring) {
			return true
		}
	}
	return false
}

// ShouldCleanup reports whether a maintenance sweep at the given time
// should delete this pattern: idle beyond maxIdle and still unreliable,
// or overwhelmingly rejected.
func (p *TransferPattern) ShouldCleanup(now time.Time, maxIdle time.Duration) bool {
	if p.RejectedCount >= 3*p.SuccessCount && p.RejectedCount >= 3 {
		return true
	}

	idle := now.Sub(p.UpdatedAt)
	return idle > maxIdle && !p.IsReliable()
}

// Validate performs basic validation on the pattern
func (p *TransferPattern) Validate() error {
	if p.PairKey == "" {
		return fmt.Errorf("pattern pair key cannot be empty")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("pattern confidence must be between 0 and 1: %f", p.Confidence)
	}
	if p.SuccessCount < 0 || p.RejectedCount < 0 || p.UsageCount < 0 || p.AutoDetectedCount < 0 {
		return fmt.Errorf("pattern counters cannot be negative")
	}
	if p.RangesLearned && p.AmountMin.GreaterThan(p.AmountMax) {
		return fmt.Errorf("pattern amount range is inverted")
	}
	if p.RangesLearned && p.HoursMin > p.HoursMax {
		return fmt.Errorf("pattern hours range is inverted")
	}
	if len(p.PayeeSubstrings) > MaxPayeeSubstrings {
		return fmt.Errorf("pattern payee substrings exceed cap of %d", MaxPayeeSubstrings)
	}
	return nil
}

// String returns a short representation of the pattern
func (p *TransferPattern) String() string {
	return fmt.Sprintf("TransferPattern{Pair: %s, Confidence: %.2f, Successes: %d, Rejections: %d}",
		p.PairKey, p.Confidence, p.SuccessCount, p.RejectedCount)
}
