// Package features implements the feature extractor for transfer-pair
// candidates. Extraction is a pure function of the two transactions:
// no I/O, no clock reads, deterministic for fixed inputs.
package features

import (
	"strings"
	"time"

	"github.com/iammattholland/transfermatch/internal/models"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// AmountMatchKind classifies how closely the absolute amounts of a
// candidate pair agree. Different disqualifies the pair outright.
type AmountMatchKind int

const (
	// AmountExact means equal absolute amounts
	AmountExact AmountMatchKind = iota
	// AmountFeeAdjusted means the difference is within a small absolute
	// tolerance, as when one side carries a wire or e-transfer fee
	AmountFeeAdjusted
	// AmountClose means the relative difference is under 5%
	AmountClose
	// AmountDifferent means the amounts do not plausibly represent the
	// same movement of money; scoring short-circuits to zero
	AmountDifferent
)

// String returns the string representation of AmountMatchKind
func (k AmountMatchKind) String() string {
	switch k {
	case AmountExact:
		return "Exact"
	case AmountFeeAdjusted:
		return "FeeAdjusted"
	case AmountClose:
		return "Close"
	case AmountDifferent:
		return "Different"
	default:
		return "Unknown"
	}
}

var (
	// FeeTolerance is the absolute amount difference still treated as a
	// fee-adjusted match ($10.00).
	FeeTolerance = decimal.NewFromInt(10)

	// CloseRelativeTolerance is the relative difference under which two
	// amounts are still considered close (5%).
	CloseRelativeTolerance = decimal.NewFromFloat(0.05)
)

// transferKeywords are payee/memo substrings that strongly suggest a
// transfer rather than ordinary spending.
var transferKeywords = []string{
	"transfer",
	"xfer",
	"atm",
	"withdrawal",
	"deposit",
	"payment",
	"move",
}

// FeatureSet is the fixed bundle of derived signals computed for a
// candidate outflow/inflow pair. It is transient and owned by the call
// that produced it.
type FeatureSet struct {
	// Temporal
	HoursBetween float64
	SameDay      bool
	SameWeek     bool
	SameMonth    bool

	// Amount
	Amount           decimal.Decimal
	AmountMatch      AmountMatchKind
	AmountDifference decimal.Decimal
	RoundNumber      bool

	// Text
	PayeeText       string
	PayeeDistance   int
	PayeeSimilarity float64
	MemoSimilarity  float64
	TransferKeyword bool

	// Accounts and signs
	PairKey            string
	CompatibleAccounts bool
	OppositeSigns      bool
	DebitFirst         bool
}

// Extract computes the feature set for a candidate pair. By caller
// convention outflow is the candidate negative-amount side and inflow
// the candidate positive-amount side; symmetric features do not depend
// on that ordering, DebitFirst does.
func Extract(outflow, inflow *models.Transaction) FeatureSet {
	fs := FeatureSet{
		PairKey:       models.AccountPairKey(outflow.AccountID, inflow.AccountID),
		OppositeSigns: outflow.Amount.Sign() != inflow.Amount.Sign() && !outflow.Amount.IsZero() && !inflow.Amount.IsZero(),
		DebitFirst:    !outflow.Date.After(inflow.Date),
	}

	fs.HoursBetween = hoursBetween(outflow.Date, inflow.Date)
	fs.SameDay = sameCalendarDay(outflow.Date, inflow.Date)
	fs.SameWeek = fs.HoursBetween <= 7*24
	fs.SameMonth = outflow.Date.Year() == inflow.Date.Year() && outflow.Date.Month() == inflow.Date.Month()

	fs.Amount = outflow.AbsAmount()
	fs.AmountMatch, fs.AmountDifference = ClassifyAmounts(outflow.AbsAmount(), inflow.AbsAmount())
	fs.RoundNumber = IsRoundNumber(outflow.AbsAmount())

	payee1 := normalizeText(outflow.Payee)
	payee2 := normalizeText(inflow.Payee)
	fs.PayeeText = strings.TrimSpace(payee1 + " " + payee2)
	fs.PayeeDistance = levenshtein.DistanceForStrings([]rune(payee1), []rune(payee2), levenshtein.DefaultOptions)
	fs.PayeeSimilarity = jaccardSimilarity(payee1, payee2)
	fs.MemoSimilarity = jaccardSimilarity(normalizeText(outflow.Memo), normalizeText(inflow.Memo))
	fs.TransferKeyword = containsTransferKeyword(payee1) || containsTransferKeyword(payee2) ||
		containsTransferKeyword(normalizeText(outflow.Memo)) || containsTransferKeyword(normalizeText(inflow.Memo))

	fs.CompatibleAccounts = CompatibleAccountTypes(outflow.AccountType, inflow.AccountType)

	return fs
}

// ClassifyAmounts classifies two absolute amounts into an amount-match
// kind and returns their absolute difference.
func ClassifyAmounts(amount1, amount2 decimal.Decimal) (AmountMatchKind, decimal.Decimal) {
	diff := amount1.Sub(amount2).Abs()

	if diff.IsZero() {
		return AmountExact, diff
	}

	if diff.LessThanOrEqual(FeeTolerance) {
		return AmountFeeAdjusted, diff
	}

	larger := decimal.Max(amount1, amount2)
	if larger.IsPositive() && diff.Div(larger).LessThan(CloseRelativeTolerance) {
		return AmountClose, diff
	}

	return AmountDifferent, diff
}

// IsRoundNumber reports whether an amount is a whole-dollar value
// divisible by 10, 25, 50 or 100. People tend to transfer round sums.
func IsRoundNumber(amount decimal.Decimal) bool {
	abs := amount.Abs()
	if !abs.Equal(abs.Truncate(0)) {
		return false
	}

	dollars := abs.IntPart()
	if dollars == 0 {
		return false
	}

	return dollars%10 == 0 || dollars%25 == 0
}

// CompatibleAccountTypes reports whether two account types form a pair
// that commonly transfers between each other.
func CompatibleAccountTypes(a, b models.AccountType) bool {
	key := accountTypePairKey(a, b)
	return compatiblePairs[key]
}

var compatiblePairs = buildCompatiblePairs()

func buildCompatiblePairs() map[string]bool {
	pairs := [][2]models.AccountType{
		{models.AccountChequing, models.AccountChequing},
		{models.AccountChequing, models.AccountSavings},
		{models.AccountChequing, models.AccountCreditCard},
		{models.AccountChequing, models.AccountInvestment},
		{models.AccountChequing, models.AccountLoan},
		{models.AccountChequing, models.AccountCash},
		{models.AccountSavings, models.AccountSavings},
		{models.AccountSavings, models.AccountInvestment},
		{models.AccountSavings, models.AccountCreditCard},
	}

	set := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		set[accountTypePairKey(p[0], p[1])] = true
	}
	return set
}

func accountTypePairKey(a, b models.AccountType) string {
	first, second := string(a), string(b)
	if first > second {
		first, second = second, first
	}
	return first + "|" + second
}

func hoursBetween(t1, t2 time.Time) float64 {
	diff := t1.Sub(t2)
	if diff < 0 {
		diff = -diff
	}
	return diff.Hours()
}

func sameCalendarDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// jaccardSimilarity computes token-set Jaccard similarity of two
// pre-normalized strings. Two empty strings are treated as "no
// evidence" and score 1.0; exactly one empty string scores 0.0.
func jaccardSimilarity(s1, s2 string) float64 {
	tokens1 := tokenSet(s1)
	tokens2 := tokenSet(s2)

	if len(tokens1) == 0 && len(tokens2) == 0 {
		return 1.0
	}
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokens1 {
		if tokens2[token] {
			intersection++
		}
	}

	union := len(tokens1) + len(tokens2) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}

func containsTransferKeyword(s string) bool {
	for _, keyword := range transferKeywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
