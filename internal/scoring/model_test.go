package scoring

import (
	"testing"
	"time"

	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/internal/models"
	"github.com/iammattholland/transfermatch/internal/patterns"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	model, err := NewModel(nil)
	require.NoError(t, err)
	return model
}

func exactSameDayFeatures() features.FeatureSet {
	return features.FeatureSet{
		Amount:             decimal.NewFromInt(500),
		AmountMatch:        features.AmountExact,
		HoursBetween:       2,
		SameDay:            true,
		SameWeek:           true,
		SameMonth:          true,
		RoundNumber:        true,
		PayeeSimilarity:    0.2,
		MemoSimilarity:     1.0,
		TransferKeyword:    true,
		PayeeText:          "transfer to savings transfer from checking",
		PairKey:            "checking|savings",
		CompatibleAccounts: true,
		OppositeSigns:      true,
		DebitFirst:         true,
	}
}

func TestDifferentAmountScoresZero(t *testing.T) {
	model := newTestModel(t)

	fs := exactSameDayFeatures()
	fs.AmountMatch = features.AmountDifferent

	// Every other feature is maximally favorable; the amount gate
	// still wins.
	assert.Equal(t, 0.0, model.Score(fs, nil, now))

	pattern := patterns.Apply(nil, fs.PairKey, patterns.FeedbackEvent{
		Confirmed: true, Amount: fs.Amount, HoursBetween: fs.HoursBetween, PayeeText: fs.PayeeText, At: now,
	})
	assert.Equal(t, 0.0, model.Score(fs, pattern, now))
}

func TestExactSameDayScoresHigh(t *testing.T) {
	model := newTestModel(t)

	raw := model.Score(exactSameDayFeatures(), nil, now)
	assert.Greater(t, Normalize(raw), 0.8, "an exact same-day transfer pair must score above 0.8")
}

func TestAmountKindOrdering(t *testing.T) {
	model := newTestModel(t)
	fs := exactSameDayFeatures()

	exact := model.Score(fs, nil, now)

	fs.AmountMatch = features.AmountFeeAdjusted
	feeAdjusted := model.Score(fs, nil, now)

	fs.AmountMatch = features.AmountClose
	close := model.Score(fs, nil, now)

	assert.Greater(t, exact, feeAdjusted)
	assert.Greater(t, feeAdjusted, close)
	assert.Greater(t, close, 0.0)
}

func TestTemporalDecay(t *testing.T) {
	model := newTestModel(t)

	fs := exactSameDayFeatures()
	sameDay := model.Score(fs, nil, now)

	fs.SameDay = false
	fs.HoursBetween = 3 * 24
	threeDays := model.Score(fs, nil, now)

	fs.HoursBetween = 6 * 24
	sixDays := model.Score(fs, nil, now)

	fs.HoursBetween = 12 * 24
	fs.SameWeek = false
	twelveDays := model.Score(fs, nil, now)

	assert.Greater(t, sameDay, threeDays)
	assert.Greater(t, threeDays, sixDays)
	assert.Greater(t, sixDays, twelveDays, "beyond a week the temporal term turns into a penalty")
}

func TestScoreNeverNegative(t *testing.T) {
	model := newTestModel(t)

	// Minimal features plus a heavily rejected pattern
	fs := features.FeatureSet{
		Amount:       decimal.NewFromInt(7),
		AmountMatch:  features.AmountClose,
		HoursBetween: 20 * 24,
	}

	pattern := patterns.Apply(nil, "a|b", patterns.FeedbackEvent{Confirmed: true, Amount: fs.Amount, At: now.AddDate(0, -1, 0)})
	for i := 0; i < 3; i++ {
		pattern = patterns.Apply(pattern, "a|b", patterns.FeedbackEvent{Confirmed: false, At: now.Add(-time.Hour)})
	}

	raw := model.Score(fs, pattern, now)
	assert.GreaterOrEqual(t, raw, 0.0)
	assert.GreaterOrEqual(t, Normalize(raw), 0.0)
}

func TestLearnedPatternBoostsScore(t *testing.T) {
	model := newTestModel(t)

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	outflow := &models.Transaction{
		ID: "tx1", AccountID: "checking", AccountType: models.AccountChequing,
		Amount: decimal.NewFromFloat(-350.00), Date: day,
		Payee: "Credit Card Payment", Kind: models.KindStandard,
	}
	inflow := &models.Transaction{
		ID: "tx2", AccountID: "visa", AccountType: models.AccountCreditCard,
		Amount: decimal.NewFromFloat(350.00), Date: day.AddDate(0, 0, 1),
		Payee: "Credit Card Payment", Kind: models.KindStandard,
	}
	fs := features.Extract(outflow, inflow)

	// Three confirmed transfers between the pair
	var pattern *patterns.TransferPattern
	for i := 0; i < 3; i++ {
		pattern = patterns.Apply(pattern, fs.PairKey, patterns.EventFromFeatures(fs, true, false, day.AddDate(0, 0, i*30)))
	}

	bare := model.Score(fs, nil, now)
	learned := model.Score(fs, pattern, now)
	assert.Greater(t, learned, bare, "a matching learned pattern must strictly raise the score")
}

func TestRepeatedRejectionSuppressesPattern(t *testing.T) {
	model := newTestModel(t)

	fs := exactSameDayFeatures()
	pattern := patterns.Apply(nil, fs.PairKey, patterns.EventFromFeatures(fs, true, false, now.AddDate(0, -2, 0)))

	withPattern := model.Score(fs, pattern, now)
	bare := model.Score(fs, nil, now)
	require.Greater(t, withPattern, bare)

	// Rejections pile up until the pattern drags the pair down instead
	for i := 0; i < 4; i++ {
		pattern = patterns.Apply(pattern, fs.PairKey, patterns.FeedbackEvent{Confirmed: false, At: now.Add(-time.Duration(4-i) * time.Hour)})
	}

	suppressed := model.Score(fs, pattern, now)
	assert.Less(t, suppressed, bare, "a reject-dominant, recently rejected pattern must penalize the pair")
}

func TestRecentRejectionPenaltyDecays(t *testing.T) {
	model := newTestModel(t)
	fs := exactSameDayFeatures()

	base := patterns.Apply(nil, fs.PairKey, patterns.EventFromFeatures(fs, true, false, now.AddDate(0, -1, 0)))

	fresh := patterns.Apply(base, fs.PairKey, patterns.FeedbackEvent{Confirmed: false, At: now.Add(-time.Hour)})
	stale := patterns.Apply(base, fs.PairKey, patterns.FeedbackEvent{Confirmed: false, At: now.AddDate(0, 0, -6)})
	expired := patterns.Apply(base, fs.PairKey, patterns.FeedbackEvent{Confirmed: false, At: now.AddDate(0, 0, -10)})

	freshScore := model.Score(fs, fresh, now)
	staleScore := model.Score(fs, stale, now)
	expiredScore := model.Score(fs, expired, now)

	assert.Less(t, freshScore, staleScore, "penalty decays as the rejection ages")
	assert.Less(t, staleScore, expiredScore, "no recency penalty after seven days")
}

func TestScoreDeterministic(t *testing.T) {
	model := newTestModel(t)
	fs := exactSameDayFeatures()
	pattern := patterns.Apply(nil, fs.PairKey, patterns.EventFromFeatures(fs, true, true, now.AddDate(0, 0, -3)))

	first := model.Score(fs, pattern, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, model.Score(fs, pattern, now))
	}
}

func TestWeightsValidate(t *testing.T) {
	valid := DefaultWeights()
	require.NoError(t, valid.Validate())

	inverted := DefaultWeights()
	inverted.AmountClose = inverted.AmountExact + 1
	assert.Error(t, inverted.Validate())

	negative := DefaultWeights()
	negative.RecentRejection = -1
	assert.Error(t, negative.Validate())

	zero := Weights{}
	assert.Error(t, zero.Validate())
}

func TestNewModelRejectsInvalidWeights(t *testing.T) {
	bad := DefaultWeights()
	bad.AmountExact = -5

	_, err := NewModel(&bad)
	assert.Error(t, err)

	model, err := NewModel(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), model.Weights())
}

func TestNormalizeClamps(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(-10))
	assert.Equal(t, 1.0, Normalize(250))
	assert.InDelta(t, 0.5, Normalize(50), 0.0001)
}
