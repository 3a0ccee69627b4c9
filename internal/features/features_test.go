package features

import (
	"testing"
	"time"

	"github.com/iammattholland/transfermatch/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func makeTx(id, account string, accountType models.AccountType, amount float64, date time.Time, payee, memo string) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		AccountID:   account,
		AccountType: accountType,
		Amount:      decimal.NewFromFloat(amount),
		Date:        date,
		Payee:       payee,
		Memo:        memo,
		Kind:        models.KindStandard,
	}
}

func TestClassifyAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amount1 float64
		amount2 float64
		want    AmountMatchKind
	}{
		{"exact", 500.00, 500.00, AmountExact},
		{"fee adjusted small", 500.00, 498.50, AmountFeeAdjusted},
		{"fee adjusted boundary", 500.00, 490.00, AmountFeeAdjusted},
		{"close within 5 percent", 500.00, 485.00, AmountClose},
		{"different", 500.00, 300.00, AmountDifferent},
		{"different just past 5 percent", 1000.00, 940.00, AmountDifferent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, diff := ClassifyAmounts(decimal.NewFromFloat(tt.amount1), decimal.NewFromFloat(tt.amount2))
			assert.Equal(t, tt.want, kind, "classification for %v vs %v", tt.amount1, tt.amount2)
			assert.True(t, diff.GreaterThanOrEqual(decimal.Zero))
		})
	}
}

func TestIsRoundNumber(t *testing.T) {
	tests := []struct {
		amount float64
		want   bool
	}{
		{500.00, true},
		{25.00, true},
		{75.00, true},
		{130.00, true},
		{123.00, false},
		{500.50, false},
		{0.00, false},
	}

	for _, tt := range tests {
		got := IsRoundNumber(decimal.NewFromFloat(tt.amount))
		assert.Equal(t, tt.want, got, "IsRoundNumber(%v)", tt.amount)
	}
}

func TestExtractSameDayExactPair(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	outflow := makeTx("tx1", "chequing", models.AccountChequing, -500.00, day, "Transfer to Savings", "")
	inflow := makeTx("tx2", "savings", models.AccountSavings, 500.00, day.Add(2*time.Hour), "Transfer from Chequing", "")

	fs := Extract(outflow, inflow)

	assert.Equal(t, AmountExact, fs.AmountMatch)
	assert.True(t, fs.SameDay)
	assert.True(t, fs.SameWeek)
	assert.True(t, fs.SameMonth)
	assert.True(t, fs.OppositeSigns)
	assert.True(t, fs.DebitFirst)
	assert.True(t, fs.TransferKeyword)
	assert.True(t, fs.CompatibleAccounts)
	assert.True(t, fs.RoundNumber)
	assert.InDelta(t, 2.0, fs.HoursBetween, 0.001)
	assert.Equal(t, models.AccountPairKey("chequing", "savings"), fs.PairKey)
}

func TestExtractSymmetricFeatures(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	outflow := makeTx("tx1", "chequing", models.AccountChequing, -120.00, day, "e-Transfer out", "rent share")
	inflow := makeTx("tx2", "savings", models.AccountSavings, 120.00, day.AddDate(0, 0, 1), "e-Transfer in", "rent share")

	forward := Extract(outflow, inflow)
	reversed := Extract(inflow, outflow)

	assert.Equal(t, forward.PairKey, reversed.PairKey)
	assert.Equal(t, forward.PayeeSimilarity, reversed.PayeeSimilarity)
	assert.Equal(t, forward.MemoSimilarity, reversed.MemoSimilarity)
	assert.Equal(t, forward.AmountMatch, reversed.AmountMatch)
	assert.Equal(t, forward.HoursBetween, reversed.HoursBetween)

	// Ordering-sensitive: outflow dated before inflow
	assert.True(t, forward.DebitFirst)
	assert.False(t, reversed.DebitFirst)
}

func TestMemoSimilarityEdgeCases(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	bothEmpty := Extract(
		makeTx("tx1", "a", models.AccountChequing, -50, day, "payee", ""),
		makeTx("tx2", "b", models.AccountSavings, 50, day, "payee", ""),
	)
	assert.Equal(t, 1.0, bothEmpty.MemoSimilarity, "two empty memos are no evidence, not a mismatch")

	oneEmpty := Extract(
		makeTx("tx1", "a", models.AccountChequing, -50, day, "payee", "note"),
		makeTx("tx2", "b", models.AccountSavings, 50, day, "payee", ""),
	)
	assert.Equal(t, 0.0, oneEmpty.MemoSimilarity)
}

func TestPayeeComparisonCaseInsensitive(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	fs := Extract(
		makeTx("tx1", "a", models.AccountChequing, -50, day, "  ONLINE TRANSFER  ", ""),
		makeTx("tx2", "b", models.AccountSavings, 50, day, "online transfer", ""),
	)

	assert.Equal(t, 0, fs.PayeeDistance)
	assert.Equal(t, 1.0, fs.PayeeSimilarity)
}

func TestCompatibleAccountTypes(t *testing.T) {
	assert.True(t, CompatibleAccountTypes(models.AccountChequing, models.AccountSavings))
	assert.True(t, CompatibleAccountTypes(models.AccountSavings, models.AccountChequing))
	assert.True(t, CompatibleAccountTypes(models.AccountChequing, models.AccountCreditCard))
	assert.False(t, CompatibleAccountTypes(models.AccountLoan, models.AccountCash))
	assert.False(t, CompatibleAccountTypes(models.AccountUnknown, models.AccountUnknown))
}

func TestExtractDeterministic(t *testing.T) {
	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	outflow := makeTx("tx1", "chequing", models.AccountChequing, -500.00, day, "Transfer", "monthly")
	inflow := makeTx("tx2", "savings", models.AccountSavings, 500.00, day.AddDate(0, 0, 2), "Transfer", "monthly")

	first := Extract(outflow, inflow)
	second := Extract(outflow, inflow)
	assert.Equal(t, first, second)
}
