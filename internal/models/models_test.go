package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validTransaction() *Transaction {
	return &Transaction{
		ID:          "TX001",
		AccountID:   "acct-chequing",
		AccountType: AccountChequing,
		Amount:      decimal.NewFromFloat(-500.00),
		Date:        time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Payee:       "Transfer to Savings",
		Kind:        KindStandard,
	}
}

func TestTransactionValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Transaction)
		wantErr bool
	}{
		{"valid", func(tx *Transaction) {}, false},
		{"empty id", func(tx *Transaction) { tx.ID = " " }, true},
		{"empty account", func(tx *Transaction) { tx.AccountID = "" }, true},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, true},
		{"zero date", func(tx *Transaction) { tx.Date = time.Time{} }, true},
		{"bad kind", func(tx *Transaction) { tx.Kind = "WEIRD" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(tx)
			err := tx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEligibleForMatching(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   bool
	}{
		{"standard unlinked", func(tx *Transaction) {}, true},
		{"already a transfer", func(tx *Transaction) { tx.Kind = KindTransfer }, false},
		{"dismissed", func(tx *Transaction) { tx.Dismissed = true }, false},
		{"already linked", func(tx *Transaction) { tx.TransferLinkID = "link-1" }, false},
		{"no account", func(tx *Transaction) { tx.AccountID = "  " }, false},
		{"zero amount", func(tx *Transaction) { tx.Amount = decimal.Zero }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validTransaction()
			tt.mutate(tx)
			if got := tx.EligibleForMatching(); got != tt.want {
				t.Errorf("EligibleForMatching() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlowDirection(t *testing.T) {
	tx := validTransaction()
	if !tx.IsOutflow() || tx.IsInflow() {
		t.Error("negative amount should be an outflow")
	}

	tx.Amount = decimal.NewFromFloat(500.00)
	if !tx.IsInflow() || tx.IsOutflow() {
		t.Error("positive amount should be an inflow")
	}
}

func TestAmountCents(t *testing.T) {
	tx := validTransaction()
	if got := tx.AmountCents(); got != 50000 {
		t.Errorf("AmountCents() = %d, want 50000", got)
	}

	tx.Amount = decimal.NewFromFloat(12.34)
	if got := tx.AmountCents(); got != 1234 {
		t.Errorf("AmountCents() = %d, want 1234", got)
	}
}

func TestAccountPairKeyUnordered(t *testing.T) {
	if AccountPairKey("chequing", "savings") != AccountPairKey("savings", "chequing") {
		t.Error("account pair key must not depend on argument order")
	}
	if AccountPairKey("a", "b") != "a|b" {
		t.Errorf("unexpected key: %s", AccountPairKey("a", "b"))
	}
}

func TestTransactionPairKeyUnordered(t *testing.T) {
	if TransactionPairKey("tx9", "tx1") != "tx1|tx9" {
		t.Errorf("unexpected key: %s", TransactionPairKey("tx9", "tx1"))
	}
	if TransactionPairKey("tx1", "tx9") != TransactionPairKey("tx9", "tx1") {
		t.Error("transaction pair key must not depend on argument order")
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"12.34", "12.34", false},
		{"$1,234.56", "1234.56", false},
		{"-500.00", "-500", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		d, err := ParseDecimalFromString(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimalFromString(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && d.String() != tt.want {
			t.Errorf("ParseDecimalFromString(%q) = %s, want %s", tt.input, d.String(), tt.want)
		}
	}
}

func TestParseAccountType(t *testing.T) {
	tests := []struct {
		input string
		want  AccountType
	}{
		{"checking", AccountChequing},
		{"Chequing", AccountChequing},
		{"SAVINGS", AccountSavings},
		{"visa", AccountCreditCard},
		{"brokerage", AccountInvestment},
		{"mystery", AccountUnknown},
	}

	for _, tt := range tests {
		if got := ParseAccountType(tt.input); got != tt.want {
			t.Errorf("ParseAccountType(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestCreateTransactionFromCSV(t *testing.T) {
	tx, err := CreateTransactionFromCSV(
		"TX100", "acct-1", "chequing", "$-1,250.00", "2024-03-15",
		"Online Transfer", "to savings", "standard", "", "false",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.ID != "TX100" {
		t.Errorf("expected ID TX100, got %s", tx.ID)
	}
	if !tx.Amount.Equal(decimal.NewFromFloat(-1250.00)) {
		t.Errorf("expected amount -1250.00, got %s", tx.Amount)
	}
	if tx.AccountType != AccountChequing {
		t.Errorf("expected chequing account type, got %s", tx.AccountType)
	}
	if !tx.EligibleForMatching() {
		t.Error("expected parsed transaction to be eligible")
	}

	if _, err := CreateTransactionFromCSV("TX101", "acct-1", "chequing", "zero", "2024-03-15", "p", "", "standard", "", ""); err == nil {
		t.Error("expected error for invalid amount")
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	tx := validTransaction()
	data, err := tx.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Transaction
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !decoded.Amount.Equal(tx.Amount) {
		t.Errorf("amount mismatch: %s vs %s", decoded.Amount, tx.Amount)
	}
	if !decoded.Date.Equal(tx.Date) {
		t.Errorf("date mismatch: %s vs %s", decoded.Date, tx.Date)
	}
}
