// Package models defines the ledger-facing data types consumed by the
// transfer-matching engine. Transactions are read-only to the engine:
// it proposes candidate transfer pairs but never mutates the ledger.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes ordinary ledger entries from entries that
// have already been materialized as one side of a transfer.
type TransactionKind string

const (
	// KindStandard is a regular imported or manually entered transaction
	KindStandard TransactionKind = "STANDARD"
	// KindTransfer marks a transaction already recorded as a transfer leg
	KindTransfer TransactionKind = "TRANSFER"
)

// String returns the string representation of TransactionKind
func (k TransactionKind) String() string {
	return string(k)
}

// IsValid checks if the transaction kind is valid
func (k TransactionKind) IsValid() bool {
	return k == KindStandard || k == KindTransfer
}

// AccountType classifies the kind of account a transaction belongs to.
// The matcher uses it to reward account pairs that commonly transfer
// between each other (chequing to savings, chequing to credit card).
type AccountType string

const (
	AccountChequing   AccountType = "CHEQUING"
	AccountSavings    AccountType = "SAVINGS"
	AccountCreditCard AccountType = "CREDIT_CARD"
	AccountInvestment AccountType = "INVESTMENT"
	AccountLoan       AccountType = "LOAN"
	AccountCash       AccountType = "CASH"
	AccountUnknown    AccountType = "UNKNOWN"
)

// String returns the string representation of AccountType
func (a AccountType) String() string {
	return string(a)
}

// Transaction represents a single ledger entry. The engine only ever
// reads these records; confirming a transfer link is an external
// operation owned by the host application.
type Transaction struct {
	ID             string          `json:"id" csv:"id"`
	AccountID      string          `json:"accountID" csv:"account_id"`
	AccountType    AccountType     `json:"accountType" csv:"account_type"`
	Amount         decimal.Decimal `json:"amount" csv:"amount"`
	Date           time.Time       `json:"date" csv:"date"`
	Payee          string          `json:"payee" csv:"payee"`
	Memo           string          `json:"memo,omitempty" csv:"memo"`
	Kind           TransactionKind `json:"kind" csv:"kind"`
	TransferLinkID string          `json:"transferLinkID,omitempty" csv:"transfer_link_id"`
	Dismissed      bool            `json:"dismissed" csv:"dismissed"`
}

// NewTransaction creates a new Transaction instance
func NewTransaction(id, accountID string, amount decimal.Decimal, date time.Time, payee string) *Transaction {
	return &Transaction{
		ID:        id,
		AccountID: accountID,
		Amount:    amount,
		Date:      date,
		Payee:     payee,
		Kind:      KindStandard,
	}
}

// Validate performs basic validation on the Transaction
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("transaction account cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if !t.Kind.IsValid() {
		return fmt.Errorf("invalid transaction kind: %s", t.Kind)
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	return nil
}

// EligibleForMatching reports whether this transaction may participate in
// transfer-pair candidate generation: standard kind, not dismissed, not
// already linked, account present, non-zero amount.
func (t *Transaction) EligibleForMatching() bool {
	return t.Kind == KindStandard &&
		!t.Dismissed &&
		t.TransferLinkID == "" &&
		strings.TrimSpace(t.AccountID) != "" &&
		!t.Amount.IsZero()
}

// IsOutflow returns true if the transaction moves money out of its account
func (t *Transaction) IsOutflow() bool {
	return t.Amount.IsNegative()
}

// IsInflow returns true if the transaction moves money into its account
func (t *Transaction) IsInflow() bool {
	return t.Amount.IsPositive()
}

// AbsAmount returns the absolute value of the transaction amount
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// AmountCents returns the absolute amount in integer cents, used for
// bucket keys during candidate generation.
func (t *Transaction) AmountCents() int64 {
	return t.Amount.Abs().Mul(decimal.NewFromInt(100)).IntPart()
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Account: %s, Amount: %s, Date: %s, Payee: %s}",
		t.ID, t.AccountID, t.Amount.String(), t.Date.Format("2006-01-02"), t.Payee)
}

// MarshalJSON implements custom JSON marshaling for Transaction
func (t *Transaction) MarshalJSON() ([]byte, error) {
	type Alias Transaction
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: t.Amount.String(),
		Date:   t.Date.Format(time.RFC3339),
		Alias:  (*Alias)(t),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Transaction
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type Alias Transaction
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	t.Date, err = time.Parse(time.RFC3339, aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// AccountPairKey builds the unordered key identifying an account pair.
// The key is identical regardless of argument order so that patterns
// learned for Chequing->Savings also apply to Savings->Chequing.
func AccountPairKey(accountA, accountB string) string {
	if accountA > accountB {
		accountA, accountB = accountB, accountA
	}
	return accountA + "|" + accountB
}

// TransactionPairKey builds the unordered key identifying a transaction
// pair, used to deduplicate suggestions within a matching run.
func TransactionPairKey(id1, id2 string) string {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return id1 + "|" + id2
}

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseAccountType parses and normalizes an account type from string
func ParseAccountType(s string) AccountType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CHEQUING", "CHECKING", "CURRENT":
		return AccountChequing
	case "SAVINGS", "SAVING":
		return AccountSavings
	case "CREDIT_CARD", "CREDIT", "CC", "VISA", "MASTERCARD":
		return AccountCreditCard
	case "INVESTMENT", "BROKERAGE":
		return AccountInvestment
	case "LOAN", "MORTGAGE", "LINE_OF_CREDIT":
		return AccountLoan
	case "CASH":
		return AccountCash
	default:
		return AccountUnknown
	}
}

// ParseTransactionKind parses a transaction kind from string; anything
// other than an explicit transfer marker is treated as standard.
func ParseTransactionKind(s string) TransactionKind {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRANSFER", "XFER":
		return KindTransfer
	default:
		return KindStandard
	}
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	// Common time formats used in ledger exports
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// CreateTransactionFromCSV creates a Transaction from CSV field values
func CreateTransactionFromCSV(id, accountID, accountType, amountStr, dateStr, payee, memo, kind, linkID, dismissed string) (*Transaction, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	date, err := ParseTimeWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date in CSV: %w", err)
	}

	tx := &Transaction{
		ID:             strings.TrimSpace(id),
		AccountID:      strings.TrimSpace(accountID),
		AccountType:    ParseAccountType(accountType),
		Amount:         amount,
		Date:           date,
		Payee:          strings.TrimSpace(payee),
		Memo:           strings.TrimSpace(memo),
		Kind:           ParseTransactionKind(kind),
		TransferLinkID: strings.TrimSpace(linkID),
		Dismissed:      parseBoolish(dismissed),
	}

	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}

	return tx, nil
}

func parseBoolish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes", "y":
		return true
	default:
		return false
	}
}
