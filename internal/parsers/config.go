package parsers

import (
	"fmt"
	"strings"
)

// LedgerParserConfig describes the column layout of a ledger-export
// CSV file. Optional columns may be left empty; their fields default
// to zero values on the parsed transaction.
type LedgerParserConfig struct {
	IDColumn          string            `json:"id_column"`
	AccountColumn     string            `json:"account_column"`
	AccountTypeColumn string            `json:"account_type_column,omitempty"`
	AmountColumn      string            `json:"amount_column"`
	DateColumn        string            `json:"date_column"`
	PayeeColumn       string            `json:"payee_column,omitempty"`
	MemoColumn        string            `json:"memo_column,omitempty"`
	KindColumn        string            `json:"kind_column,omitempty"`
	LinkColumn        string            `json:"link_column,omitempty"`
	DismissedColumn   string            `json:"dismissed_column,omitempty"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
}

// Validate checks if the ledger parser configuration is valid
func (lc *LedgerParserConfig) Validate() error {
	if strings.TrimSpace(lc.IDColumn) == "" {
		return fmt.Errorf("id column cannot be empty")
	}
	if strings.TrimSpace(lc.AccountColumn) == "" {
		return fmt.Errorf("account column cannot be empty")
	}
	if strings.TrimSpace(lc.AmountColumn) == "" {
		return fmt.Errorf("amount column cannot be empty")
	}
	if strings.TrimSpace(lc.DateColumn) == "" {
		return fmt.Errorf("date column cannot be empty")
	}
	return nil
}

// GetColumnName returns the actual column name, checking aliases first
func (lc *LedgerParserConfig) GetColumnName(standardName string) string {
	if alias, exists := lc.ColumnAliases[standardName]; exists {
		return alias
	}

	switch standardName {
	case "id":
		return lc.IDColumn
	case "account":
		return lc.AccountColumn
	case "account_type":
		return lc.AccountTypeColumn
	case "amount":
		return lc.AmountColumn
	case "date":
		return lc.DateColumn
	case "payee":
		return lc.PayeeColumn
	case "memo":
		return lc.MemoColumn
	case "kind":
		return lc.KindColumn
	case "link":
		return lc.LinkColumn
	case "dismissed":
		return lc.DismissedColumn
	default:
		return standardName
	}
}

// DefaultLedgerParserConfig returns the standard export layout
func DefaultLedgerParserConfig() *LedgerParserConfig {
	return &LedgerParserConfig{
		IDColumn:          "id",
		AccountColumn:     "account_id",
		AccountTypeColumn: "account_type",
		AmountColumn:      "amount",
		DateColumn:        "date",
		PayeeColumn:       "payee",
		MemoColumn:        "memo",
		KindColumn:        "kind",
		LinkColumn:        "transfer_link_id",
		DismissedColumn:   "dismissed",
		HasHeader:         true,
		Delimiter:         ',',
		ColumnAliases:     make(map[string]string),
	}
}
