package parsers

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/iammattholland/transfermatch/internal/models"
	"github.com/iammattholland/transfermatch/pkg/errors"
	"github.com/iammattholland/transfermatch/pkg/logger"
)

// LedgerParser handles parsing of ledger-export CSV files
type LedgerParser struct {
	*BaseParser
	config *LedgerParserConfig
	logger logger.Logger
}

// NewLedgerParser creates a new LedgerParser with the given configuration
func NewLedgerParser(config *LedgerParserConfig) (*LedgerParser, error) {
	if config == nil {
		config = DefaultLedgerParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"ledger_parser_config",
			config,
			err,
		).WithSuggestion("Check the ledger parser column configuration")
	}

	parseConfig := &ParseConfig{
		HasHeader:        config.HasHeader,
		Delimiter:        config.Delimiter,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}

	return &LedgerParser{
		BaseParser: NewBaseParser(parseConfig),
		config:     config,
		logger:     logger.GetGlobalLogger().WithComponent("ledger_parser"),
	}, nil
}

// ParseLedger parses a CSV file containing ledger transactions
func (lp *LedgerParser) ParseLedger(filePath string) ([]*models.Transaction, *ParseStats, error) {
	return lp.ParseLedgerWithContext(context.Background(), filePath)
}

// ParseLedgerWithContext parses transactions with cancellation
// support. Malformed rows are skipped and counted in the returned
// stats; only file-level failures return an error.
func (lp *LedgerParser) ParseLedgerWithContext(ctx context.Context, filePath string) ([]*models.Transaction, *ParseStats, error) {
	lp.logger.WithField("file_path", filePath).Info("Starting ledger parsing")

	file, reader, err := lp.OpenFile(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	parseCtx := NewParseContext(ctx)
	stats := NewParseStats()

	requiredHeaders := lp.requiredHeaders()
	if err := lp.ReadHeaders(reader, parseCtx, requiredHeaders); err != nil {
		lp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to read or validate headers")

		return nil, stats, errors.ParseError(
			errors.CodeMissingColumn,
			filePath,
			parseCtx.LineNumber,
			"headers",
			"",
			err,
		).WithSuggestion("Ensure the CSV file has the required headers: " + fmt.Sprintf("%v", requiredHeaders))
	}

	var transactions []*models.Transaction

	for {
		if parseCtx.IsCancelled() {
			lp.logger.Warn("Ledger parsing was cancelled")
			return transactions, stats, errors.InternalError(
				errors.CodeUnexpectedError,
				"ledger_parsing",
				fmt.Errorf("parsing cancelled by context"),
			)
		}

		record, err := lp.ReadRecord(reader, parseCtx)
		if err != nil {
			if err == io.EOF {
				break
			}

			lp.logger.WithError(err).WithField("line_number", parseCtx.LineNumber).Warn("Failed to read record")
			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Message: "malformed CSV record",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		transaction, parseErr := lp.parseTransactionFromRecord(record, parseCtx)
		if parseErr != nil {
			lp.logger.WithError(parseErr).WithField("line_number", parseCtx.LineNumber).Warn("Skipping unparseable row")
			stats.AddError(parseErr)
			continue
		}

		if err := transaction.Validate(); err != nil {
			lp.logger.WithError(err).WithFields(logger.Fields{
				"line_number":    parseCtx.LineNumber,
				"transaction_id": transaction.ID,
			}).Warn("Transaction validation failed")

			stats.AddError(&ParseError{
				Line:    parseCtx.LineNumber,
				Field:   "transaction",
				Value:   transaction.ID,
				Message: "validation failed",
				Err:     err,
			})
			continue
		}

		transactions = append(transactions, transaction)
		stats.RecordsValid++
	}

	stats.TotalLines = parseCtx.LineNumber

	lp.logger.WithFields(logger.Fields{
		"file_path":      filePath,
		"total_lines":    stats.TotalLines,
		"records_parsed": stats.RecordsParsed,
		"records_valid":  stats.RecordsValid,
		"error_count":    len(stats.Errors),
	}).Info("Ledger parsing completed")

	if len(stats.Errors) > 0 {
		lp.logger.WithField("sample_errors", stats.SampleErrors(3)).Warn("Encountered errors during parsing")
	}

	return transactions, stats, nil
}

func (lp *LedgerParser) requiredHeaders() []string {
	return []string{
		lp.config.GetColumnName("id"),
		lp.config.GetColumnName("account"),
		lp.config.GetColumnName("amount"),
		lp.config.GetColumnName("date"),
	}
}

// parseTransactionFromRecord converts one CSV row into a Transaction
func (lp *LedgerParser) parseTransactionFromRecord(record []string, parseCtx *ParseContext) (*models.Transaction, *ParseError) {
	field := func(standardName string) string {
		column := lp.config.GetColumnName(standardName)
		if column == "" {
			return ""
		}
		index := parseCtx.ColumnIndex(column)
		if index < 0 || index >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[index])
	}

	transaction, err := models.CreateTransactionFromCSV(
		field("id"),
		field("account"),
		field("account_type"),
		field("amount"),
		field("date"),
		field("payee"),
		field("memo"),
		field("kind"),
		field("link"),
		field("dismissed"),
	)
	if err != nil {
		return nil, &ParseError{
			Line:    parseCtx.LineNumber,
			Field:   "record",
			Value:   field("id"),
			Message: "failed to build transaction",
			Err:     err,
		}
	}

	return transaction, nil
}
