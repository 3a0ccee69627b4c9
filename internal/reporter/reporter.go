// Package reporter renders matching run results for the host
// surfaces: a human-readable console view, structured JSON for
// programmatic consumers, and CSV for spreadsheet review.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/iammattholland/transfermatch/internal/engine"
	"github.com/iammattholland/transfermatch/internal/patterns"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeParseStats bool `json:"include_parse_stats"`
	IncludePatterns   bool `json:"include_patterns"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:            FormatConsole,
		IncludeParseStats: true,
		IncludePatterns:   false,
		CSVDelimiter:      ',',
		CSVHeaders:        true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders matching run results in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified
// configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders a matching run result to the writer
func (rg *ReportGenerator) GenerateReport(result *engine.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *engine.RunResult, writer io.Writer) error {
	fmt.Fprintf(writer, "TRANSFER SUGGESTIONS\n")
	fmt.Fprintf(writer, "Generated: %s\n", result.GeneratedAt.Format(time.RFC3339))
	if result.Summary != nil {
		fmt.Fprintf(writer, "Processing Duration: %v\n", result.Summary.ProcessingTime)
	}
	fmt.Fprintf(writer, "\n=== SUMMARY ===\n")
	rg.printSummary(result.Summary, writer)

	if len(result.Suggestions) > 0 {
		fmt.Fprintf(writer, "\n=== SUGGESTIONS ===\n")
		fmt.Fprintf(writer, "%-5s %-20s %-20s %12s %7s %6s %-12s %s\n",
			"#", "Outflow", "Inflow", "Amount", "Score", "Days", "Amounts", "Pattern")
		for i, s := range result.Suggestions {
			pattern := "-"
			if s.Pattern != nil {
				pattern = fmt.Sprintf("conf %.2f", s.Pattern.Confidence)
			}
			fmt.Fprintf(writer, "%-5d %-20s %-20s %12s %7.3f %6d %-12s %s\n",
				i+1, s.OutflowID, s.InflowID, s.Amount.StringFixed(2),
				s.Score, s.DaysApart, s.AmountMatch.String(), pattern)
		}
	} else {
		fmt.Fprintf(writer, "\nNo transfer pairs found above the score threshold.\n")
	}

	if rg.config.IncludeParseStats && result.ParseStats != nil {
		fmt.Fprintf(writer, "\n=== PARSE STATISTICS ===\n")
		fmt.Fprintf(writer, "Lines read:      %d\n", result.ParseStats.TotalLines)
		fmt.Fprintf(writer, "Records parsed:  %d\n", result.ParseStats.RecordsParsed)
		fmt.Fprintf(writer, "Records valid:   %d\n", result.ParseStats.RecordsValid)
		fmt.Fprintf(writer, "Errors:          %d\n", len(result.ParseStats.Errors))
		for _, sample := range result.ParseStats.SampleErrors(3) {
			fmt.Fprintf(writer, "  - %s\n", sample)
		}
	}

	return nil
}

func (rg *ReportGenerator) printSummary(summary *engine.RunSummary, writer io.Writer) {
	if summary == nil {
		return
	}

	fmt.Fprintf(writer, "Transactions:        %d\n", summary.TotalTransactions)
	fmt.Fprintf(writer, "Eligible outflows:   %d\n", summary.EligibleOutflows)
	fmt.Fprintf(writer, "Eligible inflows:    %d\n", summary.EligibleInflows)
	fmt.Fprintf(writer, "Suggestions:         %d\n", summary.SuggestionCount)
	fmt.Fprintf(writer, "High confidence:     %d\n", summary.HighConfidence)
	fmt.Fprintf(writer, "Pattern informed:    %d\n", summary.WithPattern)
	if summary.SuggestionCount > 0 {
		fmt.Fprintf(writer, "Top score:           %.3f\n", summary.TopScore)
		fmt.Fprintf(writer, "Total amount:        %s\n", summary.TotalAmount.StringFixed(2))
	}
}

func (rg *ReportGenerator) generateJSONReport(result *engine.RunResult, writer io.Writer) error {
	output := map[string]interface{}{
		"summary":      result.Summary,
		"suggestions":  result.Suggestions,
		"generated_at": result.GeneratedAt,
		"config_used":  result.ConfigUsed,
	}
	if rg.config.IncludeParseStats && result.ParseStats != nil {
		output["parse_stats"] = map[string]interface{}{
			"total_lines":    result.ParseStats.TotalLines,
			"records_parsed": result.ParseStats.RecordsParsed,
			"records_valid":  result.ParseStats.RecordsValid,
			"error_count":    len(result.ParseStats.Errors),
		}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (rg *ReportGenerator) generateCSVReport(result *engine.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		header := []string{"outflow_id", "inflow_id", "pair_key", "account_pair", "amount", "score", "days_apart", "amount_match", "pattern_confidence"}
		if err := csvWriter.Write(header); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	for _, s := range result.Suggestions {
		confidence := ""
		if s.Pattern != nil {
			confidence = strconv.FormatFloat(s.Pattern.Confidence, 'f', 3, 64)
		}
		record := []string{
			s.OutflowID,
			s.InflowID,
			s.PairKey,
			s.AccountPairKey,
			s.Amount.StringFixed(2),
			strconv.FormatFloat(s.Score, 'f', 3, 64),
			strconv.Itoa(s.DaysApart),
			s.AmountMatch.String(),
			confidence,
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	return nil
}

// GeneratePatternReport renders learned patterns as a console table
func (rg *ReportGenerator) GeneratePatternReport(list []*patterns.TransferPattern, writer io.Writer) error {
	if len(list) == 0 {
		fmt.Fprintf(writer, "No learned patterns.\n")
		return nil
	}

	fmt.Fprintf(writer, "%-30s %10s %8s %8s %8s %10s %s\n",
		"Pair", "Confidence", "Success", "Reject", "Auto", "Reliable", "Amount Range")
	for _, p := range list {
		amountRange := "-"
		if p.RangesLearned {
			amountRange = fmt.Sprintf("%s..%s", p.AmountMin.StringFixed(2), p.AmountMax.StringFixed(2))
		}
		fmt.Fprintf(writer, "%-30s %10.3f %8d %8d %8d %10t %s\n",
			p.PairKey, p.Confidence, p.SuccessCount, p.RejectedCount,
			p.AutoDetectedCount, p.IsReliable(), amountRange)
	}
	return nil
}
