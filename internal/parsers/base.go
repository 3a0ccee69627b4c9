// Package parsers reads ledger-export CSV files into transactions the
// matching engine can consume.
//
// Ledger exports vary between host applications: different column
// names, date formats, amount representations, and optional columns.
// The parser is configured per format, skips malformed rows instead of
// aborting the whole file, and reports per-file statistics so callers
// can decide whether a partially parsed file is usable.
package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iammattholland/transfermatch/pkg/errors"
	"github.com/iammattholland/transfermatch/pkg/logger"
)

// ParseError represents an error that occurred on one CSV row
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseStats summarizes one parsing run
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	Errors        []*ParseError
}

// NewParseStats creates an empty ParseStats
func NewParseStats() *ParseStats {
	return &ParseStats{Errors: make([]*ParseError, 0)}
}

// AddError records a row-level error
func (s *ParseStats) AddError(err *ParseError) {
	s.Errors = append(s.Errors, err)
}

// SampleErrors returns up to n error messages for log summaries
func (s *ParseStats) SampleErrors(n int) []string {
	if n > len(s.Errors) {
		n = len(s.Errors)
	}
	samples := make([]string, 0, n)
	for _, err := range s.Errors[:n] {
		samples = append(samples, err.Error())
	}
	return samples
}

// ParseConfig holds low-level CSV reading options
type ParseConfig struct {
	HasHeader        bool
	Delimiter        rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:        true,
		Delimiter:        ',',
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
	}
}

// ParseContext holds state during one parsing run
type ParseContext struct {
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a new parsing context
func NewParseContext(ctx context.Context) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled checks if the parsing context has been cancelled
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// ColumnIndex returns the index of a column by name, or -1 if not
// found. Lookup is case-insensitive.
func (pc *ParseContext) ColumnIndex(name string) int {
	if index, exists := pc.HeaderMap[name]; exists {
		return index
	}

	lowerName := strings.ToLower(name)
	for header, index := range pc.HeaderMap {
		if strings.ToLower(header) == lowerName {
			return index
		}
	}
	return -1
}

// BaseParser provides common CSV reading functionality
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// OpenFile opens a CSV file and returns a configured csv.Reader
func (bp *BaseParser) OpenFile(filePath string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")

		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// ReadHeaders reads the header row and verifies the required columns
// are present. Without a header row the required names become the
// positional headers.
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext, requiredHeaders []string) error {
	if !bp.config.HasHeader {
		parseCtx.Headers = make([]string, len(requiredHeaders))
		copy(parseCtx.Headers, requiredHeaders)
		bp.buildHeaderMap(parseCtx)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ValidationError(
				errors.CodeMissingField,
				"file_content",
				"empty",
				nil,
			).WithSuggestion("Ensure the file contains header and data rows")
		}
		return fmt.Errorf("failed to read header row: %w", err)
	}

	parseCtx.LineNumber++
	parseCtx.Headers = headers
	bp.buildHeaderMap(parseCtx)

	var missing []string
	for _, required := range requiredHeaders {
		if parseCtx.ColumnIndex(required) < 0 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (bp *BaseParser) buildHeaderMap(parseCtx *ParseContext) {
	for i, header := range parseCtx.Headers {
		parseCtx.HeaderMap[strings.TrimSpace(header)] = i
	}
}

// ReadRecord reads the next data row, skipping empty rows when
// configured to.
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		record, err := reader.Read()
		parseCtx.LineNumber++
		if err != nil {
			return nil, err
		}

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}
		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
