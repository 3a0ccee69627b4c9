package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iammattholland/transfermatch/internal/engine"
	"github.com/iammattholland/transfermatch/internal/features"
	"github.com/iammattholland/transfermatch/internal/matcher"
	"github.com/iammattholland/transfermatch/internal/patterns"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *engine.RunResult {
	generatedAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	return &engine.RunResult{
		Summary: &engine.RunSummary{
			TotalTransactions: 10,
			EligibleOutflows:  4,
			EligibleInflows:   3,
			SuggestionCount:   1,
			HighConfidence:    1,
			TopScore:          0.93,
			TotalAmount:       decimal.NewFromInt(500),
			ProcessingTime:    25 * time.Millisecond,
		},
		Suggestions: []*matcher.Suggestion{
			{
				OutflowID:      "tx-out",
				InflowID:       "tx-in",
				PairKey:        "tx-in|tx-out",
				AccountPairKey: "chequing|savings",
				Amount:         decimal.NewFromInt(500),
				Score:          0.93,
				DaysApart:      1,
				AmountMatch:    features.AmountExact,
			},
		},
		GeneratedAt: generatedAt,
		ConfigUsed:  matcher.DefaultConfig(),
	}
}

func TestReportConfigValidation(t *testing.T) {
	config := DefaultReportConfig()
	require.NoError(t, config.Validate())

	config.Format = "xml"
	assert.Error(t, config.Validate())

	_, err := NewReportGenerator(config)
	assert.Error(t, err)
}

func TestConsoleReport(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(sampleResult(), &buf))

	output := buf.String()
	assert.Contains(t, output, "TRANSFER SUGGESTIONS")
	assert.Contains(t, output, "tx-out")
	assert.Contains(t, output, "tx-in")
	assert.Contains(t, output, "0.930")
	assert.Contains(t, output, "Exact")
}

func TestConsoleReportNoSuggestions(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	require.NoError(t, err)

	result := sampleResult()
	result.Suggestions = nil
	result.Summary.SuggestionCount = 0

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(result, &buf))
	assert.Contains(t, buf.String(), "No transfer pairs found")
}

func TestJSONReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON, CSVDelimiter: ','})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(sampleResult(), &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	suggestions, ok := decoded["suggestions"].([]interface{})
	require.True(t, ok)
	require.Len(t, suggestions, 1)

	first := suggestions[0].(map[string]interface{})
	assert.Equal(t, "tx-out", first["outflow_id"])
	assert.InDelta(t, 0.93, first["score"].(float64), 0.0001)
}

func TestCSVReport(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatCSV, CSVDelimiter: ',', CSVHeaders: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(sampleResult(), &buf))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "outflow_id", records[0][0])
	assert.Equal(t, "tx-out", records[1][0])
	assert.Equal(t, "500.00", records[1][4])
	assert.Equal(t, "0.930", records[1][5])
}

func TestNilResult(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	require.NoError(t, err)

	assert.Error(t, generator.GenerateReport(nil, &bytes.Buffer{}))
}

func TestPatternReport(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GeneratePatternReport(nil, &buf))
	assert.Contains(t, buf.String(), "No learned patterns")

	buf.Reset()
	list := []*patterns.TransferPattern{
		{
			PairKey:       "chequing|savings",
			Confidence:    0.8,
			SuccessCount:  3,
			RangesLearned: true,
			AmountMin:     decimal.NewFromInt(100),
			AmountMax:     decimal.NewFromInt(500),
		},
	}
	require.NoError(t, generator.GeneratePatternReport(list, &buf))
	output := buf.String()
	assert.Contains(t, output, "chequing|savings")
	assert.Contains(t, output, "100.00..500.00")
}
