package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := "id,account_id,amount,date\ntx-1,chequing,-500.00,2024-03-10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func resetSuggestFlags() {
	ledgerFile = ""
	patternsDB = ""
	outputFormat = "console"
	outputFile = ""
	asOf = ""
}

func TestValidateSuggestFlags(t *testing.T) {
	resetSuggestFlags()
	t.Cleanup(resetSuggestFlags)

	err := validateSuggestFlags(suggestCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger-file is required")

	ledgerFile = "/nonexistent/ledger.csv"
	err = validateSuggestFlags(suggestCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	ledgerFile = writeTempLedger(t)
	require.NoError(t, validateSuggestFlags(suggestCmd, nil))

	outputFormat = "xml"
	err = validateSuggestFlags(suggestCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")

	outputFormat = "json"
	asOf = "not-a-date"
	err = validateSuggestFlags(suggestCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid as-of date")

	asOf = "2024-03-15"
	require.NoError(t, validateSuggestFlags(suggestCmd, nil))
}

func TestValidateFeedbackFlags(t *testing.T) {
	feedbackLedgerFile = writeTempLedger(t)
	outflowID = "tx-1"
	inflowID = "tx-2"

	confirmFlag, rejectFlag = false, false
	err := validateFeedbackFlags(feedbackCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm or --reject")

	confirmFlag, rejectFlag = true, true
	assert.Error(t, validateFeedbackFlags(feedbackCmd, nil))

	confirmFlag, rejectFlag = true, false
	inflowID = "tx-1"
	err = validateFeedbackFlags(feedbackCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different transactions")

	inflowID = "tx-2"
	require.NoError(t, validateFeedbackFlags(feedbackCmd, nil))
}

func TestValidateFileExists(t *testing.T) {
	assert.Error(t, validateFileExists("/nonexistent/file.csv", "ledger file"))
	assert.Error(t, validateFileExists(t.TempDir(), "ledger file"))
	assert.NoError(t, validateFileExists(writeTempLedger(t), "ledger file"))
}
