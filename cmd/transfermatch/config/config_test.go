package config

import (
	"path/filepath"
	"testing"

	"github.com/iammattholland/transfermatch/internal/reporter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMatchConfigDefaults(t *testing.T) {
	config, err := CreateMatchConfig(MatchOverrides{})
	require.NoError(t, err)

	assert.Equal(t, 90, config.LookbackDays)
	assert.Equal(t, 7, config.MaxDaysApart)
	assert.True(t, config.UseLearnedPatterns)
}

func TestCreateMatchConfigBulkPreset(t *testing.T) {
	config, err := CreateMatchConfig(MatchOverrides{Bulk: true})
	require.NoError(t, err)

	assert.Equal(t, 14, config.MaxDaysApart)
	assert.Equal(t, 250, config.Limit)
	assert.Equal(t, int64(100), config.BucketWidthCents)
}

func TestCreateMatchConfigOverrides(t *testing.T) {
	config, err := CreateMatchConfig(MatchOverrides{
		Bulk:         true,
		MaxDaysApart: 3,
		Limit:        10,
		MinScore:     0.7,
		NoPatterns:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, config.MaxDaysApart)
	assert.Equal(t, 10, config.Limit)
	assert.Equal(t, 0.7, config.MinScore)
	assert.False(t, config.UseLearnedPatterns)
}

func TestCreateMatchConfigInvalidOverride(t *testing.T) {
	_, err := CreateMatchConfig(MatchOverrides{MinScore: 1.5})
	assert.Error(t, err)
}

func TestCreateReportConfig(t *testing.T) {
	config, err := CreateReportConfig("json")
	require.NoError(t, err)
	assert.Equal(t, reporter.FormatJSON, config.Format)

	_, err = CreateReportConfig("xml")
	assert.Error(t, err)
}

func TestCreateLedgerParserConfig(t *testing.T) {
	config := CreateLedgerParserConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, "account_id", config.GetColumnName("account"))
}

func TestOpenPatternStore(t *testing.T) {
	store, err := OpenPatternStore("")
	require.NoError(t, err)
	assert.Nil(t, store)

	path := filepath.Join(t.TempDir(), "patterns.db")
	store, err = OpenPatternStore(path)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}
