package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Lv_tpaccount.xlsx", cfg.Inputs.PlatformPath)
	assert.Equal(t, "Lv_monetarytransaction.xlsx", cfg.Inputs.TransactionPath)
	assert.Equal(t, "Account.xlsx", cfg.Inputs.AccountPath)
	assert.Equal(t, "merged_data_full_enriched.json", cfg.Output.RecordsPath)
	assert.Equal(t, "merge_report.xlsx", cfg.Output.WorkbookPath)

	assert.Equal(t, "Deposit Approval", cfg.Filter.KeepCase)
	assert.Equal(t, "Purchases", cfg.Filter.ExcludeTempContains)

	assert.True(t, cfg.Sirix.Enabled)
	assert.Equal(t, "https://restapi-real3.sirixtrader.com", cfg.Sirix.BaseURL)
	assert.Empty(t, cfg.Sirix.Token)
	assert.Equal(t, 12, cfg.Sirix.TimeoutSecs)
	assert.Equal(t, 3, cfg.Sirix.MaxAttempts)
	assert.Equal(t, 1.5, cfg.Sirix.BackoffBase)
	assert.Equal(t, 5.0, cfg.Sirix.RequestsPerSec)
	assert.False(t, cfg.Sirix.IncludeTransactions)

	assert.Equal(t, "crmrecon.db", cfg.Store.Path)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CRMRECON_FILTER_KEEP_CASE", "Withdrawal Approval")
	t.Setenv("CRMRECON_SIRIX_TOKEN", "secret-token")
	t.Setenv("CRMRECON_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Withdrawal Approval", cfg.Filter.KeepCase)
	assert.Equal(t, "secret-token", cfg.Sirix.Token)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nonsense", Format: "json"})
	require.Error(t, err)
}
