package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/lionvest/crmrecon/internal/recon"
)

func diagFixture() *recon.Report {
	acct := recon.NewTable("account", "AccountID", "Name")
	acct.Append(recon.Row{"AccountID": "A1", "Name": "Jane Doe"})

	tp := recon.NewTable("tp_account", "Lv_name", "lv_accountid")
	tp.Append(recon.Row{"Lv_name": 42.0, "lv_accountid": "A1"})

	tx := recon.NewTable("monetary_tx", "lv_tpaccountidName", "lv_transactioncaseidName")
	tx.Append(recon.Row{"lv_tpaccountidName": 42.0, "lv_transactioncaseidName": "Deposit Approval"})

	return recon.Diagnose(tp, tx, acct, recon.DefaultSchema())
}

func sheetNames(f *xlsx.File) []string {
	names := make([]string, 0, len(f.Sheets))
	for _, s := range f.Sheets {
		names = append(names, s.Name)
	}
	return names
}

func TestWriteWorkbook(t *testing.T) {
	full := recon.NewTable("tx_enriched", "TP_UserID", "AC_Name")
	full.Append(recon.Row{"TP_UserID": "42", "AC_Name": "Jane Doe"})
	full.Append(recon.Row{"TP_UserID": "77"})

	summary := recon.RunSummary{
		StartedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 1, 10, 0, 5, 0, time.UTC),
		TxRows:     2,
		OutputRows: 2,
	}

	path := filepath.Join(t.TempDir(), "run.xlsx")
	require.NoError(t, WriteWorkbook(path, diagFixture(), summary, full))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Summary", "RowCounts", "Uniqueness", "Duplicates",
		"OverlapSummary", "GuidSanity", "SampleAllCols",
	}, sheetNames(f))

	sample := f.Sheets[len(f.Sheets)-1]
	require.GreaterOrEqual(t, len(sample.Rows), 3)
	assert.Equal(t, "TP_UserID", sample.Rows[0].Cells[0].String())
	assert.Equal(t, "Jane Doe", sample.Rows[1].Cells[1].String())
}

func TestWriteDiagnostics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diag.xlsx")
	require.NoError(t, WriteDiagnostics(path, diagFixture()))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"RowCounts", "Uniqueness", "Duplicates", "OverlapSummary", "GuidSanity",
	}, sheetNames(f))

	counts := f.Sheets[0]
	require.GreaterOrEqual(t, len(counts.Rows), 4, "header plus one row per source")
}
