package report

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/lionvest/crmrecon/internal/recon"
)

// sampleRowLimit caps the per-sheet row export so the workbook stays
// responsive in Excel.
const sampleRowLimit = 1000

// WriteWorkbook writes the audit workbook for one run: key-health
// diagnostics, join shape, the run summary, and a sample of the full
// joined rows.
func WriteWorkbook(path string, diag *recon.Report, summary recon.RunSummary, full *recon.Table) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, summary); err != nil {
		return err
	}
	if diag != nil {
		if err := addDiagnosticsSheets(f, diag); err != nil {
			return err
		}
	}
	if full != nil {
		if err := addSampleSheet(f, full); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// WriteDiagnostics writes a diagnostics-only workbook.
func WriteDiagnostics(path string, diag *recon.Report) error {
	f := xlsx.NewFile()
	if err := addDiagnosticsSheets(f, diag); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, s recon.RunSummary) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add Summary sheet")
	}
	addStringRow(sheet, "Metric", "Value")

	rows := [][2]string{
		{"Started", s.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", s.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Rows (platform)", strconv.Itoa(s.PlatformRows)},
		{"Rows (transactions)", strconv.Itoa(s.TxRows)},
		{"Rows (accounts)", strconv.Itoa(s.AccountRows)},
		{"Tx matched to platform", strconv.Itoa(s.Join.MatchedPlatform)},
		{"Tx with resolved account key", strconv.Itoa(s.Join.ResolvedAccountKey)},
		{"Tx matched to account", strconv.Itoa(s.Join.MatchedAccount)},
		{"Rows after inclusion filter", strconv.Itoa(s.Filters.AfterCaseKeep)},
		{"Rows after exclusion filter", strconv.Itoa(s.Filters.AfterExclude)},
		{"Balance lookups ok", strconv.Itoa(s.Enrich.OK)},
		{"Balance lookups failed", strconv.Itoa(s.Enrich.Failed)},
		{"Output rows", strconv.Itoa(s.OutputRows)},
	}
	for _, r := range rows {
		addStringRow(sheet, r[0], r[1])
	}
	return nil
}

func addDiagnosticsSheets(f *xlsx.File, diag *recon.Report) error {
	sheet, err := f.AddSheet("RowCounts")
	if err != nil {
		return eris.Wrap(err, "report: add RowCounts sheet")
	}
	addStringRow(sheet, "Table", "RowCount")
	for _, rc := range diag.RowCounts {
		addStringRow(sheet, rc.Table, strconv.Itoa(rc.Rows))
	}

	sheet, err = f.AddSheet("Uniqueness")
	if err != nil {
		return eris.Wrap(err, "report: add Uniqueness sheet")
	}
	addStringRow(sheet, "Column", "Unique", "NullBlankPct")
	for i, u := range diag.Uniqueness {
		label := fmt.Sprintf("%s.%s", u.Table, u.Column)
		if !u.Applicable {
			addStringRow(sheet, label, "n/a", "n/a")
			continue
		}
		nb := ""
		if i < len(diag.NullBlank) && diag.NullBlank[i].Applicable {
			nb = fmt.Sprintf("%.2f", diag.NullBlank[i].Pct)
		}
		addStringRow(sheet, label, strconv.FormatBool(u.Unique), nb)
	}

	sheet, err = f.AddSheet("Duplicates")
	if err != nil {
		return eris.Wrap(err, "report: add Duplicates sheet")
	}
	addStringRow(sheet, "Column", "Threshold", "DuplicateGroups")
	for _, d := range diag.Duplicates {
		label := fmt.Sprintf("%s.%s", d.Table, d.Column)
		if !d.Applicable {
			addStringRow(sheet, label, strconv.Itoa(d.Threshold), "n/a")
			continue
		}
		addStringRow(sheet, label, strconv.Itoa(d.Threshold), strconv.Itoa(d.Groups))
	}

	sheet, err = f.AddSheet("OverlapSummary")
	if err != nil {
		return eris.Wrap(err, "report: add OverlapSummary sheet")
	}
	addStringRow(sheet, "Link", "LeftDistinct", "RightDistinct", "MatchedDistinct", "LeftCoveragePct")
	for _, c := range diag.Coverage {
		if !c.Applicable {
			addStringRow(sheet, c.Link, "n/a", "n/a", "n/a", "n/a")
			continue
		}
		addStringRow(sheet, c.Link,
			strconv.Itoa(c.LeftDistinct),
			strconv.Itoa(c.RightDistinct),
			strconv.Itoa(c.MatchedDistinct),
			fmt.Sprintf("%.2f", c.LeftCoveragePct),
		)
	}

	sheet, err = f.AddSheet("GuidSanity")
	if err != nil {
		return eris.Wrap(err, "report: add GuidSanity sheet")
	}
	addStringRow(sheet, "Column", "BadValue")
	for _, g := range diag.GuidSanity {
		label := fmt.Sprintf("%s.%s", g.Table, g.Column)
		if !g.Applicable {
			addStringRow(sheet, label, "n/a")
			continue
		}
		for _, v := range g.BadValues {
			addStringRow(sheet, label, v)
		}
	}

	return nil
}

func addSampleSheet(f *xlsx.File, t *recon.Table) error {
	sheet, err := f.AddSheet("SampleAllCols")
	if err != nil {
		return eris.Wrap(err, "report: add SampleAllCols sheet")
	}
	addStringRow(sheet, t.Columns...)

	limit := t.Len()
	if limit > sampleRowLimit {
		limit = sampleRowLimit
	}
	for _, row := range t.Rows[:limit] {
		r := sheet.AddRow()
		for _, col := range t.Columns {
			cell := r.AddCell()
			v := row.Get(col)
			if recon.IsNull(v) {
				continue
			}
			cell.SetValue(v)
		}
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
