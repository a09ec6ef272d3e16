// Package loader reads the three source exports into in-memory tables.
// Sources arrive as Excel exports or as the intermediate records JSON that
// earlier pipeline steps emit.
package loader

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/lionvest/crmrecon/internal/recon"
)

// ReadXLSX reads the first sheet of an Excel export into a table. The first
// row is the header; blank cells become nulls. Rows wider than the header
// have their extra cells dropped, a shape Excel exports produce routinely.
func ReadXLSX(path, name string) (*recon.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("loader: %s has no sheets", path)
	}
	sheet := f.Sheets[0]

	t := recon.NewTable(name)
	for i, row := range sheet.Rows {
		if i == 0 {
			for _, cell := range row.Cells {
				t.AddColumn(strings.TrimSpace(cell.String()))
			}
			continue
		}

		rec := make(recon.Row, len(t.Columns))
		for j, cell := range row.Cells {
			if j >= len(t.Columns) {
				break
			}
			if s := cell.String(); s != "" {
				rec[t.Columns[j]] = s
			}
		}
		t.Append(rec)
	}

	return t, nil
}
