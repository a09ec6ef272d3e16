// Package report writes pipeline outputs: the records JSON consumed by the
// dashboard and the multi-sheet audit workbook.
package report

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/lionvest/crmrecon/internal/recon"
)

// MarshalRecords encodes a table as a JSON array of objects, one per row.
// Null cells are emitted explicitly so consumers always see the complete
// schema.
func MarshalRecords(t *recon.Table) ([]byte, error) {
	records := make([]map[string]any, 0, t.Len())
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			v := row.Get(col)
			if recon.IsNull(v) {
				rec[col] = nil
				continue
			}
			rec[col] = v
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "report: marshal records")
	}
	return data, nil
}

// WriteRecordsJSON writes a table as records JSON to path.
func WriteRecordsJSON(path string, t *recon.Table) error {
	data, err := MarshalRecords(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
