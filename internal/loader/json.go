package loader

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/lionvest/crmrecon/internal/recon"
)

// ReadJSON reads a records JSON file (an array of flat objects) into a
// table. The column set is the union of keys across all records; columns
// are ordered by first appearance, with keys first seen on the same record
// sorted for a stable layout.
func ReadJSON(path, name string) (*recon.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "loader: parse %s", path)
	}

	t := recon.NewTable(name)
	for _, rec := range records {
		newCols := make([]string, 0, len(rec))
		for k := range rec {
			if !t.HasColumn(k) {
				newCols = append(newCols, k)
			}
		}
		sort.Strings(newCols)
		for _, k := range newCols {
			t.AddColumn(k)
		}

		row := make(recon.Row, len(rec))
		for k, v := range rec {
			if v != nil {
				row[k] = v
			}
		}
		t.Append(row)
	}

	return t, nil
}
