package recon

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// FieldMapping binds one output column to the joined-table column that
// feeds it. The full mapping is declared up front so the output schema is
// fixed and complete regardless of which source columns were present.
type FieldMapping struct {
	Output string `yaml:"output"`
	Source string `yaml:"source"`
}

// DefaultMapping is the dashboard projection: CRM identity columns, the
// derived plan fields, and the live balance columns.
func DefaultMapping() []FieldMapping {
	return []FieldMapping{
		{Output: "Customer Name", Source: AccountColumn("Name")},
		{Output: "Customer ID", Source: AccountColumn("lv_maintpaccountidName")},
		{Output: "Account ID", Source: ColUserID},
		{Output: "Email", Source: AccountColumn("EMailAddress1")},
		{Output: "Phone Code", Source: AccountColumn("Lv_Phone1CountryCode")},
		{Output: "Phone Number", Source: AccountColumn("Lv_Phone1Phone")},
		{Output: "Country", Source: AccountColumn("lv_countryidName")},
		{Output: "Affiliate", Source: AccountColumn("Lv_SubAffiliate")},
		{Output: "Tag", Source: AccountColumn("Lv_Tag1")},
		{Output: "Plan", Source: ColPlan},
		{Output: "Plan SB", Source: ColPlanSB},
		{Output: "Balance", Source: ColBalance},
		{Output: "Equity", Source: ColEquity},
		{Output: "OpenPnL", Source: ColOpenPnL},
	}
}

// LoadMapping reads a field mapping from a YAML file of
// {output, source} pairs.
func LoadMapping(path string) ([]FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: read file")
	}
	var m []FieldMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "mapping: unmarshal")
	}
	if len(m) == 0 {
		return nil, eris.Errorf("mapping: %s declares no fields", path)
	}
	return m, nil
}

// Assemble projects the enriched transaction-grain table onto the output
// schema. Every output column is always present; a missing or null source
// cell becomes an explicit nil so the schema stays stable across runs.
// Row order and row count are preserved.
func Assemble(t *Table, mapping []FieldMapping) *Table {
	out := NewTable("dashboard")
	for _, fm := range mapping {
		out.AddColumn(fm.Output)
	}

	for _, row := range t.Rows {
		rec := make(Row, len(mapping))
		for _, fm := range mapping {
			v := row.Get(fm.Source)
			if IsNull(v) {
				rec[fm.Output] = nil
				continue
			}
			rec[fm.Output] = v
		}
		out.Append(rec)
	}
	return out
}
