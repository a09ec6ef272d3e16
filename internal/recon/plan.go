package recon

import "encoding/json"

// ExtractPlanFields parses the embedded JSON attribute of one transaction
// and pulls out the plan name and the nested challenges.funding value.
// A missing, blank, or unparsable blob yields nil for both fields; a valid
// object with absent keys yields nil for the absent field only. Extraction
// never fails.
func ExtractPlanFields(v any) (plan, planSB any) {
	raw, ok := v.(string)
	if !ok || raw == "" {
		return nil, nil
	}

	var info struct {
		Name       *string `json:"name"`
		Challenges *struct {
			Funding *string `json:"funding"`
		} `json:"challenges"`
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, nil
	}

	if info.Name != nil {
		plan = *info.Name
	}
	if info.Challenges != nil && info.Challenges.Funding != nil {
		planSB = *info.Challenges.Funding
	}
	return plan, planSB
}

// AttachPlanFields adds the Plan and Plan_SB columns to every row of a
// transaction-grain table. When the info column is absent the columns are
// still declared, null-filled.
func AttachPlanFields(t *Table, s Schema) {
	t.AddColumn(ColPlan)
	t.AddColumn(ColPlanSB)
	if !t.HasColumn(s.TxInfo) {
		return
	}
	for _, r := range t.Rows {
		plan, planSB := ExtractPlanFields(r.Get(s.TxInfo))
		if plan != nil {
			r[ColPlan] = plan
		}
		if planSB != nil {
			r[ColPlanSB] = planSB
		}
	}
}
