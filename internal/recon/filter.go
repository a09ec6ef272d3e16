package recon

import (
	"strings"

	"go.uber.org/zap"
)

// FilterConfig holds the two business predicates applied after the join.
type FilterConfig struct {
	// KeepCase retains only rows whose trimmed case classification equals
	// this value exactly; matching is case-sensitive.
	KeepCase string

	// ExcludeTempContains drops rows whose temp-status label contains this
	// substring, case-insensitively. Null labels pass.
	ExcludeTempContains string
}

// FilterStats records before/after row counts per predicate.
type FilterStats struct {
	Input         int
	AfterCaseKeep int
	AfterExclude  int
}

// ApplyFilters runs the inclusion predicate then the exclusion predicate
// over the transaction-grain rows. Each predicate is a no-op when its
// target column is absent from the table, or when its configured value is
// empty. The net effect is order-independent; the order here only fixes
// which counts get reported at which stage.
func ApplyFilters(t *Table, s Schema, cfg FilterConfig, log *zap.Logger) (*Table, FilterStats) {
	if log == nil {
		log = zap.L()
	}
	stats := FilterStats{Input: t.Len()}

	rows := t.Rows
	if cfg.KeepCase != "" && t.HasColumn(s.TxCase) {
		kept := rows[:0:0]
		for _, r := range rows {
			if strings.TrimSpace(stringCell(r.Get(s.TxCase))) == cfg.KeepCase {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	stats.AfterCaseKeep = len(rows)
	log.Info("inclusion filter applied",
		zap.String("keep_case", cfg.KeepCase),
		zap.Int("before", stats.Input),
		zap.Int("after", stats.AfterCaseKeep),
	)

	if cfg.ExcludeTempContains != "" && t.HasColumn(s.TxTemp) {
		needle := strings.ToLower(cfg.ExcludeTempContains)
		kept := rows[:0:0]
		for _, r := range rows {
			label := r.Get(s.TxTemp)
			if IsNull(label) || !strings.Contains(strings.ToLower(stringCell(label)), needle) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	stats.AfterExclude = len(rows)
	log.Info("exclusion filter applied",
		zap.String("exclude_contains", cfg.ExcludeTempContains),
		zap.Int("before", stats.AfterCaseKeep),
		zap.Int("after", stats.AfterExclude),
	)

	out := NewTable(t.Name, t.Columns...)
	out.Rows = rows
	return out, stats
}

// stringCell best-effort converts a cell for text comparison; non-string
// values never match a textual predicate target.
func stringCell(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
