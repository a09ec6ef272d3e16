package recon

import (
	"fmt"

	"github.com/google/uuid"
)

// Report is the read-only key-health report for a pipeline run. It never
// influences the join outcome; every check degrades to a not-applicable
// entry instead of failing, so a partial report is always produced.
type Report struct {
	RowCounts  []RowCount
	Uniqueness []UniquenessCheck
	NullBlank  []NullBlankRate
	Duplicates []DuplicateCheck
	Coverage   []CoverageCheck
	GuidSanity []GuidCheck
}

// RowCount records the size of one source table.
type RowCount struct {
	Table string
	Rows  int
}

// UniquenessCheck reports whether all non-null normalized values of a
// column are pairwise distinct.
type UniquenessCheck struct {
	Table      string
	Column     string
	Applicable bool
	Unique     bool
}

// NullBlankRate reports the share of rows whose cell is null or blank.
type NullBlankRate struct {
	Table      string
	Column     string
	Applicable bool
	Pct        float64
}

// DuplicateCheck reports how many distinct keys occur more often than the
// threshold allows.
type DuplicateCheck struct {
	Table      string
	Column     string
	Threshold  int
	Applicable bool
	Groups     int
}

// CoverageCheck reports the distinct-key overlap between two columns.
type CoverageCheck struct {
	Link            string
	Applicable      bool
	LeftDistinct    int
	RightDistinct   int
	MatchedDistinct int
	LeftCoveragePct float64
}

// GuidCheck lists sampled values of a GUID column that fail GUID syntax.
type GuidCheck struct {
	Table      string
	Column     string
	Applicable bool
	BadValues  []string
}

const guidSampleLimit = 20

// Uniqueness reports whether all non-null normalized values in the column
// are distinct. A missing column is not unique and not applicable.
func Uniqueness(t *Table, col string) (unique, applicable bool) {
	if !t.HasColumn(col) {
		return false, false
	}
	seen := make(map[string]struct{}, t.Len())
	for _, r := range t.Rows {
		key, ok := NormalizeKey(r.Get(col))
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			return false, true
		}
		seen[key] = struct{}{}
	}
	return true, true
}

// Coverage computes the distinct-set intersection between a left and right
// key column. LeftCoveragePct is 100*|matched|/|distinct(left)|, 0 when the
// left side is empty.
func Coverage(left *Table, leftCol string, right *Table, rightCol string) CoverageCheck {
	c := CoverageCheck{
		Link: fmt.Sprintf("%s.%s -> %s.%s", left.Name, leftCol, right.Name, rightCol),
	}
	if !left.HasColumn(leftCol) || !right.HasColumn(rightCol) {
		return c
	}
	c.Applicable = true

	ld := distinctKeys(left, leftCol)
	rd := distinctKeys(right, rightCol)
	c.LeftDistinct = len(ld)
	c.RightDistinct = len(rd)
	for k := range ld {
		if _, ok := rd[k]; ok {
			c.MatchedDistinct++
		}
	}
	if c.LeftDistinct > 0 {
		c.LeftCoveragePct = 100 * float64(c.MatchedDistinct) / float64(c.LeftDistinct)
	}
	return c
}

// DuplicateGroups counts distinct normalized keys whose row count exceeds
// threshold. ok is false when the column is missing.
func DuplicateGroups(t *Table, col string, threshold int) (groups int, ok bool) {
	if !t.HasColumn(col) {
		return 0, false
	}
	counts := make(map[string]int, t.Len())
	for _, r := range t.Rows {
		if key, keyed := NormalizeKey(r.Get(col)); keyed {
			counts[key]++
		}
	}
	for _, n := range counts {
		if n > threshold {
			groups++
		}
	}
	return groups, true
}

// GuidSanity samples non-null values of a column expected to hold GUIDs
// that fail GUID-syntax validation. Corrupted exports show up here first.
func GuidSanity(t *Table, col string, limit int) GuidCheck {
	g := GuidCheck{Table: t.Name, Column: col}
	if !t.HasColumn(col) {
		return g
	}
	g.Applicable = true

	seen := make(map[string]struct{})
	for _, r := range t.Rows {
		key, ok := NormalizeKey(r.Get(col))
		if !ok {
			continue
		}
		if _, err := uuid.Parse(key); err == nil {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		g.BadValues = append(g.BadValues, key)
		if len(g.BadValues) >= limit {
			break
		}
	}
	return g
}

// nullBlankRate computes the percentage of rows with a null or blank cell.
func nullBlankRate(t *Table, col string) NullBlankRate {
	nb := NullBlankRate{Table: t.Name, Column: col}
	if !t.HasColumn(col) || t.Len() == 0 {
		nb.Applicable = t.HasColumn(col)
		return nb
	}
	nb.Applicable = true
	var bad int
	for _, r := range t.Rows {
		if IsNull(r.Get(col)) {
			bad++
		}
	}
	nb.Pct = 100 * float64(bad) / float64(t.Len())
	return nb
}

// Diagnose runs the full key-health report across the three sources.
// The transaction duplicate checks use a high threshold: many transactions
// per account is the expected shape, not a defect.
func Diagnose(tp, tx, acct *Table, s Schema) *Report {
	rep := &Report{
		RowCounts: []RowCount{
			{Table: tp.Name, Rows: tp.Len()},
			{Table: tx.Name, Rows: tx.Len()},
			{Table: acct.Name, Rows: acct.Len()},
		},
	}

	acctKey := s.AccountKey
	if resolved, ok := acct.ResolveColumn(s.AccountKey); ok {
		acctKey = resolved
	}

	for _, c := range []struct {
		t   *Table
		col string
	}{
		{acct, acctKey},
		{tp, s.PlatformUser},
		{tp, s.PlatformAccountKey},
		{tx, s.TxUser},
		{tx, s.TxAccountKey},
	} {
		unique, applicable := Uniqueness(c.t, c.col)
		rep.Uniqueness = append(rep.Uniqueness, UniquenessCheck{
			Table: c.t.Name, Column: c.col, Applicable: applicable, Unique: unique,
		})
		rep.NullBlank = append(rep.NullBlank, nullBlankRate(c.t, c.col))
	}

	for _, c := range []struct {
		t         *Table
		col       string
		threshold int
	}{
		{acct, acctKey, 1},
		{tp, s.PlatformAccountKey, 1},
		{tp, s.PlatformUser, 1},
		{tx, s.TxAccountKey, 1000},
		{tx, s.TxUser, 1000},
	} {
		groups, ok := DuplicateGroups(c.t, c.col, c.threshold)
		rep.Duplicates = append(rep.Duplicates, DuplicateCheck{
			Table: c.t.Name, Column: c.col, Threshold: c.threshold,
			Applicable: ok, Groups: groups,
		})
	}

	rep.Coverage = append(rep.Coverage,
		Coverage(tp, s.PlatformAccountKey, acct, acctKey),
		Coverage(tx, s.TxAccountKey, acct, acctKey),
		Coverage(tx, s.TxUser, tp, s.PlatformUser),
	)

	rep.GuidSanity = append(rep.GuidSanity,
		GuidSanity(tp, s.PlatformAccountKey, guidSampleLimit),
		GuidSanity(tx, s.TxAccountKey, guidSampleLimit),
	)

	return rep
}

func distinctKeys(t *Table, col string) map[string]struct{} {
	keys := make(map[string]struct{}, t.Len())
	for _, r := range t.Rows {
		if key, ok := NormalizeKey(r.Get(col)); ok {
			keys[key] = struct{}{}
		}
	}
	return keys
}
