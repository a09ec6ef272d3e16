package recon

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// JoinStats records row counts and degradations for auditability. Every
// stage is a left join: the transaction grain is never truncated, so
// TxRows always equals the final joined row count.
type JoinStats struct {
	TxRows             int
	MatchedPlatform    int
	MatchedAccount     int
	ResolvedAccountKey int

	// Degradations: an expected join key column was absent from a source,
	// so the corresponding joined side is all-null.
	MissingTxUserColumn       bool
	MissingTxAccountColumn    bool
	MissingPlatformUserColumn bool
	MissingPlatformAccountCol bool

	// DuplicatePlatformUsers counts platform rows discarded because an
	// earlier row already claimed the same normalized user id.
	DuplicatePlatformUsers int
}

// Resolver executes the two-stage join across the three sources.
type Resolver struct {
	schema Schema
	log    *zap.Logger
}

// NewResolver creates a join resolver for the given schema.
func NewResolver(schema Schema, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.L()
	}
	return &Resolver{schema: schema, log: log}
}

// ReferenceJoin is Stage A: platform accounts left-joined to CRM accounts
// on the normalized account key. The result is one row per platform
// account and feeds diagnostics and person-level views only; the
// authoritative transaction grain comes from TransactionJoin.
func (r *Resolver) ReferenceJoin(tp, acct *Table) (*Table, error) {
	acctIdx, acctKeyCol, err := indexAccounts(acct, r.schema)
	if err != nil {
		return nil, err
	}

	out := NewTable("tp_account")
	out.Columns = append(out.Columns, tp.Columns...)
	out.AddColumn(ColUserID)
	for _, c := range acct.Columns {
		out.AddColumn(AccountColumn(c))
	}

	for _, row := range tp.Rows {
		merged := row.Clone()
		if uid, ok := NormalizeKey(row.Get(r.schema.PlatformUser)); ok {
			merged[ColUserID] = uid
		}
		if key, ok := NormalizeKey(row.Get(r.schema.PlatformAccountKey)); ok {
			if acctRow, found := acctIdx[key]; found {
				mergeAccount(merged, acctRow)
			}
		}
		out.Append(merged)
	}

	r.log.Debug("reference join complete",
		zap.String("account_key", acctKeyCol),
		zap.Int("rows", out.Len()),
	)
	return out, nil
}

// TransactionJoin is Stage B, the authoritative transaction-grain join:
//
//  1. left join transactions to platform accounts on the normalized user
//     id, pulling the account link forward;
//  2. coalesce: a transaction's own account link wins when populated,
//     otherwise the joined value is used (either export column may be the
//     one that is filled);
//  3. left join the coalesced set to CRM accounts on the resolved key.
//
// Exactly one output row is produced per input transaction; unmatched rows
// are kept with the joined side null-filled. A source missing its join key
// column degrades to an all-null joined side and is flagged in JoinStats;
// the only hard error is a transaction table with no usable join key at
// all, since no meaningful join is possible then.
func (r *Resolver) TransactionJoin(tx, tp, acct *Table) (*Table, JoinStats, error) {
	s := r.schema
	stats := JoinStats{TxRows: tx.Len()}

	stats.MissingTxUserColumn = !tx.HasColumn(s.TxUser)
	stats.MissingTxAccountColumn = !tx.HasColumn(s.TxAccountKey)
	if stats.MissingTxUserColumn && stats.MissingTxAccountColumn {
		return nil, stats, eris.Errorf(
			"join: transaction source has neither %q nor %q; no usable join key",
			s.TxUser, s.TxAccountKey,
		)
	}

	stats.MissingPlatformUserColumn = !tp.HasColumn(s.PlatformUser)
	stats.MissingPlatformAccountCol = !tp.HasColumn(s.PlatformAccountKey)

	tpIdx := make(map[string]Row, tp.Len())
	if !stats.MissingPlatformUserColumn {
		for _, row := range tp.Rows {
			uid, ok := NormalizeKey(row.Get(s.PlatformUser))
			if !ok {
				continue
			}
			if _, dup := tpIdx[uid]; dup {
				stats.DuplicatePlatformUsers++
				continue
			}
			tpIdx[uid] = row
		}
	}

	acctIdx, acctKeyCol, err := indexAccounts(acct, s)
	if err != nil {
		return nil, stats, err
	}

	out := NewTable("tx_enriched")
	out.Columns = append(out.Columns, tx.Columns...)
	out.AddColumn(ColUserID)
	out.AddColumn(ColAccountKey)
	for _, c := range acct.Columns {
		out.AddColumn(AccountColumn(c))
	}

	for _, row := range tx.Rows {
		merged := row.Clone()
		delete(merged, s.TxAccountKey) // replaced by the coalesced ColAccountKey

		var joinedKey string
		var joined bool
		if uid, ok := NormalizeKey(row.Get(s.TxUser)); ok {
			merged[ColUserID] = uid
			if tpRow, found := tpIdx[uid]; found {
				stats.MatchedPlatform++
				joinedKey, joined = NormalizeKey(tpRow.Get(s.PlatformAccountKey))
			}
		}

		ownKey, own := NormalizeKey(row.Get(s.TxAccountKey))
		switch {
		case own:
			merged[ColAccountKey] = ownKey
		case joined:
			merged[ColAccountKey] = joinedKey
		}
		if own || joined {
			stats.ResolvedAccountKey++
		}

		if key, ok := merged[ColAccountKey].(string); ok {
			if acctRow, found := acctIdx[key]; found {
				stats.MatchedAccount++
				mergeAccount(merged, acctRow)
			}
		}

		out.Append(merged)
	}

	r.log.Info("transaction join complete",
		zap.String("account_key", acctKeyCol),
		zap.Int("tx_rows", stats.TxRows),
		zap.Int("matched_platform", stats.MatchedPlatform),
		zap.Int("resolved_account_key", stats.ResolvedAccountKey),
		zap.Int("matched_account", stats.MatchedAccount),
		zap.Int("duplicate_platform_users", stats.DuplicatePlatformUsers),
	)
	return out, stats, nil
}

// LatestPerUser collapses a transaction-grain table to one row per
// normalized user id, keeping the most recent row according to the first
// schema timestamp candidate present. Without any timestamp column the
// last row in source order wins, which is only as deterministic as the
// source ordering; that condition is logged as a warning.
func (r *Resolver) LatestPerUser(tx *Table) *Table {
	s := r.schema

	var timeCol string
	for _, cand := range s.TxTimeCandidates {
		if tx.HasColumn(cand) {
			timeCol = cand
			break
		}
	}
	if timeCol == "" {
		r.log.Warn("latest-per-user collapse has no timestamp column; result depends on source row order",
			zap.Strings("candidates", s.TxTimeCandidates),
		)
	}

	type pick struct {
		row Row
		at  time.Time
		has bool
	}
	latest := make(map[string]pick, tx.Len())
	var order []string

	for _, row := range tx.Rows {
		uid, ok := NormalizeKey(row.Get(s.TxUser))
		if !ok {
			continue
		}
		cur, seen := latest[uid]
		if !seen {
			order = append(order, uid)
		}

		at, has := time.Time{}, false
		if timeCol != "" {
			at, has = parseTimestamp(row.Get(timeCol))
		}

		replace := !seen
		if seen {
			// A timestamped row beats an untimestamped one; between two
			// timestamped rows the later wins; otherwise last seen wins.
			switch {
			case has && !cur.has:
				replace = true
			case has && cur.has:
				replace = !at.Before(cur.at)
			case !has && !cur.has:
				replace = true
			}
		}
		if replace {
			latest[uid] = pick{row: row, at: at, has: has}
		}
	}

	out := NewTable("tx_latest", tx.Columns...)
	for _, uid := range order {
		out.Append(latest[uid].row)
	}
	return out
}

// indexAccounts indexes the CRM account table by normalized account key,
// resolving the key column case-insensitively. An account table with no
// key column at all is a structural failure. On duplicate keys the first
// row wins; diagnostics reports the violation separately.
func indexAccounts(acct *Table, s Schema) (map[string]Row, string, error) {
	keyCol, ok := acct.ResolveColumn(s.AccountKey)
	if !ok {
		return nil, "", eris.Errorf("join: account source has no %q column (or case variant)", s.AccountKey)
	}
	idx := make(map[string]Row, acct.Len())
	for _, row := range acct.Rows {
		key, keyed := NormalizeKey(row.Get(keyCol))
		if !keyed {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = row
		}
	}
	return idx, keyCol, nil
}

func mergeAccount(dst Row, acctRow Row) {
	for k, v := range acctRow {
		dst[AccountColumn(k)] = v
	}
}

// timestampLayouts are tried in order when a timestamp arrives as text.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
}

// parseTimestamp best-effort converts a cell to a time. Numeric values
// above 1e9 are treated as epoch milliseconds, matching how the export
// serializes dates.
func parseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, true
	case float64:
		if x > 1_000_000_000 {
			return time.UnixMilli(int64(x)).UTC(), true
		}
		return time.Time{}, false
	case string:
		s := x
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
