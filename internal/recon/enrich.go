package recon

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lionvest/crmrecon/pkg/sirix"
)

// EnrichStats summarizes one enrichment pass. A lookup counts as ok when
// at least one balance field came back populated.
type EnrichStats struct {
	UniqueIDs int
	OK        int
	Failed    int
	Skipped   int
}

// Enricher fans live balance data out over the filtered transaction rows.
// Identifiers are deduplicated before any request is issued, so each unique
// user id is queried at most once per run, and requests are throttled to
// respect the trading platform's rate limits.
type Enricher struct {
	client  sirix.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewEnricher creates an enricher issuing at most rps requests per second.
// A non-positive rps disables throttling.
func NewEnricher(client sirix.Client, rps float64, log *zap.Logger) *Enricher {
	if log == nil {
		log = zap.L()
	}
	e := &Enricher{client: client, log: log}
	if rps > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return e
}

// Enrich queries balances for every unique normalized user id in the table
// and writes Balance, Equity and OpenPnL onto each row sharing that id.
// Per-id failures become null fields and a fail count; the pass only stops
// early when ctx is cancelled, which is also the caller's only way to abort
// between requests. Rows without a usable id get null fields without a
// request.
func (e *Enricher) Enrich(ctx context.Context, t *Table) (EnrichStats, error) {
	t.AddColumn(ColBalance)
	t.AddColumn(ColEquity)
	t.AddColumn(ColOpenPnL)

	var stats EnrichStats
	ids := e.uniqueIDs(t, &stats)
	stats.UniqueIDs = len(ids)
	e.log.Info("starting balance enrichment",
		zap.Int("rows", t.Len()),
		zap.Int("unique_ids", len(ids)),
	)

	results := make(map[string]*sirix.AccountBalance, len(ids))
	for i, id := range ids {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return stats, err
			}
		}

		bal, err := e.client.UserBalance(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			e.log.Warn("balance lookup failed",
				zap.String("user_id", id),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}

		results[id] = bal
		if bal.Balance != nil || bal.Equity != nil || bal.OpenPnL != nil {
			stats.OK++
		} else {
			stats.Failed++
		}

		e.log.Debug("balance collected",
			zap.String("user_id", id),
			zap.Int("done", i+1),
			zap.Int("total", len(ids)),
		)
	}

	for _, row := range t.Rows {
		id, ok := rowUserID(row)
		if !ok {
			continue
		}
		bal, found := results[id]
		if !found {
			continue
		}
		if bal.Balance != nil {
			row[ColBalance] = *bal.Balance
		}
		if bal.Equity != nil {
			row[ColEquity] = *bal.Equity
		}
		if bal.OpenPnL != nil {
			row[ColOpenPnL] = *bal.OpenPnL
		}
	}

	e.log.Info("balance enrichment complete",
		zap.Int("ok", stats.OK),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// uniqueIDs collects the sorted set of queryable user ids. Placeholder
// values that are serialized nulls are skipped without a request.
func (e *Enricher) uniqueIDs(t *Table, stats *EnrichStats) []string {
	seen := make(map[string]struct{}, t.Len())
	for _, row := range t.Rows {
		id, ok := rowUserID(row)
		if !ok {
			stats.Skipped++
			continue
		}
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func rowUserID(row Row) (string, bool) {
	id, ok := NormalizeKey(row.Get(ColUserID))
	if !ok || IsPlaceholderKey(id) {
		return "", false
	}
	return id, true
}
