package recon

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pipeline wires the reconciliation stages into one batch run:
// diagnostics (side channel), two-stage join, business filters, plan
// extraction, balance enrichment, output assembly. The run is
// single-threaded; the row set is owned exclusively by the pipeline for
// the duration of the run.
type Pipeline struct {
	Schema   Schema
	Filter   FilterConfig
	Mapping  []FieldMapping
	Enricher *Enricher // nil disables enrichment; balance columns stay null

	log *zap.Logger
}

// NewPipeline creates a pipeline with the given stage configuration.
func NewPipeline(schema Schema, filter FilterConfig, mapping []FieldMapping, enricher *Enricher, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.L()
	}
	if mapping == nil {
		mapping = DefaultMapping()
	}
	return &Pipeline{
		Schema:   schema,
		Filter:   filter,
		Mapping:  mapping,
		Enricher: enricher,
		log:      log,
	}
}

// RunSummary is the auditable record of one pipeline run.
type RunSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	PlatformRows int `json:"platform_rows"`
	TxRows       int `json:"tx_rows"`
	AccountRows  int `json:"account_rows"`

	Join    JoinStats   `json:"join"`
	Filters FilterStats `json:"filters"`
	Enrich  EnrichStats `json:"enrich"`

	OutputRows int `json:"output_rows"`
}

// Result carries everything a caller may want to persist or serve.
type Result struct {
	Output      *Table  // fixed dashboard schema, transaction grain
	Full        *Table  // all joined columns, for the audit workbook
	Reference   *Table  // Stage-A platform+account view
	Diagnostics *Report // read-only key-health report
	Summary     RunSummary
}

// Run executes the full reconciliation over the three source tables.
// Per-row and per-identifier failures are absorbed as nulls and counts;
// the only errors returned are structural (no usable join key across a
// source) or context cancellation during enrichment.
func (p *Pipeline) Run(ctx context.Context, tp, tx, acct *Table) (*Result, error) {
	summary := RunSummary{
		StartedAt:    time.Now().UTC(),
		PlatformRows: tp.Len(),
		TxRows:       tx.Len(),
		AccountRows:  acct.Len(),
	}
	p.log.Info("pipeline run starting",
		zap.Int("platform_rows", tp.Len()),
		zap.Int("tx_rows", tx.Len()),
		zap.Int("account_rows", acct.Len()),
	)

	// Diagnostics never mutate inputs or gate the join; malformed sources
	// still produce a partial report.
	diag := Diagnose(tp, tx, acct, p.Schema)

	resolver := NewResolver(p.Schema, p.log)

	reference, err := resolver.ReferenceJoin(tp, acct)
	if err != nil {
		return nil, err
	}

	joined, joinStats, err := resolver.TransactionJoin(tx, tp, acct)
	if err != nil {
		return nil, err
	}
	summary.Join = joinStats

	filtered, filterStats := ApplyFilters(joined, p.Schema, p.Filter, p.log)
	summary.Filters = filterStats

	AttachPlanFields(filtered, p.Schema)

	if p.Enricher != nil {
		enrichStats, err := p.Enricher.Enrich(ctx, filtered)
		summary.Enrich = enrichStats
		if err != nil {
			return nil, err
		}
	} else {
		// Declare the balance columns so the output schema is stable even
		// without an enrichment pass.
		filtered.AddColumn(ColBalance)
		filtered.AddColumn(ColEquity)
		filtered.AddColumn(ColOpenPnL)
	}

	output := Assemble(filtered, p.Mapping)
	summary.OutputRows = output.Len()
	summary.FinishedAt = time.Now().UTC()

	p.log.Info("pipeline run complete",
		zap.Int("output_rows", output.Len()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	return &Result{
		Output:      output,
		Full:        filtered,
		Reference:   reference,
		Diagnostics: diag,
		Summary:     summary,
	}, nil
}
