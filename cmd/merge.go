package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lionvest/crmrecon/internal/config"
	"github.com/lionvest/crmrecon/internal/loader"
	"github.com/lionvest/crmrecon/internal/recon"
	"github.com/lionvest/crmrecon/internal/report"
	"github.com/lionvest/crmrecon/internal/resilience"
	"github.com/lionvest/crmrecon/internal/store"
	"github.com/lionvest/crmrecon/pkg/sirix"
)

var mergeNoEnrich bool

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Run the full reconciliation pipeline",
	Long:  "Loads the three source exports, runs diagnostics, the two-stage join, business filters, plan extraction and balance enrichment, then writes the enriched records JSON and the audit workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L()

		tp, err := loadTable(cfg.Inputs.PlatformPath, "Lv_tpaccount")
		if err != nil {
			return err
		}
		tx, err := loadTable(cfg.Inputs.TransactionPath, "Lv_monetarytransaction")
		if err != nil {
			return err
		}
		acct, err := loadTable(cfg.Inputs.AccountPath, "Account")
		if err != nil {
			return err
		}

		mapping, err := loadMapping()
		if err != nil {
			return err
		}

		var enricher *recon.Enricher
		if cfg.Sirix.Enabled && !mergeNoEnrich {
			if cfg.Sirix.Token == "" {
				return eris.New("merge: sirix enrichment enabled but no token configured")
			}
			enricher = recon.NewEnricher(newSirixClient(cfg.Sirix), cfg.Sirix.RequestsPerSec, log)
		}

		pipeline := recon.NewPipeline(
			recon.DefaultSchema(),
			recon.FilterConfig{
				KeepCase:            cfg.Filter.KeepCase,
				ExcludeTempContains: cfg.Filter.ExcludeTempContains,
			},
			mapping,
			enricher,
			log,
		)

		result, err := pipeline.Run(ctx, tp, tx, acct)
		if err != nil {
			return err
		}

		records, err := report.MarshalRecords(result.Output)
		if err != nil {
			return err
		}
		if err := writeFile(cfg.Output.RecordsPath, records); err != nil {
			return err
		}
		log.Info("records written", zap.String("path", cfg.Output.RecordsPath))

		if err := report.WriteWorkbook(cfg.Output.WorkbookPath, result.Diagnostics, result.Summary, result.Full); err != nil {
			return err
		}
		log.Info("workbook written", zap.String("path", cfg.Output.WorkbookPath))

		return recordRun(ctx, result.Summary, records)
	},
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeNoEnrich, "no-enrich", false, "skip balance enrichment; balance columns stay null")
	rootCmd.AddCommand(mergeCmd)
}

// loadTable reads a source export, picking the reader by file extension.
func loadTable(path, name string) (*recon.Table, error) {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return loader.ReadJSON(path, name)
	}
	return loader.ReadXLSX(path, name)
}

func loadMapping() ([]recon.FieldMapping, error) {
	if cfg.Mapping.Path == "" {
		return recon.DefaultMapping(), nil
	}
	return recon.LoadMapping(cfg.Mapping.Path)
}

func newSirixClient(sc config.SirixConfig) sirix.Client {
	retry := resilience.DefaultRetryConfig()
	if sc.MaxAttempts > 0 {
		retry.MaxAttempts = sc.MaxAttempts
	}
	if sc.BackoffBase > 0 {
		retry.BackoffBase = sc.BackoffBase
	}

	opts := []sirix.Option{
		sirix.WithRetry(retry),
		sirix.WithMonetaryTransactions(sc.IncludeTransactions),
	}
	if sc.BaseURL != "" {
		opts = append(opts, sirix.WithBaseURL(sc.BaseURL))
	}
	if sc.TimeoutSecs > 0 {
		opts = append(opts, sirix.WithHTTPClient(&http.Client{
			Timeout: time.Duration(sc.TimeoutSecs) * time.Second,
		}))
	}
	return sirix.NewClient(sc.Token, opts...)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "merge: write %s", path)
	}
	return nil
}

func recordRun(ctx context.Context, summary recon.RunSummary, snapshot []byte) error {
	if cfg.Store.Path == "" {
		return nil
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.RecordRun(ctx, summary, snapshot)
	if err != nil {
		return err
	}
	zap.L().Info("run recorded", zap.String("run_id", id))
	return nil
}
