package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lionvest/crmrecon/internal/recon"
	"github.com/lionvest/crmrecon/internal/report"
)

var diagOut string

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Run key-health diagnostics only",
	Long:  "Loads the three source exports and writes the uniqueness, coverage, duplicate and GUID-sanity report without joining or enriching.",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		diag := recon.Diagnose(tp, tx, acct, recon.DefaultSchema())

		for _, u := range diag.Uniqueness {
			if !u.Applicable {
				fmt.Printf("%s.%s: column absent\n", u.Table, u.Column)
				continue
			}
			fmt.Printf("%s.%s unique? %v\n", u.Table, u.Column, u.Unique)
		}
		for _, c := range diag.Coverage {
			if !c.Applicable {
				fmt.Printf("%s: not applicable\n", c.Link)
				continue
			}
			fmt.Printf("%s: %d/%d matched (%.1f%%)\n", c.Link, c.MatchedDistinct, c.LeftDistinct, c.LeftCoveragePct)
		}

		if err := report.WriteDiagnostics(diagOut, diag); err != nil {
			return err
		}
		zap.L().Info("diagnostics written", zap.String("path", diagOut))
		return nil
	},
}

func init() {
	diagCmd.Flags().StringVar(&diagOut, "out", "diagnostics.xlsx", "diagnostics workbook path")
	rootCmd.AddCommand(diagCmd)
}
