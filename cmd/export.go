package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lionvest/crmrecon/internal/loader"
	"github.com/lionvest/crmrecon/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export <input.xlsx> <output.json>",
	Short: "Convert a merged workbook to records JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loader.ReadXLSX(args[0], "export")
		if err != nil {
			return err
		}
		if err := report.WriteRecordsJSON(args[1], t); err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.Int("rows", t.Len()),
			zap.String("path", args[1]),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
