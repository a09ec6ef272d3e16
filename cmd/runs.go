package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lionvest/crmrecon/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		runs, err := st.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %s  tx=%d filtered=%d output=%d enrich ok=%d fail=%d\n",
				r.ID,
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Summary.TxRows,
				r.Summary.Filters.AfterExclude,
				r.Summary.OutputRows,
				r.Summary.Enrich.OK,
				r.Summary.Enrich.Failed,
			)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
