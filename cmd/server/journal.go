package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/MegaGrindStone/mpp-web-ui/internal/models"
	"github.com/MegaGrindStone/mpp-web-ui/internal/services"
	"github.com/spf13/cobra"
)

const journalShortDesc = "List the recorded stream sessions"

func newJournalCmd(root *rootCommander) *cobra.Command {
	var (
		limit    int
		widgetID string
	)

	cmd := &cobra.Command{
		Use:   "journal",
		Short: journalShortDesc,
		Long: journalShortDesc + `.

Sessions are recorded when journal.enabled is set. The journal file is locked while the
server runs, so stop the server before listing it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := root.viper(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			journal, err := services.NewBoltJournal(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer journal.Close()

			var records []models.StreamRecord
			if widgetID != "" {
				records, err = journal.WidgetRecords(cmd.Context(), widgetID)
			} else {
				records, err = journal.Records(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("error reading journal: %w", err)
			}

			return printRecords(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of most recent sessions to list (0 for all)")
	cmd.Flags().StringVarP(&widgetID, "widget", "w", "", "Only list the sessions of this widget, oldest first")

	return cmd
}

func printRecords(w io.Writer, records []models.StreamRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tDURATION\tOUTCOME\tREQUEST\tQUESTION\tDETAIL")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.StartedAt.Format(time.DateTime),
			rec.EndedAt.Sub(rec.StartedAt).Round(time.Millisecond),
			rec.Outcome,
			orDash(rec.RequestID),
			truncate(rec.Question, 40),
			orDash(rec.Detail),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
