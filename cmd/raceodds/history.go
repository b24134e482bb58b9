package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/logger"
)

var (
	importFile string
	lookupJSON bool
)

func init() {
	historyImportCmd.Flags().StringVarP(&importFile, "file", "f", "", "JSON file with an array of past starts")
	_ = historyImportCmd.MarkFlagRequired("file")
	historyLookupCmd.Flags().BoolVar(&lookupJSON, "json", false, "Print the match as JSON")

	historyCmd.AddCommand(historyLookupCmd, historyImportCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and seed the history store",
}

var historyLookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "Show the past starts matched for a horse name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hs, err := openHistory(cmd.Context(), cfg, appLog)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer hs.Close()

		if !hs.enabled() {
			return errors.New("no history backend configured (history.backend is none)")
		}

		res, err := hs.fuzzy.Match(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if lookupJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Fprintf(out, "%s -> %s (match: %s", args[0], res.Normalized, res.Strategy)
		if res.Key != "" {
			fmt.Fprintf(out, ", key: %q", res.Key)
		}
		fmt.Fprintf(out, ", %d records)\n\n", len(res.Records))
		if res.Strategy == history.MatchNone {
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tHORSE\tVENUE\tSURFACE\tDISTANCE\tPOS\tFIELD")
		for _, r := range res.Records {
			pos := fmt.Sprint(r.Position)
			if !r.Placed() {
				pos = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%d\n",
				r.RaceDate.Format("2006-01-02"), r.HorseName, r.Venue, r.Surface, r.Distance, pos, r.FieldSize)
		}
		return tw.Flush()
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import past starts from a JSON file into the SQLite or Postgres store",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := history.LoadRecordsFile(importFile)
		if err != nil {
			return err
		}

		hs, err := openHistory(cmd.Context(), cfg, appLog)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer hs.Close()

		if hs.writer == nil {
			return fmt.Errorf("history backend %q does not accept imports; use sqlite or postgres", hs.backend)
		}

		imported, err := hs.writer.InsertBatch(cmd.Context(), records)
		if err != nil {
			return err
		}
		skipped := len(records) - imported

		total, err := hs.writer.Count(cmd.Context())
		if err != nil {
			return err
		}

		logger.NewAuditLogger(appLog).LogHistoryImport(hs.backend, importFile, imported, skipped)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (%d duplicates skipped), %d in store\n", imported, skipped, total)
		return nil
	},
}
