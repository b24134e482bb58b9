package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/yourusername/race-odds/internal/models"
)

var (
	raceFile     string
	outputFormat string
)

func init() {
	predictCmd.Flags().StringVarP(&raceFile, "race", "r", "-", "Race card JSON file, or - for stdin")
	predictCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table or json")
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict win probabilities for a race card",
	Example: `  raceodds predict --race card.json
  cat card.json | raceodds predict -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != "table" && outputFormat != "json" {
			return fmt.Errorf("unknown output format %q", outputFormat)
		}

		req, err := readRaceCard(cmd.InOrStdin(), raceFile)
		if err != nil {
			return err
		}

		hs, err := openHistory(cmd.Context(), cfg, appLog)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer hs.Close()

		eng, err := buildEngine(cfg, hs, appLog)
		if err != nil {
			return err
		}

		dist, err := eng.Predict(cmd.Context(), req)
		if err != nil {
			return err
		}

		if outputFormat == "json" {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(dist)
		}
		return printDistribution(cmd.OutOrStdout(), dist)
	},
}

func readRaceCard(stdin io.Reader, path string) (models.PredictRequest, error) {
	var req models.PredictRequest

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("failed to open race card: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("failed to decode race card: %w", err)
	}
	return req, nil
}

func printDistribution(w io.Writer, dist *models.RankedDistribution) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := []string{"RANK", "NAME", "WIN %", "TREND"}
	for _, m := range dist.Models {
		header = append(header, strings.ToUpper(m.Name))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, e := range dist.Entries {
		row := []string{
			fmt.Sprint(e.Rank),
			e.Name,
			percent(e.Probability),
			string(e.Trend),
		}
		for _, m := range dist.Models {
			row = append(row, percent(e.PerModel[m.Name]))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nprediction %s, race %s\n", dist.PredictionID, dist.Race.RaceID)
	return err
}

// percent renders a probability with two decimals, rounding half away from zero.
func percent(p float64) string {
	return decimal.NewFromFloat(p).Round(2).StringFixed(2)
}
