package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinefuse/internal/film"
	"cinefuse/internal/ipc"
)

func newAggregateCommand(ctx *commandContext) *cobra.Command {
	var imdbID string
	var title string
	var year int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "aggregate <tmdb-id>",
		Short: "Aggregate a film synchronously and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || tmdbID <= 0 {
				return fmt.Errorf("invalid TMDB id %q", args[0])
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AggregateFilm(ipc.AggregateRequest{
					TMDBID: tmdbID,
					IMDBID: imdbID,
					Title:  title,
					Year:   year,
				})
				if err != nil {
					return err
				}

				var unified film.Unified
				if err := json.Unmarshal(resp.Result, &unified); err != nil {
					return fmt.Errorf("decode aggregation result: %w", err)
				}

				if jsonOut {
					return writeJSON(cmd, unified)
				}

				printUnified(cmd, &unified)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&imdbID, "imdb", "", "IMDB id cross-reference")
	cmd.Flags().StringVar(&title, "title", "", "Film title hint")
	cmd.Flags().IntVar(&year, "year", 0, "Release year hint")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw aggregation result as JSON")
	return cmd
}

func printUnified(cmd *cobra.Command, unified *film.Unified) {
	out := cmd.OutOrStdout()

	header := unified.Title
	if unified.Year > 0 {
		header = fmt.Sprintf("%s (%d)", unified.Title, unified.Year)
	}
	fmt.Fprintln(out, header)

	identifiers := []string{fmt.Sprintf("tmdb:%d", unified.TMDBID)}
	if unified.IMDBID != "" {
		identifiers = append(identifiers, "imdb:"+unified.IMDBID)
	}
	if unified.KinopoiskID != "" {
		identifiers = append(identifiers, "kinopoisk:"+unified.KinopoiskID)
	}
	fmt.Fprintln(out, strings.Join(identifiers, "  "))
	fmt.Fprintln(out)

	if len(unified.Ratings) == 0 {
		fmt.Fprintln(out, "No ratings collected")
		return
	}

	rows := make([][]string, 0, len(unified.Ratings))
	for _, rating := range unified.Ratings {
		votes := "-"
		if rating.Votes > 0 {
			votes = strconv.FormatInt(rating.Votes, 10)
		}
		rows = append(rows, []string{
			string(rating.Source),
			fmt.Sprintf("%.1f / %.0f", rating.Value, rating.Max),
			fmt.Sprintf("%.2f", rating.Normalized),
			votes,
		})
	}
	table := renderTable(
		[]string{"Source", "Rating", "Normalized", "Votes"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
	fmt.Fprintln(out, table)

	if unified.Composite.Valid {
		fmt.Fprintf(out, "Composite: %s\n", unified.Composite.Decimal.StringFixed(2))
	}
	if unified.Weighted.Valid {
		fmt.Fprintf(out, "Weighted:  %s\n", unified.Weighted.Decimal.StringFixed(2))
	}
}
