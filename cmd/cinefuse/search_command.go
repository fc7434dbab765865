package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinefuse/internal/ipc"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var year int
	var page int
	var addTop bool

	cmd := &cobra.Command{
		Use:   "search <title>",
		Short: "Search the primary catalog for a film",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("search title is required")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Search(ipc.SearchRequest{Title: title, Year: year, Page: page})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(resp.Results) == 0 {
					fmt.Fprintln(out, "No results")
					return nil
				}

				table := renderTable(
					[]string{"TMDB ID", "Title", "Year", "IMDB ID"},
					buildSearchRows(resp.Results),
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)

				if !addTop {
					return nil
				}
				top := resp.Results[0]
				tmdbID, err := strconv.ParseInt(strings.TrimSpace(top.TMDBID), 10, 64)
				if err != nil || tmdbID <= 0 {
					return fmt.Errorf("top result has no usable TMDB id (%q)", top.TMDBID)
				}
				enqResp, err := client.Enqueue(ipc.EnqueueRequest{
					TMDBID: tmdbID,
					IMDBID: top.IMDBID,
					Title:  top.Title,
					Year:   top.Year,
				})
				if err != nil {
					return err
				}
				if enqResp.Created {
					fmt.Fprintf(out, "Queued %s as item #%d\n", enqueueLabel(enqResp.Item.Title, tmdbID), enqResp.Item.ID)
				} else {
					fmt.Fprintf(out, "%s already queued as item #%d (%s)\n", enqueueLabel(enqResp.Item.Title, tmdbID), enqResp.Item.ID, formatStatusLabel(enqResp.Item.Status))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Restrict matches to a release year")
	cmd.Flags().IntVar(&page, "page", 1, "Result page")
	cmd.Flags().BoolVar(&addTop, "add", false, "Queue the top result for aggregation")
	return cmd
}

func buildSearchRows(results []ipc.SearchResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		title := result.Title
		if original := strings.TrimSpace(result.OriginalTitle); original != "" && original != result.Title {
			title = fmt.Sprintf("%s (%s)", result.Title, original)
		}
		yearLabel := ""
		if result.Year > 0 {
			yearLabel = strconv.Itoa(result.Year)
		}
		imdb := result.IMDBID
		if imdb == "" {
			imdb = "-"
		}
		rows = append(rows, []string{result.TMDBID, title, yearLabel, imdb})
	}
	return rows
}
