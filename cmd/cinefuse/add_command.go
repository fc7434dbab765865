package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinefuse/internal/ipc"
	"cinefuse/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var imdbID string
	var title string
	var year int

	cmd := &cobra.Command{
		Use:   "add <tmdb-id>...",
		Short: "Queue films for aggregation by TMDB id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (imdbID != "" || title != "" || year != 0) {
				return errors.New("--imdb, --title, and --year apply only when adding a single film")
			}

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid TMDB id %q", arg)
				}
				ids = append(ids, id)
			}

			out := cmd.OutOrStdout()

			if client, err := ctx.dialClient(); err == nil {
				defer client.Close()
				for _, id := range ids {
					resp, err := client.Enqueue(ipc.EnqueueRequest{
						TMDBID: id,
						IMDBID: imdbID,
						Title:  title,
						Year:   year,
					})
					if err != nil {
						return err
					}
					if resp.Created {
						fmt.Fprintf(out, "Queued %s as item #%d\n", enqueueLabel(resp.Item.Title, id), resp.Item.ID)
					} else {
						fmt.Fprintf(out, "%s already queued as item #%d (%s)\n", enqueueLabel(resp.Item.Title, id), resp.Item.ID, formatStatusLabel(resp.Item.Status))
					}
				}
				return nil
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range ids {
				existing, err := store.FindActiveByTMDBID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if existing != nil {
					fmt.Fprintf(out, "%s already queued as item #%d (%s)\n", enqueueLabel(existing.Title, id), existing.ID, formatStatusLabel(string(existing.Status)))
					continue
				}
				item, err := store.NewFilm(cmd.Context(), id, imdbID, title, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued %s as item #%d\n", enqueueLabel(item.Title, id), item.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&imdbID, "imdb", "", "IMDB id cross-reference")
	cmd.Flags().StringVar(&title, "title", "", "Film title hint")
	cmd.Flags().IntVar(&year, "year", 0, "Release year hint")
	return cmd
}

func enqueueLabel(title string, tmdbID int64) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	return fmt.Sprintf("tmdb:%d", tmdbID)
}
