package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cinefuse/internal/api"
	"cinefuse/internal/catalog"
	"cinefuse/internal/ipc"
)

func newFilmsCommand(ctx *commandContext) *cobra.Command {
	filmsCmd := &cobra.Command{
		Use:   "films",
		Short: "Browse the aggregated film catalog",
	}

	filmsCmd.AddCommand(newFilmsListCommand(ctx))
	filmsCmd.AddCommand(newFilmsShowCommand(ctx))
	filmsCmd.AddCommand(newFilmsRefreshCommand(ctx))

	return filmsCmd
}

func newFilmsListCommand(ctx *commandContext) *cobra.Command {
	var query string
	var year int
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List aggregated films",
		RunE: func(cmd *cobra.Command, args []string) error {
			films, err := fetchFilms(ctx, cmd, query, year, limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.FilmListResponse{Films: films})
			}
			out := cmd.OutOrStdout()
			if len(films) == 0 {
				fmt.Fprintln(out, "No films in catalog")
				return nil
			}
			table := renderTable(
				[]string{"TMDB ID", "Title", "Year", "Composite", "Ratings", "Aggregated"},
				buildFilmRows(films),
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			)
			fmt.Fprint(out, table)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter films by title")
	cmd.Flags().IntVar(&year, "year", 0, "Filter films by release year")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of films to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newFilmsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <tmdb-id>",
		Short: "Show one film with its normalized ratings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || tmdbID <= 0 {
				return fmt.Errorf("invalid TMDB id %q", args[0])
			}

			film, err := fetchFilm(ctx, cmd, tmdbID)
			if err != nil {
				return err
			}
			if film == nil {
				return fmt.Errorf("film tmdb:%d not in catalog", tmdbID)
			}
			if jsonOut {
				return writeJSON(cmd, api.FilmResponse{Film: *film})
			}
			printFilm(cmd, film)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit JSON instead of formatted output")
	return cmd
}

func newFilmsRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <tmdb-id>",
		Short: "Re-queue a cataloged film for aggregation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmdbID, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || tmdbID <= 0 {
				return fmt.Errorf("invalid TMDB id %q", args[0])
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.FilmRefresh(tmdbID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s for refresh as item #%d\n", enqueueLabel(resp.Title, tmdbID), resp.ItemID)
				return nil
			})
		},
	}
}

// fetchFilms reads the catalog through the daemon when it is reachable and
// falls back to opening the catalog store directly.
func fetchFilms(ctx *commandContext, cmd *cobra.Command, query string, year, limit int) ([]api.Film, error) {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.Films(ipc.FilmsRequest{Query: query, Year: year, Limit: limit})
		if err != nil {
			return nil, err
		}
		return resp.Films, nil
	}

	service, closeStore, err := openFilmService(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	if strings.TrimSpace(query) != "" {
		return service.Search(cmd.Context(), query, year, limit)
	}
	return service.List(cmd.Context(), limit)
}

func fetchFilm(ctx *commandContext, cmd *cobra.Command, tmdbID int64) (*api.Film, error) {
	if client, err := ctx.dialClient(); err == nil {
		defer client.Close()
		resp, err := client.FilmShow(tmdbID)
		if err != nil {
			return nil, err
		}
		if !resp.Found {
			return nil, nil
		}
		film := resp.Film
		return &film, nil
	}

	service, closeStore, err := openFilmService(ctx)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return service.Describe(cmd.Context(), tmdbID)
}

func openFilmService(ctx *commandContext) (*api.FilmService, func() error, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog store: %w", err)
	}
	return api.NewFilmService(store), store.Close, nil
}

func buildFilmRows(films []api.Film) [][]string {
	rows := make([][]string, 0, len(films))
	for _, film := range films {
		yearLabel := ""
		if film.Year > 0 {
			yearLabel = strconv.Itoa(film.Year)
		}
		composite := film.Composite
		if composite == "" {
			composite = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(film.TMDBID, 10),
			film.Title,
			yearLabel,
			composite,
			strconv.Itoa(film.RatingsCount),
			formatDisplayTime(film.AggregatedAt),
		})
	}
	return rows
}

func printFilm(cmd *cobra.Command, film *api.Film) {
	out := cmd.OutOrStdout()

	header := film.Title
	if film.Year > 0 {
		header = fmt.Sprintf("%s (%d)", film.Title, film.Year)
	}
	fmt.Fprintln(out, header)
	if original := strings.TrimSpace(film.OriginalTitle); original != "" && original != film.Title {
		fmt.Fprintf(out, "Original title: %s\n", original)
	}

	identifiers := []string{fmt.Sprintf("tmdb:%d", film.TMDBID)}
	if film.IMDBID != "" {
		identifiers = append(identifiers, "imdb:"+film.IMDBID)
	}
	if film.KinopoiskID != "" {
		identifiers = append(identifiers, "kinopoisk:"+film.KinopoiskID)
	}
	fmt.Fprintln(out, strings.Join(identifiers, "  "))
	fmt.Fprintln(out)

	if len(film.Ratings) == 0 {
		fmt.Fprintln(out, "No ratings stored")
	} else {
		rows := make([][]string, 0, len(film.Ratings))
		for _, rating := range film.Ratings {
			votes := "-"
			if rating.Votes > 0 {
				votes = strconv.FormatInt(rating.Votes, 10)
			}
			rows = append(rows, []string{
				rating.Source,
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
	}

	if film.Composite != "" {
		fmt.Fprintf(out, "Composite: %s\n", film.Composite)
	}
	if film.Weighted != "" {
		fmt.Fprintf(out, "Weighted:  %s\n", film.Weighted)
	}
	if film.AggregatedAt != "" {
		fmt.Fprintf(out, "Aggregated: %s\n", formatDisplayTime(film.AggregatedAt))
	}
}
