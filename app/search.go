package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkp/pkplib/internal/logger"
	"github.com/pkp/pkplib/internal/search"
)

func init() { //nolint: gochecknoinits
	searchQueryCmd.Flags().Uint64Var(&searchContextID, "context", 0, "restrict the search to a context id")
	searchQueryCmd.Flags().IntVar(&searchPage, "page", 1, "result page")

	searchCmd.AddCommand(searchRebuildCmd, searchQueryCmd)
	rootCmd.AddCommand(searchCmd)
}

var (
	searchContextID uint64
	searchPage      int

	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Maintain and query the submission search index",
	}

	searchRebuildCmd = &cobra.Command{
		Use:   "rebuild",
		Short: "Drop the index of the configured engine and index every published submission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			log := logger.Component("search")
			log.Info().Str("engine", services.Search.Name()).Msg("rebuilding search index")

			if err = services.Search.Rebuild(cmd.Context(), services.Publications.Source()); err != nil {
				return err
			}

			log.Info().Msg("search index rebuilt")

			return nil
		},
	}

	searchQueryCmd = &cobra.Command{
		Use:   "query <text>",
		Short: "Print the submission ids matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := openServices()
			if err != nil {
				return err
			}

			defer func() {
				_ = services.Close()
			}()

			res, err := services.Search.Search(cmd.Context(), search.Query{
				Text:      strings.Join(args, " "),
				ContextID: searchContextID,
				Page:      searchPage,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%d matches, page %d\n", res.Total, res.Page)

			for _, h := range res.Hits {
				_, _ = fmt.Fprintf(out, "%d\t%.3f\n", h.ID, h.Score)
			}

			return nil
		},
	}
)
