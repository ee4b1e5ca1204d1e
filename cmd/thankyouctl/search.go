package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arawak/thankyou/internal/catalog"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search portrait photos by keyword",
		Example: `  thankyouctl search "mountain lake"
  thankyouctl search flowers --page 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("query must not be blank")
			}
			if page < 1 {
				return fmt.Errorf("page must be at least 1")
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			res, err := client.Search(cmd.Context(), query, page, catalog.PageSize)
			if err != nil {
				return err
			}
			if err := printImages(cmd.OutOrStdout(), res.Results); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\npage %d of %d (%d results)\n", page, res.TotalPages, res.Total)
			return err
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Result page")

	return cmd
}
