package main

import (
	"github.com/spf13/cobra"

	"github.com/arawak/thankyou/internal/search"
)

func newRandomCmd(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "random",
		Short: "List a fresh set of random portrait photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			images, err := client.Random(cmd.Context(), count)
			if err != nil {
				return err
			}
			return printImages(cmd.OutOrStdout(), images)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", search.DefaultRandomCount, "Number of photos")

	return cmd
}
