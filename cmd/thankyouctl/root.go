package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/arawak/thankyou/internal/catalog"
	"github.com/arawak/thankyou/internal/config"
	"github.com/arawak/thankyou/internal/unsplash"
)

type rootOptions struct {
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "thankyouctl",
		Short: "Browse Unsplash photos and render thank-you cards",
		Long: `thankyouctl drives the same search and card pipeline as the server
from the command line.

It reads THANKYOU_UNSPLASH_ACCESS_KEY (and the other THANKYOU_ settings)
from the environment or a .env file in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log provider calls to stderr")

	cmd.AddCommand(newRandomCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newRenderCmd(opts))

	return cmd
}

func (o *rootOptions) httpClient() *http.Client {
	return &http.Client{Timeout: o.cfg.HTTPTimeout}
}

func (o *rootOptions) client() (*unsplash.Client, error) {
	return unsplash.New(o.cfg.UnsplashAccessKey,
		unsplash.WithBaseURL(o.cfg.UnsplashBaseURL),
		unsplash.WithHTTPClient(o.httpClient()),
		unsplash.WithLogger(o.logger),
	)
}

func printImages(w io.Writer, images []catalog.Image) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tAUTHOR\tSIZE\tDESCRIPTION")
	for i := range images {
		img := &images[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%s\n", i, img.ID, img.User.Name, img.Width, img.Height, img.AltText())
	}
	return tw.Flush()
}
