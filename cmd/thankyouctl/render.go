package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/catalog"
	"github.com/arawak/thankyou/internal/design"
	"github.com/arawak/thankyou/internal/media"
	"github.com/arawak/thankyou/internal/search"
)

type renderOptions struct {
	name  string
	query string
	pick  int
	font  string
	color string
	out   string
	cache bool
}

func newRenderCmd(opts *rootOptions) *cobra.Command {
	ro := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a thank-you card to a PNG file",
		Long: `Render picks a photo (from a random set, or from the first page of a
search), composes the card with the given name and styling, and writes
thank-you-card-<millis>.png to the output directory.`,
		Example: `  thankyouctl render --name "Ada Lovelace"
  thankyouctl render --name Grace --query sunrise --pick 3 --font Georgia --color "#FFEAA7" --out ./cards`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runRender(cmd.Context(), opts, ro)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().StringVar(&ro.name, "name", "", "Name printed on the card")
	cmd.Flags().StringVarP(&ro.query, "query", "q", "", "Search query; random photos when empty")
	cmd.Flags().IntVar(&ro.pick, "pick", 0, "Index of the photo to use")
	cmd.Flags().StringVar(&ro.font, "font", string(design.Fonts[0]), "Font family or its label")
	cmd.Flags().StringVar(&ro.color, "color", string(design.Colors[0]), "Text color from the palette")
	cmd.Flags().StringVarP(&ro.out, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&ro.cache, "cache", false, "Reuse downloaded photos from THANKYOU_CACHE_DIR")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runRender(ctx context.Context, opts *rootOptions, ro *renderOptions) (string, error) {
	font, err := design.ParseFont(ro.font)
	if err != nil {
		return "", err
	}
	textColor, err := design.ParseColor(ro.color)
	if err != nil {
		return "", err
	}

	client, err := opts.client()
	if err != nil {
		return "", err
	}
	var images []catalog.Image
	if q := strings.TrimSpace(ro.query); q != "" {
		res, err := client.Search(ctx, q, 1, catalog.PageSize)
		if err != nil {
			return "", err
		}
		images = res.Results
	} else {
		images, err = client.Random(ctx, search.DefaultRandomCount)
		if err != nil {
			return "", err
		}
	}
	if ro.pick < 0 || ro.pick >= len(images) {
		return "", fmt.Errorf("pick %d out of range: %d photos available", ro.pick, len(images))
	}
	img := &images[ro.pick]

	cfg := design.Build(img, ro.name, font, textColor)
	if cfg == nil {
		return "", errors.New(design.Prompt(img, ro.name))
	}

	root := ""
	if ro.cache {
		root = opts.cfg.CacheDir
		if root == "" {
			opts.logger.Warn("--cache ignored, THANKYOU_CACHE_DIR is not set")
		}
	}
	loader := media.NewManager(root,
		media.WithHTTPClient(opts.httpClient()),
		media.WithLimits(opts.cfg.MaxImageBytes, opts.cfg.MaxPixels),
		media.WithLogger(opts.logger),
	)

	preview := card.NewPreview(ctx, card.NewRenderer(loader), card.WithPreviewLogger(opts.logger))
	defer preview.Close()
	preview.Update(cfg)
	if err := preview.Wait(ctx); err != nil {
		return "", err
	}
	exp, err := preview.Export()
	if err != nil {
		if st := preview.Status(); st.Err != nil {
			return "", st.Err
		}
		return "", err
	}
	return card.WriteFile(ro.out, exp)
}
