package card

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/arawak/thankyou/internal/design"
)

const (
	Width  = 800
	Height = 1000

	Caption         = "Thank You"
	CaptionFontSize = 64
	captionY        = 120
	nameBottomInset = 80
)

// Loader fetches and fully decodes a bitmap.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

type Renderer struct {
	loader Loader
}

func NewRenderer(l Loader) *Renderer {
	return &Renderer{loader: l}
}

// Render loads the design's photo and composes the card. Nothing is returned
// unless the whole composition succeeds.
func (r *Renderer) Render(ctx context.Context, d *design.Config) (*image.NRGBA, error) {
	if d == nil || d.Image == nil {
		return nil, ErrNoDesign
	}
	photo, err := r.loader.Load(ctx, d.Image.URLs.Regular)
	if err != nil {
		return nil, &CompositionError{Kind: KindImageLoad, Err: err}
	}
	return Compose(photo, d)
}

// Compose draws photo, overlay and both text layers on a fresh 800x1000
// surface. The photo is stretched to fill; its aspect ratio is not kept.
func Compose(photo image.Image, d *design.Config) (*image.NRGBA, error) {
	if d == nil {
		return nil, ErrNoDesign
	}
	textColor, err := d.TextColor.RGBA()
	if err != nil {
		return nil, err
	}

	if photo == nil || photo.Bounds().Empty() {
		return nil, &CompositionError{Kind: KindImageLoad, Err: ErrEmptyImage}
	}

	canvas := imaging.New(Width, Height, color.NRGBA{A: 255})
	canvas = imaging.Paste(canvas, imaging.Resize(photo, Width, Height, imaging.Lanczos), image.Point{})

	alpha := uint8(math.Round(clamp01(d.OverlayOpacity) * 255))
	overlay := image.NewUniform(color.NRGBA{A: alpha})
	draw.Draw(canvas, canvas.Bounds(), overlay, image.Point{}, draw.Over)

	captionFace, err := newFace(d.FontFamily, weightBold, CaptionFontSize)
	if err != nil {
		return nil, err
	}
	defer captionFace.Close()
	drawCentered(canvas, captionFace, textColor, Caption, Width/2, captionY)

	nameFace, err := newFace(d.FontFamily, weightRegular, float64(d.FontSize))
	if err != nil {
		return nil, err
	}
	defer nameFace.Close()
	drawCentered(canvas, nameFace, textColor, d.UserName, Width/2, Height-nameBottomInset)

	return canvas, nil
}

// drawCentered draws text centered on x with the middle of the em box on y.
func drawCentered(dst draw.Image, face font.Face, c color.Color, text string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}
	width := d.MeasureString(text)
	m := face.Metrics()
	d.Dot = fixed.Point26_6{
		X: fixed.I(x) - width/2,
		Y: fixed.I(y) + (m.Ascent-m.Descent)/2,
	}
	d.DrawString(text)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
