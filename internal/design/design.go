package design

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/arawak/thankyou/internal/catalog"
)

const (
	NameFontSize   = 48
	OverlayOpacity = 0.3
)

type Font string

const (
	FontArial     Font = "Arial, sans-serif"
	FontGeorgia   Font = "Georgia, serif"
	FontTimes     Font = "Times New Roman, serif"
	FontHelvetica Font = "Helvetica, sans-serif"
	FontVerdana   Font = "Verdana, sans-serif"
	FontCourier   Font = "Courier New, monospace"
)

// Fonts lists the selectable font families; the first is the default.
var Fonts = []Font{FontArial, FontGeorgia, FontTimes, FontHelvetica, FontVerdana, FontCourier}

// Label is the family name shown in pickers.
func (f Font) Label() string {
	name, _, _ := strings.Cut(string(f), ",")
	return strings.TrimSpace(name)
}

// Generic returns the CSS generic family (sans-serif, serif or monospace).
func (f Font) Generic() string {
	_, generic, ok := strings.Cut(string(f), ",")
	if !ok {
		return "sans-serif"
	}
	return strings.TrimSpace(generic)
}

type Color string

// Colors lists the selectable text colors; the first is the default.
var Colors = []Color{"#FFFFFF", "#000000", "#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7", "#DDA0DD"}

// RGBA decodes the #RRGGBB value.
func (c Color) RGBA() (color.NRGBA, error) {
	s := string(c)
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// ParseFont accepts either the full family value or its label.
func ParseFont(s string) (Font, error) {
	s = strings.TrimSpace(s)
	for _, f := range Fonts {
		if string(f) == s || strings.EqualFold(f.Label(), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown font %q", s)
}

// ParseColor matches s against the palette, ignoring case.
func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown color %q", s)
}

// Config is a ready-to-render card design.
type Config struct {
	Image          *catalog.Image
	UserName       string
	FontFamily     Font
	FontSize       int
	TextColor      Color
	OverlayOpacity float64
}

// Build returns nil unless an image is selected and the trimmed name is
// non-empty.
func Build(img *catalog.Image, rawName string, font Font, textColor Color) *Config {
	name := strings.TrimSpace(rawName)
	if img == nil || name == "" {
		return nil
	}
	return &Config{
		Image:          img,
		UserName:       name,
		FontFamily:     font,
		FontSize:       NameFontSize,
		TextColor:      textColor,
		OverlayOpacity: OverlayOpacity,
	}
}

// Prompt is the hint to show while there is no design.
func Prompt(img *catalog.Image, rawName string) string {
	switch {
	case img == nil:
		return "Select an image to preview your card"
	case strings.TrimSpace(rawName) == "":
		return "Please enter your name to generate the card"
	default:
		return ""
	}
}
