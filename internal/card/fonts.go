package card

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/arawak/thankyou/internal/design"
)

type weight int

const (
	weightRegular weight = iota
	weightBold
)

type faceKey struct {
	generic string
	weight  weight
}

// The browser resolves CSS families to system fonts; on the server every
// family maps onto the embedded Go fonts by its generic family.
var fontFiles = map[faceKey][]byte{
	{"sans-serif", weightRegular}: goregular.TTF,
	{"sans-serif", weightBold}:    gobold.TTF,
	{"serif", weightRegular}:      gomedium.TTF,
	{"serif", weightBold}:         gobold.TTF,
	{"monospace", weightRegular}:  gomono.TTF,
	{"monospace", weightBold}:     gomonobold.TTF,
}

var (
	parsedMu sync.Mutex
	parsed   = map[faceKey]*sfnt.Font{}
)

func parsedFont(key faceKey) (*sfnt.Font, error) {
	parsedMu.Lock()
	defer parsedMu.Unlock()
	if f, ok := parsed[key]; ok {
		return f, nil
	}
	data, ok := fontFiles[key]
	if !ok {
		data = fontFiles[faceKey{"sans-serif", key.weight}]
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	parsed[key] = f
	return f, nil
}

// newFace returns a fresh face; faces are not safe for concurrent use.
func newFace(family design.Font, w weight, size float64) (font.Face, error) {
	f, err := parsedFont(faceKey{generic: family.Generic(), weight: w})
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
