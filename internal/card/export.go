package card

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Export is one encoded card ready for download.
type Export struct {
	Filename string
	Data     []byte
}

// FileName builds the download name thank-you-card-<unix-millis>.png.
func FileName(t time.Time) string {
	return fmt.Sprintf("thank-you-card-%d.png", t.UnixMilli())
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &CompositionError{Kind: KindEncode, Err: err}
	}
	return buf.Bytes(), nil
}

// WriteFile stores the export in dir and returns its path.
func WriteFile(dir string, e *Export) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, e.Filename)
	if err := os.WriteFile(path, e.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
