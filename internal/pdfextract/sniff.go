package pdfextract

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
)

// sniffImage decodes just the image header to recover width/height and
// reports a colorspace label derived from the encoded format. Full pixel
// decoding is avoided since only metadata is needed.
func sniffImage(b []byte, ext string) (width, height int, colorspace string) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return 0, 0, strings.TrimPrefix(strings.ToUpper(ext), ".")
	}
	switch format {
	case "jpeg":
		return cfg.Width, cfg.Height, "DeviceRGB"
	case "png":
		return cfg.Width, cfg.Height, "DeviceRGB"
	default:
		return cfg.Width, cfg.Height, strings.ToUpper(format)
	}
}
