package inspector

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/yuanying/epubinspect/internal/epub"
)

const (
	defaultThumbnailQuality = 85
	defaultMaxPixels        = 100 * 1000 * 1000 // 100 megapixels
)

// Thumbnail is a downscaled cover image.
type Thumbnail struct {
	Data      []byte
	MediaType string
	Width     int
	Height    int
}

// CoverThumbnail scales the cover down to at most maxWidth pixels wide,
// keeping its aspect ratio. Covers that are already narrow enough are
// re-encoded unchanged. PNG and GIF covers stay in their format; everything
// else becomes JPEG.
func CoverThumbnail(c *epub.Cover, maxWidth int) (*Thumbnail, error) {
	if c == nil {
		return nil, errors.New("no cover")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover header: %w", err)
	}
	if pixels := uint64(cfg.Width) * uint64(cfg.Height); pixels > defaultMaxPixels {
		return nil, fmt.Errorf("cover too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
	}

	src, err := imaging.Decode(bytes.NewReader(c.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}

	processed := src
	if maxWidth > 0 && src.Bounds().Dx() > maxWidth {
		processed = imaging.Resize(src, maxWidth, 0, imaging.Lanczos)
	}

	format, mediaType := thumbnailFormat(c.MediaType)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, processed, format, imaging.JPEGQuality(defaultThumbnailQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &Thumbnail{
		Data:      buf.Bytes(),
		MediaType: mediaType,
		Width:     processed.Bounds().Dx(),
		Height:    processed.Bounds().Dy(),
	}, nil
}

func thumbnailFormat(mediaType string) (imaging.Format, string) {
	switch strings.ToLower(mediaType) {
	case "image/png":
		return imaging.PNG, "image/png"
	case "image/gif":
		return imaging.GIF, "image/gif"
	default:
		return imaging.JPEG, "image/jpeg"
	}
}
