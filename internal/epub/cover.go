package epub

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties" or "meta"
}

// Cover is a cover image read from the archive.
type Cover struct {
	CoverInfo
	Data []byte
}

// DetectCover detects the cover image from the manifest.
// Methods are tried in priority order:
//  1. properties="cover-image" (EPUB 3.0), first in manifest order
//  2. meta name="cover" (EPUB 2.0), whose content is a manifest id
//
// Returns nil if no cover image is found.
func (p *Package) DetectCover() *CoverInfo {
	for _, id := range p.ManifestOrder {
		item := p.Manifest[id]
		if item.HasProperty("cover-image") {
			return &CoverInfo{
				ManifestID:      item.ID,
				Href:            item.Href,
				MediaType:       item.MediaType,
				DetectionMethod: "properties",
			}
		}
	}

	if coverID := p.coverMetaID(); coverID != "" {
		if item, ok := p.Manifest[coverID]; ok {
			return &CoverInfo{
				ManifestID:      item.ID,
				Href:            item.Href,
				MediaType:       item.MediaType,
				DetectionMethod: "meta",
			}
		}
		p.log.Debug("cover meta names unknown manifest id", zap.String("id", coverID))
	}

	return nil
}

// coverMetaID returns the content of the first meta name="cover" element,
// trimmed. Blank content counts as absent.
func (p *Package) coverMetaID() string {
	meta := p.root.SelectElement("metadata")
	if meta == nil {
		return ""
	}
	for _, m := range meta.SelectElements("meta") {
		if m.SelectAttrValue("name", "") != "cover" {
			continue
		}
		return strings.TrimSpace(m.SelectAttrValue("content", ""))
	}
	return ""
}

// Cover reads the detected cover image. It returns nil, nil when the package
// names no cover or the cover entry is missing from the archive.
func (p *Package) Cover() (*Cover, error) {
	info := p.DetectCover()
	if info == nil {
		return nil, nil
	}

	data, err := ReadEntry(p.archive, info.Href, p.maxEntrySize)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			p.log.Warn("cover image missing from archive", zap.String("href", info.Href))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cover %s: %w", info.Href, err)
	}
	return &Cover{CoverInfo: *info, Data: data}, nil
}
