package epub

import "go.uber.org/zap"

// Resources classifies the manifest: spine items become pages in spine order,
// followed by every other manifest item as an asset in manifest order. Items
// whose entry is missing from the archive are dropped.
func (p *Package) Resources() []Resource {
	resources := make([]Resource, 0, len(p.ManifestOrder))
	inSpine := make(map[string]bool, len(p.Spine))

	for _, si := range p.Spine {
		inSpine[si.IDRef] = true
		if r, ok := p.resource(p.Manifest[si.IDRef], KindPage); ok {
			r.Linear = si.Linear
			resources = append(resources, r)
		}
	}

	for _, id := range p.ManifestOrder {
		if inSpine[id] {
			continue
		}
		if r, ok := p.resource(p.Manifest[id], KindAsset); ok {
			resources = append(resources, r)
		}
	}
	return resources
}

func (p *Package) resource(item ManifestItem, kind ResourceKind) (Resource, bool) {
	entry, ok := p.archive.Entry(item.Href)
	if !ok {
		p.log.Warn("dropping resource missing from archive", zap.String("id", item.ID), zap.String("href", item.Href))
		return Resource{}, false
	}

	r := Resource{
		ID:        item.ID,
		Href:      item.Href,
		MediaType: item.MediaType,
		Kind:      kind,
	}
	if entry.UncompressedSize != UnknownSize {
		size := entry.UncompressedSize
		r.Size = &size
	}
	return r, true
}

// Pages returns the reading-order resources of resources.
func Pages(resources []Resource) []Resource {
	var pages []Resource
	for _, r := range resources {
		if r.Kind == KindPage {
			pages = append(pages, r)
		}
	}
	return pages
}
