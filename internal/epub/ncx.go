package epub

import (
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

// NCXDocument is the EPUB 2 navigation control file of a package.
type NCXDocument struct {
	Path string

	root    *etree.Element
	builder navBuilder
}

// NCXDocument returns the NCX named by the spine's toc attribute, or else the
// first manifest item with the NCX media type. It is nil when neither exists
// or the file cannot be read.
func (p *Package) NCXDocument() *NCXDocument {
	p.ncxOnce.Do(func() {
		p.ncx = p.loadNCXDocument()
	})
	return p.ncx
}

func (p *Package) loadNCXDocument() *NCXDocument {
	item, ok := p.findNCXItem()
	if !ok {
		return nil
	}

	data, err := ReadEntry(p.archive, item.Href, p.maxEntrySize)
	if err != nil {
		p.log.Warn("failed to read NCX", zap.String("path", item.Href), zap.Error(err))
		return nil
	}
	root, err := parseXMLRoot(data, "ncx")
	if err != nil {
		p.log.Warn("failed to parse NCX", zap.String("path", item.Href), zap.Error(err))
		return nil
	}
	return &NCXDocument{
		Path:    item.Href,
		root:    root,
		builder: p.navBuilder(entryDir(item.Href)),
	}
}

func (p *Package) findNCXItem() (ManifestItem, bool) {
	if p.TocID != "" {
		if item, ok := p.Manifest[p.TocID]; ok {
			return item, true
		}
	}
	for _, id := range p.ManifestOrder {
		if item := p.Manifest[id]; item.MediaType == ncxMediaType {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func (d *NCXDocument) entries(kind NavKind) ([]NavEntry, bool) {
	var container, point string
	switch kind {
	case NavTOC:
		container, point = "navMap", "navPoint"
	case NavPageList:
		container, point = "pageList", "pageTarget"
	default:
		return nil, false
	}

	el := d.root.SelectElement(container)
	if el == nil {
		return nil, false
	}
	return d.points(el, point), true
}

// points converts navPoint or pageTarget children of parent, recursively.
func (d *NCXDocument) points(parent *etree.Element, tag string) []NavEntry {
	var out []NavEntry
	for _, pt := range parent.SelectElements(tag) {
		children := d.points(pt, tag)

		var title, src string
		if text := pt.FindElement("navLabel/text"); text != nil {
			title = cleanText(text.Text())
		}
		if content := pt.SelectElement("content"); content != nil {
			src = content.SelectAttrValue("src", "")
		}
		out = d.builder.appendEntry(out, title, src, children)
	}
	return out
}

// guideSource reads landmarks from the EPUB 2 guide element. Guide entries
// are always flat.
type guideSource struct {
	root    *etree.Element
	builder navBuilder
}

func (g guideSource) entries(kind NavKind) ([]NavEntry, bool) {
	if kind != NavLandmarks {
		return nil, false
	}
	guide := g.root.SelectElement("guide")
	if guide == nil {
		return nil, false
	}

	var out []NavEntry
	for _, ref := range guide.SelectElements("reference") {
		title := cleanText(ref.SelectAttrValue("title", ""))
		if title == "" {
			title = strings.TrimSpace(ref.SelectAttrValue("type", ""))
		}
		out = g.builder.appendEntry(out, title, ref.SelectAttrValue("href", ""), nil)
	}
	return out, true
}
