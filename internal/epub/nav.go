package epub

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// NavDocument is the EPUB 3 navigation document of a package.
type NavDocument struct {
	Path string

	doc     *goquery.Document
	builder navBuilder
}

// NavDocument returns the manifest item flagged with the nav property, parsed,
// or nil when the package has none or it cannot be read.
func (p *Package) NavDocument() *NavDocument {
	p.navOnce.Do(func() {
		p.nav = p.loadNavDocument()
	})
	return p.nav
}

func (p *Package) loadNavDocument() *NavDocument {
	for _, id := range p.ManifestOrder {
		item := p.Manifest[id]
		if !item.HasProperty("nav") {
			continue
		}

		data, err := ReadEntry(p.archive, item.Href, p.maxEntrySize)
		if err != nil {
			p.log.Warn("failed to read navigation document", zap.String("path", item.Href), zap.Error(err))
			return nil
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			p.log.Warn("failed to parse navigation document", zap.String("path", item.Href), zap.Error(err))
			return nil
		}
		return &NavDocument{
			Path:    item.Href,
			doc:     doc,
			builder: p.navBuilder(entryDir(item.Href)),
		}
	}
	return nil
}

func (d *NavDocument) entries(kind NavKind) ([]NavEntry, bool) {
	nav := d.doc.Find("nav").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return hasEpubType(s, kind.String())
	}).First()
	if nav.Length() == 0 {
		return nil, false
	}

	list := nav.Find("ol, ul").First()
	if list.Length() == 0 {
		return nil, true
	}
	return d.listEntries(list), true
}

// listEntries walks the li children of an ol/ul. Each li contributes its
// first anchor outside the nested list, and the entries of that list.
func (d *NavDocument) listEntries(list *goquery.Selection) []NavEntry {
	var out []NavEntry
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		var children []NavEntry
		if sub := li.ChildrenFiltered("ol, ul").First(); sub.Length() > 0 {
			children = d.listEntries(sub)
		}

		a := li.ChildrenFiltered("a").First()
		if a.Length() == 0 {
			// anchor wrapped in a span or similar, outside the nested list
			a = li.ChildrenFiltered(":not(ol):not(ul)").Find("a").First()
		}
		if a.Length() == 0 {
			// span heading
			out = append(out, children...)
			return
		}
		out = d.builder.appendEntry(out, cleanText(a.Text()), a.AttrOr("href", ""), children)
	})
	return out
}

// hasEpubType checks for a token in the space-separated epub:type attribute.
func hasEpubType(s *goquery.Selection, typeName string) bool {
	for _, t := range strings.Fields(s.AttrOr("epub:type", "")) {
		if t == typeName {
			return true
		}
	}
	return false
}
