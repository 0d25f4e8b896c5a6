package epub

import (
	"strings"

	"go.uber.org/zap"
)

// NavKind selects one of the navigation trees of a package.
type NavKind int

const (
	NavTOC NavKind = iota
	NavLandmarks
	NavPageList
)

// String returns the EPUB 3 nav type token for the kind.
func (k NavKind) String() string {
	switch k {
	case NavTOC:
		return "toc"
	case NavLandmarks:
		return "landmarks"
	case NavPageList:
		return "page-list"
	default:
		return "unknown"
	}
}

// navSource is one place a navigation tree can come from. ok is false when
// the source has no structure for kind, which moves extraction on to the
// next source.
type navSource interface {
	entries(kind NavKind) (entries []NavEntry, ok bool)
}

// TOC returns the table of contents.
func (p *Package) TOC() []NavEntry {
	return p.Navigation(NavTOC)
}

// Landmarks returns the landmarks, falling back to the guide for EPUB 2.
func (p *Package) Landmarks() []NavEntry {
	return p.Navigation(NavLandmarks)
}

// PageList returns the page list.
func (p *Package) PageList() []NavEntry {
	return p.Navigation(NavPageList)
}

// Navigation extracts the tree of the given kind from the first source that
// has one: the EPUB 3 navigation document, then the NCX (toc, page-list) or
// the package guide (landmarks). The result is never nil.
func (p *Package) Navigation(kind NavKind) []NavEntry {
	for _, src := range p.navSources(kind) {
		if entries, ok := src.entries(kind); ok {
			if entries == nil {
				entries = []NavEntry{}
			}
			return entries
		}
	}
	p.log.Debug("no navigation source", zap.Stringer("kind", kind))
	return []NavEntry{}
}

func (p *Package) navSources(kind NavKind) []navSource {
	var sources []navSource
	if nav := p.NavDocument(); nav != nil {
		sources = append(sources, nav)
	}
	switch kind {
	case NavLandmarks:
		sources = append(sources, guideSource{root: p.root, builder: p.navBuilder(p.BaseDir)})
	default:
		if ncx := p.NCXDocument(); ncx != nil {
			sources = append(sources, ncx)
		}
	}
	return sources
}

// navBuilder resolves navigation hrefs relative to the document they were
// found in and drops those that do not name an archive entry.
type navBuilder struct {
	dir     string
	archive Archive
	log     *zap.Logger
}

func (p *Package) navBuilder(dir string) navBuilder {
	return navBuilder{dir: dir, archive: p.archive, log: p.log}
}

// resolve returns the canonical target of raw, keeping any fragment.
func (b navBuilder) resolve(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	target, fragment := splitFragment(raw)
	href, err := ResolvePath(b.dir, target)
	if err != nil {
		b.log.Warn("dropping navigation entry", zap.String("href", raw), zap.Error(err))
		return "", false
	}
	if _, ok := b.archive.Entry(href); !ok {
		b.log.Warn("dropping navigation entry with missing target", zap.String("href", raw), zap.String("resolved", href))
		return "", false
	}

	if fragment != "" {
		href += "#" + fragment
	}
	return href, true
}

// appendEntry adds an entry for title/raw to out. Entries whose target cannot
// be resolved are dropped and their children take their place.
func (b navBuilder) appendEntry(out []NavEntry, title, raw string, children []NavEntry) []NavEntry {
	href, ok := b.resolve(raw)
	if !ok {
		return append(out, children...)
	}
	return append(out, NavEntry{Title: title, Href: href, Children: children})
}

// cleanText collapses runs of whitespace in label text.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
