package epub

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const ncxMediaType = "application/x-dtbncx+xml"

// LoadOptions configures LoadPackage.
type LoadOptions struct {
	Logger       *zap.Logger
	MaxEntrySize int64 // <= 0 means DefaultMaxEntrySize
}

// Package is the parsed package document of one EPUB together with the
// archive it came from. It is read-only after LoadPackage returns and may be
// shared between goroutines.
type Package struct {
	Path          string // archive path of the package document
	BaseDir       string // directory of Path, "" for the archive root
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string
	Spine         []SpineItem
	TocID         string

	archive      Archive
	root         *etree.Element
	log          *zap.Logger
	maxEntrySize int64

	navOnce sync.Once
	nav     *NavDocument
	ncxOnce sync.Once
	ncx     *NCXDocument
}

// LoadPackage locates and parses the package document of a. The only failure
// is a *PackageParseError; missing navigation documents, dangling spine
// references and unresolvable manifest hrefs are tolerated.
func LoadPackage(a Archive, opts LoadOptions) (*Package, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := checkMimetype(a); err != nil {
		log.Warn("invalid mimetype entry", zap.Error(err))
	}

	pkgPath, err := FindPackagePath(a, log)
	if err != nil {
		return nil, &PackageParseError{Path: containerPath, Err: err}
	}

	data, err := ReadEntry(a, pkgPath, opts.MaxEntrySize)
	if err != nil {
		return nil, &PackageParseError{Path: pkgPath, Err: err}
	}

	root, err := parseXMLRoot(data, "package")
	if err != nil {
		return nil, &PackageParseError{Path: pkgPath, Err: err}
	}

	p := &Package{
		Path:         pkgPath,
		BaseDir:      entryDir(pkgPath),
		Manifest:     make(map[string]ManifestItem),
		archive:      a,
		root:         root,
		log:          log,
		maxEntrySize: opts.MaxEntrySize,
	}
	p.parseManifest()
	p.parseSpine()
	p.Metadata = parseMetadata(root)

	log.Debug("loaded package document",
		zap.String("path", pkgPath),
		zap.String("version", p.Metadata.Version),
		zap.Int("manifest", len(p.ManifestOrder)),
		zap.Int("spine", len(p.Spine)))
	return p, nil
}

// Archive returns the archive the package was loaded from.
func (p *Package) Archive() Archive {
	return p.archive
}

// parseXMLRoot parses data tolerantly and checks the root element's local name.
func parseXMLRoot(data []byte, want string) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("malformed XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if root.Tag != want {
		return nil, fmt.Errorf("root element is <%s>, want <%s>", root.Tag, want)
	}
	return root, nil
}

func (p *Package) parseManifest() {
	manifest := p.root.SelectElement("manifest")
	if manifest == nil {
		p.log.Warn("package document has no manifest", zap.String("path", p.Path))
		return
	}

	for _, el := range manifest.SelectElements("item") {
		id := strings.TrimSpace(el.SelectAttrValue("id", ""))
		if id == "" {
			continue
		}
		if _, dup := p.Manifest[id]; dup {
			p.log.Debug("duplicate manifest id, keeping first", zap.String("id", id))
			continue
		}

		rawHref := el.SelectAttrValue("href", "")
		href, err := ResolvePath(p.BaseDir, rawHref)
		if err != nil {
			p.log.Warn("dropping manifest item", zap.String("id", id), zap.String("href", rawHref), zap.Error(err))
			continue
		}

		item := ManifestItem{
			ID:        id,
			Href:      href,
			MediaType: strings.TrimSpace(el.SelectAttrValue("media-type", "")),
		}
		// Parse properties (space-separated)
		if props := el.SelectAttrValue("properties", ""); strings.TrimSpace(props) != "" {
			item.Properties = strings.Fields(props)
		}
		p.Manifest[id] = item
		p.ManifestOrder = append(p.ManifestOrder, id)
	}
}

func (p *Package) parseSpine() {
	spine := p.root.SelectElement("spine")
	if spine == nil {
		return
	}
	p.TocID = strings.TrimSpace(spine.SelectAttrValue("toc", ""))

	for _, el := range spine.SelectElements("itemref") {
		idref := strings.TrimSpace(el.SelectAttrValue("idref", ""))
		if _, ok := p.Manifest[idref]; !ok {
			p.log.Debug("skipping dangling spine reference", zap.String("idref", idref))
			continue
		}
		p.Spine = append(p.Spine, SpineItem{
			IDRef:  idref,
			Linear: el.SelectAttrValue("linear", "") != "no",
		})
	}
}

// parseMetadata parses the metadata section
func parseMetadata(root *etree.Element) Metadata {
	md := Metadata{
		Version: strings.TrimSpace(root.SelectAttrValue("version", "")),
	}
	if spine := root.SelectElement("spine"); spine != nil {
		md.PageProgressionDirection = spine.SelectAttrValue("page-progression-direction", "")
	}

	meta := root.SelectElement("metadata")
	if meta == nil {
		return md
	}

	md.Title = firstText(meta, "title")
	md.Language = firstText(meta, "language")
	md.Publisher = firstText(meta, "publisher")
	md.Date = firstText(meta, "date")
	md.Description = firstText(meta, "description")
	md.Rights = firstText(meta, "rights")
	for _, el := range meta.SelectElements("subject") {
		if s := strings.TrimSpace(el.Text()); s != "" {
			md.Subjects = append(md.Subjects, s)
		}
	}

	// Identifier (find the one marked as unique-identifier)
	uniqueID := root.SelectAttrValue("unique-identifier", "")
	for _, el := range meta.SelectElements("identifier") {
		if uniqueID != "" && el.SelectAttrValue("id", "") == uniqueID {
			md.Identifier = strings.TrimSpace(el.Text())
			break
		}
	}
	if md.Identifier == "" {
		md.Identifier = firstText(meta, "identifier")
	}

	// EPUB 3.0 refines creator roles through meta elements
	roles := make(map[string]string)
	for _, m := range meta.SelectElements("meta") {
		if m.SelectAttrValue("property", "") == "role" {
			if refines := m.SelectAttrValue("refines", ""); refines != "" {
				roles[strings.TrimPrefix(refines, "#")] = strings.TrimSpace(m.Text())
			}
		}
	}
	for _, el := range meta.SelectElements("creator") {
		c := Creator{
			Name: strings.TrimSpace(el.Text()),
			Role: el.SelectAttrValue("role", ""),
		}
		if role, ok := roles[el.SelectAttrValue("id", "")]; ok && role != "" {
			c.Role = role
		}
		if c.Name != "" {
			md.Creators = append(md.Creators, c)
		}
	}

	return md
}

func firstText(parent *etree.Element, tag string) string {
	for _, el := range parent.SelectElements(tag) {
		if s := strings.TrimSpace(el.Text()); s != "" {
			return s
		}
	}
	return ""
}
