package inspector

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yuanying/epubinspect/internal/epub"
)

const defaultWorkers = 4

// Options holds options for the inspector.
type Options struct {
	Logger       *zap.Logger
	Workers      int   // bound on concurrent extraction steps; <= 0 means 4
	MaxEntrySize int64 // per-entry read limit; <= 0 means epub.DefaultMaxEntrySize
}

// Manifest is everything a reading application needs to lay out a book.
type Manifest struct {
	Metadata    epub.Metadata   `json:"metadata"`
	Resources   []epub.Resource `json:"resources"`
	TOC         []epub.NavEntry `json:"toc"`
	Landmarks   []epub.NavEntry `json:"landmarks"`
	PageList    []epub.NavEntry `json:"pageList"`
	PageCount   int             `json:"pageCount"`
	FixedLayout bool            `json:"fixedLayout"`
	Locators    []epub.Locator  `json:"locators"`
}

// Inspector extracts manifests, covers and raw entries from EPUB files. It
// holds no per-book state and is safe for concurrent use.
type Inspector struct {
	Options Options
	log     *zap.Logger
}

// New creates an Inspector.
func New(opts Options) *Inspector {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxEntrySize <= 0 {
		opts.MaxEntrySize = epub.DefaultMaxEntrySize
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Inspector{Options: opts, log: log}
}

// EntryStream returns the bytes of one archive entry. A missing entry yields
// an error wrapping epub.ErrEntryNotFound.
func (i *Inspector) EntryStream(archivePath, entryName string) ([]byte, error) {
	a, err := epub.OpenZip(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	name, err := epub.CleanEntryName(entryName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", epub.ErrEntryNotFound, entryName)
	}
	return epub.ReadEntry(a, name, i.Options.MaxEntrySize)
}

// Cover returns the cover image of the book, or nil when it has none.
func (i *Inspector) Cover(archivePath string) (*epub.Cover, error) {
	a, err := epub.OpenZip(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	pkg, err := i.load(a)
	if err != nil {
		return nil, err
	}
	return pkg.Cover()
}

// Manifest opens the EPUB at archivePath and extracts its manifest.
func (i *Inspector) Manifest(archivePath string) (*Manifest, error) {
	a, err := epub.OpenZip(archivePath)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return i.ManifestFromArchive(a)
}

// ManifestFromArchive extracts the manifest of an already opened archive.
// It fails only with an *epub.PackageParseError or an error reading a page
// whose size had to be measured.
func (i *Inspector) ManifestFromArchive(a epub.Archive) (*Manifest, error) {
	pkg, err := i.load(a)
	if err != nil {
		return nil, err
	}

	m := &Manifest{Metadata: pkg.Metadata}

	// The steps below only read pkg, so they may run side by side.
	var g errgroup.Group
	g.SetLimit(i.Options.Workers)
	g.Go(func() error {
		m.Resources = pkg.Resources()
		return nil
	})
	g.Go(func() error {
		m.FixedLayout = pkg.IsFixedLayout()
		return nil
	})
	g.Go(func() error {
		m.TOC = pkg.TOC()
		return nil
	})
	g.Go(func() error {
		m.Landmarks = pkg.Landmarks()
		return nil
	})
	g.Go(func() error {
		m.PageList = pkg.PageList()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := epub.Pages(m.Resources)
	m.PageCount = epub.EstimatePageCount(a, pages)

	if !m.FixedLayout {
		if err := i.fillSizes(a, pages); err != nil {
			return nil, err
		}
	}
	locators, err := epub.SynthesizePositions(pages, m.FixedLayout)
	if err != nil {
		return nil, err
	}
	if locators == nil {
		locators = []epub.Locator{}
	}
	m.Locators = locators

	i.log.Debug("extracted manifest",
		zap.String("package", pkg.Path),
		zap.Int("resources", len(m.Resources)),
		zap.Int("locators", len(m.Locators)),
		zap.Bool("fixedLayout", m.FixedLayout))
	return m, nil
}

// fillSizes measures pages whose archive entry has no recorded size, so that
// position synthesis always has one.
func (i *Inspector) fillSizes(a epub.Archive, pages []epub.Resource) error {
	for n := range pages {
		if pages[n].Size != nil {
			continue
		}
		size, err := epub.MeasureEntry(a, pages[n].Href)
		if err != nil {
			return fmt.Errorf("failed to measure page %s: %w", pages[n].Href, err)
		}
		i.log.Debug("measured page with unknown size", zap.String("href", pages[n].Href), zap.Int64("size", size))
		pages[n].Size = &size
	}
	return nil
}

func (i *Inspector) load(a epub.Archive) (*epub.Package, error) {
	return epub.LoadPackage(a, epub.LoadOptions{
		Logger:       i.log,
		MaxEntrySize: i.Options.MaxEntrySize,
	})
}
