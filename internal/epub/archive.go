package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"slices"
	"strings"
)

// UnknownSize marks an entry whose uncompressed size the archive cannot report.
const UnknownSize int64 = -1

// DefaultMaxEntrySize caps how much of a single entry ReadEntry will decompress.
const DefaultMaxEntrySize int64 = 256 * 1024 * 1024

// Entry describes a single archive member.
type Entry struct {
	Name             string
	CompressedSize   int64
	UncompressedSize int64 // UnknownSize when not reported
}

// Archive is random access to the members of an EPUB container.
// Implementations must be safe for concurrent Open calls.
type Archive interface {
	Entries() []Entry
	Entry(name string) (Entry, bool)
	Open(name string) (io.ReadCloser, error)
}

// ZipArchive is an Archive backed by archive/zip.
type ZipArchive struct {
	closer  io.Closer
	files   map[string]*zip.File
	index   map[string]int // name -> position in entries
	entries []Entry
}

// OpenZip opens the EPUB file at filename. The caller must Close it.
func OpenZip(filename string) (*ZipArchive, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat EPUB: %w", err)
	}

	a, err := NewZipArchive(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	a.closer = f
	return a, nil
}

// NewZipArchive reads the zip directory from r. Close is a no-op for
// archives created this way.
func NewZipArchive(r io.ReaderAt, size int64) (*ZipArchive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip directory: %w", err)
	}

	a := &ZipArchive{
		files:   make(map[string]*zip.File, len(zr.File)),
		index:   make(map[string]int, len(zr.File)),
		entries: make([]Entry, 0, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizeEntryName(f.Name)
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		a.index[name] = len(a.entries)
		a.entries = append(a.entries, Entry{
			Name:             name,
			CompressedSize:   int64(f.CompressedSize64),
			UncompressedSize: zipUncompressedSize(f),
		})
	}
	return a, nil
}

// NewZipArchiveFromBytes is a convenience for archives held in memory.
func NewZipArchiveFromBytes(data []byte) (*ZipArchive, error) {
	return NewZipArchive(bytes.NewReader(data), int64(len(data)))
}

// Close releases the underlying file, if any.
func (a *ZipArchive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Entries returns all file entries in archive order.
func (a *ZipArchive) Entries() []Entry {
	return slices.Clone(a.entries)
}

// Entry looks up a single entry by canonical name.
func (a *ZipArchive) Entry(name string) (Entry, bool) {
	i, ok := a.index[normalizeEntryName(name)]
	if !ok {
		return Entry{}, false
	}
	return a.entries[i], true
}

// Open returns a stream for the named entry or an error wrapping ErrEntryNotFound.
func (a *ZipArchive) Open(name string) (io.ReadCloser, error) {
	f, ok := a.files[normalizeEntryName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
	}
	return rc, nil
}

const (
	zipFlagDataDescriptor = 0x8
	// Ambiguous entries up to this compressed size are decompressed to
	// learn their real size.
	smallEntryLimit = 64
)

// zipUncompressedSize reports UnknownSize for streamed entries whose
// directory record carries no size even though data is present. A zero size
// is trusted when the entry has no data descriptor, since its headers then
// hold the real sizes. Empty files still compress to a few bytes, so small
// ambiguous entries are measured instead.
func zipUncompressedSize(f *zip.File) int64 {
	if f.UncompressedSize64 != 0 || f.CompressedSize64 == 0 {
		return int64(f.UncompressedSize64)
	}
	if f.Flags&zipFlagDataDescriptor == 0 {
		return 0
	}
	if f.CompressedSize64 <= smallEntryLimit {
		if n, err := measureZipFile(f); err == nil {
			return n
		}
	}
	return UnknownSize
}

func measureZipFile(f *zip.File) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(io.Discard, rc)
}

// CleanEntryName canonicalizes a literal archive entry name: leading slashes
// and . or .. segments are removed. Unlike ResolvePath it does not
// percent-decode, so stored names containing % sequences stay addressable.
func CleanEntryName(name string) (string, error) {
	cleaned := path.Clean(strings.TrimLeft(strings.TrimSpace(name), "/"))
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("%w: empty entry name %q", ErrMalformedReference, name)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the archive root", ErrMalformedReference, name)
	}
	return cleaned, nil
}

// normalizeEntryName removes ./ and leading slashes from archive names.
func normalizeEntryName(name string) string {
	name = strings.TrimPrefix(name, "./")
	return strings.TrimLeft(name, "/")
}

// ReadEntry reads the whole entry, refusing entries larger than limit.
// A limit <= 0 means DefaultMaxEntrySize.
func ReadEntry(a Archive, name string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxEntrySize
	}
	if e, ok := a.Entry(name); ok && e.UncompressedSize > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrEntryTooLarge, name, e.UncompressedSize, limit)
	}

	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// The declared size may be forged, so read one byte past the limit.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s (max %d)", ErrEntryTooLarge, name, limit)
	}
	return data, nil
}

// MeasureEntry counts the uncompressed bytes of an entry by streaming it.
func MeasureEntry(a Archive, name string) (int64, error) {
	rc, err := a.Open(name)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.Copy(io.Discard, rc)
	if err != nil {
		return 0, fmt.Errorf("failed to measure entry %s: %w", name, err)
	}
	return n, nil
}
