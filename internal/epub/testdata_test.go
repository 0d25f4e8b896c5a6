package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

// testFile is one member of a synthetic EPUB.
type testFile struct {
	name string
	body string
}

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// buildZip writes files into an in-memory zip. The mimetype entry is stored
// uncompressed like a real EPUB.
func buildZip(t *testing.T, files ...testFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		method := zip.Deflate
		if f.name == "mimetype" {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: method})
		if err != nil {
			t.Fatalf("failed to create %s: %v", f.name, err)
		}
		if _, err := fw.Write([]byte(f.body)); err != nil {
			t.Fatalf("failed to write %s: %v", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// newTestArchive builds an EPUB whose package document is OEBPS/content.opf.
func newTestArchive(t *testing.T, opf string, extra ...testFile) *ZipArchive {
	t.Helper()
	files := []testFile{
		{name: "mimetype", body: "application/epub+zip"},
		{name: "META-INF/container.xml", body: testContainerXML},
		{name: "OEBPS/content.opf", body: opf},
	}
	files = append(files, extra...)

	a, err := NewZipArchiveFromBytes(buildZip(t, files...))
	if err != nil {
		t.Fatalf("NewZipArchiveFromBytes() error = %v", err)
	}
	return a
}

// loadTestPackage builds an archive and loads its package document.
func loadTestPackage(t *testing.T, opf string, extra ...testFile) *Package {
	t.Helper()
	pkg, err := LoadPackage(newTestArchive(t, opf, extra...), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadPackage() error = %v", err)
	}
	return pkg
}

// opfDocument wraps manifest, spine and metadata fragments in a package element.
func opfDocument(version, metadata, manifest, spine string, rest ...string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="%s" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Test Book</dc:title>
    <dc:identifier id="bookid">urn:uuid:test</dc:identifier>
    %s
  </metadata>
  <manifest>
    %s
  </manifest>
  %s
  %s
</package>`, version, metadata, manifest, spine, strings.Join(rest, "\n"))
}

func xhtmlPage(title string, size int) string {
	head := fmt.Sprintf(`<html xmlns="http://www.w3.org/1999/xhtml"><head><title>%s</title></head><body><p>`, title)
	tail := `</p></body></html>`
	if pad := size - len(head) - len(tail); pad > 0 {
		return head + strings.Repeat("x", pad) + tail
	}
	return head + tail
}

// fakeArchive is an in-memory Archive with explicit size metadata.
type fakeArchive struct {
	entries []Entry
	data    map[string]string
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{data: make(map[string]string)}
}

func (f *fakeArchive) add(name, body string, compressed, uncompressed int64) *fakeArchive {
	f.entries = append(f.entries, Entry{Name: name, CompressedSize: compressed, UncompressedSize: uncompressed})
	f.data[name] = body
	return f
}

func (f *fakeArchive) Entries() []Entry {
	return f.entries
}

func (f *fakeArchive) Entry(name string) (Entry, bool) {
	for _, e := range f.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

func (f *fakeArchive) Open(name string) (io.ReadCloser, error) {
	body, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}
