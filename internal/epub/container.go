package epub

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

const (
	containerPath      = "META-INF/container.xml"
	packageMediaType   = "application/oebps-package+xml"
	epubMimetype       = "application/epub+zip"
	mimetypeEntryName  = "mimetype"
	packageDocumentExt = ".opf"
)

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// FindPackagePath returns the archive path of the package document. The
// container's rootfile pointer is preferred; when the container is absent or
// empty the first .opf entry in archive order is used.
func FindPackagePath(a Archive, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	pkgPath, err := parseContainer(a)
	if err == nil {
		return pkgPath, nil
	}
	log.Debug("container lookup failed, scanning for package document", zap.Error(err))

	for _, e := range a.Entries() {
		if strings.EqualFold(path.Ext(e.Name), packageDocumentExt) {
			return e.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %v", ErrPackageNotFound, err)
}

// parseContainer parses container.xml to extract the package document path.
func parseContainer(a Archive) (string, error) {
	content, err := ReadEntry(a, containerPath, 0)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return "", ErrContainerNotFound
		}
		return "", err
	}

	var c container
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&c); err != nil {
		return "", fmt.Errorf("failed to parse container.xml: %w", err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath == "" {
			continue
		}
		if rf.MediaType == packageMediaType || rf.MediaType == "" {
			return ResolvePath("", rf.FullPath)
		}
	}
	// If no media-type match, use the first one
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" {
			return ResolvePath("", rf.FullPath)
		}
	}
	return "", fmt.Errorf("%w: container.xml names no rootfile", ErrPackageNotFound)
}

// checkMimetype reports whether the mimetype entry is present and correct.
// EPUBs in the wild often get this wrong, so callers only log the result.
func checkMimetype(a Archive) error {
	content, err := ReadEntry(a, mimetypeEntryName, 1024)
	if err != nil {
		return fmt.Errorf("mimetype: %w", err)
	}
	if got := strings.TrimSpace(string(content)); got != epubMimetype {
		return fmt.Errorf("mimetype is %q, want %q", got, epubMimetype)
	}
	return nil
}
