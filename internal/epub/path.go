package epub

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ResolvePath resolves href against baseDir into a canonical archive entry
// name: percent-decoded, NFC-normalized, cleaned of . and .. segments, and
// without a leading slash. An empty baseDir (or ".") means the archive root.
// A leading slash in href anchors it at the archive root.
//
// Hrefs that carry a URL scheme, are empty, or climb above the archive root
// yield ErrMalformedReference. Entry existence is not checked.
//
// Resolving an output again against an empty base returns it unchanged as
// long as it contains no valid %XX escape. A decoded name such as "a%41.xhtml"
// would be decoded a second time, so pass resolved names through
// CleanEntryName rather than ResolvePath.
func ResolvePath(baseDir, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("%w: empty href", ErrMalformedReference)
	}
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		return "", fmt.Errorf("%w: external href %q", ErrMalformedReference, href)
	}

	decoded, err := url.PathUnescape(href)
	if err != nil {
		// Literal % signs in entry names are legal.
		decoded = href
	}
	decoded = norm.NFC.String(decoded)

	var joined string
	if strings.HasPrefix(decoded, "/") {
		joined = strings.TrimLeft(decoded, "/")
	} else {
		baseDir = strings.Trim(baseDir, "/")
		if baseDir == "." {
			baseDir = ""
		}
		joined = path.Join(baseDir, decoded)
	}

	cleaned := path.Clean(joined)
	if cleaned == "." || cleaned == "" {
		return "", fmt.Errorf("%w: %q resolves to the archive root", ErrMalformedReference, href)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the archive root", ErrMalformedReference, href)
	}
	return cleaned, nil
}

// entryDir returns the directory of an archive entry name, "" for the root.
func entryDir(name string) string {
	dir := path.Dir(name)
	if dir == "." {
		return ""
	}
	return dir
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (p, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	p = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return p, fragment
}
