package epub

import (
	"errors"
	"fmt"
)

var (
	ErrEntryNotFound      = errors.New("epub: entry not found in archive")
	ErrEntryTooLarge      = errors.New("epub: entry exceeds size limit")
	ErrMalformedReference = errors.New("epub: malformed reference")
	ErrContainerNotFound  = errors.New("epub: META-INF/container.xml not found")
	ErrPackageNotFound    = errors.New("epub: package document not found")
	// ErrUnknownSize is returned by SynthesizePositions when a reflowable page
	// has no byte size.
	ErrUnknownSize = errors.New("epub: resource size unknown")
)

// PackageParseError reports a package document that could not be parsed.
// Extraction aborts when it occurs.
type PackageParseError struct {
	Path string
	Err  error
}

func (e *PackageParseError) Error() string {
	return fmt.Sprintf("epub: failed to parse package document %s: %v", e.Path, e.Err)
}

func (e *PackageParseError) Unwrap() error {
	return e.Err
}
