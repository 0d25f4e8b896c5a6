package epub

// Metadata represents the metadata section of the package document
type Metadata struct {
	Title                    string    `json:"title,omitempty"`
	Creators                 []Creator `json:"creators,omitempty"`
	Language                 string    `json:"language,omitempty"`
	Identifier               string    `json:"identifier,omitempty"`
	Publisher                string    `json:"publisher,omitempty"`
	Date                     string    `json:"date,omitempty"`
	Description              string    `json:"description,omitempty"`
	Subjects                 []string  `json:"subjects,omitempty"`
	Rights                   string    `json:"rights,omitempty"`
	Version                  string    `json:"version,omitempty"`
	PageProgressionDirection string    `json:"pageProgressionDirection,omitempty"`
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"` // e.g., "aut" for author, "edt" for editor
}

// ManifestItem represents an item in the manifest. Href is already resolved
// to an archive entry name.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether the item carries the given property token.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// ResourceKind tags a content resource as part of the reading order or not.
type ResourceKind string

const (
	KindPage  ResourceKind = "page"
	KindAsset ResourceKind = "asset"
)

// Resource is a manifest item resolved against the archive. Size is nil when
// the archive cannot report the entry's uncompressed size.
type Resource struct {
	ID        string       `json:"id"`
	Href      string       `json:"href"`
	MediaType string       `json:"mediaType"`
	Kind      ResourceKind `json:"kind"`
	Size      *int64       `json:"size,omitempty"`
	Linear    bool         `json:"linear,omitempty"`
}

// NavEntry is a node of a table of contents, landmarks or page list tree.
type NavEntry struct {
	Title    string     `json:"title"`
	Href     string     `json:"href"`
	Children []NavEntry `json:"children,omitempty"`
}

// Locator is a synthetic reading position.
type Locator struct {
	Href             string  `json:"href"`
	MediaType        string  `json:"mediaType"`
	Progression      float64 `json:"progression"`
	Position         int     `json:"position"`
	TotalProgression float64 `json:"totalProgression"`
}
