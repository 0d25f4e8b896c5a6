package epub

import "strings"

const fixedLayoutValue = "pre-paginated"

// IsFixedLayout reports whether the package declares rendition:layout
// pre-paginated. Both the prefixed and the bare property name are accepted.
func (p *Package) IsFixedLayout() bool {
	meta := p.root.SelectElement("metadata")
	if meta == nil {
		return false
	}
	for _, m := range meta.SelectElements("meta") {
		switch m.SelectAttrValue("property", "") {
		case "rendition:layout", "layout":
			return strings.TrimSpace(m.Text()) == fixedLayoutValue
		}
	}
	return false
}
