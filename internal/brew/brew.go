package brew

import (
	"slices"
	"strings"
)

// Mode selects the page-break grammar a document was written for.
type Mode string

const (
	ModeLegacy Mode = "legacy"
	ModeV3     Mode = "V3"
)

// Normalize maps anything that is not the legacy renderer to V3.
func (m Mode) Normalize() Mode {
	if m == ModeLegacy {
		return ModeLegacy
	}
	return ModeV3
}

// FrontCoverMarker marks a document whose first page is a front cover.
const FrontCoverMarker = "{{frontCover"

// Document is a stored brew as handed to us by the persistence layer.
type Document struct {
	Text      string `json:"text"`
	ShareID   string `json:"shareId,omitempty"`
	EditID    string `json:"editId,omitempty"`
	Published bool   `json:"published"`
	Renderer  Mode   `json:"renderer,omitempty"`
	Title     string `json:"title,omitempty"`

	// Populated from the embedded metadata/style header, if any.
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Theme       string   `json:"theme,omitempty"`
	Lang        string   `json:"lang,omitempty"`
	Style       string   `json:"style,omitempty"`
}

// Clone returns a deep copy so callers can keep mutating the original.
func (d Document) Clone() Document {
	c := d
	c.Tags = slices.Clone(d.Tags)
	return c
}

// HasFrontCover reports whether the text carries the front cover marker.
func (d Document) HasFrontCover() bool {
	return strings.Contains(d.Text, FrontCoverMarker)
}

// Section is a heading-delimited region of a document body.
type Section struct {
	Title   string `json:"title"`
	Depth   int    `json:"depth"`
	Content string `json:"content"`
}
