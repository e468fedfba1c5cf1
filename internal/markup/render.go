package markup

import (
	"bytes"
	"fmt"
)

// Rendered is the HTML of a full render plus the heading ids it assigned.
type Rendered struct {
	HTML     string
	Headings []HeadingID
}

// Render converts markup to HTML with hierarchical heading ids. Every call
// gets its own HeadingIDs, so concurrent renders never share a heading stack.
func Render(text string) (Rendered, error) {
	ids := NewHeadingIDs()
	md := newMarkdown(headingIDExtension{ids: ids})

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return Rendered{}, fmt.Errorf("render markup: %w", err)
	}
	return Rendered{HTML: buf.String(), Headings: ids.Assigned()}, nil
}
