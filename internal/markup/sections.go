package markup

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	maxSectionTitle = 500
	untitledSection = "Untitled Section"
)

// ExtractSections splits body into one section per heading. Blocks before the
// first heading go into a depth-1 section titled fallbackTitle (or "Untitled
// Section"). Each section's content is the rendered HTML of its heading and
// every block up to the next heading, whatever that heading's depth.
//
// Output depends only on the arguments; heading ids are not assigned here.
func ExtractSections(body, fallbackTitle string) []brew.Section {
	if fallbackTitle == "" {
		fallbackTitle = untitledSection
	}

	src := []byte(body)
	md := newMarkdown()
	doc := md.Parser().Parse(text.NewReader(src))

	sections := make([]brew.Section, 0)
	var current *brew.Section
	var blocks []ast.Node

	flush := func() {
		if current == nil {
			return
		}
		// Writes go to a bytes.Buffer and none of our renderers fail.
		current.Content, _ = renderNodes(md, src, blocks)
		sections = append(sections, *current)
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			flush()
			current = &brew.Section{
				Title: truncateRunes(headingSource(h, src), maxSectionTitle),
				Depth: h.Level,
			}
			blocks = nil
		} else if current == nil {
			current = &brew.Section{Title: fallbackTitle, Depth: 1}
		}
		blocks = append(blocks, n)
	}
	flush()

	return sections
}

// DocumentSections applies the embedded header and front cover handling to
// doc and extracts the sections of its body.
func DocumentSections(doc brew.Document) ([]brew.Section, error) {
	d, err := prepare(doc)
	if err != nil {
		return nil, err
	}
	return ExtractSections(SectionsSource(d.Text, d.Renderer.Normalize()), d.Title), nil
}

// headingSource is the raw markup of a heading's text.
func headingSource(h *ast.Heading, src []byte) string {
	var sb strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(src))
	}
	return strings.TrimSpace(sb.String())
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
