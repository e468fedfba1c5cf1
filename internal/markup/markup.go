// Package markup decomposes brew text into pages, heading-keyed sections and
// rendered HTML. It is built on goldmark; every exported function builds its
// own goldmark instance, so nothing here carries state between calls.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dgallion1/brewsync/internal/brew"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
)

// newMarkdown returns a goldmark instance with the brew block syntax and GFM
// tables enabled. Extra extenders are applied last.
func newMarkdown(extra ...goldmark.Extender) goldmark.Markdown {
	exts := []goldmark.Extender{
		extension.Table,
		extension.Strikethrough,
		blockExtension{},
	}
	exts = append(exts, extra...)
	return goldmark.New(goldmark.WithExtensions(exts...))
}

// Decomposition is what the sync path needs from one document snapshot.
type Decomposition struct {
	// Title is the document title after the embedded header was applied.
	Title      string
	Sections   []brew.Section
	FrontCover string
}

// Decompose splits a document into sections and, when the front cover marker
// is present, renders page 0 as the cover. The caller's document is not
// modified.
func Decompose(doc brew.Document) (Decomposition, error) {
	d, err := prepare(doc)
	if err != nil {
		return Decomposition{}, err
	}
	mode := d.Renderer.Normalize()

	out := Decomposition{
		Title:    d.Title,
		Sections: ExtractSections(SectionsSource(d.Text, mode), d.Title),
	}

	cover, ok := FrontCover(d.Text, mode)
	if ok && strings.TrimSpace(cover) != "" {
		r, err := Render(cover)
		if err != nil {
			return Decomposition{}, fmt.Errorf("render front cover: %w", err)
		}
		out.FrontCover = r.HTML
	}
	return out, nil
}

// Preview is a full decomposition plus the rendered body, for display.
type Preview struct {
	Title      string         `json:"title"`
	Sections   []brew.Section `json:"sections"`
	FrontCover string         `json:"frontCover,omitempty"`
	HTML       string         `json:"html"`
	Headings   []HeadingID    `json:"headings"`
}

// BuildPreview renders everything a reader of the document would see.
func BuildPreview(doc brew.Document) (Preview, error) {
	d, err := prepare(doc)
	if err != nil {
		return Preview{}, err
	}
	dec, err := Decompose(doc)
	if err != nil {
		return Preview{}, err
	}
	body, err := Render(SectionsSource(d.Text, d.Renderer.Normalize()))
	if err != nil {
		return Preview{}, fmt.Errorf("render body: %w", err)
	}
	return Preview{
		Title:      d.Title,
		Sections:   dec.Sections,
		FrontCover: dec.FrontCover,
		HTML:       body.HTML,
		Headings:   body.Headings,
	}, nil
}

// prepare clones the document and applies its embedded header.
func prepare(doc brew.Document) (brew.Document, error) {
	d := doc.Clone()
	if err := SplitHeader(&d); err != nil {
		return brew.Document{}, err
	}
	return d, nil
}

// renderNodes renders a run of top-level nodes with md's renderer.
func renderNodes(md goldmark.Markdown, src []byte, nodes []ast.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := md.Renderer().Render(&buf, src, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
