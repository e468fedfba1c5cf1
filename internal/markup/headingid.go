package markup

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"
)

// HeadingID is the id assigned to one heading during a render.
type HeadingID struct {
	Level int    `json:"level"`
	Slug  string `json:"slug"`
	ID    string `json:"id"`
}

// HeadingIDs assigns ids that encode each heading's ancestor chain, e.g. a
// "## B" under "# A" gets "a-b". A value is scoped to one render; sibling
// headings with the same slug under the same parent get the same id.
type HeadingIDs struct {
	stack    []HeadingID
	assigned []HeadingID
}

func NewHeadingIDs() *HeadingIDs {
	return &HeadingIDs{}
}

// Assign records a heading at level and returns its id.
func (h *HeadingIDs) Assign(level int, text string) HeadingID {
	// Pop everything that is not an ancestor.
	for len(h.stack) > 0 && h.stack[len(h.stack)-1].Level >= level {
		h.stack = h.stack[:len(h.stack)-1]
	}

	slug := Slugify(text)
	rec := HeadingID{Level: level, Slug: slug, ID: slug}
	if len(h.stack) > 0 {
		rec.ID = h.stack[len(h.stack)-1].ID + "-" + slug
	}

	h.stack = append(h.stack, rec)
	h.assigned = append(h.assigned, rec)
	return rec
}

// Reset forgets all headings seen so far.
func (h *HeadingIDs) Reset() {
	h.stack = nil
	h.assigned = nil
}

// Assigned returns every id handed out since the last reset, in order.
func (h *HeadingIDs) Assigned() []HeadingID {
	return slices.Clone(h.assigned)
}

var (
	charRef   = regexp.MustCompile(`(?i)&(#\d+|#x[0-9a-f]+|\w+);?`)
	tagLike   = regexp.MustCompile(`(?i)<[!/a-z].*?>`)
	slugPunct = regexp.MustCompile("[\\x{2000}-\\x{206F}\\x{2E00}-\\x{2E7F}\\\\'!\"#$%&()*+,./:;<=>?@\\[\\]^`{|}~]")
)

// Slugify turns heading text (possibly inline HTML) into an id fragment.
func Slugify(s string) string {
	s = strings.TrimSpace(decodeCharRefs(s))
	s = tagLike.ReplaceAllString(s, "")
	s = slugPunct.ReplaceAllString(strings.ToLower(s), "")
	return strings.ReplaceAll(s, " ", "-")
}

// decodeCharRefs decodes numeric references and &colon;. Other named
// references decode to nothing.
func decodeCharRefs(s string) string {
	return charRef.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.ToLower(charRef.FindStringSubmatch(m)[1])
		switch {
		case name == "colon":
			return ":"
		case strings.HasPrefix(name, "#x"):
			if v, err := strconv.ParseInt(name[2:], 16, 32); err == nil {
				return string(rune(v))
			}
		case strings.HasPrefix(name, "#"):
			if v, err := strconv.ParseInt(name[1:], 10, 32); err == nil {
				return string(rune(v))
			}
		}
		return ""
	})
}

// headingRenderer renders headings with ids from its HeadingIDs.
type headingRenderer struct {
	ids    *HeadingIDs
	inline renderer.Renderer
}

func newHeadingRenderer(ids *HeadingIDs) *headingRenderer {
	// The inline renderer only produces the text the slug is computed from.
	// It registers every node kind our parser can emit.
	inline := renderer.NewRenderer(renderer.WithNodeRenderers(
		util.Prioritized(gmhtml.NewRenderer(), 1000),
		util.Prioritized(extension.NewStrikethroughHTMLRenderer(), 500),
		util.Prioritized(extension.NewTableHTMLRenderer(), 500),
		util.Prioritized(&blockRenderer{}, 500),
	))
	return &headingRenderer{ids: ids, inline: inline}
}

func (r *headingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, r.renderHeading)
}

func (r *headingRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*ast.Heading)
	if !entering {
		_, _ = fmt.Fprintf(w, "</h%d>\n", n.Level)
		return ast.WalkContinue, nil
	}

	var text bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if err := r.inline.Render(&text, source, c); err != nil {
			return ast.WalkStop, fmt.Errorf("render heading text: %w", err)
		}
	}
	rec := r.ids.Assign(n.Level, text.String())
	_, _ = fmt.Fprintf(w, `<h%d id="%s">`, n.Level, html.EscapeString(rec.ID))
	return ast.WalkContinue, nil
}

// headingIDExtension installs a heading renderer bound to one HeadingIDs.
type headingIDExtension struct {
	ids *HeadingIDs
}

func (e headingIDExtension) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(newHeadingRenderer(e.ids), 100),
	))
}
