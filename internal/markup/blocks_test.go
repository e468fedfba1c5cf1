package markup

import (
	"strings"
	"testing"

	"github.com/dgallion1/brewsync/internal/brew"
)

func TestBlock_RendersDiv(t *testing.T) {
	r, err := Render("{{note\nInside *here*\n}}\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(r.HTML, `<div class="block note">`) {
		t.Errorf("missing block div: %s", r.HTML)
	}
	if !strings.Contains(r.HTML, "<em>here</em>") {
		t.Errorf("block content not rendered as markup: %s", r.HTML)
	}
	if !strings.Contains(r.HTML, "</div>") {
		t.Errorf("block not closed: %s", r.HTML)
	}
}

func TestBlock_Classes(t *testing.T) {
	r, err := Render("{{monster,frame,wide\ntext\n}}\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(r.HTML, `<div class="block monster frame wide">`) {
		t.Errorf("unexpected classes: %s", r.HTML)
	}
}

func TestBlock_InlineBracesStayParagraph(t *testing.T) {
	r, err := Render("{{note text}}\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(r.HTML, "<div") {
		t.Errorf("inline braces should not open a block: %s", r.HTML)
	}
	if !strings.Contains(r.HTML, "<p>{{note text}}</p>") {
		t.Errorf("expected a paragraph: %s", r.HTML)
	}
}

func TestBlock_HeadingInsideIsNotSection(t *testing.T) {
	sections := ExtractSections("# Top\n{{note\n# Nested\n}}\n", "")
	if len(sections) != 1 {
		t.Fatalf("expected 1 section, got %d: %+v", len(sections), sections)
	}
	if !strings.Contains(sections[0].Content, "<h1>Nested</h1>") {
		t.Errorf("nested heading should render inside the block: %q", sections[0].Content)
	}
}

func TestBlock_Nested(t *testing.T) {
	r, err := Render("{{wide\n{{note\ninner\n}}\nouter tail\n}}\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(r.HTML, "}}") {
		t.Errorf("closing fence leaked into the output: %q", r.HTML)
	}
	if strings.Count(r.HTML, "</div>") != 2 {
		t.Errorf("expected two closed blocks: %q", r.HTML)
	}
	inner := strings.Index(r.HTML, `<div class="block note">`)
	tail := strings.Index(r.HTML, "<p>outer tail</p>")
	if inner < 0 || tail < inner || strings.LastIndex(r.HTML, "</div>") < tail {
		t.Errorf("outer tail should follow the inner block inside the outer one: %q", r.HTML)
	}
}

func TestBlock_NestedFrontCover(t *testing.T) {
	dec, err := Decompose(brew.Document{
		Renderer: brew.ModeV3,
		Text:     "{{frontCover\n{{banner\nTitle\n}}\n}}\n\\page\n# Intro\n",
	})
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if strings.Contains(dec.FrontCover, "}}") {
		t.Errorf("closing fence leaked into the cover: %q", dec.FrontCover)
	}
	if strings.Count(dec.FrontCover, "</div>") != 2 {
		t.Errorf("expected two closed blocks: %q", dec.FrontCover)
	}
	if len(dec.Sections) != 1 || dec.Sections[0].Title != "Intro" {
		t.Errorf("unexpected sections: %+v", dec.Sections)
	}
}
