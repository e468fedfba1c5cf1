package markup

import (
	"fmt"
	"strings"

	"github.com/dgallion1/brewsync/internal/brew"
	"gopkg.in/yaml.v3"
)

const (
	metadataFence = "```metadata\n"
	styleFence    = "```css\n"
	headerEnd     = "```\n\n"
)

// metadata is the subset of the embedded YAML header copied onto the document.
type metadata struct {
	Title       *string  `yaml:"title"`
	Description *string  `yaml:"description"`
	Tags        []string `yaml:"tags"`
	Renderer    *string  `yaml:"renderer"`
	Theme       *string  `yaml:"theme"`
	Lang        *string  `yaml:"lang"`
}

// SplitHeader normalizes line endings and moves a leading ```metadata block
// and a following ```css block out of doc.Text into the document fields.
func SplitHeader(doc *brew.Document) error {
	doc.Text = strings.ReplaceAll(doc.Text, "\r\n", "\n")

	if strings.HasPrefix(doc.Text, metadataFence) {
		body, rest, ok := cutFence(doc.Text, len(metadataFence))
		if ok {
			var meta metadata
			if err := yaml.Unmarshal([]byte(body), &meta); err != nil {
				return fmt.Errorf("parse metadata header: %w", err)
			}
			meta.apply(doc)
			doc.Text = rest
		}
	}

	if strings.HasPrefix(doc.Text, styleFence) {
		body, rest, ok := cutFence(doc.Text, len(styleFence))
		if ok {
			doc.Style = body
			doc.Text = rest
		}
	}
	return nil
}

// cutFence splits a fenced block that opened at text[:start]. The block must
// be closed by a fence followed by a blank line.
func cutFence(text string, start int) (body, rest string, ok bool) {
	end := strings.Index(text[start:], headerEnd)
	if end < 0 {
		return "", text, false
	}
	end += start
	body = strings.TrimSuffix(text[start:end], "\n")
	return body, text[end+len(headerEnd):], true
}

func (m metadata) apply(doc *brew.Document) {
	if m.Title != nil {
		doc.Title = *m.Title
	}
	if m.Description != nil {
		doc.Description = *m.Description
	}
	if m.Tags != nil {
		doc.Tags = m.Tags
	}
	if m.Renderer != nil {
		doc.Renderer = brew.Mode(*m.Renderer)
	}
	if m.Theme != nil {
		doc.Theme = *m.Theme
	}
	if m.Lang != nil {
		doc.Lang = *m.Lang
	}
}
