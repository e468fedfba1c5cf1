package markup

import (
	"regexp"
	"strings"

	"github.com/dgallion1/brewsync/internal/brew"
)

var (
	// V3 page breaks own their whole line and may carry an attribute block.
	pageBreakV3 = regexp.MustCompile(`(?m)^\\page(?:break)?(?: *\{[^\n{}]*\})?$`)

	// Legacy page breaks match anywhere on a line.
	pageBreakLegacy = regexp.MustCompile(`\\page(?:break)?`)

	pageDirectiveLine = regexp.MustCompile(`(?m)^\s*\\page(?:break)?(?: *\{[^\n{}]*\})?\s*(?:\r?\n|$)`)
)

// SplitPages splits text into pages on the page-break directive of mode.
//
// In V3 mode the split happens before the directive, which stays as the first
// line of the new page; StripPageDirectives removes it afterwards. In legacy
// mode the directive occurrence itself is the separator. Text without a
// directive yields a single page.
func SplitPages(text string, mode brew.Mode) []string {
	if mode.Normalize() == brew.ModeLegacy {
		return pageBreakLegacy.Split(text, -1)
	}

	locs := pageBreakV3.FindAllStringIndex(text, -1)
	pages := make([]string, 0, len(locs)+1)
	prev := 0
	for _, loc := range locs {
		// A directive opening the text does not produce an empty first page.
		if loc[0] == 0 {
			continue
		}
		pages = append(pages, text[prev:loc[0]])
		prev = loc[0]
	}
	return append(pages, text[prev:])
}

// StripPageDirectives removes every page-break directive line.
func StripPageDirectives(text string) string {
	return pageDirectiveLine.ReplaceAllString(text, "")
}

// FrontCover returns page 0 of a document that carries the front cover marker.
// ok is false when there is no marker or the text has a single page.
func FrontCover(text string, mode brew.Mode) (cover string, ok bool) {
	if !strings.Contains(text, brew.FrontCoverMarker) {
		return "", false
	}
	pages := SplitPages(text, mode)
	if len(pages) <= 1 {
		return "", false
	}
	return StripPageDirectives(pages[0]), true
}

// SectionsSource returns the body that sections are extracted from: the whole
// text, or everything after the front cover page when the marker is present.
// Page directives are stripped either way.
func SectionsSource(text string, mode brew.Mode) string {
	if !strings.Contains(text, brew.FrontCoverMarker) {
		return StripPageDirectives(text)
	}
	mode = mode.Normalize()
	pages := SplitPages(text, mode)
	if len(pages) <= 1 {
		return StripPageDirectives(text)
	}

	sep := ""
	if mode == brew.ModeLegacy {
		sep = "\n\\page\n"
	}
	return StripPageDirectives(strings.Join(pages[1:], sep))
}
