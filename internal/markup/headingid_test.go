package markup

import (
	"strings"
	"sync"
	"testing"

	"golang.org/x/net/html"
)

func TestHeadingIDs_Hierarchy(t *testing.T) {
	ids := NewHeadingIDs()
	got := []string{
		ids.Assign(1, "A").ID,
		ids.Assign(2, "B").ID,
		ids.Assign(3, "D").ID,
		ids.Assign(1, "C").ID,
		ids.Assign(3, "E").ID,
	}
	want := []string{"a", "a-b", "a-b-d", "c", "c-e"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("heading %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHeadingIDs_SiblingCollision(t *testing.T) {
	ids := NewHeadingIDs()
	ids.Assign(1, "Top")
	first := ids.Assign(2, "Notes")
	second := ids.Assign(2, "Notes")
	if first.ID != second.ID {
		t.Errorf("expected identical ids for same-named siblings, got %q and %q", first.ID, second.ID)
	}
	if len(ids.Assigned()) != 3 {
		t.Errorf("expected 3 assigned, got %d", len(ids.Assigned()))
	}
}

func TestHeadingIDs_Reset(t *testing.T) {
	ids := NewHeadingIDs()
	ids.Assign(1, "A")
	ids.Reset()
	if got := ids.Assign(2, "B").ID; got != "b" {
		t.Errorf("expected reset stack to give %q, got %q", "b", got)
	}
	if len(ids.Assigned()) != 1 {
		t.Errorf("expected 1 assigned after reset, got %d", len(ids.Assigned()))
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Padded  ", "padded"},
		{"A &amp; B", "a--b"},
		{"Foo&#58;Bar", "foobar"},
		{"Foo&colon;Bar", "foobar"},
		{"&#x41;bc", "abc"},
		{"<em>Hi</em> there", "hi-there"},
		{"What's new?", "whats-new"},
		{"Spells – Level 1", "spells--level-1"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRender_HeadingIDs(t *testing.T) {
	r, err := Render("# A\ntext\n## B\n# C\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(r.HTML, `<h1 id="a">A</h1>`) {
		t.Errorf("missing first heading: %s", r.HTML)
	}

	ids := collectIDs(t, r.HTML)
	want := []string{"a", "a-b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected ids %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id %d: got %q, want %q", i, ids[i], want[i])
		}
		if r.Headings[i].ID != want[i] {
			t.Errorf("heading record %d: got %q, want %q", i, r.Headings[i].ID, want[i])
		}
	}
}

func TestRender_InlineHeadingMarkup(t *testing.T) {
	r, err := Render("# Hello *World*\n")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(r.HTML, `<h1 id="hello-world">Hello <em>World</em></h1>`) {
		t.Errorf("unexpected heading html: %s", r.HTML)
	}
}

func TestRender_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan string, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := Render("# A\n## B\n### C\n")
			if err != nil {
				errs <- err.Error()
				return
			}
			if !strings.Contains(r.HTML, `id="a-b-c"`) {
				errs <- r.HTML
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("concurrent render: %s", e)
	}
}

// collectIDs returns the id attribute of every heading element in doc order.
func collectIDs(t *testing.T, s string) []string {
	t.Helper()
	root, err := html.Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	var ids []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && len(n.Data) == 2 && n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6' {
			for _, a := range n.Attr {
				if a.Key == "id" {
					ids = append(ids, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return ids
}
