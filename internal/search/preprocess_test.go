package search

import (
	"strings"
	"testing"
)

func TestProfileDocument_StripsMarkdownAndLinks(t *testing.T) {
	bio := "# About me\r\n\r\nI **love** [rock climbing](https://example.com/x) and _coffee_.\n\n\n\nSee https://insta.example/me"
	d := ProfileDocument("u1", bio, nil)
	if d.ID != "u1" {
		t.Fatalf("id = %q", d.ID)
	}
	for _, bad := range []string{"#", "**", "https://", "(", "_coffee_"} {
		if strings.Contains(d.Text, bad) {
			t.Fatalf("text still contains %q: %q", bad, d.Text)
		}
	}
	for _, want := range []string{"About me", "love", "rock climbing", "coffee"} {
		if !strings.Contains(d.Text, want) {
			t.Fatalf("text missing %q: %q", want, d.Text)
		}
	}
	if strings.Contains(d.Text, "\n\n") {
		t.Fatalf("blank lines should be collapsed: %q", d.Text)
	}
}

func TestProfileDocument_SplitsCompoundInterests(t *testing.T) {
	d := ProfileDocument("u2", "", []string{"hiking/climbing", " board games ", "", "jazz, blues"})
	want := "hiking\nclimbing\nboard games\njazz\nblues"
	if d.Text != want {
		t.Fatalf("text = %q, want %q", d.Text, want)
	}
}

func TestProfileDocument_IndexRoundTrip(t *testing.T) {
	idx := NewIndex([]Document{
		ProfileDocument("a", "I love **jazz**", []string{"vinyl"}),
		ProfileDocument("b", "", []string{"football"}),
	}, WithStopwords(DefaultStopwords))
	res := idx.TopK("jazz vinyl", 5)
	if len(res) != 1 || res[0].ID != "a" {
		t.Fatalf("unexpected results: %#v", res)
	}
}
