package search

import (
	"regexp"
	"strings"
)

// DefaultStopwords are dropped from profile text and queries unless the
// caller supplies its own list.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"i", "i'm", "im", "in", "is", "it", "me", "my", "of", "on", "or", "so",
	"that", "the", "to", "with", "you",
}

var (
	mdLinkRE    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdMarkupRE  = regexp.MustCompile("[*_`#>~]+")
	urlRE       = regexp.MustCompile(`https?://\S+`)
	tagSplitRE  = regexp.MustCompile(`[,/|;]+`)
	blankLineRE = regexp.MustCompile(`\n\s*\n+`)
)

// ProfileDocument flattens a profile's bio and interests into one Document.
// Markdown decoration and bare links in the bio are stripped (link labels are
// kept) and compound interests such as "hiking/climbing" are split.
func ProfileDocument(id, bio string, interests []string) Document {
	var b strings.Builder

	bio = strings.ReplaceAll(bio, "\r\n", "\n")
	bio = mdLinkRE.ReplaceAllString(bio, "$1")
	bio = urlRE.ReplaceAllString(bio, " ")
	bio = mdMarkupRE.ReplaceAllString(bio, " ")
	for _, para := range blankLineRE.Split(bio, -1) {
		if p := strings.TrimSpace(para); p != "" {
			b.WriteString(p)
			b.WriteByte('\n')
		}
	}

	for _, in := range interests {
		for _, part := range tagSplitRE.Split(in, -1) {
			if p := strings.TrimSpace(part); p != "" {
				b.WriteString(p)
				b.WriteByte('\n')
			}
		}
	}
	return Document{ID: id, Text: strings.TrimRight(b.String(), "\n")}
}
