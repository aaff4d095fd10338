package lexicon

import (
	"strings"

	"github.com/cloudflare/ahocorasick" // Efficient Aho-Corasick implementation
)

// A single keyword occurrence located in the scanned text
type Hit struct {
	Keyword  string
	Category string
	Group    string
	Tier     string
	Position int // byte offset of the occurrence in the lowercased text
}

// Scans text against the full keyword lexicon in one pass
type Matcher struct {
	matcher  *ahocorasick.Matcher
	keywords []keywordEntry
}

type keywordEntry struct {
	keyword  string
	category string
	group    string
	tier     string
}

// Builds a matcher over every keyword in the store
func NewMatcher(store *Store) *Matcher {
	var entries []keywordEntry
	for name, cat := range store.Categories {
		for _, group := range cat.Groups {
			for _, kw := range group.Keywords {
				entries = append(entries, keywordEntry{
					keyword:  strings.ToLower(kw),
					category: name,
					group:    group.Name,
					tier:     group.Tier,
				})
			}
		}
	}

	patterns := make([][]byte, len(entries))
	for i, e := range entries {
		patterns[i] = []byte(e.keyword)
	}

	return &Matcher{
		matcher:  ahocorasick.NewMatcher(patterns),
		keywords: entries,
	}
}

// Finds every lexicon keyword occurring in the text. Matching is
// case-insensitive and each occurrence of a keyword yields its own hit.
func (m *Matcher) Match(text string) []Hit {
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	matched := m.matcher.Match([]byte(lower))

	var hits []Hit
	for _, idx := range matched {
		entry := m.keywords[idx]

		// Aho-Corasick reports which patterns matched; walk the text to
		// recover each occurrence's position.
		offset := 0
		for {
			pos := strings.Index(lower[offset:], entry.keyword)
			if pos < 0 {
				break
			}
			hits = append(hits, Hit{
				Keyword:  entry.keyword,
				Category: entry.category,
				Group:    entry.group,
				Tier:     entry.tier,
				Position: offset + pos,
			})
			offset += pos + len(entry.keyword)
		}
	}
	return hits
}
