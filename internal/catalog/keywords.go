package catalog

import (
	"strings"
	"sync"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds accents and case and turns every non-alphanumeric rune
// into a space, then pads with spaces so that terms can be matched on word
// boundaries by surrounding them with spaces too.
func NormalizeText(text string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		text,
	)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	prevSpace := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}
	if !prevSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// normalizeTerm produces the padded form of a keyword, or "" if nothing is left.
func normalizeTerm(term string) string {
	n := NormalizeText(term)
	if strings.TrimSpace(n) == "" {
		return ""
	}
	return n
}

// ContainsTerm reports whether normalized text holds the padded term.
func ContainsTerm(normalizedText, paddedTerm string) bool {
	return paddedTerm != "" && strings.Contains(normalizedText, paddedTerm)
}

type keywordEntry struct {
	category string
	term     string
	weight   float64
}

// KeywordIndex is an Aho-Corasick automaton over every configured keyword.
type KeywordIndex struct {
	// the matcher keeps per-call scratch state, so Match is serialised
	mu      sync.Mutex
	matcher *ahocorasick.Matcher
	terms   []string
	entries map[string][]keywordEntry
	// totals holds the number of distinct keywords per category
	totals map[string]int
}

func newKeywordIndex(table map[string][]Keyword) *KeywordIndex {
	idx := &KeywordIndex{
		entries: make(map[string][]keywordEntry),
		totals:  make(map[string]int),
	}

	for category, keywords := range table {
		seen := make(map[string]struct{}, len(keywords))
		for _, kw := range keywords {
			term := normalizeTerm(kw.Term)
			if term == "" {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}

			if _, known := idx.entries[term]; !known {
				idx.terms = append(idx.terms, term)
			}
			idx.entries[term] = append(idx.entries[term], keywordEntry{category: category, term: term, weight: kw.Weight})
			idx.totals[category]++
		}
	}

	if len(idx.terms) > 0 {
		idx.matcher = ahocorasick.NewStringMatcher(idx.terms)
	}
	return idx
}

// KeywordHit is one distinct keyword found in the input.
type KeywordHit struct {
	Category string
	Term     string
	Weight   float64
}

// Match returns each distinct keyword occurring in any of texts.
func (k *KeywordIndex) Match(texts ...string) []KeywordHit {
	if k == nil || k.matcher == nil || len(texts) == 0 {
		return nil
	}

	joined := make([]string, 0, len(texts))
	for _, t := range texts {
		joined = append(joined, NormalizeText(t))
	}
	// NormalizeText pads each piece, so joining keeps word boundaries intact.
	haystack := []byte(strings.Join(joined, ""))

	k.mu.Lock()
	hits := k.matcher.Match(haystack)
	k.mu.Unlock()

	seen := make(map[int]struct{}, len(hits))
	var out []KeywordHit
	for _, i := range hits {
		if i < 0 || i >= len(k.terms) {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		for _, e := range k.entries[k.terms[i]] {
			out = append(out, KeywordHit{Category: e.category, Term: strings.TrimSpace(e.term), Weight: e.weight})
		}
	}
	return out
}

// Total returns how many distinct keywords category has.
func (k *KeywordIndex) Total(category string) int {
	if k == nil {
		return 0
	}
	return k.totals[category]
}

// Size returns the number of distinct terms in the automaton.
func (k *KeywordIndex) Size() int {
	if k == nil {
		return 0
	}
	return len(k.terms)
}
