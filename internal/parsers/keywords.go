package parsers

import (
	"strings"
	"unicode"

	"github.com/cloudflare/ahocorasick"

	"golang-statement-extractor/internal/normalize"
)

// shortKeyword is the length up to which keywords only match whole words
const shortKeyword = 4

// keywordText folds s into the haystack form used by keyword automata:
// lower case, no accents, punctuation as spaces, padded with spaces.
func keywordText(s string) string {
	folded := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, normalize.Fold(s))
	return " " + strings.Join(strings.Fields(folded), " ") + " "
}

// keywordPattern prepares a dictionary entry. Short keywords are padded so
// that "iva" does not match inside "activa"; a short trailing word is padded
// on its right so "cuenta g+" does not match "cuenta gastos".
func keywordPattern(keyword string) string {
	k := strings.TrimSpace(keywordText(keyword))
	if k == "" {
		return ""
	}
	if len([]rune(k)) <= shortKeyword {
		return " " + k + " "
	}
	if last := k[strings.LastIndexByte(k, ' ')+1:]; last != k && len([]rune(last)) <= shortKeyword {
		return k + " "
	}
	return k
}

// keywordSet is an Aho-Corasick dictionary. It is immutable after
// construction and safe for concurrent use.
type keywordSet struct {
	matcher  *ahocorasick.Matcher
	patterns []string
}

func newKeywordSet(keywords ...[]string) *keywordSet {
	seen := make(map[string]bool)
	set := &keywordSet{}
	for _, group := range keywords {
		for _, kw := range group {
			p := keywordPattern(kw)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			set.patterns = append(set.patterns, p)
		}
	}
	if len(set.patterns) > 0 {
		set.matcher = ahocorasick.NewStringMatcher(set.patterns)
	}
	return set
}

// matches returns the patterns found in a haystack built by keywordText
func (k *keywordSet) matches(haystack string) []string {
	if k == nil || k.matcher == nil {
		return nil
	}
	hits := k.matcher.MatchThreadSafe([]byte(haystack))
	found := make([]string, 0, len(hits))
	for _, i := range hits {
		found = append(found, k.patterns[i])
	}
	return found
}

// any reports whether any keyword occurs in the haystack
func (k *keywordSet) any(haystack string) bool {
	if k == nil || k.matcher == nil {
		return false
	}
	return len(k.matcher.MatchThreadSafe([]byte(haystack))) > 0
}
