package parsers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// Descriptor is the static description of an institution
type Descriptor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`
	Keywords []string `json:"keywords"`
	// Match is an extra detection predicate; the descriptor also matches on
	// its keywords. It receives the upper-cased, unaccented text and filename.
	Match        func(upperText, upperFilename string) bool `json:"-"`
	PreferTables bool                                       `json:"prefer_tables"`
	Layout       Layout                                     `json:"layout"`
}

// Registry holds descriptors in detection priority order. It is built once
// and only read afterwards, so it is safe for concurrent use.
type Registry struct {
	descriptors []Descriptor
	parsers     map[string]*StatementParser
	index       map[string]int

	matcher *ahocorasick.Matcher
	owners  [][]int
}

// NewRegistry validates the descriptors and builds their parsers and the
// shared keyword automaton. A generic descriptor is appended when missing.
func NewRegistry(descriptors []Descriptor) (*Registry, error) {
	r := &Registry{
		parsers: make(map[string]*StatementParser, len(descriptors)+1),
		index:   make(map[string]int, len(descriptors)+1),
	}

	hasGeneric := false
	for _, d := range descriptors {
		d.ID = strings.ToUpper(strings.TrimSpace(d.ID))
		if d.ID == "" {
			return nil, fmt.Errorf("descriptor without identifier")
		}
		if _, dup := r.index[d.ID]; dup {
			return nil, fmt.Errorf("duplicate institution %s", d.ID)
		}
		if err := d.Layout.Validate(); err != nil {
			return nil, fmt.Errorf("institution %s: %w", d.ID, err)
		}
		if d.ID == GenericID {
			hasGeneric = true
		}
		r.add(d)
	}
	if !hasGeneric {
		r.add(genericDescriptor())
	}

	patterns := make([]string, 0)
	position := make(map[string]int)
	for i, d := range r.descriptors {
		if d.ID == GenericID {
			continue
		}
		for _, kw := range d.Keywords {
			p := keywordPattern(kw)
			if p == "" {
				continue
			}
			pos, ok := position[p]
			if !ok {
				pos = len(patterns)
				position[p] = pos
				patterns = append(patterns, p)
				r.owners = append(r.owners, nil)
			}
			r.owners[pos] = append(r.owners[pos], i)
		}
	}
	if len(patterns) > 0 {
		r.matcher = ahocorasick.NewStringMatcher(patterns)
	}

	return r, nil
}

func (r *Registry) add(d Descriptor) {
	r.index[d.ID] = len(r.descriptors)
	r.descriptors = append(r.descriptors, d)
	r.parsers[d.ID] = NewStatementParser(d)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the registry of all supported institutions
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(Institutions())
		if err != nil {
			panic(fmt.Sprintf("invalid institution table: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Detect returns the identifier of the first descriptor, in registry order,
// whose keywords or predicate match the text or filename. GenericID is
// returned when none does.
func (r *Registry) Detect(text, filename string) string {
	hits := make([]bool, len(r.descriptors))
	if r.matcher != nil {
		for _, i := range r.matcher.MatchThreadSafe([]byte(keywordText(text + " " + filename))) {
			for _, owner := range r.owners[i] {
				hits[owner] = true
			}
		}
	}

	upperText, upperName := detectionForms(text, filename)
	for i, d := range r.descriptors {
		if d.ID == GenericID {
			continue
		}
		if hits[i] || (d.Match != nil && d.Match(upperText, upperName)) {
			return d.ID
		}
	}
	return GenericID
}

// Parser returns the parser for an identifier, or the generic parser when
// the identifier is unknown
func (r *Registry) Parser(id string) Parser {
	if p, ok := r.parsers[strings.ToUpper(id)]; ok {
		return p
	}
	return r.parsers[GenericID]
}

// Generic returns the fallback parser
func (r *Registry) Generic() Parser {
	return r.parsers[GenericID]
}

// Lookup returns the descriptor of an identifier
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	i, ok := r.index[strings.ToUpper(id)]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Descriptors returns the descriptors in registry order
func (r *Registry) Descriptors() []Descriptor {
	return append([]Descriptor(nil), r.descriptors...)
}

// IDs returns the identifiers in registry order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		ids[i] = d.ID
	}
	return ids
}
