// Package branch canonicalises free-text branch names and decides whether two
// names refer to the same branch.
package branch

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is one textual rewrite. Pattern is a regular expression.
type Rule struct {
	Tag     string
	Pattern string
	Replace string
}

type compiledRule struct {
	tag string
	re  *regexp.Regexp
	rep string
}

// Normalizer maps branch names onto a canonical vocabulary. It is immutable
// after construction and safe for concurrent use.
type Normalizer struct {
	exact  map[string]string
	folded map[string]string
	rules  []compiledRule
}

// NewNormalizer builds a Normalizer from a synonym table and ordered rules.
func NewNormalizer(table map[string]string, rules []Rule) (*Normalizer, error) {
	n := &Normalizer{
		exact:  make(map[string]string, len(table)),
		folded: make(map[string]string, len(table)),
	}
	for k, v := range table {
		n.exact[k] = v
		n.folded[strings.ToLower(k)] = v
	}
	for _, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Tag, err)
		}
		n.rules = append(n.rules, compiledRule{tag: r.Tag, re: re, rep: r.Replace})
	}
	return n, nil
}

var defaultNormalizer = func() *Normalizer {
	n, err := NewNormalizer(synonyms, defaultRules)
	if err != nil {
		panic(err)
	}
	return n
}()

// Default returns the built-in normalizer.
func Default() *Normalizer { return defaultNormalizer }

// Canonical normalises name with the built-in table.
func Canonical(name string) string { return defaultNormalizer.Canonical(name) }

// Canonical returns the canonical form of name. Unknown names are rewritten
// best-effort and may fall outside the vocabulary.
func (n *Normalizer) Canonical(name string) string {
	if v, ok := n.exact[name]; ok {
		return v
	}
	trimmed := strings.TrimSpace(name)
	if v, ok := n.folded[strings.ToLower(trimmed)]; ok {
		return v
	}
	out := trimmed
	for _, r := range n.rules {
		out = r.re.ReplaceAllString(out, r.rep)
	}
	return strings.TrimSpace(out)
}

// Known reports whether name resolves through the synonym table.
func (n *Normalizer) Known(name string) bool {
	_, ok := n.folded[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Comparison bounds for substring matching.
const (
	minNeedle  = 3
	maxCompare = 64
)

// Matcher decides whether two branch names refer to the same branch.
type Matcher struct {
	norm *Normalizer
}

// NewMatcher returns a Matcher that canonicalises with n.
func NewMatcher(n *Normalizer) *Matcher {
	if n == nil {
		n = defaultNormalizer
	}
	return &Matcher{norm: n}
}

// Key is the comparison form of name: canonical, lower-case, "&" spelled out
// and whitespace collapsed.
func (m *Matcher) Key(name string) string {
	s := strings.ToLower(m.norm.Canonical(name))
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(s), " ")
}

// Match reports whether a and b name the same branch. Either direction of
// containment counts, so abbreviations match full names.
func (m *Matcher) Match(a, b string) bool {
	ka, kb := m.Key(a), m.Key(b)
	if ka == "" || kb == "" {
		return false
	}
	if ka == kb {
		return true
	}
	ka, kb = truncate(ka), truncate(kb)
	return contains(ka, kb) || contains(kb, ka)
}

// MatchAny reports whether offered matches at least one preference.
func (m *Matcher) MatchAny(offered string, preferred []string) bool {
	for _, p := range preferred {
		if m.Match(offered, p) {
			return true
		}
	}
	return false
}

func contains(haystack, needle string) bool {
	return utf8.RuneCountInString(needle) >= minNeedle && strings.Contains(haystack, needle)
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxCompare {
		return s
	}
	return string([]rune(s)[:maxCompare])
}
