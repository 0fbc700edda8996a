// Package category encodes reservation-category codes to dense indices.
//
// The vocabulary is closed. Training and inference both encode through this
// package so that an index always means the same category.
package category

import (
	"fmt"
	"sort"
	"strings"
)

// vocabulary lists every recognised code in index order.
var vocabulary = [...]string{
	"1G", "1K", "1R",
	"2AG", "2AK", "2AR",
	"2BG", "2BK", "2BR",
	"3AG", "3AK", "3AR",
	"3BG", "3BK", "3BR",
	"GM", "GMK", "GMR",
	"SCG", "SCK", "SCR",
	"STG", "STK", "STR",
}

// Vocabulary returns the recognised codes in default index order.
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary[:])
	return out
}

// Recognised reports whether code belongs to the closed vocabulary.
func Recognised(code string) bool {
	c := Canonical(code)
	for _, v := range vocabulary {
		if v == c {
			return true
		}
	}
	return false
}

// Canonical trims and upper-cases a code.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Encoder maps category codes to indices. The zero value encodes nothing.
type Encoder struct {
	index map[string]int
}

// Default returns the encoder for the full vocabulary.
func Default() *Encoder {
	m := make(map[string]int, len(vocabulary))
	for i, c := range vocabulary {
		m[c] = i
	}
	return &Encoder{index: m}
}

// FromMap builds an encoder from a stored code->index mapping, such as the
// category_map of a trained artifact. Every code must be in the vocabulary
// and appear once after canonicalisation.
func FromMap(m map[string]int) (*Encoder, error) {
	if len(m) == 0 {
		return nil, ErrEmptyMapping
	}
	idx := make(map[string]int, len(m))
	for code, i := range m {
		c := Canonical(code)
		if !Recognised(c) {
			return nil, &UnknownError{Code: code}
		}
		if i < 0 {
			return nil, fmt.Errorf("%w: negative index %d for %s", ErrInvalidMapping, i, code)
		}
		if _, dup := idx[c]; dup {
			return nil, fmt.Errorf("%w: %s appears more than once", ErrInvalidMapping, c)
		}
		idx[c] = i
	}
	return &Encoder{index: idx}, nil
}

// Encode returns the index of code or an *UnknownError.
func (e *Encoder) Encode(code string) (int, error) {
	if e != nil {
		if i, ok := e.index[Canonical(code)]; ok {
			return i, nil
		}
	}
	return 0, &UnknownError{Code: code}
}

// Codes returns the encodable codes ordered by index, then by code.
func (e *Encoder) Codes() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.index))
	for c := range e.index {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if e.index[out[i]] != e.index[out[j]] {
			return e.index[out[i]] < e.index[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Map returns a copy of the code->index mapping.
func (e *Encoder) Map() map[string]int {
	out := make(map[string]int, len(e.index))
	for k, v := range e.index {
		out[k] = v
	}
	return out
}

// Len returns the number of encodable codes.
func (e *Encoder) Len() int {
	if e == nil {
		return 0
	}
	return len(e.index)
}
