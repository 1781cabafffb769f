// Package schedule keeps the sections a student picked and reports which
// of them share a time slot.
package schedule

import (
	"github.com/pders01/planr/internal/timecode"
)

// Item is anything that occupies weekly time slots. Key is its identity.
type Item interface {
	Key() string
	TimeCodes() []string
}

// Titled items provide a human readable name for listings and calendars.
type Titled interface {
	Title() string
}

// Title returns the item's title, or its key when it has none.
func Title(it Item) string {
	if t, ok := it.(Titled); ok {
		if s := t.Title(); s != "" {
			return s
		}
	}
	return it.Key()
}

// Conflict is another selected item sharing Tokens with the queried one.
type Conflict struct {
	Section Item
	Tokens  []timecode.Token
}

// Selection is an ordered set of items with a token index that is
// rebuilt on every change. It is not safe for concurrent use.
type Selection struct {
	items []Item
	index map[timecode.Token][]Item
}

// NewSelection builds a selection; later duplicates of a key are dropped.
func NewSelection(items ...Item) *Selection {
	s := &Selection{}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.Key()]; ok {
			continue
		}
		seen[it.Key()] = struct{}{}
		s.items = append(s.items, it)
	}
	s.reindex()
	return s
}

// Toggle removes item if an item with the same key is selected and
// appends it otherwise. It reports whether item is selected afterwards.
// Conflicting items are never refused.
func (s *Selection) Toggle(item Item) bool {
	for i, it := range s.items {
		if it.Key() == item.Key() {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			s.reindex()
			return false
		}
	}
	s.items = append(s.items, item)
	s.reindex()
	return true
}

func (s *Selection) Contains(item Item) bool {
	for _, it := range s.items {
		if it.Key() == item.Key() {
			return true
		}
	}
	return false
}

// Items returns the selected items in selection order.
func (s *Selection) Items() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Selection) Len() int { return len(s.items) }

func (s *Selection) reindex() {
	s.index = make(map[timecode.Token][]Item)
	for _, it := range s.items {
		for _, tok := range timecode.ExpandAll(it.TimeCodes()) {
			s.index[tok] = append(s.index[tok], it)
		}
	}
}

// Conflicts lists the selected items, other than item itself, that share
// at least one token with it. Each item appears once, in the order its
// first shared token was found.
func (s *Selection) Conflicts(item Item) []Conflict {
	var out []Conflict
	pos := make(map[string]int)

	for _, tok := range timecode.ExpandAll(item.TimeCodes()) {
		for _, other := range s.index[tok] {
			if other.Key() == item.Key() {
				continue
			}
			i, ok := pos[other.Key()]
			if !ok {
				pos[other.Key()] = len(out)
				out = append(out, Conflict{Section: other, Tokens: []timecode.Token{tok}})
				continue
			}
			if !containsToken(out[i].Tokens, tok) {
				out[i].Tokens = append(out[i].Tokens, tok)
			}
		}
	}
	return out
}

// HasConflicts reports whether item collides with any other selected item.
func (s *Selection) HasConflicts(item Item) bool {
	return len(s.Conflicts(item)) > 0
}

// AllConflicts maps every selected item that collides with another to
// its conflicts.
func (s *Selection) AllConflicts() map[string][]Conflict {
	out := make(map[string][]Conflict)
	for _, it := range s.items {
		if c := s.Conflicts(it); len(c) > 0 {
			out[it.Key()] = c
		}
	}
	return out
}

// GetConflicts is Conflicts against an ad-hoc selection.
func GetConflicts(item Item, selected []Item) []Conflict {
	return NewSelection(selected...).Conflicts(item)
}

func containsToken(toks []timecode.Token, t timecode.Token) bool {
	for _, x := range toks {
		if x == t {
			return true
		}
	}
	return false
}
