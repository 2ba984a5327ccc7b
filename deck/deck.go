// Package deck holds the in-memory slide model for slidecore.
//
// Slides are supplied externally and read-mostly: the only mutations are
// external slide-updated events and the optimistic local update the live
// editor applies at save time (self-triggered saves suppress the external
// change notice, so without the optimistic write a navigation away and
// back would show stale content).
package deck

import (
	"fmt"
	"sync"
)

// AnimationGroup is one ordered reveal group on a slide. Order is unique
// per slide; Elements are stable element identifiers assigned by the
// surface package.
type AnimationGroup struct {
	Order    int      `json:"order"`
	Elements []string `json:"elements"`
}

// Selectors derives the CSS selector list addressing the group's elements.
func (g AnimationGroup) Selectors() []string {
	sels := make([]string, len(g.Elements))
	for i, id := range g.Elements {
		sels[i] = fmt.Sprintf(`[data-el-id=%q]`, id)
	}
	return sels
}

// Slide is one deck page: a contiguous 1-based number, its serialized
// markup, and an optional animation-group list.
type Slide struct {
	Number int              `json:"number"`
	Markup string           `json:"markup"`
	Groups []AnimationGroup `json:"groups,omitempty"`
}

// Store owns the deck. Safe for concurrent reads; writes come from the
// dispatcher loop and from the live editor's optimistic update.
type Store struct {
	mu     sync.RWMutex
	slides []Slide
}

// NewStore creates a store over the given slides. Slide numbers must be
// contiguous starting at 1; they are renumbered to guarantee it.
func NewStore(slides []Slide) *Store {
	s := &Store{slides: make([]Slide, len(slides))}
	copy(s.slides, slides)
	for i := range s.slides {
		s.slides[i].Number = i + 1
	}
	return s
}

// Count returns the number of slides in the deck.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slides)
}

// Slide returns the slide with the given 1-based number.
func (s *Store) Slide(number int) (Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if number < 1 || number > len(s.slides) {
		return Slide{}, false
	}
	return s.slides[number-1], true
}

// Slides returns a snapshot of the whole deck in order.
func (s *Store) Slides() []Slide {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slide, len(s.slides))
	copy(out, s.slides)
	return out
}

// SetMarkup replaces a slide's markup. Used both for external
// slide-updated events and for the live editor's optimistic update.
func (s *Store) SetMarkup(number int, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if number < 1 || number > len(s.slides) {
		return fmt.Errorf("deck: slide %d out of range 1..%d", number, len(s.slides))
	}
	s.slides[number-1].Markup = markup
	return nil
}

// Upsert applies an external slide-updated event: an existing slide's
// markup is replaced, and number == count+1 appends a new slide. Any
// other number breaks contiguity and is rejected.
func (s *Store) Upsert(number int, markup string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case number >= 1 && number <= len(s.slides):
		s.slides[number-1].Markup = markup
		return nil
	case number == len(s.slides)+1:
		s.slides = append(s.slides, Slide{Number: number, Markup: markup})
		return nil
	}
	return fmt.Errorf("deck: slide %d breaks contiguity (deck has %d)", number, len(s.slides))
}

// Reorder rearranges the deck to the given permutation of current slide
// numbers and renumbers contiguously from 1.
func (s *Store) Reorder(newOrder []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(newOrder) != len(s.slides) {
		return fmt.Errorf("deck: reorder wants %d slides, deck has %d", len(newOrder), len(s.slides))
	}
	seen := make(map[int]bool, len(newOrder))
	next := make([]Slide, 0, len(newOrder))
	for _, n := range newOrder {
		if n < 1 || n > len(s.slides) || seen[n] {
			return fmt.Errorf("deck: reorder is not a permutation: %v", newOrder)
		}
		seen[n] = true
		next = append(next, s.slides[n-1])
	}
	for i := range next {
		next[i].Number = i + 1
	}
	s.slides = next
	return nil
}
