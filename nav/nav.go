// Package nav tracks what the user has drilled into, from a list down to a
// single department, club, building, info entry or article.
package nav

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pevans/campus/newsfeed"
)

// Kind names a destination type.
type Kind string

const (
	KindDepartment Kind = "department"
	KindClub       Kind = "club"
	KindBuilding   Kind = "building"
	KindInfo       Kind = "info"
	KindArticle    Kind = "article"
)

// Destination is one entry of the navigation stack. The set of
// implementations is closed to this package.
type Destination interface {
	Kind() Kind
	// Ref identifies the target within its kind.
	Ref() string
	isDestination()
}

// DepartmentDestination is a department detail page.
type DepartmentDestination struct{ ID int }

// ClubDestination is a science club detail page.
type ClubDestination struct{ ID int }

// BuildingDestination is a building on the campus map.
type BuildingDestination struct{ ID int }

// InfoDestination is an informational page.
type InfoDestination struct{ ID int }

// ArticleDestination carries the whole summary so the article can be shown
// without looking it up again.
type ArticleDestination struct{ Summary newsfeed.Summary }

func (DepartmentDestination) Kind() Kind { return KindDepartment }
func (ClubDestination) Kind() Kind       { return KindClub }
func (BuildingDestination) Kind() Kind   { return KindBuilding }
func (InfoDestination) Kind() Kind       { return KindInfo }
func (ArticleDestination) Kind() Kind    { return KindArticle }

func (d DepartmentDestination) Ref() string { return fmt.Sprint(d.ID) }
func (d ClubDestination) Ref() string       { return fmt.Sprint(d.ID) }
func (d BuildingDestination) Ref() string   { return fmt.Sprint(d.ID) }
func (d InfoDestination) Ref() string       { return fmt.Sprint(d.ID) }
func (d ArticleDestination) Ref() string    { return d.Summary.ID.String() }

func (DepartmentDestination) isDestination() {}
func (ClubDestination) isDestination()       {}
func (BuildingDestination) isDestination()   {}
func (InfoDestination) isDestination()       {}
func (ArticleDestination) isDestination()    {}

// Entry is the serialized form of a Destination.
type Entry struct {
	Kind  Kind   `json:"kind"`
	Ref   string `json:"ref"`
	Title string `json:"title,omitempty"`
}

// EntryOf describes d. Only articles carry a title.
func EntryOf(d Destination) Entry {
	e := Entry{Kind: d.Kind(), Ref: d.Ref()}
	if a, ok := d.(ArticleDestination); ok {
		e.Title = a.Summary.Title
	}
	return e
}

// Stack is a navigation history. It is safe for concurrent use; the zero
// value is an empty stack.
type Stack struct {
	mu      sync.Mutex
	entries []Destination
}

// Push navigates to d.
func (s *Stack) Push(d Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, d)
}

// Pop navigates back and returns the destination that was left. It reports
// false on an empty stack.
func (s *Stack) Pop() (Destination, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, false
	}
	top := s.entries[len(s.entries)-1]
	s.entries[len(s.entries)-1] = nil
	s.entries = s.entries[:len(s.entries)-1]
	return top, true
}

// Top returns the current destination.
func (s *Stack) Top() (Destination, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1], true
}

// Path returns a copy of the stack, bottom first.
func (s *Stack) Path() []Destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Destination, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the depth of the stack.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Entries returns the path in serialized form, bottom first.
func (s *Stack) Entries() []Entry {
	path := s.Path()
	entries := make([]Entry, len(path))
	for i, d := range path {
		entries[i] = EntryOf(d)
	}
	return entries
}

// MarshalJSON encodes the path as a list of entries.
func (s *Stack) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Entries())
}
