// Package cart holds the per-session selection of teachers that a mailing
// will be sent to.
package cart

import "github.com/nhle/automail/internal/model"

// Candidate is anything that can be projected onto a teacher snapshot.
// model.Teacher and model.TeacherRef both qualify.
type Candidate interface {
	Ref() model.TeacherRef
}

// Store is an ordered selection of teacher snapshots, unique by id.
// Insertion order is kept for display. The first snapshot added for an id
// wins until it is removed; later candidates with the same id are ignored
// even when their other fields differ.
//
// A Store is owned by a single session and is not safe for concurrent use.
type Store struct {
	items []model.TeacherRef
}

// New returns an empty selection.
func New() *Store {
	return &Store{}
}

// Add appends a snapshot of c unless an entry with the same id exists.
// It reports whether the selection changed.
func (s *Store) Add(c Candidate) bool {
	ref := c.Ref()
	if s.indexOf(ref.ID) >= 0 {
		return false
	}
	s.items = append(s.items, ref)
	return true
}

// AddMany adds each candidate in order and returns how many were newly
// inserted. Duplicates, whether already selected or repeated within cs,
// are skipped without stopping the rest.
func (s *Store) AddMany(cs []Candidate) int {
	added := 0
	for _, c := range cs {
		if s.Add(c) {
			added++
		}
	}
	return added
}

// AddAll is AddMany for a typed slice, e.g. []model.Teacher.
func AddAll[T Candidate](s *Store, cs []T) int {
	added := 0
	for _, c := range cs {
		if s.Add(c) {
			added++
		}
	}
	return added
}

// Remove deletes the entry with the given id, keeping the order of the
// rest. It reports whether an entry was removed.
func (s *Store) Remove(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true
}

// Contains reports whether an entry with the given id is selected.
func (s *Store) Contains(id string) bool {
	return s.indexOf(id) >= 0
}

// Clear empties the selection.
func (s *Store) Clear() {
	s.items = nil
}

// Count returns the number of selected entries.
func (s *Store) Count() int {
	return len(s.items)
}

// Emails returns the selected email addresses in selection order.
func (s *Store) Emails() []string {
	out := make([]string, len(s.items))
	for i, r := range s.items {
		out[i] = r.Email
	}
	return out
}

// IDs returns the selected identifiers in selection order.
func (s *Store) IDs() []string {
	out := make([]string, len(s.items))
	for i, r := range s.items {
		out[i] = r.ID
	}
	return out
}

// Items returns a copy of the selected snapshots in selection order.
func (s *Store) Items() []model.TeacherRef {
	out := make([]model.TeacherRef, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.items {
		if r.ID == id {
			return i
		}
	}
	return -1
}
