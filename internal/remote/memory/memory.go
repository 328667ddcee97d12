package memory

import (
	"context"
	"sort"
	"sync"

	"dailyledger/internal/remote"
)

// Store is an in-process mirror sink used for development and tests.
type Store struct {
	mu   sync.Mutex
	docs map[string]remote.Document
	puts int
}

var _ remote.DocumentWriter = (*Store)(nil)

func New() *Store {
	return &Store{docs: make(map[string]remote.Document)}
}

// Put stores the document under its key, replacing any earlier copy.
func (s *Store) Put(_ context.Context, doc remote.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.Key()] = doc
	s.puts++
	return nil
}

func (s *Store) Get(userID, id string) (remote.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[remote.Document{UserID: userID, ID: id}.Key()]
	return doc, ok
}

// List returns a user's documents ordered by timestamp.
func (s *Store) List(userID string) []remote.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []remote.Document
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Puts counts accepted writes, overwrites included.
func (s *Store) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
