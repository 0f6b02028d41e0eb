package assistant

import (
	"sync"
	"time"

	"shopassist/internal/models"

	"github.com/patrickmn/go-cache"
)

// entry holds one session. mu serialises turns of that session; the
// session pointer is only swapped while mu is held.
type entry struct {
	mu   sync.Mutex
	sess *models.Session
}

// Store keeps sessions in memory and drops them after ttl of inactivity.
type Store struct {
	cache *cache.Cache
}

func NewStore(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (s *Store) put(sess *models.Session) *entry {
	e := &entry{sess: sess}
	s.cache.Set(sess.ID, e, cache.DefaultExpiration)
	return e
}

// get returns the entry and refreshes its expiry.
func (s *Store) get(id string) (*entry, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	e := x.(*entry)
	s.cache.Set(id, e, cache.DefaultExpiration)
	return e, true
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

func (s *Store) Len() int {
	return s.cache.ItemCount()
}
