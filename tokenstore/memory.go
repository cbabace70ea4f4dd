package tokenstore

import "sync"

var _ Store = (*MemStore)(nil)
var _ Notifier = (*MemStore)(nil)

// MemStore keeps the token pair in process memory. Sessions do not survive a
// restart; it is the backend of choice for tests and short-lived tools.
type MemStore struct {
	notifier

	lock   sync.RWMutex
	tokens map[Kind]string
}

func NewMemStore() *MemStore {
	return &MemStore{tokens: make(map[Kind]string)}
}

func (s *MemStore) Get(kind Kind) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	token, ok := s.tokens[kind]
	if !ok {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *MemStore) SetAccess(token string) error {
	s.lock.Lock()
	s.tokens[Access] = token
	s.lock.Unlock()

	s.publish()
	return nil
}

func (s *MemStore) SetPair(access, refresh string) error {
	s.lock.Lock()
	s.tokens[Access] = access
	s.tokens[Refresh] = refresh
	s.lock.Unlock()

	s.publish()
	return nil
}

func (s *MemStore) Clear() error {
	s.lock.Lock()
	delete(s.tokens, Access)
	delete(s.tokens, Refresh)
	s.lock.Unlock()

	s.publish()
	return nil
}
