package interview

import "sync"

// sessions holds answers per session id in memory.
type sessions struct {
	mu    sync.RWMutex
	items map[string][]Answer
}

func newSessions() *sessions {
	return &sessions{items: make(map[string][]Answer)}
}

// ensure creates an empty entry and reports the live session count.
func (s *sessions) ensure(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		s.items[id] = []Answer{}
	}
	return len(s.items)
}

// append records a and returns a snapshot of the session's answers.
func (s *sessions) append(id string, a Answer) []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = append(s.items[id], a)
	return cloneAnswers(s.items[id])
}

func (s *sessions) get(id string) []Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAnswers(s.items[id])
}

// drop removes the session and reports whether it existed plus the remaining count.
func (s *sessions) drop(id string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok, len(s.items)
}

func (s *sessions) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func cloneAnswers(in []Answer) []Answer {
	out := make([]Answer, len(in))
	copy(out, in)
	return out
}
