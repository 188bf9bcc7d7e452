package infrastructure

import "sync"

// SenderLocks serializes work per sender: at most one message from the same
// sender is processed at a time. Different senders never block each other.
type SenderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	mu   sync.Mutex
	refs int
}

func NewSenderLocks() *SenderLocks {
	return &SenderLocks{locks: make(map[string]*senderLock)}
}

// Lock blocks until sender is free and returns the matching unlock func
func (s *SenderLocks) Lock(sender string) func() {
	s.mu.Lock()
	l, ok := s.locks[sender]
	if !ok {
		l = &senderLock{}
		s.locks[sender] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sender)
		}
		s.mu.Unlock()
	}
}

// Active returns the number of senders currently holding or waiting on a lock
func (s *SenderLocks) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
