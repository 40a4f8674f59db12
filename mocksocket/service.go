package mocksocket

import (
	"context"
	"sync"
	"time"

	"revivio/internal/wait"
)

// Service is a registry of connected mock sockets: each call to
// ConnectSocket appends a new Surrogate, and tests drain or inspect the
// registry with the accessors below. Safe for concurrent use.
type Service struct {
	bufferSize int

	mu       sync.Mutex
	deque    []*Surrogate
	arrivals *wait.Gate
}

// NewService creates a registry whose surrogates use bufferSize for both
// of their underlying pipes.
func NewService(bufferSize int) *Service {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Service{
		bufferSize: bufferSize,
		arrivals:   wait.NewGate(),
	}
}

// ConnectSocket creates a new surrogate, appends it to the registry, and
// connects its facade to host:port with no timeout recorded.
func (s *Service) ConnectSocket(host string, port int) *Facade {
	return s.ConnectSocketTimeout(host, port, 0)
}

// ConnectSocketTimeout is ConnectSocket, additionally recording timeoutMs
// as the value passed to the facade's Connect.
func (s *Service) ConnectSocketTimeout(host string, port int, timeoutMs int) *Facade {
	sur := newSurrogate(s.bufferSize)
	_ = sur.Facade.Connect(Addr{Host: host, Port: port}, timeoutMs)

	s.mu.Lock()
	s.deque = append(s.deque, sur)
	s.mu.Unlock()
	s.arrivals.Notify()

	return sur.Facade
}

// GetAllConnectedSocketMocks returns the surrogates currently in the
// registry, oldest first. The returned slice is a snapshot: Go has no
// collection type that gives a live mutable view the way the registry
// itself does, so this and GetAllConnectedSocketMocksClone behave
// identically. Use the Service itself for further live observation.
func (s *Service) GetAllConnectedSocketMocks() []*Surrogate {
	return s.GetAllConnectedSocketMocksClone()
}

// GetAllConnectedSocketMocksClone returns a snapshot copy of the
// registry's contents, oldest first.
func (s *Service) GetAllConnectedSocketMocksClone() []*Surrogate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Surrogate, len(s.deque))
	copy(out, s.deque)
	return out
}

// GetAndClearAllConnectedSocketMocks returns a snapshot of the registry
// and empties it atomically.
func (s *Service) GetAndClearAllConnectedSocketMocks() []*Surrogate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.deque
	s.deque = nil
	return out
}

// GetLastConnectedSocketMock returns the most recently connected
// surrogate, or ErrNoConnectedSockets if the registry is empty.
func (s *Service) GetLastConnectedSocketMock() (*Surrogate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deque) == 0 {
		return nil, ErrNoConnectedSockets
	}
	return s.deque[len(s.deque)-1], nil
}

// GetTheOnlyConnectedSocketMock returns the registry's single surrogate,
// or an *UnexpectedCountError if the registry does not hold exactly one.
func (s *Service) GetTheOnlyConnectedSocketMock() (*Surrogate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deque) != 1 {
		return nil, &UnexpectedCountError{Count: len(s.deque), Verb: "exactly one"}
	}
	return s.deque[0], nil
}

// GetAndClearTheOnlyConnectedSocketMock is GetTheOnlyConnectedSocketMock,
// additionally clearing the registry on success. Unlike
// GetTheOnlyConnectedSocketMock it also tolerates an empty registry,
// returning nil with no error.
func (s *Service) GetAndClearTheOnlyConnectedSocketMock() (*Surrogate, error) {
	return s.getAndClearTheOnlyConnectedSocketMock("exactly one")
}

// getAndClearTheOnlyConnectedSocketMock is the shared implementation behind
// GetAndClearTheOnlyConnectedSocketMock and
// WaitForAndClearTheOnlyConnectedSocketMock; verb lets each caller supply
// its own wording for the over-count error.
func (s *Service) getAndClearTheOnlyConnectedSocketMock(verb string) (*Surrogate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch len(s.deque) {
	case 0:
		return nil, nil
	case 1:
		sur := s.deque[0]
		s.deque = nil
		return sur, nil
	default:
		return nil, &UnexpectedCountError{Count: len(s.deque), Verb: verb}
	}
}

// WaitForAndClearTheOnlyConnectedSocketMock blocks until exactly one
// surrogate has connected, then clears and returns it. It returns
// ErrWaitTimeout if timeout elapses first, or the UnexpectedCountError if
// a second connection arrives before the first is consumed.
func (s *Service) WaitForAndClearTheOnlyConnectedSocketMock(timeout time.Duration) (*Surrogate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		sur, err := s.getAndClearTheOnlyConnectedSocketMock("one or none")
		if err != nil {
			return nil, err
		}
		if sur != nil {
			return sur, nil
		}
		interrupted, ctxErr := s.arrivals.Wait(ctx)
		if ctxErr != nil {
			return nil, ErrWaitTimeout
		}
		if interrupted {
			return nil, ErrWaitInterrupted
		}
	}
}

// AssertNoConnectedSocketMocks returns an *AssertionError if the registry
// is non-empty, otherwise nil.
func (s *Service) AssertNoConnectedSocketMocks() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.deque) != 0 {
		return &AssertionError{Count: len(s.deque)}
	}
	return nil
}
