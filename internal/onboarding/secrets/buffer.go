package secrets

import (
	"sync"

	"satnam/internal/secretcodec"
)

// Buffer owns one plaintext secret until Wipe. After Wipe every read
// returns an empty slice.
type Buffer struct {
	mu    sync.Mutex
	b     []byte
	wiped bool
}

// NewBuffer takes ownership of b; the caller must not keep using it.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Read returns a copy of the secret. The caller should wipe the copy.
func (s *Buffer) Read() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wiped {
		return []byte{}
	}
	out := make([]byte, len(s.b))
	copy(out, s.b)
	return out
}

// Use calls fn with the live secret without copying it. fn must not retain it.
func (s *Buffer) Use(fn func([]byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wiped {
		return fn([]byte{})
	}
	return fn(s.b)
}

// Len is the secret length, 0 once wiped.
func (s *Buffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.b)
}

// Wipe zeroes the backing array and drops it. Safe to call repeatedly.
func (s *Buffer) Wipe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	secretcodec.Wipe(s.b)
	s.b = nil
	s.wiped = true
}

// Wiped reports whether Wipe has run.
func (s *Buffer) Wiped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wiped
}
