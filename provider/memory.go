package provider

import (
	"context"
	"sync"
)

// Memory keeps clipboard data in-process. Useful on headless hosts and for
// isolating guests from the desktop clipboard.
type Memory struct {
	text      string
	mu        sync.Mutex
	denyRead  bool
	denyWrite bool
}

func NewMemory(initial string) *Memory {
	return &Memory{text: initial}
}

func (m *Memory) Name() string {
	return "memory"
}

// Deny makes subsequent reads and/or writes fail with ErrPermissionDenied.
func (m *Memory) Deny(read, write bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denyRead = read
	m.denyWrite = write
}

func (m *Memory) ReadText(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyRead {
		return "", ErrPermissionDenied
	}
	return m.text, nil
}

func (m *Memory) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.denyWrite {
		return ErrPermissionDenied
	}
	m.text = text
	return nil
}

// Text returns the current contents regardless of Deny.
func (m *Memory) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}
