package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgallion1/brewsync/internal/brew"
)

// Memory is a Store held in process memory. Documents are cloned on the way
// in and out.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]brew.Document
}

func NewMemory() *Memory {
	return &Memory{docs: make(map[string]brew.Document)}
}

func (m *Memory) Get(_ context.Context, shareID string) (brew.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[shareID]
	if !ok {
		return brew.Document{}, ErrNotFound
	}
	return doc.Clone(), nil
}

func (m *Memory) Put(_ context.Context, doc brew.Document) error {
	if doc.ShareID == "" {
		return fmt.Errorf("put brew: share id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ShareID] = doc.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, shareID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[shareID]; !ok {
		return ErrNotFound
	}
	delete(m.docs, shareID)
	return nil
}

func (m *Memory) Close() error { return nil }
