// Package storagetest provides an in-memory storage.ObjectStore.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/angelmondragon/marketplace-backend/pkg/storage"
)

type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps objects in a map. PutErr and DeleteErr, when set, are returned
// by the matching call.
type Memory struct {
	mu        sync.Mutex
	objects   map[string]Object
	PutErr    error
	DeleteErr error
}

var _ storage.ObjectStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{objects: map[string]Object{}}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) PublicURL(key string) string {
	return storage.PublicURL("https://storage.test/avatars", key)
}

func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
