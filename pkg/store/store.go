// Package store persists form metadata by form id.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

var (
	// ErrNotFound is returned when no form is stored under the id.
	ErrNotFound = errors.New("store: form not found")
	// ErrMissingID is returned when storing metadata without an id.
	ErrMissingID = errors.New("store: form id is required")
)

// Store is implemented by metadata backends.
type Store interface {
	Get(ctx context.Context, id string) (metadata.FormMetadata, error)
	Put(ctx context.Context, form metadata.FormMetadata) error
	Delete(ctx context.Context, id string) error
	// List returns stored ids, sorted.
	List(ctx context.Context) ([]string, error)
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*Redis)(nil)
)

// Memory is an in-process Store. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu    sync.RWMutex
	forms map[string]metadata.FormMetadata
}

// NewMemory returns an empty Memory store seeded with forms.
func NewMemory(forms ...metadata.FormMetadata) *Memory {
	m := &Memory{forms: make(map[string]metadata.FormMetadata, len(forms))}
	for _, form := range forms {
		if id := strings.TrimSpace(form.ID); id != "" {
			m.forms[id] = form.Clone()
		}
	}
	return m
}

func (m *Memory) Get(ctx context.Context, id string) (metadata.FormMetadata, error) {
	if err := ctx.Err(); err != nil {
		return metadata.FormMetadata{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	form, ok := m.forms[strings.TrimSpace(id)]
	if !ok {
		return metadata.FormMetadata{}, ErrNotFound
	}
	return form.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, form metadata.FormMetadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := strings.TrimSpace(form.ID)
	if id == "" {
		return ErrMissingID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forms[id] = form.Clone()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id = strings.TrimSpace(id)
	if _, ok := m.forms[id]; !ok {
		return ErrNotFound
	}
	delete(m.forms, id)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.forms))
	for id := range m.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
