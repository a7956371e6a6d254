// Package collection owns the authoritative, newest-first list of saved
// journal entries and writes every change through to the store.
package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/starford/shunya/internal/apperr"
	"github.com/starford/shunya/internal/models"
	"github.com/starford/shunya/internal/store"
)

// EventKind names a collection mutation.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Observer is called after each successful mutation, outside any lock.
type Observer func(kind EventKind, e models.Entry)

// Manager holds the in-memory entry list. Readers always see either the
// state before or after a mutation, never a partial one.
type Manager struct {
	store  store.EntryStore
	logger *slog.Logger

	// writeMu serialises write-through mutations so the store and the list
	// apply them in the same order.
	writeMu sync.Mutex

	mu       sync.RWMutex
	entries  []models.Entry
	observer Observer
}

// New creates a Manager backed by st.
func New(st store.EntryStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, logger: logger}
}

// OnChange registers fn to be notified of mutations. It replaces any
// previously registered observer.
func (m *Manager) OnChange(fn Observer) {
	m.mu.Lock()
	m.observer = fn
	m.mu.Unlock()
}

// Load replaces the in-memory list with the store's contents.
func (m *Manager) Load(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	all, err := m.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("collection: load: %w", err)
	}
	// The store returns oldest first; the list is presented newest first.
	slices.Reverse(all)

	m.mu.Lock()
	m.entries = all
	m.mu.Unlock()

	m.logger.Info("collection: loaded", slog.Int("entries", len(all)))
	return nil
}

// List returns the current entries, newest first. The returned slice is a
// copy; its elements must be treated as read-only.
func (m *Manager) List() []models.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.entries)
}

// Len returns the number of entries.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Get returns the entry with the given id.
func (m *Manager) Get(id string) (models.Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.entries[i], true
	}
	return models.Entry{}, false
}

// Upsert replaces the entry with the same id in place, or inserts e as a
// new entry at the front. The one exception is a new entry older than the
// current head, which only archive import or MCP can produce: it takes its
// chronological slot so the list stays newest first. Upsert reports whether
// e was inserted.
func (m *Manager) Upsert(e models.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(e.ID); i >= 0 {
		// Identity and creation time never change on update.
		e.CreatedAt = m.entries[i].CreatedAt
		m.entries[i] = e
		return false
	}

	pos := slices.IndexFunc(m.entries, func(x models.Entry) bool {
		return !x.CreatedAt.After(e.CreatedAt)
	})
	if pos < 0 {
		pos = len(m.entries)
	}
	m.entries = slices.Insert(m.entries, pos, e)
	return true
}

// Remove deletes the entry with the given id. It reports whether an entry
// was removed; an absent id is a no-op.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.entries = slices.Delete(m.entries, i, i+1)
	return true
}

// Save validates e, writes it to the store and, once the write is
// acknowledged, upserts it into the list. A store failure leaves the list
// unchanged and is returned to the caller.
func (m *Manager) Save(ctx context.Context, e models.Entry) (created bool, err error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("collection: save: %w", err)
	}

	m.writeMu.Lock()
	if existing, ok := m.Get(e.ID); ok {
		e.CreatedAt = existing.CreatedAt
	}
	created, err = m.writeLocked(ctx, e)
	m.writeMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("collection: save: %w", err)
	}

	kind := EventUpdated
	if created {
		kind = EventCreated
	}
	m.notify(kind, e)
	return created, nil
}

// Update replaces the content of an existing entry. It returns
// apperr.ErrNotFound, writing nothing, when no entry has e.ID.
func (m *Manager) Update(ctx context.Context, e models.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("collection: update: %w", err)
	}

	m.writeMu.Lock()
	existing, ok := m.Get(e.ID)
	if !ok {
		m.writeMu.Unlock()
		return fmt.Errorf("collection: update %s: %w", e.ID, apperr.ErrNotFound)
	}
	e.CreatedAt = existing.CreatedAt
	_, err := m.writeLocked(ctx, e)
	m.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("collection: update: %w", err)
	}

	m.notify(EventUpdated, e)
	return nil
}

// writeLocked puts e into the store and then into the list. writeMu must be held.
func (m *Manager) writeLocked(ctx context.Context, e models.Entry) (bool, error) {
	if err := m.store.Put(ctx, e); err != nil {
		m.logger.Error("collection: write failed", slog.String("id", e.ID), slog.String("error", err.Error()))
		return false, err
	}
	created := m.Upsert(e)
	m.logger.Debug("collection: saved", slog.String("id", e.ID), slog.Bool("created", created))
	return created, nil
}

// Delete removes the entry from the store and then from the list.
// Deleting an absent id is not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.writeMu.Lock()
	existing, ok := m.Get(id)
	if err := m.store.Delete(ctx, id); err != nil {
		m.writeMu.Unlock()
		m.logger.Error("collection: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		return fmt.Errorf("collection: delete: %w", err)
	}
	removed := m.Remove(id)
	m.writeMu.Unlock()

	if ok && removed {
		m.logger.Debug("collection: deleted", slog.String("id", id))
		m.notify(EventDeleted, existing)
	}
	return nil
}

func (m *Manager) notify(kind EventKind, e models.Entry) {
	m.mu.RLock()
	fn := m.observer
	m.mu.RUnlock()
	if fn != nil {
		fn(kind, e)
	}
}

// indexOf must be called with mu held.
func (m *Manager) indexOf(id string) int {
	return slices.IndexFunc(m.entries, func(x models.Entry) bool { return x.ID == id })
}
