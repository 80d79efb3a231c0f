package ledger

import (
	"context"

	"github.com/stanstork/agri-notify/internal/models"
)

// MemoryStore keeps ledgers in process memory, most recent entry first.
type MemoryStore struct {
	entries map[string][]models.LedgerEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]models.LedgerEntry)}
}

func (m *MemoryStore) Append(_ context.Context, deviceID string, entry models.LedgerEntry, capacity int) error {
	current := m.entries[deviceID]
	for _, e := range current {
		if e.Record.ID == entry.Record.ID {
			return ErrDuplicateEntry
		}
	}

	next := make([]models.LedgerEntry, 0, len(current)+1)
	next = append(next, entry)
	next = append(next, current...)
	if capacity > 0 && len(next) > capacity {
		next = next[:capacity]
	}
	m.entries[deviceID] = next
	return nil
}

func (m *MemoryStore) MarkRead(_ context.Context, deviceID, id string) error {
	entries := m.entries[deviceID]
	for i := range entries {
		if entries[i].Record.ID == id {
			entries[i].Record.Read = true
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) MarkAllRead(_ context.Context, deviceID string) error {
	entries := m.entries[deviceID]
	for i := range entries {
		entries[i].Record.Read = true
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, deviceID, id string) error {
	entries := m.entries[deviceID]
	for i := range entries {
		if entries[i].Record.ID == id {
			m.entries[deviceID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, deviceID string) error {
	delete(m.entries, deviceID)
	return nil
}

func (m *MemoryStore) List(_ context.Context, deviceID string) ([]models.LedgerEntry, error) {
	entries := m.entries[deviceID]
	out := make([]models.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *MemoryStore) UnreadCount(_ context.Context, deviceID string) (int, error) {
	n := 0
	for _, e := range m.entries[deviceID] {
		if !e.Record.Read {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) BadgeCount(_ context.Context, deviceID string) (int, error) {
	n := 0
	for _, e := range m.entries[deviceID] {
		if !e.Record.Read && e.Decision.SetBadge {
			n++
		}
	}
	return n, nil
}
