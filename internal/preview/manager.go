// Package preview owns the temporary in-memory image handles the dashboard
// shows as previews.
//
// A handle is created for every displayed image and must be released when it
// is replaced or when its owner goes away. The manager keeps at most one live
// handle per slot and can release everything at once on teardown.
package preview

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrReleased is returned by reads on a handle that has been released.
var ErrReleased = errors.New("preview: handle released")

// Slot names one independent preview position.
type Slot string

const (
	SlotUpload Slot = "upload"
	SlotCamera Slot = "camera"
)

// Handle is an opaque, revocable reference to preview bytes.
type Handle struct {
	id       uuid.UUID
	slot     Slot
	name     string
	mimeType string

	mu       sync.RWMutex
	data     []byte
	released atomic.Bool
}

// URL is the handle's identity, unique for the lifetime of the process.
func (h *Handle) URL() string {
	return "blob:" + h.id.String()
}

func (h *Handle) Slot() Slot       { return h.slot }
func (h *Handle) Name() string     { return h.name }
func (h *Handle) MimeType() string { return h.mimeType }
func (h *Handle) Released() bool   { return h.released.Load() }

// Bytes returns the preview data until the handle is released.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.released.Load() {
		return nil, ErrReleased
	}
	return h.data, nil
}

// release reports whether this call did the release.
func (h *Handle) release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released.Swap(true) {
		return false
	}
	h.data = nil
	return true
}

type Stats struct {
	Created  uint64
	Released uint64
}

// Manager is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	slots map[Slot]*Handle

	// handles created outside a slot with Create
	loose map[*Handle]struct{}

	created  atomic.Uint64
	released atomic.Uint64
}

func NewManager() *Manager {
	return &Manager{
		slots: make(map[Slot]*Handle),
		loose: make(map[*Handle]struct{}),
	}
}

// SetPreview installs a new handle for slot. The slot's previous handle is
// released before the new one is returned.
func (m *Manager) SetPreview(slot Slot, data []byte, name, mimeType string) *Handle {
	h := m.newHandle(slot, data, name, mimeType)

	m.mu.Lock()
	prev := m.slots[slot]
	m.slots[slot] = h
	m.mu.Unlock()

	if prev != nil {
		m.releaseHandle(prev)
	}
	return h
}

// Create returns a handle that belongs to no slot. It is still tracked and
// released by ReleaseAll.
func (m *Manager) Create(data []byte, name, mimeType string) *Handle {
	h := m.newHandle("", data, name, mimeType)
	m.mu.Lock()
	m.loose[h] = struct{}{}
	m.mu.Unlock()
	return h
}

func (m *Manager) newHandle(slot Slot, data []byte, name, mimeType string) *Handle {
	m.created.Add(1)
	return &Handle{
		id:       uuid.New(),
		slot:     slot,
		name:     name,
		mimeType: mimeType,
		data:     data,
	}
}

// Current returns the live handle of slot, or nil.
func (m *Manager) Current(slot Slot) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slots[slot]
}

// Clear releases the handle of slot, if any.
func (m *Manager) Clear(slot Slot) {
	m.mu.Lock()
	h := m.slots[slot]
	delete(m.slots, slot)
	m.mu.Unlock()
	if h != nil {
		m.releaseHandle(h)
	}
}

// Release revokes h. Releasing an already released handle is a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	if m.slots[h.slot] == h {
		delete(m.slots, h.slot)
	}
	delete(m.loose, h)
	m.mu.Unlock()
	m.releaseHandle(h)
}

// ReleaseAll revokes every live handle. Called when the owning view goes away.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	handles := make([]*Handle, 0, len(m.slots)+len(m.loose))
	for _, h := range m.slots {
		handles = append(handles, h)
	}
	for h := range m.loose {
		handles = append(handles, h)
	}
	m.slots = make(map[Slot]*Handle)
	m.loose = make(map[*Handle]struct{})
	m.mu.Unlock()

	for _, h := range handles {
		m.releaseHandle(h)
	}
}

// Live is the number of created handles not yet released.
func (m *Manager) Live() int {
	s := m.Stats()
	return int(s.Created - s.Released)
}

func (m *Manager) Stats() Stats {
	return Stats{Created: m.created.Load(), Released: m.released.Load()}
}

func (m *Manager) releaseHandle(h *Handle) {
	if h.release() {
		m.released.Add(1)
	}
}
