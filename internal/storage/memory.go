package storage

import (
	"context"
	"maps"
	"sort"
	"sync"

	"caucus/internal/models"
)

// MemoryStorage implements the Storage interface using in-memory maps.
// This provider is ideal for development and testing; data is lost on restart.
type MemoryStorage struct {
	mu        sync.RWMutex
	events    map[string]*models.Event
	resources map[string]*models.Resource
	techItems map[string]*models.TechItem
	messages  map[string]*models.ContactMessage
}

// NewMemoryStorage creates an empty memory-based storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		events:    make(map[string]*models.Event),
		resources: make(map[string]*models.Resource),
		techItems: make(map[string]*models.TechItem),
		messages:  make(map[string]*models.ContactMessage),
	}
}

// Events returns every event ordered by start date
func (m *MemoryStorage) Events(ctx context.Context) ([]*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*models.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, cloneEvent(e))
	}
	sortEvents(events)
	return events, nil
}

// GetEvent retrieves an event by its ID
func (m *MemoryStorage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, notFound("event", id)
	}
	return cloneEvent(e), nil
}

// SaveEvent stores a copy of event
func (m *MemoryStorage) SaveEvent(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.ID] = cloneEvent(event)
	return nil
}

// DeleteEvent removes an event
func (m *MemoryStorage) DeleteEvent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return notFound("event", id)
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryStorage) Resources(ctx context.Context) ([]*models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resources := make([]*models.Resource, 0, len(m.resources))
	for _, r := range m.resources {
		rc := *r
		resources = append(resources, &rc)
	}
	sortResources(resources)
	return resources, nil
}

func (m *MemoryStorage) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.resources[id]
	if !ok {
		return nil, notFound("resource", id)
	}
	rc := *r
	return &rc, nil
}

func (m *MemoryStorage) SaveResource(ctx context.Context, resource *models.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc := *resource
	m.resources[resource.ID] = &rc
	return nil
}

func (m *MemoryStorage) DeleteResource(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return notFound("resource", id)
	}
	delete(m.resources, id)
	return nil
}

func (m *MemoryStorage) TechItems(ctx context.Context) ([]*models.TechItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*models.TechItem, 0, len(m.techItems))
	for _, t := range m.techItems {
		tc := *t
		items = append(items, &tc)
	}
	sortTechItems(items)
	return items, nil
}

func (m *MemoryStorage) GetTechItem(ctx context.Context, id string) (*models.TechItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.techItems[id]
	if !ok {
		return nil, notFound("tech item", id)
	}
	tc := *t
	return &tc, nil
}

func (m *MemoryStorage) SaveTechItem(ctx context.Context, item *models.TechItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tc := *item
	m.techItems[item.ID] = &tc
	return nil
}

func (m *MemoryStorage) DeleteTechItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.techItems[id]; !ok {
		return notFound("tech item", id)
	}
	delete(m.techItems, id)
	return nil
}

// ContactMessages returns submitted messages, newest first
func (m *MemoryStorage) ContactMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := make([]*models.ContactMessage, 0, len(m.messages))
	for _, msg := range m.messages {
		mc := *msg
		msgs = append(msgs, &mc)
	}
	sortMessages(msgs)
	return msgs, nil
}

func (m *MemoryStorage) SaveContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc := *msg
	m.messages[msg.ID] = &mc
	return nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}

// memorySnapshot holds the map state at one point in time. Stored values are
// replaced on save, never modified, so copying the maps is enough.
type memorySnapshot struct {
	events    map[string]*models.Event
	resources map[string]*models.Resource
	techItems map[string]*models.TechItem
	messages  map[string]*models.ContactMessage
}

func (m *MemoryStorage) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memorySnapshot{
		events:    maps.Clone(m.events),
		resources: maps.Clone(m.resources),
		techItems: maps.Clone(m.techItems),
		messages:  maps.Clone(m.messages),
	}
}

func (m *MemoryStorage) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = s.events
	m.resources = s.resources
	m.techItems = s.techItems
	m.messages = s.messages
}

func cloneEvent(e *models.Event) *models.Event {
	ec := *e
	if e.EndDate != nil {
		end := *e.EndDate
		ec.EndDate = &end
	}
	ec.Images = append([]string{}, e.Images...)
	return &ec
}

// Orderings shared by every backend. Ties fall back to creation time and
// then ID so listings are stable.

func sortEvents(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

func sortResources(resources []*models.Resource) {
	sort.SliceStable(resources, func(i, j int) bool {
		a, b := resources[i], resources[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func sortTechItems(items []*models.TechItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func sortMessages(msgs []*models.ContactMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
}
