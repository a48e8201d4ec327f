// Package content implements the site's content operations on top of a
// storage backend: events, the resource list, the tech list and contact
// messages, plus iCalendar export of events.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"caucus/internal/models"
	"caucus/internal/storage"
)

// Service handles content business logic
type Service struct {
	storage storage.Storage
	now     func() time.Time

	// listMu serialises read-modify-write of list positions.
	listMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for timestamps and the upcoming filter.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a content service with the given storage backend
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{storage: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time in UTC.
func (s *Service) Now() time.Time {
	return s.now().UTC()
}

// ListEvents returns events by start date. With upcomingOnly, events that
// have already ended are left out.
func (s *Service) ListEvents(ctx context.Context, upcomingOnly bool) ([]*models.Event, error) {
	events, err := s.storage.Events(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list events", err)
	}
	if !upcomingOnly {
		return events, nil
	}

	now := s.Now()
	upcoming := make([]*models.Event, 0, len(events))
	for _, e := range events {
		if !e.Ends().Before(now) {
			upcoming = append(upcoming, e)
		}
	}
	return upcoming, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.storage.GetEvent(ctx, id)
	if err != nil {
		return nil, storageError("event", id, "get", err)
	}
	return e, nil
}

func (s *Service) CreateEvent(ctx context.Context, req *models.EventRequest) (*models.Event, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid event", err)
	}

	now := s.Now()
	e := &models.Event{ID: models.NewID(), CreatedAt: now, UpdatedAt: now}
	req.Apply(e)

	if err := s.storage.SaveEvent(ctx, e); err != nil {
		return nil, NewInternalError("failed to save event", err)
	}
	slog.Info("Event created", "event_id", e.ID, "title", e.Title)
	return e, nil
}

// UpdateEvent fully replaces the editable fields of an existing event.
func (s *Service) UpdateEvent(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid event", err)
	}

	e, err := s.storage.GetEvent(ctx, id)
	if err != nil {
		return nil, storageError("event", id, "get", err)
	}
	req.Apply(e)
	e.UpdatedAt = s.Now()

	if err := s.storage.SaveEvent(ctx, e); err != nil {
		return nil, NewInternalError("failed to save event", err)
	}
	slog.Info("Event updated", "event_id", e.ID)
	return e, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.storage.DeleteEvent(ctx, id); err != nil {
		return storageError("event", id, "delete", err)
	}
	slog.Info("Event deleted", "event_id", id)
	return nil
}

func (s *Service) ListResources(ctx context.Context) ([]*models.Resource, error) {
	resources, err := s.storage.Resources(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list resources", err)
	}
	return resources, nil
}

// CreateResource appends a resource to the end of the list.
func (s *Service) CreateResource(ctx context.Context, req *models.ResourceRequest) (*models.Resource, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid resource", err)
	}

	s.listMu.Lock()
	defer s.listMu.Unlock()

	existing, err := s.storage.Resources(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list resources", err)
	}
	now := s.Now()
	r := &models.Resource{
		ID:          models.NewID(),
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Position:    nextPosition(len(existing), func(i int) int { return existing[i].Position }),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.SaveResource(ctx, r); err != nil {
		return nil, NewInternalError("failed to save resource", err)
	}
	slog.Info("Resource created", "resource_id", r.ID)
	return r, nil
}

func (s *Service) UpdateResource(ctx context.Context, id string, req *models.ResourceRequest) (*models.Resource, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid resource", err)
	}

	r, err := s.storage.GetResource(ctx, id)
	if err != nil {
		return nil, storageError("resource", id, "get", err)
	}
	r.Title = req.Title
	r.URL = req.URL
	r.Description = req.Description
	r.UpdatedAt = s.Now()

	if err := s.storage.SaveResource(ctx, r); err != nil {
		return nil, NewInternalError("failed to save resource", err)
	}
	return r, nil
}

func (s *Service) DeleteResource(ctx context.Context, id string) error {
	if err := s.storage.DeleteResource(ctx, id); err != nil {
		return storageError("resource", id, "delete", err)
	}
	slog.Info("Resource deleted", "resource_id", id)
	return nil
}

// ReorderResources assigns positions from req.IDs, which must name every
// resource exactly once.
func (s *Service) ReorderResources(ctx context.Context, req *models.ReorderRequest) ([]*models.Resource, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid order", err)
	}

	s.listMu.Lock()
	defer s.listMu.Unlock()

	existing, err := s.storage.Resources(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list resources", err)
	}
	byID := make(map[string]*models.Resource, len(existing))
	for _, r := range existing {
		byID[r.ID] = r
	}
	if err := checkPermutation(req.IDs, byID); err != nil {
		return nil, NewValidationError("invalid order", err)
	}

	now := s.Now()
	ordered := make([]*models.Resource, 0, len(req.IDs))
	for pos, id := range req.IDs {
		r := byID[id]
		if r.Position != pos {
			r.Position = pos
			r.UpdatedAt = now
			if err := s.storage.SaveResource(ctx, r); err != nil {
				return nil, NewInternalError("failed to save resource", err)
			}
		}
		ordered = append(ordered, r)
	}
	return ordered, nil
}

func (s *Service) ListTechItems(ctx context.Context) ([]*models.TechItem, error) {
	items, err := s.storage.TechItems(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list tech items", err)
	}
	return items, nil
}

// CreateTechItem appends an item to the end of the tech list.
func (s *Service) CreateTechItem(ctx context.Context, req *models.TechItemRequest) (*models.TechItem, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid tech item", err)
	}

	s.listMu.Lock()
	defer s.listMu.Unlock()

	existing, err := s.storage.TechItems(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list tech items", err)
	}
	now := s.Now()
	item := &models.TechItem{
		ID:        models.NewID(),
		Name:      req.Name,
		URL:       req.URL,
		Position:  nextPosition(len(existing), func(i int) int { return existing[i].Position }),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.SaveTechItem(ctx, item); err != nil {
		return nil, NewInternalError("failed to save tech item", err)
	}
	slog.Info("Tech item created", "tech_item_id", item.ID)
	return item, nil
}

func (s *Service) UpdateTechItem(ctx context.Context, id string, req *models.TechItemRequest) (*models.TechItem, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid tech item", err)
	}

	item, err := s.storage.GetTechItem(ctx, id)
	if err != nil {
		return nil, storageError("tech item", id, "get", err)
	}
	item.Name = req.Name
	item.URL = req.URL
	item.UpdatedAt = s.Now()

	if err := s.storage.SaveTechItem(ctx, item); err != nil {
		return nil, NewInternalError("failed to save tech item", err)
	}
	return item, nil
}

func (s *Service) DeleteTechItem(ctx context.Context, id string) error {
	if err := s.storage.DeleteTechItem(ctx, id); err != nil {
		return storageError("tech item", id, "delete", err)
	}
	slog.Info("Tech item deleted", "tech_item_id", id)
	return nil
}

// ReorderTechItems assigns positions from req.IDs, which must name every
// tech item exactly once.
func (s *Service) ReorderTechItems(ctx context.Context, req *models.ReorderRequest) ([]*models.TechItem, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid order", err)
	}

	s.listMu.Lock()
	defer s.listMu.Unlock()

	existing, err := s.storage.TechItems(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list tech items", err)
	}
	byID := make(map[string]*models.TechItem, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}
	if err := checkPermutation(req.IDs, byID); err != nil {
		return nil, NewValidationError("invalid order", err)
	}

	now := s.Now()
	ordered := make([]*models.TechItem, 0, len(req.IDs))
	for pos, id := range req.IDs {
		item := byID[id]
		if item.Position != pos {
			item.Position = pos
			item.UpdatedAt = now
			if err := s.storage.SaveTechItem(ctx, item); err != nil {
				return nil, NewInternalError("failed to save tech item", err)
			}
		}
		ordered = append(ordered, item)
	}
	return ordered, nil
}

// SubmitContact validates and stores a contact-form message. Rate limiting
// happens in the HTTP layer.
func (s *Service) SubmitContact(ctx context.Context, req *models.ContactRequest) (*models.ContactMessage, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewValidationError("invalid contact message", err)
	}

	msg := &models.ContactMessage{
		ID:           models.NewID(),
		Name:         req.Name,
		Email:        req.Email,
		Organization: req.Organization,
		Message:      req.Message,
		CreatedAt:    s.Now(),
	}
	if err := s.storage.SaveContactMessage(ctx, msg); err != nil {
		return nil, NewInternalError("failed to save contact message", err)
	}
	slog.Info("Contact message received", "message_id", msg.ID)
	return msg, nil
}

func (s *Service) ListContactMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	msgs, err := s.storage.ContactMessages(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list contact messages", err)
	}
	return msgs, nil
}

// nextPosition returns one past the highest existing position.
func nextPosition(n int, position func(i int) int) int {
	next := 0
	for i := 0; i < n; i++ {
		if p := position(i); p >= next {
			next = p + 1
		}
	}
	return next
}

// checkPermutation verifies ids names every document in byID exactly once.
// ids is already known to be duplicate-free.
func checkPermutation[T any](ids []string, byID map[string]T) error {
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return models.ValidationErrors{"ids": fmt.Sprintf("unknown id %s", id)}
		}
	}
	if len(ids) != len(byID) {
		return models.ValidationErrors{"ids": fmt.Sprintf("expected %d ids, got %d", len(byID), len(ids))}
	}
	return nil
}
