package storage

import (
	"context"

	"caucus/internal/models"
)

// Storage defines the interface for site content persistence. It is
// implemented by an in-memory store, a JSON file and two SQL databases.
//
// Getters return ErrNotFound (possibly wrapped) for unknown IDs. Returned
// documents are copies; mutating them does not affect the store.
type Storage interface {
	// Events returns every event ordered by start date.
	Events(ctx context.Context) ([]*models.Event, error)

	// GetEvent retrieves an event by its ID
	GetEvent(ctx context.Context, id string) (*models.Event, error)

	// SaveEvent creates or replaces an event
	SaveEvent(ctx context.Context, event *models.Event) error

	// DeleteEvent removes an event
	DeleteEvent(ctx context.Context, id string) error

	// Resources returns the resource list ordered by position.
	Resources(ctx context.Context) ([]*models.Resource, error)

	GetResource(ctx context.Context, id string) (*models.Resource, error)
	SaveResource(ctx context.Context, resource *models.Resource) error
	DeleteResource(ctx context.Context, id string) error

	// TechItems returns the tech list ordered by position.
	TechItems(ctx context.Context) ([]*models.TechItem, error)

	GetTechItem(ctx context.Context, id string) (*models.TechItem, error)
	SaveTechItem(ctx context.Context, item *models.TechItem) error
	DeleteTechItem(ctx context.Context, id string) error

	// ContactMessages returns submitted messages, newest first.
	ContactMessages(ctx context.Context) ([]*models.ContactMessage, error)

	// SaveContactMessage stores a submitted message
	SaveContactMessage(ctx context.Context, msg *models.ContactMessage) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}
