package content

import (
	"context"

	"caucus/internal/models"
)

// ServiceInterface defines the content operations behind the HTTP API.
// Errors returned are *ServiceError.
type ServiceInterface interface {
	ListEvents(ctx context.Context, upcomingOnly bool) ([]*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	CreateEvent(ctx context.Context, req *models.EventRequest) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, req *models.EventRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	ListResources(ctx context.Context) ([]*models.Resource, error)
	CreateResource(ctx context.Context, req *models.ResourceRequest) (*models.Resource, error)
	UpdateResource(ctx context.Context, id string, req *models.ResourceRequest) (*models.Resource, error)
	DeleteResource(ctx context.Context, id string) error
	ReorderResources(ctx context.Context, req *models.ReorderRequest) ([]*models.Resource, error)

	ListTechItems(ctx context.Context) ([]*models.TechItem, error)
	CreateTechItem(ctx context.Context, req *models.TechItemRequest) (*models.TechItem, error)
	UpdateTechItem(ctx context.Context, id string, req *models.TechItemRequest) (*models.TechItem, error)
	DeleteTechItem(ctx context.Context, id string) error
	ReorderTechItems(ctx context.Context, req *models.ReorderRequest) ([]*models.TechItem, error)

	SubmitContact(ctx context.Context, req *models.ContactRequest) (*models.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]*models.ContactMessage, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
