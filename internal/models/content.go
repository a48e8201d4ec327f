// Package models - Site content.
// This file defines the documents the admin panel manages: events, curated
// resources, tech-list items and contact-form messages.
//
// Design Decisions:
// - IDs are UUIDv4 strings generated server-side
// - Resources and tech items carry an explicit Position so the admin panel can
//   reorder them by drag and drop; events are ordered by date
// - Event bodies are stored as markdown source; rendering happens in the frontend
// - Images are referenced by URL only; uploads are handled outside this service
package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a caucus event or briefing.
type Event struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Date            time.Time  `json:"date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Location        string     `json:"location,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Content         string     `json:"content,omitempty"`
	PresentationURL string     `json:"presentation_url,omitempty"`
	Images          []string   `json:"images"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Ends returns the event end, defaulting to one hour after the start.
func (e *Event) Ends() time.Time {
	if e.EndDate != nil {
		return *e.EndDate
	}
	return e.Date.Add(time.Hour)
}

// Resource is an entry of the curated resource list.
type Resource struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TechItem is one entry of the scrolling tech list.
type TechItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactMessage is a submitted contact form. The sender's network address
// is used for rate limiting only and is never stored.
type ContactMessage struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Organization string    `json:"organization,omitempty"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewID returns a fresh document identifier.
func NewID() string {
	return uuid.New().String()
}
