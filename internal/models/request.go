// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Normalize first (trim whitespace), then validate
// - Collect every field problem into ValidationErrors so the admin form can
//   highlight all of them at once
// - URLs must be absolute http(s) links
package models

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Field limits
const (
	MaxTitleLength       = 200
	MaxSummaryLength     = 1000
	MaxContentLength     = 100_000
	MaxImagesPerEvent    = 50
	MaxNameLength        = 100
	MaxMessageLength     = 5000
	MinMessageLength     = 10
	MaxDescriptionLength = 2000
)

// ValidationErrors maps a JSON field name to what is wrong with it.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) orNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// EventRequest creates or fully replaces an event.
type EventRequest struct {
	Title           string     `json:"title"`
	Date            time.Time  `json:"date"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Location        string     `json:"location"`
	Summary         string     `json:"summary"`
	Content         string     `json:"content"`
	PresentationURL string     `json:"presentation_url"`
	Images          []string   `json:"images"`
}

func (r *EventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	r.Summary = strings.TrimSpace(r.Summary)
	r.PresentationURL = strings.TrimSpace(r.PresentationURL)
	images := make([]string, 0, len(r.Images))
	for _, img := range r.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	r.Images = images
}

func (r *EventRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Title == "" {
		errs["title"] = "title is required"
	} else if len(r.Title) > MaxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	}
	if r.Date.IsZero() {
		errs["date"] = "date is required"
	}
	if r.EndDate != nil && !r.Date.IsZero() && r.EndDate.Before(r.Date) {
		errs["end_date"] = "end date must not be before the start date"
	}
	if len(r.Summary) > MaxSummaryLength {
		errs["summary"] = fmt.Sprintf("summary must be at most %d characters", MaxSummaryLength)
	}
	if len(r.Content) > MaxContentLength {
		errs["content"] = "content is too long"
	}
	if r.PresentationURL != "" && !isHTTPURL(r.PresentationURL) {
		errs["presentation_url"] = "presentation URL must be an absolute http(s) URL"
	}
	if len(r.Images) > MaxImagesPerEvent {
		errs["images"] = fmt.Sprintf("at most %d images are allowed", MaxImagesPerEvent)
	} else {
		for _, img := range r.Images {
			if !isHTTPURL(img) {
				errs["images"] = "image URLs must be absolute http(s) URLs"
				break
			}
		}
	}
	return errs.orNil()
}

// Apply copies the request onto an event.
func (r *EventRequest) Apply(e *Event) {
	e.Title = r.Title
	e.Date = r.Date.UTC()
	e.EndDate = nil
	if r.EndDate != nil {
		end := r.EndDate.UTC()
		e.EndDate = &end
	}
	e.Location = r.Location
	e.Summary = r.Summary
	e.Content = r.Content
	e.PresentationURL = r.PresentationURL
	e.Images = append([]string{}, r.Images...)
}

// ResourceRequest creates or replaces a resource list entry.
type ResourceRequest struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (r *ResourceRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.URL = strings.TrimSpace(r.URL)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *ResourceRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Title == "" {
		errs["title"] = "title is required"
	} else if len(r.Title) > MaxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", MaxTitleLength)
	}
	if !isHTTPURL(r.URL) {
		errs["url"] = "url must be an absolute http(s) URL"
	}
	if len(r.Description) > MaxDescriptionLength {
		errs["description"] = fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength)
	}
	return errs.orNil()
}

// TechItemRequest creates or replaces a tech list entry.
type TechItemRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (r *TechItemRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.URL = strings.TrimSpace(r.URL)
}

func (r *TechItemRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Name == "" {
		errs["name"] = "name is required"
	} else if len(r.Name) > MaxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", MaxNameLength)
	}
	if r.URL != "" && !isHTTPURL(r.URL) {
		errs["url"] = "url must be an absolute http(s) URL"
	}
	return errs.orNil()
}

// ReorderRequest lists every item id in its new display order.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

func (r *ReorderRequest) Validate() error {
	errs := ValidationErrors{}
	if len(r.IDs) == 0 {
		errs["ids"] = "ids cannot be empty"
		return errs
	}
	seen := make(map[string]struct{}, len(r.IDs))
	for _, id := range r.IDs {
		if id == "" {
			errs["ids"] = "ids cannot contain empty values"
			break
		}
		if _, dup := seen[id]; dup {
			errs["ids"] = fmt.Sprintf("duplicate id %s", id)
			break
		}
		seen[id] = struct{}{}
	}
	return errs.orNil()
}

// ContactRequest is a contact-form submission.
type ContactRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
	Message      string `json:"message"`
}

func (r *ContactRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Organization = strings.TrimSpace(r.Organization)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *ContactRequest) Validate() error {
	errs := ValidationErrors{}
	if r.Name == "" {
		errs["name"] = "name is required"
	} else if len(r.Name) > MaxNameLength {
		errs["name"] = fmt.Sprintf("name must be at most %d characters", MaxNameLength)
	}
	if r.Email == "" {
		errs["email"] = "email is required"
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		errs["email"] = "email address is invalid"
	}
	if len(r.Organization) > MaxNameLength {
		errs["organization"] = fmt.Sprintf("organization must be at most %d characters", MaxNameLength)
	}
	switch {
	case len(r.Message) < MinMessageLength:
		errs["message"] = fmt.Sprintf("message must be at least %d characters", MinMessageLength)
	case len(r.Message) > MaxMessageLength:
		errs["message"] = fmt.Sprintf("message must be at most %d characters", MaxMessageLength)
	}
	return errs.orNil()
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
