// Package models - API response envelopes.
//
// Response Design Principles:
// - Every body carries a boolean "success" so the site's fetch wrappers can
//   branch without inspecting the status code
// - Errors carry a human-readable "error" plus a machine-readable code
// - Payloads live under "data"
// - RFC3339 timestamps
package models

import (
	"time"
)

// ErrorResponse is written for every failed request.
type ErrorResponse struct {
	Success   bool              `json:"success"`
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// DataResponse wraps a successful payload.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse is the body of the login, logout and verify endpoints.
// Authenticated and Role are only populated by verify.
type AuthResponse struct {
	Success       bool   `json:"success"`
	Authenticated *bool  `json:"authenticated,omitempty"`
	Role          string `json:"role,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ListResponse is the data payload of collection endpoints.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Health status constants
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Error codes. Upper-case with underscores, one per HTTP failure class.
const (
	ErrorCodeNotFound           = "NOT_FOUND"           // 404
	ErrorCodeBadRequest         = "BAD_REQUEST"         // 400
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"     // 400
	ErrorCodeValidation         = "VALIDATION_ERROR"    // 422
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrorCodeUnauthorized       = "UNAUTHORIZED"        // 401
	ErrorCodeInvalidCredentials = "INVALID_CREDENTIALS" // 401
	ErrorCodeRateLimited        = "RATE_LIMITED"        // 429
	ErrorCodeConfiguration      = "CONFIGURATION_ERROR" // 500
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationErrorResponse builds a 422 body with per-field messages.
func NewValidationErrorResponse(message string, details map[string]string) *ErrorResponse {
	resp := NewErrorResponse(message, ErrorCodeValidation)
	resp.Details = details
	return resp
}

func NewDataResponse(data interface{}) *DataResponse {
	return &DataResponse{Success: true, Data: data}
}

// NewListResponse wraps items, replacing a nil slice with an empty one so the
// JSON body always contains an array.
func NewListResponse[T any](items []T) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{Items: items, TotalCount: len(items)}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}
