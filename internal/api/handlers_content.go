package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"caucus/internal/content"
	"caucus/internal/models"

	"github.com/gorilla/mux"
)

const calendarContentType = "text/calendar; charset=utf-8"

// ListEvents handles event list requests
// GET /api/events?upcoming=true
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	upcoming := false
	if raw := r.URL.Query().Get("upcoming"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "upcoming must be true or false")
			return
		}
		upcoming = v
	}

	events, err := h.content.ListEvents(r.Context(), upcoming)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(events)))
}

// GetEvent handles single event requests
// GET /api/events/{id}
func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.content.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(event))
}

// EventsCalendar exports every event as an iCalendar feed
// GET /api/events/calendar.ics
func (h *Handlers) EventsCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := h.content.ListEvents(r.Context(), false)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeCalendar(w, "events.ics", events)
}

// EventCalendar exports one event
// GET /api/events/{id}/calendar.ics
func (h *Handlers) EventCalendar(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	event, err := h.content.GetEvent(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeCalendar(w, fmt.Sprintf("event-%s.ics", id), []*models.Event{event})
}

// writeCalendar renders into a buffer first so a failure can still be
// reported as JSON.
func (h *Handlers) writeCalendar(w http.ResponseWriter, filename string, events []*models.Event) {
	var buf bytes.Buffer
	if err := content.WriteCalendar(&buf, events, h.now()); err != nil {
		slog.Error("Failed to render calendar", "error", err)
		h.writeErrorResponse(w, http.StatusInternalServerError, models.ErrorCodeInternalError, "Failed to render calendar")
		return
	}
	w.Header().Set("Content-Type", calendarContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write calendar", "error", err)
	}
}

// CreateEvent handles event creation
// POST /api/events (admin)
func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	event, err := h.content.CreateEvent(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, models.NewDataResponse(event))
}

// UpdateEvent handles event replacement
// PUT /api/events/{id} (admin)
func (h *Handlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req models.EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	event, err := h.content.UpdateEvent(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(event))
}

// DeleteEvent handles event deletion
// DELETE /api/events/{id} (admin)
func (h *Handlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteEvent(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(nil))
}

// ListResources handles GET /api/resources
func (h *Handlers) ListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.content.ListResources(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(resources)))
}

// CreateResource handles POST /api/resources (admin)
func (h *Handlers) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req models.ResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	resource, err := h.content.CreateResource(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, models.NewDataResponse(resource))
}

// UpdateResource handles PUT /api/resources/{id} (admin)
func (h *Handlers) UpdateResource(w http.ResponseWriter, r *http.Request) {
	var req models.ResourceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	resource, err := h.content.UpdateResource(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(resource))
}

// DeleteResource handles DELETE /api/resources/{id} (admin)
func (h *Handlers) DeleteResource(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteResource(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(nil))
}

// ReorderResources handles PUT /api/resources/order (admin)
func (h *Handlers) ReorderResources(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	resources, err := h.content.ReorderResources(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(resources)))
}

// ListTechItems handles GET /api/tech
func (h *Handlers) ListTechItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.content.ListTechItems(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(items)))
}

// CreateTechItem handles POST /api/tech (admin)
func (h *Handlers) CreateTechItem(w http.ResponseWriter, r *http.Request) {
	var req models.TechItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	item, err := h.content.CreateTechItem(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, models.NewDataResponse(item))
}

// UpdateTechItem handles PUT /api/tech/{id} (admin)
func (h *Handlers) UpdateTechItem(w http.ResponseWriter, r *http.Request) {
	var req models.TechItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	item, err := h.content.UpdateTechItem(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(item))
}

// DeleteTechItem handles DELETE /api/tech/{id} (admin)
func (h *Handlers) DeleteTechItem(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeleteTechItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(nil))
}

// ReorderTechItems handles PUT /api/tech/order (admin)
func (h *Handlers) ReorderTechItems(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	items, err := h.content.ReorderTechItems(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(items)))
}

// contactReceipt is what a visitor gets back after submitting the form.
type contactReceipt struct {
	ID string `json:"id"`
}

// SubmitContact handles contact form submissions
// POST /api/contact
func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := h.clientIP(r)

	if !h.attempts.CheckAndRecord(ctx, "contact:"+clientIP, h.contactLimit.MaxAttempts, h.contactLimit.Window) {
		slog.Warn("Contact form rate limited", "client_ip", clientIP)
		h.metrics.RateLimited(ctx, "contact")
		setRetryAfter(w, h.contactLimit.Window)
		h.writeErrorResponse(w, http.StatusTooManyRequests, models.ErrorCodeRateLimited, msgTooManyAttempts)
		return
	}

	var req models.ContactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeInvalidRequest, msgInvalidBody)
		return
	}
	msg, err := h.content.SubmitContact(ctx, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusCreated, models.NewDataResponse(contactReceipt{ID: msg.ID}))
}

// ListContactMessages handles GET /api/contact (admin)
func (h *Handlers) ListContactMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.content.ListContactMessages(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, models.NewDataResponse(models.NewListResponse(messages)))
}
