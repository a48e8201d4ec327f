package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"caucus/internal/content"
	"caucus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var eventDate = time.Date(2026, 6, 3, 17, 0, 0, 0, time.UTC)

func sampleEvents() []*models.Event {
	return []*models.Event{
		{ID: "evt-1", Title: "Spring briefing", Date: eventDate, Location: "Room 101", Images: []string{}},
		{ID: "evt-2", Title: "Summer roundtable", Date: eventDate.AddDate(0, 1, 0), Images: []string{}},
	}
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("ListEvents", anyCtx, false).Return(sampleEvents(), nil).Once()
	env.service.On("ListEvents", anyCtx, true).Return(sampleEvents()[1:], nil).Once()

	rec := env.do(http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all models.ListResponse[models.Event]
	decodeData(t, rec, &all)
	assert.Equal(t, 2, all.TotalCount)
	assert.Equal(t, "evt-1", all.Items[0].ID)

	rec = env.do(http.MethodGet, "/api/events?upcoming=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var upcoming models.ListResponse[models.Event]
	decodeData(t, rec, &upcoming)
	assert.Equal(t, 1, upcoming.TotalCount)

	env.service.AssertExpectations(t)
}

func TestListEvents_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("ListEvents", anyCtx, false).Return(nil, nil)

	rec := env.do(http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"items":[],"total_count":0}}`, rec.Body.String())
}

func TestListEvents_BadUpcomingParam(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/events?upcoming=soon", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.ErrorCodeInvalidRequest, decodeError(t, rec).Code)
	env.service.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
}

func TestGetEvent(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("GetEvent", anyCtx, "evt-1").Return(sampleEvents()[0], nil)
	env.service.On("GetEvent", anyCtx, "missing").Return(nil, content.NewNotFoundError("event", "missing"))

	rec := env.do(http.MethodGet, "/api/events/evt-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var event models.Event
	decodeData(t, rec, &event)
	assert.Equal(t, "Spring briefing", event.Title)

	rec = env.do(http.MethodGet, "/api/events/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.ErrorCodeNotFound, decodeError(t, rec).Code)
}

func TestEventsCalendar(t *testing.T) {
	env := newTestEnv(t, WithClock(func() time.Time { return eventDate }))
	env.service.On("ListEvents", anyCtx, false).Return(sampleEvents(), nil)

	rec := env.do(http.MethodGet, "/api/events/calendar.ics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, calendarContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="events.ics"`, rec.Header().Get("Content-Disposition"))
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "BEGIN:VCALENDAR\r\n"))
	assert.Equal(t, 2, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "UID:evt-1@caucus")
	assert.Contains(t, body, "DTSTAMP:20260603T170000Z")
	env.service.AssertNotCalled(t, "GetEvent", mock.Anything, "calendar.ics")
}

func TestEventCalendar(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("GetEvent", anyCtx, "evt-2").Return(sampleEvents()[1], nil)
	env.service.On("GetEvent", anyCtx, "missing").Return(nil, content.NewNotFoundError("event", "missing"))

	rec := env.do(http.MethodGet, "/api/events/evt-2/calendar.ics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="event-evt-2.ics"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
	assert.Contains(t, rec.Body.String(), "SUMMARY:Summer roundtable")

	rec = env.do(http.MethodGet, "/api/events/missing/calendar.ics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	created := &models.Event{ID: "evt-new", Title: "Budget hearing", Date: eventDate}
	env.service.On("CreateEvent", anyCtx, mock.MatchedBy(func(req *models.EventRequest) bool {
		return req.Title == "Budget hearing" && req.Date.Equal(eventDate)
	})).Return(created, nil)

	body := jsonBody(t, map[string]interface{}{"title": "Budget hearing", "date": eventDate})
	rec := env.do(http.MethodPost, "/api/events", body, env.adminCookie(t))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var event models.Event
	decodeData(t, rec, &event)
	assert.Equal(t, "evt-new", event.ID)
	env.service.AssertExpectations(t)
}

func TestCreateEvent_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("CreateEvent", anyCtx, mock.Anything).Return(nil,
		content.NewValidationError("invalid event", models.ValidationErrors{"title": "title is required"}))

	rec := env.do(http.MethodPost, "/api/events", strings.NewReader("[1,2"), env.adminCookie(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeError(t, rec).Error)

	rec = env.do(http.MethodPost, "/api/events", strings.NewReader(`{"title":""}`), env.adminCookie(t))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, models.ErrorCodeValidation, resp.Code)
	assert.Equal(t, map[string]string{"title": "title is required"}, resp.Details)
}

func TestUpdateAndDeleteEvent(t *testing.T) {
	env := newTestEnv(t)
	updated := &models.Event{ID: "evt-1", Title: "Renamed", Date: eventDate}
	env.service.On("UpdateEvent", anyCtx, "evt-1", mock.AnythingOfType("*models.EventRequest")).Return(updated, nil)
	env.service.On("DeleteEvent", anyCtx, "evt-1").Return(nil)
	env.service.On("DeleteEvent", anyCtx, "gone").Return(content.NewNotFoundError("event", "gone"))

	rec := env.do(http.MethodPut, "/api/events/evt-1", jsonBody(t, map[string]interface{}{"title": "Renamed", "date": eventDate}), env.adminCookie(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var event models.Event
	decodeData(t, rec, &event)
	assert.Equal(t, "Renamed", event.Title)

	rec = env.do(http.MethodDelete, "/api/events/evt-1", nil, env.adminCookie(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = env.do(http.MethodDelete, "/api/events/gone", nil, env.adminCookie(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResources(t *testing.T) {
	env := newTestEnv(t)
	resources := []*models.Resource{
		{ID: "res-1", Title: "Caucus charter", URL: "https://example.org/charter", Position: 0},
		{ID: "res-2", Title: "Voting record", URL: "https://example.org/votes", Position: 1},
	}
	reordered := []*models.Resource{resources[1], resources[0]}

	env.service.On("ListResources", anyCtx).Return(resources, nil)
	env.service.On("CreateResource", anyCtx, mock.AnythingOfType("*models.ResourceRequest")).Return(resources[0], nil)
	env.service.On("UpdateResource", anyCtx, "res-1", mock.AnythingOfType("*models.ResourceRequest")).Return(resources[0], nil)
	env.service.On("DeleteResource", anyCtx, "res-2").Return(nil)
	env.service.On("ReorderResources", anyCtx, mock.MatchedBy(func(req *models.ReorderRequest) bool {
		return len(req.IDs) == 2 && req.IDs[0] == "res-2"
	})).Return(reordered, nil)

	rec := env.do(http.MethodGet, "/api/resources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[models.Resource]
	decodeData(t, rec, &list)
	assert.Equal(t, 2, list.TotalCount)

	cookie := env.adminCookie(t)
	payload := map[string]string{"title": "Caucus charter", "url": "https://example.org/charter"}

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/resources", jsonBody(t, payload), cookie).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPut, "/api/resources/res-1", jsonBody(t, payload), cookie).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodDelete, "/api/resources/res-2", nil, cookie).Code)

	// /order must not be captured by /{id}.
	rec = env.do(http.MethodPut, "/api/resources/order", jsonBody(t, map[string][]string{"ids": {"res-2", "res-1"}}), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &list)
	assert.Equal(t, "res-2", list.Items[0].ID)

	env.service.AssertExpectations(t)
	env.service.AssertNotCalled(t, "UpdateResource", mock.Anything, "order", mock.Anything)
}

func TestTechItems(t *testing.T) {
	env := newTestEnv(t)
	items := []*models.TechItem{
		{ID: "tech-1", Name: "Go", Position: 0},
		{ID: "tech-2", Name: "PostgreSQL", Position: 1},
	}

	env.service.On("ListTechItems", anyCtx).Return(items, nil)
	env.service.On("CreateTechItem", anyCtx, mock.AnythingOfType("*models.TechItemRequest")).Return(items[1], nil)
	env.service.On("UpdateTechItem", anyCtx, "tech-1", mock.AnythingOfType("*models.TechItemRequest")).Return(items[0], nil)
	env.service.On("DeleteTechItem", anyCtx, "tech-9").Return(content.NewNotFoundError("tech item", "tech-9"))
	env.service.On("ReorderTechItems", anyCtx, mock.AnythingOfType("*models.ReorderRequest")).Return(nil,
		content.NewValidationError("invalid order", models.ValidationErrors{"ids": "unknown id x"}))

	rec := env.do(http.MethodGet, "/api/tech", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[models.TechItem]
	decodeData(t, rec, &list)
	assert.Equal(t, "PostgreSQL", list.Items[1].Name)

	cookie := env.adminCookie(t)
	payload := map[string]string{"name": "PostgreSQL"}

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/tech", jsonBody(t, payload), cookie).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPut, "/api/tech/tech-1", jsonBody(t, payload), cookie).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/tech/tech-9", nil, cookie).Code)
	assert.Equal(t, http.StatusUnprocessableEntity,
		env.do(http.MethodPut, "/api/tech/order", jsonBody(t, map[string][]string{"ids": {"x"}}), cookie).Code)

	env.service.AssertExpectations(t)
}

func TestSubmitContact(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("SubmitContact", anyCtx, mock.MatchedBy(func(req *models.ContactRequest) bool {
		return req.Email == "ada@example.org"
	})).Return(&models.ContactMessage{ID: "msg-1"}, nil)

	payload := map[string]string{"name": "Ada", "email": "ada@example.org", "message": "Please add me to the list."}
	rec := env.do(http.MethodPost, "/api/contact", jsonBody(t, payload))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"id":"msg-1"}}`, rec.Body.String())
}

func TestSubmitContact_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("SubmitContact", anyCtx, mock.Anything).Return(&models.ContactMessage{ID: "msg"}, nil)

	send := func(ip string) int {
		req := jsonRequest(t, http.MethodPost, "/api/contact", map[string]string{"name": "A", "email": "a@example.org", "message": "hello there, caucus"})
		req.Header.Set("X-Forwarded-For", ip)
		rec := serve(env, req)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
			assert.Equal(t, models.ErrorCodeRateLimited, decodeError(t, rec).Code)
		}
		return rec.Code
	}

	for i := 1; i <= 5; i++ {
		require.Equal(t, http.StatusCreated, send("198.51.100.20"), "submission %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.20"))
	assert.Equal(t, http.StatusCreated, send("198.51.100.21"))
	env.service.AssertNumberOfCalls(t, "SubmitContact", 6)
}

func TestSubmitContact_ServiceErrors(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("SubmitContact", anyCtx, mock.Anything).Return(nil,
		content.NewInternalError("failed to save contact message", errors.New("read-only file system")))

	rec := env.do(http.MethodPost, "/api/contact", jsonBody(t, map[string]string{"name": "A"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "failed to save contact message", resp.Error)
	assert.NotContains(t, rec.Body.String(), "read-only")
}

func TestListContactMessages(t *testing.T) {
	env := newTestEnv(t)
	env.service.On("ListContactMessages", anyCtx).Return([]*models.ContactMessage{
		{ID: "msg-2", Name: "Grace", Email: "grace@example.org", Message: "Second message"},
		{ID: "msg-1", Name: "Ada", Email: "ada@example.org", Message: "First message"},
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, "/api/contact", nil).Code)

	rec := env.do(http.MethodGet, "/api/contact", nil, env.adminCookie(t))
	require.Equal(t, http.StatusOK, rec.Code)
	var list models.ListResponse[models.ContactMessage]
	decodeData(t, rec, &list)
	assert.Equal(t, []string{"msg-2", "msg-1"}, []string{list.Items[0].ID, list.Items[1].ID})
	env.service.AssertNumberOfCalls(t, "ListContactMessages", 1)
}
