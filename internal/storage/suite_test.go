package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caucus/internal/models"
)

// Times are built on whole milliseconds so they survive the SQL backends.
var baseTime = time.Date(2026, 4, 14, 18, 30, 0, 0, time.UTC)

func sampleEvent(id string, offset time.Duration) *models.Event {
	end := baseTime.Add(offset + 2*time.Hour)
	return &models.Event{
		ID:              id,
		Title:           "Briefing " + id,
		Date:            baseTime.Add(offset),
		EndDate:         &end,
		Location:        "Room 2043",
		Summary:         "Quarterly update",
		Content:         "# Agenda\n\n- item",
		PresentationURL: "https://example.org/slides/" + id,
		Images:          []string{"https://cdn.example.org/" + id + "/1.jpg"},
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
}

// runStorageSuite exercises the Storage contract against one backend.
func runStorageSuite(t *testing.T, newStore func(t *testing.T) Storage) {
	t.Run("EventsRoundTripAndOrder", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		later := sampleEvent("b", 48*time.Hour)
		earlier := sampleEvent("a", 24*time.Hour)
		noEnd := sampleEvent("c", 72*time.Hour)
		noEnd.EndDate = nil
		noEnd.Images = nil

		for _, e := range []*models.Event{later, earlier, noEnd} {
			require.NoError(t, s.SaveEvent(ctx, e))
		}

		events, err := s.Events(ctx)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, []string{"a", "b", "c"}, []string{events[0].ID, events[1].ID, events[2].ID})

		got, err := s.GetEvent(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, later.Title, got.Title)
		assert.True(t, later.Date.Equal(got.Date))
		require.NotNil(t, got.EndDate)
		assert.True(t, later.EndDate.Equal(*got.EndDate))
		assert.Equal(t, later.Images, got.Images)
		assert.Equal(t, later.Content, got.Content)
		assert.Equal(t, later.PresentationURL, got.PresentationURL)

		got, err = s.GetEvent(ctx, "c")
		require.NoError(t, err)
		assert.Nil(t, got.EndDate)
		assert.NotNil(t, got.Images)
		assert.Empty(t, got.Images)
	})

	t.Run("EventUpdateAndDelete", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		e := sampleEvent("x", 0)
		require.NoError(t, s.SaveEvent(ctx, e))

		e.Title = "Renamed"
		e.UpdatedAt = baseTime.Add(time.Minute)
		require.NoError(t, s.SaveEvent(ctx, e))

		got, err := s.GetEvent(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.True(t, baseTime.Equal(got.CreatedAt))
		assert.True(t, baseTime.Add(time.Minute).Equal(got.UpdatedAt))

		require.NoError(t, s.DeleteEvent(ctx, "x"))
		_, err = s.GetEvent(ctx, "x")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteEvent(ctx, "x"), ErrNotFound)
	})

	t.Run("ReturnedEventsAreCopies", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.SaveEvent(ctx, sampleEvent("x", 0)))
		got, err := s.GetEvent(ctx, "x")
		require.NoError(t, err)
		got.Images[0] = "mutated"
		got.Title = "mutated"

		again, err := s.GetEvent(ctx, "x")
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", again.Title)
		assert.NotEqual(t, "mutated", again.Images[0])
	})

	t.Run("ResourcesOrderedByPosition", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for i, id := range []string{"r3", "r1", "r2"} {
			pos := map[string]int{"r1": 0, "r2": 1, "r3": 2}[id]
			require.NoError(t, s.SaveResource(ctx, &models.Resource{
				ID:        id,
				Title:     "Resource " + id,
				URL:       "https://example.org/" + id,
				Position:  pos,
				CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
				UpdatedAt: baseTime,
			}))
		}

		resources, err := s.Resources(ctx)
		require.NoError(t, err)
		require.Len(t, resources, 3)
		assert.Equal(t, "r1", resources[0].ID)
		assert.Equal(t, "r2", resources[1].ID)
		assert.Equal(t, "r3", resources[2].ID)

		r, err := s.GetResource(ctx, "r2")
		require.NoError(t, err)
		r.Position = 5
		r.Description = "moved"
		require.NoError(t, s.SaveResource(ctx, r))

		resources, err = s.Resources(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r2", resources[2].ID)
		assert.Equal(t, "moved", resources[2].Description)

		require.NoError(t, s.DeleteResource(ctx, "r2"))
		_, err = s.GetResource(ctx, "r2")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteResource(ctx, "missing"), ErrNotFound)
	})

	t.Run("TechItemsOrderedByPosition", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.SaveTechItem(ctx, &models.TechItem{ID: "t2", Name: "Go", Position: 1, CreatedAt: baseTime, UpdatedAt: baseTime}))
		require.NoError(t, s.SaveTechItem(ctx, &models.TechItem{ID: "t1", Name: "Postgres", URL: "https://postgresql.org", Position: 0, CreatedAt: baseTime, UpdatedAt: baseTime}))

		items, err := s.TechItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "t1", items[0].ID)
		assert.Equal(t, "https://postgresql.org", items[0].URL)

		_, err = s.GetTechItem(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.DeleteTechItem(ctx, "t1"))
		items, err = s.TechItems(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 1)
		assert.ErrorIs(t, s.DeleteTechItem(ctx, "t1"), ErrNotFound)
	})

	t.Run("ContactMessagesNewestFirst", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		msgs, err := s.ContactMessages(ctx)
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.SaveContactMessage(ctx, &models.ContactMessage{
				ID:        fmt.Sprintf("m%d", i),
				Name:      "Constituent",
				Email:     "someone@example.org",
				Message:   "Please add a hearing on broadband.",
				CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
			}))
		}

		msgs, err = s.ContactMessages(ctx)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "m2", msgs[0].ID)
		assert.Equal(t, "m0", msgs[2].ID)
		assert.Equal(t, "someone@example.org", msgs[0].Email)
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.SaveEvent(ctx, sampleEvent(fmt.Sprintf("e%02d", i), time.Duration(i)*time.Hour)))
			}(i)
		}
		wg.Wait()

		events, err := s.Events(ctx)
		require.NoError(t, err)
		assert.Len(t, events, 20)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
