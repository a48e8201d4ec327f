package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caucus/internal/models"
)

func TestJSONStorage(t *testing.T) {
	runStorageSuite(t, func(t *testing.T) Storage {
		s, err := NewJSONStorage(filepath.Join(t.TempDir(), "content.json"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestNewJSONStorage_RequiresPath(t *testing.T) {
	_, err := NewJSONStorage("")
	assert.Error(t, err)
}

func TestNewJSONStorage_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	filePath := filepath.Join(t.TempDir(), "subdir", "content.json")

	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer s.Close()

	dirInfo, err := os.Stat(filepath.Dir(filePath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())

	require.NoError(t, s.SaveTechItem(context.Background(), &models.TechItem{ID: "t", Name: "Go"}))
	fileInfo, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fileInfo.Mode().Perm())
}

func TestJSONStorage_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "content.json")

	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	require.NoError(t, s.SaveEvent(ctx, sampleEvent("e1", 0)))
	require.NoError(t, s.SaveResource(ctx, &models.Resource{ID: "r1", Title: "CRS", URL: "https://crsreports.congress.gov"}))
	require.NoError(t, s.SaveTechItem(ctx, &models.TechItem{ID: "t1", Name: "Go"}))
	require.NoError(t, s.SaveContactMessage(ctx, &models.ContactMessage{ID: "m1", Name: "A", Email: "a@example.org", Message: "hello there"}))
	require.NoError(t, s.DeleteTechItem(ctx, "t1"))
	require.NoError(t, s.Close())

	reopened, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer reopened.Close()

	e, err := reopened.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Briefing e1", e.Title)
	assert.True(t, baseTime.Equal(e.Date))

	_, err = reopened.GetResource(ctx, "r1")
	assert.NoError(t, err)
	_, err = reopened.GetTechItem(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	msgs, err := reopened.ContactMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestJSONStorage_FileIsReadableDocument(t *testing.T) {
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "content.json")

	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SaveEvent(ctx, sampleEvent("e1", 0)))

	raw, err := os.ReadFile(filePath)
	require.NoError(t, err)

	var data JSONData
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Len(t, data.Events, 1)
	assert.Equal(t, "e1", data.Events[0].ID)
	assert.False(t, data.LastUpdated.IsZero())

	// No temp files are left next to the document.
	entries, err := os.ReadDir(filepath.Dir(filePath))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJSONStorage_FailedMutationDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "content.json")

	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer s.Close()

	before, err := os.ReadFile(filePath)
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteEvent(ctx, "missing"), ErrNotFound)

	after, err := os.ReadFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestJSONStorage_FailedPersistRollsBack(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("removing an open directory behaves differently on Windows")
	}
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sub")
	filePath := filepath.Join(dir, "content.json")

	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SaveEvent(ctx, sampleEvent("kept", 0)))

	require.NoError(t, os.RemoveAll(dir))

	assert.Error(t, s.SaveEvent(ctx, sampleEvent("e1", 1)))
	_, err = s.GetEvent(ctx, "e1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.DeleteEvent(ctx, "kept"))
	kept, err := s.GetEvent(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, "kept", kept.ID)
}

func TestNewJSONStorage_CorruptFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(filePath, []byte("{not json"), 0600))

	_, err := NewJSONStorage(filePath)
	assert.Error(t, err)
}

func TestJSONStorage_PingMissingFile(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "content.json")
	s, err := NewJSONStorage(filePath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, os.Remove(filePath))
	assert.Error(t, s.Ping(context.Background()))
}
