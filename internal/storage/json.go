package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"caucus/internal/models"
)

// JSONStorage keeps all content in memory and rewrites a single JSON file
// after every mutation. The file is replaced atomically (write to a temp file,
// then rename), so a crash never leaves a half-written document behind.
//
// The file is read once at open; this process must be its only writer.
type JSONStorage struct {
	*MemoryStorage

	filePath string
	writeMu  sync.Mutex
}

// JSONData is the on-disk document.
type JSONData struct {
	Events          []*models.Event          `json:"events"`
	Resources       []*models.Resource       `json:"resources"`
	TechItems       []*models.TechItem       `json:"tech_items"`
	ContactMessages []*models.ContactMessage `json:"contact_messages"`
	LastUpdated     time.Time                `json:"last_updated"`
}

// NewJSONStorage opens (or creates) the JSON document at path.
func NewJSONStorage(path string) (*JSONStorage, error) {
	if path == "" {
		return nil, errors.New("path is required for JSON storage")
	}

	j := &JSONStorage{
		MemoryStorage: NewMemoryStorage(),
		filePath:      path,
	}

	if err := j.ensureFileExists(); err != nil {
		return nil, fmt.Errorf("failed to ensure file exists: %w", err)
	}
	if err := j.loadData(); err != nil {
		return nil, fmt.Errorf("failed to load initial data: %w", err)
	}
	return j, nil
}

func (j *JSONStorage) ensureFileExists() error {
	if _, err := os.Stat(j.filePath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(j.filePath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return j.persist()
}

func (j *JSONStorage) loadData() error {
	raw, err := os.ReadFile(j.filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var data JSONData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	m := j.MemoryStorage
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range data.Events {
		m.events[e.ID] = cloneEvent(e)
	}
	for _, r := range data.Resources {
		m.resources[r.ID] = r
	}
	for _, t := range data.TechItems {
		m.techItems[t.ID] = t
	}
	for _, msg := range data.ContactMessages {
		m.messages[msg.ID] = msg
	}
	return nil
}

// persist writes the current in-memory state to disk. Callers hold writeMu
// (or are the constructor).
func (j *JSONStorage) persist() error {
	ctx := context.Background()
	data := &JSONData{LastUpdated: time.Now().UTC()}
	// The memory getters never fail.
	data.Events, _ = j.MemoryStorage.Events(ctx)
	data.Resources, _ = j.MemoryStorage.Resources(ctx)
	data.TechItems, _ = j.MemoryStorage.TechItems(ctx)
	data.ContactMessages, _ = j.MemoryStorage.ContactMessages(ctx)

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(j.filePath), ".content-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to chmod file: %w", err)
	}
	if err := os.Rename(tmpName, j.filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// mutate applies fn to the in-memory state and writes the result to disk.
// If the write fails the in-memory state is rolled back.
func (j *JSONStorage) mutate(fn func() error) error {
	j.writeMu.Lock()
	defer j.writeMu.Unlock()

	prev := j.snapshot()
	if err := fn(); err != nil {
		return err
	}
	if err := j.persist(); err != nil {
		j.restore(prev)
		return err
	}
	return nil
}

func (j *JSONStorage) SaveEvent(ctx context.Context, event *models.Event) error {
	return j.mutate(func() error { return j.MemoryStorage.SaveEvent(ctx, event) })
}

func (j *JSONStorage) DeleteEvent(ctx context.Context, id string) error {
	return j.mutate(func() error { return j.MemoryStorage.DeleteEvent(ctx, id) })
}

func (j *JSONStorage) SaveResource(ctx context.Context, resource *models.Resource) error {
	return j.mutate(func() error { return j.MemoryStorage.SaveResource(ctx, resource) })
}

func (j *JSONStorage) DeleteResource(ctx context.Context, id string) error {
	return j.mutate(func() error { return j.MemoryStorage.DeleteResource(ctx, id) })
}

func (j *JSONStorage) SaveTechItem(ctx context.Context, item *models.TechItem) error {
	return j.mutate(func() error { return j.MemoryStorage.SaveTechItem(ctx, item) })
}

func (j *JSONStorage) DeleteTechItem(ctx context.Context, id string) error {
	return j.mutate(func() error { return j.MemoryStorage.DeleteTechItem(ctx, id) })
}

func (j *JSONStorage) SaveContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	return j.mutate(func() error { return j.MemoryStorage.SaveContactMessage(ctx, msg) })
}

// Ping checks that the backing file is still readable.
func (j *JSONStorage) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(j.filePath); err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	return nil
}
