package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"caucus/internal/models"
)

// dialect captures what differs between the SQL backends.
type dialect struct {
	name   string
	driver string
	// numbered placeholders ($1, $2, ...) instead of ?
	numbered bool
}

var (
	dialectSQLite   = dialect{name: "sqlite", driver: "sqlite"}
	dialectPostgres = dialect{name: "postgres", driver: "pgx", numbered: true}
)

// rebind rewrites ? placeholders for dialects that number them. Queries in
// this package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id               TEXT PRIMARY KEY,
		title            TEXT NOT NULL,
		date_ms          BIGINT NOT NULL,
		end_date_ms      BIGINT,
		location         TEXT NOT NULL DEFAULT '',
		summary          TEXT NOT NULL DEFAULT '',
		content          TEXT NOT NULL DEFAULT '',
		presentation_url TEXT NOT NULL DEFAULT '',
		images           TEXT NOT NULL DEFAULT '[]',
		created_ms       BIGINT NOT NULL,
		updated_ms       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS events_date_idx ON events (date_ms)`,
	`CREATE TABLE IF NOT EXISTS resources (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		url         TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		position    INTEGER NOT NULL,
		created_ms  BIGINT NOT NULL,
		updated_ms  BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tech_items (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		url        TEXT NOT NULL DEFAULT '',
		position   INTEGER NOT NULL,
		created_ms BIGINT NOT NULL,
		updated_ms BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		email        TEXT NOT NULL,
		organization TEXT NOT NULL DEFAULT '',
		message      TEXT NOT NULL,
		created_ms   BIGINT NOT NULL
	)`,
}

// SQLStorage implements Storage over database/sql. SQLite and PostgreSQL
// share this implementation; see NewSQLiteStorage and NewPostgresStorage.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

func openSQL(ctx context.Context, d dialect, cfg models.DatabaseConfig) (*SQLStorage, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("connection string is required for %s storage", d.name)
	}

	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStorage{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStorage) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLStorage) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *SQLStorage) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// deleteByID removes one row and maps "nothing deleted" to ErrNotFound.
func (s *SQLStorage) deleteByID(ctx context.Context, table, kind, id string) error {
	res, err := s.exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const eventColumns = `id, title, date_ms, end_date_ms, location, summary, content, presentation_url, images, created_ms, updated_ms`

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		e                            models.Event
		dateMs, createdMs, updatedMs int64
		endMs                        sql.NullInt64
		images                       string
	)
	if err := row.Scan(&e.ID, &e.Title, &dateMs, &endMs, &e.Location, &e.Summary, &e.Content,
		&e.PresentationURL, &images, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	imgs, err := unmarshalImages(images)
	if err != nil {
		return nil, err
	}
	e.Date = fromMillis(dateMs)
	e.EndDate = fromNullMillis(endMs)
	e.Images = imgs
	e.CreatedAt = fromMillis(createdMs)
	e.UpdatedAt = fromMillis(updatedMs)
	return &e, nil
}

func (s *SQLStorage) Events(ctx context.Context) ([]*models.Event, error) {
	rows, err := s.query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	return events, nil
}

func (s *SQLStorage) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(s.queryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("event", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return e, nil
}

func (s *SQLStorage) SaveEvent(ctx context.Context, event *models.Event) error {
	images, err := marshalImages(event.Images)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			date_ms = excluded.date_ms,
			end_date_ms = excluded.end_date_ms,
			location = excluded.location,
			summary = excluded.summary,
			content = excluded.content,
			presentation_url = excluded.presentation_url,
			images = excluded.images,
			updated_ms = excluded.updated_ms`,
		event.ID, event.Title, toMillis(event.Date), toNullMillis(event.EndDate),
		event.Location, event.Summary, event.Content, event.PresentationURL, images,
		toMillis(event.CreatedAt), toMillis(event.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save event %s: %w", event.ID, err)
	}
	return nil
}

func (s *SQLStorage) DeleteEvent(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "events", "event", id)
}

const resourceColumns = `id, title, url, description, position, created_ms, updated_ms`

func scanResource(row rowScanner) (*models.Resource, error) {
	var (
		r                    models.Resource
		createdMs, updatedMs int64
	)
	if err := row.Scan(&r.ID, &r.Title, &r.URL, &r.Description, &r.Position, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	r.CreatedAt = fromMillis(createdMs)
	r.UpdatedAt = fromMillis(updatedMs)
	return &r, nil
}

func (s *SQLStorage) Resources(ctx context.Context) ([]*models.Resource, error) {
	rows, err := s.query(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY position, created_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	defer rows.Close()

	resources := []*models.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	return resources, nil
}

func (s *SQLStorage) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	r, err := scanResource(s.queryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("resource", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	return r, nil
}

func (s *SQLStorage) SaveResource(ctx context.Context, r *models.Resource) error {
	_, err := s.exec(ctx, `INSERT INTO resources (`+resourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			description = excluded.description,
			position = excluded.position,
			updated_ms = excluded.updated_ms`,
		r.ID, r.Title, r.URL, r.Description, r.Position, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save resource %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLStorage) DeleteResource(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "resources", "resource", id)
}

const techItemColumns = `id, name, url, position, created_ms, updated_ms`

func scanTechItem(row rowScanner) (*models.TechItem, error) {
	var (
		t                    models.TechItem
		createdMs, updatedMs int64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.URL, &t.Position, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(createdMs)
	t.UpdatedAt = fromMillis(updatedMs)
	return &t, nil
}

func (s *SQLStorage) TechItems(ctx context.Context) ([]*models.TechItem, error) {
	rows, err := s.query(ctx, `SELECT `+techItemColumns+` FROM tech_items ORDER BY position, created_ms, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get tech items: %w", err)
	}
	defer rows.Close()

	items := []*models.TechItem{}
	for rows.Next() {
		t, err := scanTechItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tech item: %w", err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get tech items: %w", err)
	}
	return items, nil
}

func (s *SQLStorage) GetTechItem(ctx context.Context, id string) (*models.TechItem, error) {
	t, err := scanTechItem(s.queryRow(ctx, `SELECT `+techItemColumns+` FROM tech_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("tech item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tech item %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLStorage) SaveTechItem(ctx context.Context, t *models.TechItem) error {
	_, err := s.exec(ctx, `INSERT INTO tech_items (`+techItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			position = excluded.position,
			updated_ms = excluded.updated_ms`,
		t.ID, t.Name, t.URL, t.Position, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save tech item %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLStorage) DeleteTechItem(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "tech_items", "tech item", id)
}

func (s *SQLStorage) ContactMessages(ctx context.Context) ([]*models.ContactMessage, error) {
	rows, err := s.query(ctx, `SELECT id, name, email, organization, message, created_ms
		FROM contact_messages ORDER BY created_ms DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact messages: %w", err)
	}
	defer rows.Close()

	msgs := []*models.ContactMessage{}
	for rows.Next() {
		var (
			m         models.ContactMessage
			createdMs int64
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Organization, &m.Message, &createdMs); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		m.CreatedAt = fromMillis(createdMs)
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get contact messages: %w", err)
	}
	return msgs, nil
}

func (s *SQLStorage) SaveContactMessage(ctx context.Context, m *models.ContactMessage) error {
	_, err := s.exec(ctx, `INSERT INTO contact_messages (id, name, email, organization, message, created_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Organization, m.Message, toMillis(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save contact message: %w", err)
	}
	return nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}
