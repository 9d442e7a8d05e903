package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/ksuid"

	"github.com/dudu/frvtface/internal/pipeline"
)

// ErrNotFound is returned when no template has the requested ID
var ErrNotFound = errors.New("template not found")

// Record is a stored template
type Record struct {
	ID        string
	Label     string
	Template  pipeline.Template
	CreatedAt time.Time
}

// Store keeps enrolled templates in PostgreSQL.
type Store struct {
	conn *pgx.Conn
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS templates (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			valid BOOL NOT NULL,
			descriptor BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS templates_label_idx ON templates (label);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveTemplate stores t under a new ksuid and returns the ID. Eye pairs are
// not persisted.
func (s *Store) SaveTemplate(ctx context.Context, label string, t pipeline.Template) (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate template id: %w", err)
	}

	desc, err := t.Descriptor.MarshalBinary()
	if err != nil {
		return "", err
	}

	_, err = s.conn.Exec(ctx, `
		INSERT INTO templates (id, label, valid, descriptor)
		VALUES ($1, $2, $3, $4)
	`, id.String(), label, t.Valid, desc)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GetTemplate loads one template
func (s *Store) GetTemplate(ctx context.Context, id string) (Record, error) {
	row := s.conn.QueryRow(ctx,
		"SELECT id, label, valid, descriptor, created_at FROM templates WHERE id = $1", id)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// ListTemplates returns every template, oldest first
func (s *Store) ListTemplates(ctx context.Context) ([]Record, error) {
	rows, err := s.conn.Query(ctx,
		"SELECT id, label, valid, descriptor, created_at FROM templates ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteTemplate removes one template
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.conn.Exec(ctx, "DELETE FROM templates WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec  Record
		desc []byte
	)
	if err := row.Scan(&rec.ID, &rec.Label, &rec.Template.Valid, &desc, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if err := rec.Template.Descriptor.UnmarshalBinary(desc); err != nil {
		return Record{}, fmt.Errorf("template %s: %w", rec.ID, err)
	}
	return rec, nil
}
