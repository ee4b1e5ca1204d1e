package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/arawak/thankyou/internal/catalog"
)

var ErrNotFound = errors.New("not found")

// Index remembers catalog images shown to users so a selection by id can be
// resolved to the full record.
type Index interface {
	PutImages(ctx context.Context, images []catalog.Image) error
	GetImage(ctx context.Context, id string) (*catalog.Image, error)
	Ping(ctx context.Context) error
}

// Store is the MySQL-backed Index.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const upsertImage = `INSERT INTO catalog_image
	(id, thumb_url, small_url, regular_url, description, width, height, color, author_name, author_username)
	VALUES (:id, :thumb_url, :small_url, :regular_url, :description, :width, :height, :color, :author_name, :author_username)
	ON DUPLICATE KEY UPDATE
		thumb_url = VALUES(thumb_url),
		small_url = VALUES(small_url),
		regular_url = VALUES(regular_url),
		description = VALUES(description),
		width = VALUES(width),
		height = VALUES(height),
		color = VALUES(color),
		author_name = VALUES(author_name),
		author_username = VALUES(author_username),
		last_seen_at = CURRENT_TIMESTAMP(3)`

func (s *Store) PutImages(ctx context.Context, images []catalog.Image) error {
	if len(images) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertImage)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, img := range images {
		if img.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, rowFromImage(img)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetImage(ctx context.Context, id string) (*catalog.Image, error) {
	var row imageRow
	err := s.db.GetContext(ctx, &row, `SELECT id, thumb_url, small_url, regular_url, description, width, height, color,
		author_name, author_username, first_seen_at, last_seen_at FROM catalog_image WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toImage(), nil
}
