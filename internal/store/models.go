package store

import (
	"database/sql"
	"time"

	"github.com/arawak/thankyou/internal/catalog"
)

type imageRow struct {
	ID             string         `db:"id"`
	ThumbURL       string         `db:"thumb_url"`
	SmallURL       string         `db:"small_url"`
	RegularURL     string         `db:"regular_url"`
	Description    sql.NullString `db:"description"`
	Width          int            `db:"width"`
	Height         int            `db:"height"`
	Color          sql.NullString `db:"color"`
	AuthorName     string         `db:"author_name"`
	AuthorUsername string         `db:"author_username"`
	FirstSeenAt    time.Time      `db:"first_seen_at"`
	LastSeenAt     time.Time      `db:"last_seen_at"`
}

func rowFromImage(img catalog.Image) imageRow {
	return imageRow{
		ID:             img.ID,
		ThumbURL:       img.URLs.Thumb,
		SmallURL:       img.URLs.Small,
		RegularURL:     img.URLs.Regular,
		Description:    nullString(img.Description),
		Width:          img.Width,
		Height:         img.Height,
		Color:          nullString(img.Color),
		AuthorName:     img.User.Name,
		AuthorUsername: img.User.Username,
	}
}

func (r imageRow) toImage() *catalog.Image {
	return &catalog.Image{
		ID:          r.ID,
		URLs:        catalog.URLs{Thumb: r.ThumbURL, Small: r.SmallURL, Regular: r.RegularURL},
		Description: stringPtr(r.Description),
		Width:       r.Width,
		Height:      r.Height,
		Color:       stringPtr(r.Color),
		User:        catalog.Author{Name: r.AuthorName, Username: r.AuthorUsername},
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
