// Package reviewdb stores owner car reviews in Postgres and retrieves them with
// full-text search.
package reviewdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultLimit = 5
	// searchDocument is the text indexed for full-text search.
	searchDocument = "to_tsvector('english', r.make || ' ' || r.model || ' ' || coalesce(r.title, '') || ' ' || r.body)"
)

var ErrMissingDSN = errors.New("review database dsn is required")

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true"`
	Limit   int           `envconfig:"LIMIT" split_words:"true" default:"5"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type Review struct {
	bun.BaseModel `bun:"table:car_reviews,alias:r"`

	ID         int64     `bun:"id,pk,autoincrement" json:"-"`
	Make       string    `bun:"make,notnull" json:"make"`
	Model      string    `bun:"model,notnull" json:"model"`
	Year       int       `bun:"year" json:"year"`
	Rating     float64   `bun:"rating" json:"rating"`
	Title      string    `bun:"title" json:"title"`
	Body       string    `bun:"body,notnull" json:"body"`
	Source     string    `bun:"source" json:"source"`
	ReviewedAt time.Time `bun:"reviewed_at,nullzero" json:"reviewed_at"`
}

type Store struct {
	db    *bun.DB
	limit int
}

// Open connects lazily; no query is sent until the first call.
func Open(cfg Config) (*Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrMissingDSN
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Timeout > 0 {
		opts = append(opts, pgdriver.WithTimeout(cfg.Timeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Store{db: bun.NewDB(sqldb, pgdialect.New()), limit: limit}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the review table and its full-text index.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Review)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create car_reviews: %w", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*Review)(nil)).
		Index("car_reviews_search_idx").
		IfNotExists().
		Using("GIN").
		ColumnExpr(searchDocument).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create car_reviews search index: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, reviews []Review) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}
	res, err := s.db.NewInsert().Model(&reviews).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert reviews: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return len(reviews), nil
	}
	return int(n), nil
}

// Search returns the reviews most relevant to query, best match first.
func (s *Store) Search(ctx context.Context, query string) ([]Review, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("review search query is empty")
	}

	var reviews []Review
	if err := s.searchQuery(&reviews, query).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("search reviews: %w", err)
	}
	return reviews, nil
}

func (s *Store) searchQuery(dst *[]Review, query string) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(dst).
		Where(searchDocument+" @@ plainto_tsquery('english', ?)", query).
		OrderExpr("ts_rank("+searchDocument+", plainto_tsquery('english', ?)) DESC", query).
		OrderExpr("r.reviewed_at DESC NULLS LAST").
		Limit(s.limit)
}
