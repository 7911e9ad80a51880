package site

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	errs "github.com/coral-mesh/hookprof/internal/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY,
		slug VARCHAR NOT NULL UNIQUE,
		title VARCHAR NOT NULL,
		content VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS options (
		name VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stats (
		recorded_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		queries INTEGER NOT NULL,
		cache_hits BIGINT NOT NULL,
		cache_misses BIGINT NOT NULL
	)`,
}

var seedOptions = map[string]string{
	"blogname":        "Hookprof Demo",
	"blogdescription": "Just another hook-driven site",
	"posts_per_page":  "10",
	"seo_separator":   "|",
}

var seedPosts = []Post{
	{ID: 1, Slug: "hello-world", Title: "Hello world", Content: "Welcome to the site.\n\nThis is the first post. [year]"},
	{ID: 2, Slug: "hooks-explained", Title: "Hooks explained", Content: "Every request fires hooks.\n\nListeners run in priority order."},
	{ID: 3, Slug: "caching", Title: "Caching", Content: "Options are read through the object cache."},
}

// migrate creates the schema and seeds an empty database.
func migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n); err != nil {
		return fmt.Errorf("failed to count posts: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer errs.DeferRollback(logger, tx)

	for _, p := range seedPosts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posts (id, slug, title, content) VALUES (?, ?, ?, ?)`,
			p.ID, p.Slug, p.Title, p.Content); err != nil {
			return fmt.Errorf("failed to seed post %s: %w", p.Slug, err)
		}
	}
	for name, value := range seedOptions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO options (name, value) VALUES (?, ?)`, name, value); err != nil {
			return fmt.Errorf("failed to seed option %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}
	logger.Debug().Int("posts", len(seedPosts)).Msg("Seeded site database")
	return nil
}
