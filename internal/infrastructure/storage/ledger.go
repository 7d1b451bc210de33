package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"  // Postgres driver registration.
	_ "modernc.org/sqlite" // SQLite driver registration.

	"ThreadHarvester/internal/domain"
	"ThreadHarvester/internal/ports"
	"ThreadHarvester/migrations"
)

const publishedTable = "published_posts"

// Open connects to the ledger database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := migrations.Run(db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Ledger records which posts were already published, in Postgres or SQLite.
type Ledger struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.Ledger = (*Ledger)(nil)

// NewLedger wires a sql.DB opened with the given driver.
func NewLedger(db *sql.DB, driver string) *Ledger {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}
	return &Ledger{db: db, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

// AlreadyPublished returns a map with IDs that already exist in storage.
func (l *Ledger) AlreadyPublished(ctx context.Context, ids []string) (map[string]bool, error) {
	if l.db == nil || len(ids) == 0 {
		return map[string]bool{}, nil
	}

	query, args, err := l.sb.
		Select("post_id").
		From(publishedTable).
		Where(sq.Eq{"post_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query published: %w", err)
	}

	result := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// MarkPublished upserts one row per record; a repeat refreshes scraped_at.
func (l *Ledger) MarkPublished(ctx context.Context, records []domain.PostRecord) error {
	if l.db == nil || len(records) == 0 {
		return nil
	}

	insert := l.sb.
		Insert(publishedTable).
		Columns("post_id", "community_id", "title", "url", "post_timestamp", "scraped_at")
	for _, r := range records {
		insert = insert.Values(r.ID, r.CommunityID, r.Title, r.URL, r.Timestamp, r.ScrapedAt)
	}

	query, args, err := insert.
		Suffix("ON CONFLICT (post_id) DO UPDATE SET scraped_at = EXCLUDED.scraped_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert published: %w", err)
	}

	return nil
}
