package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops implementing repository.ItemRepository, this line fails to
// compile — long before anything tries to pass *DB to the item service.
var _ repository.ItemRepository = (*DB)(nil)

// CreateItem inserts a new item.
//
// ID GENERATION WITH xid:
// xid generates 20-char, URL-safe IDs that sort by creation time
// (e.g. "cv37rs3pp9olc6atsptg"), so they double as a tie-breaker when two
// items share a created_at.
//
// CreatedAt is kept if the caller already set it (the service stamps it from
// its clock); otherwise it defaults to now. Score always starts at zero.
func (db *DB) CreateItem(ctx context.Context, item *model.Item) error {
	item.ID = xid.New().String()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	item.Score = 0

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO items (id, user_id, title, url, score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.UserID,
		item.Title,
		item.URL,
		item.Score,
		item.CreatedAt,
	)
	if err != nil {
		// The only constraint a fresh xid can trip is the user_id foreign key.
		if isConstraintViolation(err) {
			return apperror.NotFound("user", item.UserID)
		}
		return fmt.Errorf("sqlite: creating item: %w", err)
	}

	return nil
}

// GetItem retrieves a single item by its ID.
// sql.ErrNoRows is translated to apperror.ErrNotFound so the handler can
// answer 404 without knowing anything about SQL.
func (db *DB) GetItem(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, title, url, score, created_at
		 FROM items
		 WHERE id = ?`,
		id,
	).Scan(
		&item.ID,
		&item.UserID,
		&item.Title,
		&item.URL,
		&item.Score,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("item", id)
		}
		return nil, fmt.Errorf("sqlite: getting item %s: %w", id, err)
	}

	return &item, nil
}

// ListItems returns items newest first, using LIMIT/OFFSET pagination.
//
// defer rows.Close() — ABSOLUTELY CRITICAL:
// sql.Rows holds the (only) pooled connection until it is closed. Forgetting
// it here would hang every later query.
func (db *DB) ListItems(ctx context.Context, opts repository.ListOptions) ([]model.Item, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, url, score, created_at
		 FROM items
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing items: %w", err)
	}
	defer rows.Close()

	items := make([]model.Item, 0, limit)

	for rows.Next() {
		var it model.Item
		if err := rows.Scan(
			&it.ID, &it.UserID, &it.Title, &it.URL,
			&it.Score, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning item row: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating items: %w", err)
	}

	return items, nil
}
