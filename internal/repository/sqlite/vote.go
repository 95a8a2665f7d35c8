package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/repository"
)

var _ repository.VoteRepository = (*DB)(nil)

// CreateVote records a vote and bumps the item's score in one transaction.
// It returns false, with no error, if the user had already voted.
func (db *DB) CreateVote(ctx context.Context, itemID, userID string) (bool, error) {
	return db.changeVote(ctx, itemID, userID,
		`INSERT OR IGNORE INTO votes (item_id, user_id) VALUES (?, ?)`,
		`UPDATE items SET score = score + 1 WHERE id = ?`,
	)
}

// DeleteVote removes a vote and lowers the item's score in one transaction.
// It returns false, with no error, if there was no vote to remove.
func (db *DB) DeleteVote(ctx context.Context, itemID, userID string) (bool, error) {
	return db.changeVote(ctx, itemID, userID,
		`DELETE FROM votes WHERE item_id = ? AND user_id = ?`,
		`UPDATE items SET score = score - 1 WHERE id = ?`,
	)
}

// changeVote runs voteStmt and, only if it changed a row, scoreStmt.
// The item is checked first so an unknown item is a 404 rather than a
// foreign key error.
func (db *DB) changeVote(ctx context.Context, itemID, userID, voteStmt, scoreStmt string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning vote tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, itemID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, apperror.NotFound("item", itemID)
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: checking item %s: %w", itemID, err)
	}

	res, err := tx.ExecContext(ctx, voteStmt, itemID, userID)
	if err != nil {
		if isConstraintViolation(err) {
			return false, apperror.NotFound("user", userID)
		}
		return false, fmt.Errorf("sqlite: writing vote on %s: %w", itemID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking vote on %s: %w", itemID, err)
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, scoreStmt, itemID); err != nil {
		return false, fmt.Errorf("sqlite: updating score of %s: %w", itemID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing vote on %s: %w", itemID, err)
	}
	return true, nil
}

// VotedItemIDs returns the subset of itemIDs the user has voted for.
func (db *DB) VotedItemIDs(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error) {
	voted := make(map[string]bool, len(itemIDs))
	if len(itemIDs) == 0 {
		return voted, nil
	}

	// One placeholder per ID: "?, ?, ?".
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(itemIDs)), ", ")
	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, userID)
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT item_id FROM votes WHERE user_id = ? AND item_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing votes of %s: %w", userID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning vote row: %w", err)
		}
		voted[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating votes: %w", err)
	}

	return voted, nil
}
