package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `u.id, u.login, u.stripe_customer_id, u.session_id, u.is_subscribed, u.created_at`

// Create inserts a brand-new user together with its session index row.
//
// INSERT, NOT UPSERT:
// Create is only called when the caller believes the user does not exist.
// If another request created the same GitHub user in the meantime, the
// PRIMARY KEY rejects this INSERT and we report apperror.ErrConflict — the
// existing record is never overwritten.
//
// Both rows are written in one transaction: a user without a session index
// row would be unreachable from its cookie.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create user tx: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, login, stripe_customer_id, session_id, is_subscribed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Login,
		nullString(user.StripeCustomerID),
		user.SessionID,
		user.IsSubscribed,
		user.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return apperror.Conflict("user", user.ID)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}

	if err := indexSession(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.ID, err)
	}
	return nil
}

// Update overwrites every mutable column of an existing user and points the
// user's current session ID at it in the session index.
//
// The previous session's index row is NOT removed here; callers do that
// explicitly with DeleteBySession so the two steps stay visible in the login
// flow.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update user tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET login = ?, stripe_customer_id = ?, session_id = ?, is_subscribed = ?
		 WHERE id = ?`,
		user.Login,
		nullString(user.StripeCustomerID),
		user.SessionID,
		user.IsSubscribed,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	// RowsAffected tells us whether the WHERE matched anything.
	// Zero rows means the user doesn't exist — report it instead of
	// pretending the update succeeded.
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of user %s: %w", user.ID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}

	if err := indexSession(ctx, tx, user); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.ID, err)
	}
	return nil
}

// DeleteBySession removes one entry from the session index. Deleting a
// session that is not indexed is not an error: signing out twice, or a
// first login racing a sign-out, must not fail the request.
func (db *DB) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM users_by_session WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting session index %s: %w", sessionID, err)
	}
	return nil
}

// GetByID retrieves a user by their GitHub user ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetBySession resolves a session ID through the session index.
// A superseded or signed-out session returns apperror.ErrNotFound.
func (db *DB) GetBySession(ctx context.Context, sessionID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+`
		 FROM users_by_session s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.session_id = ?`,
		sessionID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("session", sessionID)
		}
		return nil, fmt.Errorf("sqlite: getting user by session: %w", err)
	}
	return u, nil
}

// indexSession points user.SessionID at user.ID. INSERT OR REPLACE keeps it
// idempotent when the same session is written twice.
func indexSession(ctx context.Context, tx *sql.Tx, user *model.User) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO users_by_session (session_id, user_id) VALUES (?, ?)`,
		user.SessionID, user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: indexing session for user %s: %w", user.ID, err)
	}
	return nil
}

// scanUser reads one row selected with userColumns.
func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u          model.User
		customerID sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Login,
		&customerID,
		&u.SessionID,
		&u.IsSubscribed,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if customerID.Valid {
		u.StripeCustomerID = &customerID.String
	}
	return &u, nil
}

// nullString maps a nil *string to SQL NULL.
func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
