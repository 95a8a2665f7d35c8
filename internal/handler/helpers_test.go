package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/billing"
	"github.com/sakif/linkshare/internal/model"
	sqliteRepo "github.com/sakif/linkshare/internal/repository/sqlite"
	"github.com/sakif/linkshare/internal/service"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqliteRepo.DB {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newAuthService(db *sqliteRepo.DB, customers billing.Customers) *service.AuthService {
	return service.NewAuthService(db, customers, clockwork.NewFakeClockAt(testNow), nil, testLogger())
}

func seedUser(t *testing.T, db *sqliteRepo.DB, id, login, sessionID string) {
	t.Helper()
	err := db.Create(context.Background(), &model.User{
		ID:        id,
		Login:     login,
		SessionID: sessionID,
		UserProps: model.NewUserProps(testNow.Add(-time.Hour)),
	})
	if err != nil {
		t.Fatalf("seeding user: %v", err)
	}
}

// withSession returns r as the auth middleware would pass it on for a
// valid cookie carrying sessionID.
func withSession(r *http.Request, sessionID string) *http.Request {
	return r.WithContext(auth.WithSessionID(r.Context(), sessionID))
}

func findCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
