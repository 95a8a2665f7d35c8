// Package service — authentication business logic.
//
// AuthService is the business logic layer for authentication. It sits between
// the HTTP handlers and the repository/billing collaborators:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ billing.Customers (Stripe, optional)
//
// KEY RESPONSIBILITIES:
//   - Reconcile a GitHub profile with the user store after each OAuth login
//   - Resolve a session ID back to its user for authenticated requests
//   - Sign a session out
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/auth"
	"github.com/sakif/linkshare/internal/billing"
	"github.com/sakif/linkshare/internal/metrics"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/repository"
)

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users     repository.UserRepository → read/write user records
//   - customers billing.Customers         → optional billing customer creation
//   - clock     clockwork.Clock           → CreatedAt for new users
//   - metrics   *metrics.AuthMetrics      → login counters (may be nil)
//   - logger    *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	customers billing.Customers
	clock     clockwork.Clock
	metrics   *metrics.AuthMetrics
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	customers billing.Customers,
	clock clockwork.Clock,
	m *metrics.AuthMetrics,
	logger *slog.Logger,
) *AuthService {
	if customers == nil {
		customers = billing.Noop{}
	}
	return &AuthService{
		users:     users,
		customers: customers,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// ReconcileGitHubUser makes the user store agree with a freshly completed
// login.
//
// FIRST LOGIN (no user with this GitHub ID):
//  1. If billing is enabled, create a billing customer with the profile email
//  2. Build the user from the profile, the new session ID and the new-user
//     defaults
//  3. Create it. A user created by a concurrent login for the same GitHub ID
//     makes Create fail with apperror.ErrConflict; that error is returned
//     as is, not retried.
//
// RETURNING USER:
//  1. Delete the session index entry of the user's previous session, so the
//     old cookie stops resolving
//  2. Update the user with only SessionID replaced; login, billing ID and
//     the other fields are written back unchanged
//
// If billing succeeds and the write fails, the billing customer is left
// behind; nothing is rolled back.
func (s *AuthService) ReconcileGitHubUser(ctx context.Context, profile *auth.GitHubUser, sessionID string) (*model.User, error) {
	if profile == nil {
		return nil, fmt.Errorf("service/auth: GitHub profile must not be nil")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("service/auth: session ID must not be empty")
	}

	id := strconv.FormatInt(profile.ID, 10)

	existing, err := s.users.GetByID(ctx, id)
	switch {
	case err == nil:
		user, err := s.rotateSession(ctx, existing, sessionID)
		if err != nil {
			s.metrics.ObserveLogin(metrics.LoginFailed)
			return nil, err
		}
		s.metrics.ObserveLogin(metrics.LoginReturning)
		return user, nil

	case errors.Is(err, apperror.ErrNotFound):
		user, err := s.createUser(ctx, id, profile, sessionID)
		if err != nil {
			s.metrics.ObserveLogin(metrics.LoginFailed)
			return nil, err
		}
		s.metrics.ObserveLogin(metrics.LoginNew)
		return user, nil

	default:
		s.metrics.ObserveLogin(metrics.LoginFailed)
		return nil, fmt.Errorf("service/auth: looking up user %s: %w", id, err)
	}
}

func (s *AuthService) createUser(ctx context.Context, id string, profile *auth.GitHubUser, sessionID string) (*model.User, error) {
	var customerID *string
	if s.customers.Enabled() {
		cid, err := s.customers.CreateCustomer(ctx, profile.Email)
		s.metrics.ObserveBillingCustomer(err)
		if err != nil {
			return nil, fmt.Errorf("service/auth: creating billing customer for user %s: %w", id, err)
		}
		customerID = &cid
	}

	user := &model.User{
		ID:               id,
		Login:            profile.Login,
		StripeCustomerID: customerID,
		SessionID:        sessionID,
		UserProps:        model.NewUserProps(s.clock.Now()),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", id, err)
	}

	s.logger.Info("user created",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
		slog.Bool("billing", customerID != nil),
	)
	return user, nil
}

func (s *AuthService) rotateSession(ctx context.Context, existing *model.User, sessionID string) (*model.User, error) {
	if err := s.users.DeleteBySession(ctx, existing.SessionID); err != nil {
		return nil, fmt.Errorf("service/auth: dropping previous session of user %s: %w", existing.ID, err)
	}

	updated := *existing
	updated.SessionID = sessionID

	if err := s.users.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("service/auth: updating session of user %s: %w", existing.ID, err)
	}

	s.logger.Info("user signed in",
		slog.String("userID", updated.ID),
		slog.String("login", updated.Login),
	)
	return &updated, nil
}

// UserBySession returns the user whose current session is sessionID.
//
// A session that was superseded by a later login, or signed out, no longer
// resolves: the result is apperror.ErrUnauthorized so handlers answer 401.
func (s *AuthService) UserBySession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, apperror.Unauthorized("not signed in")
	}

	user, err := s.users.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("session is no longer valid")
		}
		return nil, fmt.Errorf("service/auth: resolving session: %w", err)
	}
	return user, nil
}

// SignOut removes the session from the index. Signing out an unknown or
// already signed-out session succeeds.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.users.DeleteBySession(ctx, sessionID); err != nil {
		return fmt.Errorf("service/auth: signing out: %w", err)
	}
	return nil
}
