// Package billing provisions payment-provider customers for new users.
//
// Billing is optional. When no Stripe key is configured, New returns a Noop
// whose Enabled reports false, and callers skip customer creation entirely.
// Nothing in this package is retried: a failed call fails the request that
// made it.
package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"

	"github.com/sakif/linkshare/internal/apperror"
)

// Customers is the capability the login flow needs from a billing provider.
type Customers interface {
	// Enabled reports whether a real provider is configured.
	Enabled() bool
	// CreateCustomer creates a customer record and returns its provider ID.
	CreateCustomer(ctx context.Context, email string) (string, error)
}

// New returns a Stripe-backed Customers when secretKey is set and a Noop
// otherwise.
func New(secretKey string, logger *slog.Logger) Customers {
	if secretKey == "" {
		return Noop{}
	}
	return NewStripe(Config{SecretKey: secretKey}, logger)
}

// Noop is the Customers used when billing is not configured.
type Noop struct{}

func (Noop) Enabled() bool { return false }

func (Noop) CreateCustomer(context.Context, string) (string, error) {
	return "", nil
}

// Config configures the Stripe client. APIURL is only set by tests.
type Config struct {
	SecretKey string
	APIURL    string
}

// Stripe creates customers through the Stripe API.
type Stripe struct {
	client customer.Client
}

// NewStripe builds a client with its own backend instead of the stripe-go
// package globals, so several clients (and tests) can coexist.
func NewStripe(cfg Config, logger *slog.Logger) *Stripe {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &slogLogger{logger: logger},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	return &Stripe{
		client: customer.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
	}
}

func (s *Stripe) Enabled() bool { return true }

// CreateCustomer calls POST /v1/customers. An empty email (hidden on GitHub)
// creates a customer without one.
func (s *Stripe) CreateCustomer(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if email != "" {
		params.Email = stripe.String(email)
	}

	cust, err := s.client.New(params)
	if err != nil {
		return "", apperror.Upstream("stripe customer", err)
	}
	if cust.ID == "" {
		return "", apperror.Upstream("stripe customer", fmt.Errorf("response has no customer id"))
	}
	return cust.ID, nil
}

// slogLogger routes stripe-go's own logging into slog.
type slogLogger struct {
	logger *slog.Logger
}

func (l *slogLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}

func (l *slogLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "stripe"))
}
