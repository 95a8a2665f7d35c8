// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered user account.
//
// We use GitHub OAuth as the identity provider and, unlike a generated
// surrogate key, the GitHub user ID IS the primary key: it is stable, unique,
// and it is what every callback hands us. It is stored as a decimal string
// ("42") so the rest of the app never cares that GitHub numbers its users.
//
// WHY StripeCustomerID *string?
// Billing is optional. When Stripe is not configured no customer is created,
// and "no customer" must be distinguishable from an empty ID — nil means unset,
// and the column is written as NULL.
//
// SESSION ID:
// SessionID is the currently active login session for this user. Every
// successful login replaces it, and the previous session stops resolving.
type User struct {
	ID               string  `json:"id"`
	Login            string  `json:"login"`
	StripeCustomerID *string `json:"stripeCustomerId,omitempty"`
	SessionID        string  `json:"-"` // never leaves the server
	UserProps
}

// UserProps holds the bookkeeping fields every new account starts with.
//
// EMBEDDING:
// UserProps is embedded in User, so user.CreatedAt works directly — the
// fields are "promoted". Keeping them in their own struct lets the defaults
// factory (NewUserProps) produce exactly this part of a User.
type UserProps struct {
	IsSubscribed bool      `json:"isSubscribed"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUserProps returns the default bookkeeping fields for a brand-new user.
// now is passed in (not read from time.Now) so callers can use a fake clock.
func NewUserProps(now time.Time) UserProps {
	return UserProps{
		IsSubscribed: false,
		CreatedAt:    now,
	}
}
