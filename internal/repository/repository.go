// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage implements them; tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/linkshare/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores users and the session index that points at them.
//
// Create fails with apperror.ErrConflict when a user with the same ID already
// exists; it never overwrites. GetByID and GetBySession return
// apperror.ErrNotFound when nothing matches.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetBySession(ctx context.Context, sessionID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	DeleteBySession(ctx context.Context, sessionID string) error
}

type ItemRepository interface {
	CreateItem(ctx context.Context, item *model.Item) error
	GetItem(ctx context.Context, id string) (*model.Item, error)
	ListItems(ctx context.Context, opts ListOptions) ([]model.Item, error)
}

// VoteRepository records at most one vote per (item, user). CreateVote and
// DeleteVote report whether anything changed so callers can stay idempotent.
type VoteRepository interface {
	CreateVote(ctx context.Context, itemID, userID string) (bool, error)
	DeleteVote(ctx context.Context, itemID, userID string) (bool, error)
	VotedItemIDs(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error)
}
