// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests pass
// in-memory fakes and the service package never imports a database driver.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"

	"github.com/sakif/linkshare/internal/apperror"
	"github.com/sakif/linkshare/internal/metrics"
	"github.com/sakif/linkshare/internal/model"
	"github.com/sakif/linkshare/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength   = 200
	MaxURLLength     = 2048
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ItemEntry is an item ready to be displayed: the item, who posted it, and
// whether the viewer has voted for it.
type ItemEntry struct {
	Item   model.Item
	Author model.User
	Voted  bool
}

// ItemService handles submission, listing and voting on items.
type ItemService struct {
	items   repository.ItemRepository
	votes   repository.VoteRepository
	users   repository.UserRepository
	clock   clockwork.Clock
	metrics *metrics.VoteMetrics
	logger  *slog.Logger
}

func NewItemService(
	items repository.ItemRepository,
	votes repository.VoteRepository,
	users repository.UserRepository,
	clock clockwork.Clock,
	m *metrics.VoteMetrics,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		items:   items,
		votes:   votes,
		users:   users,
		clock:   clock,
		metrics: m,
		logger:  logger,
	}
}

// Create validates and saves a new item posted by userID.
//
// VALIDATION:
//   - title is trimmed and must be 1..MaxTitleLength characters
//   - url must be an absolute http(s) URL with a host; anything else would
//     make the item impossible to render
func (s *ItemService) Create(ctx context.Context, userID, title, rawURL string) (*model.Item, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if err := validateItemURL(rawURL); err != nil {
		return nil, err
	}

	item := &model.Item{
		UserID:    userID,
		Title:     title,
		URL:       rawURL,
		CreatedAt: s.clock.Now(),
	}

	if err := s.items.CreateItem(ctx, item); err != nil {
		s.logger.Error("failed to create item",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.String("userID", userID),
	)
	return item, nil
}

func validateItemURL(raw string) error {
	if raw == "" {
		return apperror.ValidationFailed("url", "url is required")
	}
	if len(raw) > MaxURLLength {
		return apperror.ValidationFailed("url",
			fmt.Sprintf("url must be %d characters or less", MaxURLLength))
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperror.ValidationFailed("url", "url must be an absolute http or https URL")
	}
	return nil
}

// Get retrieves an item by its ID.
// Returns apperror.ErrNotFound if the item doesn't exist.
func (s *ItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "item ID is required")
	}
	return s.items.GetItem(ctx, id)
}

// List retrieves items newest first.
//
// limit is clamped to 1..MaxListLimit (default DefaultListLimit) and a
// negative offset is treated as zero.
func (s *ItemService) List(ctx context.Context, limit, offset int) ([]model.Item, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.items.ListItems(ctx, repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// Vote records userID's vote for itemID. Voting twice is not an error and
// does not change the score again.
func (s *ItemService) Vote(ctx context.Context, itemID, userID string) error {
	changed, err := s.votes.CreateVote(ctx, itemID, userID)
	if err != nil {
		return fmt.Errorf("voting on item %s: %w", itemID, err)
	}
	s.metrics.ObserveVote("vote", changed)
	return nil
}

// Unvote removes userID's vote for itemID. Removing a vote that does not
// exist is not an error.
func (s *ItemService) Unvote(ctx context.Context, itemID, userID string) error {
	changed, err := s.votes.DeleteVote(ctx, itemID, userID)
	if err != nil {
		return fmt.Errorf("removing vote on item %s: %w", itemID, err)
	}
	s.metrics.ObserveVote("unvote", changed)
	return nil
}

// VotedItemIDs returns the subset of itemIDs that userID has voted for.
func (s *ItemService) VotedItemIDs(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error) {
	if userID == "" || len(itemIDs) == 0 {
		return map[string]bool{}, nil
	}
	voted, err := s.votes.VotedItemIDs(ctx, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("loading votes of user %s: %w", userID, err)
	}
	return voted, nil
}

// Feed returns a page of items with their authors and the viewer's votes.
// viewerID is empty for anonymous visitors.
func (s *ItemService) Feed(ctx context.Context, viewerID string, limit, offset int) ([]ItemEntry, error) {
	items, err := s.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, viewerID, items)
}

// Entry returns a single item prepared for display.
func (s *ItemService) Entry(ctx context.Context, viewerID, id string) (*ItemEntry, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, viewerID, []model.Item{*item})
	if err != nil {
		return nil, err
	}
	return &entries[0], nil
}

func (s *ItemService) entries(ctx context.Context, viewerID string, items []model.Item) ([]ItemEntry, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	voted, err := s.VotedItemIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	authors := make(map[string]model.User)
	entries := make([]ItemEntry, len(items))
	for i, it := range items {
		author, ok := authors[it.UserID]
		if !ok {
			u, err := s.users.GetByID(ctx, it.UserID)
			if err != nil {
				return nil, fmt.Errorf("loading author of item %s: %w", it.ID, err)
			}
			author = *u
			authors[it.UserID] = author
		}
		entries[i] = ItemEntry{Item: it, Author: author, Voted: voted[it.ID]}
	}
	return entries, nil
}
