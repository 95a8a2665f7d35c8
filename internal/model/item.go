package model

import "time"

// Item is a submitted link.
//
// Score is denormalised: it always equals the number of rows in the votes
// table for this item. The repository adjusts it in the same transaction that
// inserts or deletes a vote, so listing items never needs a COUNT(*).
type Item struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}
