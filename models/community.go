package models

import "time"

// GamenightLink is a shared link to a scheduled community game session
type GamenightLink struct {
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	AddedBy AccountID `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

// Settings holds the runtime-adjustable economy settings
type Settings struct {
	StartingBalance int64 `json:"starting_balance"`
}
