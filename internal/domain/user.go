package domain

import "time"

// Event kinds recorded in the audit log.
const (
	EventStart       = "start"
	EventMessageSent = "message_sent"
	EventButtonClick = "button_click"
)

// User represents a tracked recipient profile.
type User struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
	LastStart    *time.Time // UTC, nullable; updated only on session start
}

// EventView is one audit row joined with the owner's current profile,
// as returned by the detailed report query.
type EventView struct {
	CreatedAt    time.Time
	UserID       int64
	Kind         string
	Payload      string
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
}

// UserActivity is one row of the users listing: profile plus the
// timestamp of the user's most recent event (nil when they have none).
type UserActivity struct {
	UserID       int64
	FirstName    string
	LastName     string
	Username     string
	LanguageCode string
	IsPremium    bool
	IsBot        bool
	LastSeen     *time.Time
}
