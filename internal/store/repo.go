package store

import (
	"context"
	"time"

	"github.com/B0user/woolzy/internal/domain"
)

// Repo defines storage operations for user profiles and the event log.
type Repo interface {
	// TouchUser upserts the profile. Display fields are always refreshed;
	// last_start is updated only when sessionStart is true.
	TouchUser(ctx context.Context, u *domain.User, sessionStart bool) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// AppendEvent writes one immutable audit row stamped with the current
	// UTC time. payload may be empty.
	AppendEvent(ctx context.Context, userID int64, kind, payload string) error

	// CountEvents counts events of a kind, optionally filtered by exact
	// payload (empty payload means any) and by created_at >= since.
	CountEvents(ctx context.Context, kind, payload string, since *time.Time) (int64, error)

	// RecentEvents returns up to limit events at-or-after since (nil means
	// all), newest first, joined with the owner's current profile.
	RecentEvents(ctx context.Context, since *time.Time, limit int) ([]domain.EventView, error)

	// ListUsersByActivity returns up to limit users ordered by their most
	// recent event, newest first; users with no events sort last.
	ListUsersByActivity(ctx context.Context, limit int) ([]domain.UserActivity, error)

	// ResetEvents deletes every event row. Users are untouched.
	ResetEvents(ctx context.Context) error

	Close() error
}
