package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/B0user/woolzy/internal/domain"
)

func openTestRepo(t *testing.T) (*SQLiteRepo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "woolzy.db")
	r, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, path
}

func TestOpenSQLiteIdempotent(t *testing.T) {
	ctx := context.Background()
	r, path := openTestRepo(t)
	require.NoError(t, r.Close())

	// Second init against the same file must succeed and leave the
	// schema usable.
	r2, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer r2.Close()

	require.NoError(t, r2.AppendEvent(ctx, 1, domain.EventStart, ""))
	n, err := r2.CountEvents(ctx, domain.EventStart, "", nil)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}

func TestTouchUserLastStartSemantics(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	u := &domain.User{ID: 10, FirstName: "Anna", Username: "annab", LanguageCode: "ru"}
	require.NoError(t, r.TouchUser(ctx, u, true))

	got, err := r.GetUser(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, got.LastStart)
	started := *got.LastStart

	// Interaction touch refreshes profile fields but not last_start.
	u2 := &domain.User{ID: 10, FirstName: "Anna", LastName: "B", Username: "annab", IsPremium: true}
	require.NoError(t, r.TouchUser(ctx, u2, false))

	got, err = r.GetUser(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "B", got.LastName)
	require.True(t, got.IsPremium)
	require.Empty(t, got.LanguageCode)
	require.NotNil(t, got.LastStart)
	require.True(t, got.LastStart.Equal(started), "last_start must survive interaction touches")
}

func TestTouchUserInteractionFirst(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	// A user can click before any recorded start: row created, no last_start.
	u := &domain.User{ID: 20, Username: "ghost"}
	require.NoError(t, r.TouchUser(ctx, u, false))

	got, err := r.GetUser(ctx, 20)
	require.NoError(t, err)
	require.Nil(t, got.LastStart)
}

func TestCountEventsFilters(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventStart, ""))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventButtonClick, "btn_group"))
	require.NoError(t, r.AppendEvent(ctx, 2, domain.EventButtonClick, "btn_kaspi"))
	require.NoError(t, r.AppendEvent(ctx, 2, domain.EventButtonClick, "btn_group"))

	n, err := r.CountEvents(ctx, domain.EventButtonClick, "btn_group", nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = r.CountEvents(ctx, domain.EventButtonClick, "", nil)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	future := time.Now().UTC().Add(time.Hour)
	n, err = r.CountEvents(ctx, domain.EventButtonClick, "", &future)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	require.NoError(t, r.TouchUser(ctx, &domain.User{ID: 1, FirstName: "Anna"}, true))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventStart, ""))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventMessageSent, "welcome"))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventButtonClick, "btn_group"))

	events, err := r.RecentEvents(ctx, nil, 50)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first, same-timestamp ties broken by insertion order.
	require.Equal(t, domain.EventButtonClick, events[0].Kind)
	require.Equal(t, domain.EventMessageSent, events[1].Kind)
	require.Equal(t, domain.EventStart, events[2].Kind)
	require.Equal(t, "Anna", events[0].FirstName)

	events, err = r.RecentEvents(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestRecentEventsKeepsOrphans(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	// Events may reference users that were never flushed.
	require.NoError(t, r.AppendEvent(ctx, 99, domain.EventMessageSent, "welcome"))

	events, err := r.RecentEvents(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.EqualValues(t, 99, events[0].UserID)
	require.Empty(t, events[0].FirstName)
}

func TestListUsersByActivity(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	require.NoError(t, r.TouchUser(ctx, &domain.User{ID: 1, FirstName: "Old"}, true))
	require.NoError(t, r.TouchUser(ctx, &domain.User{ID: 2, FirstName: "Fresh"}, true))
	require.NoError(t, r.TouchUser(ctx, &domain.User{ID: 3, FirstName: "Silent"}, true))

	// Insert events with explicit timestamps to control ordering.
	insertAt := func(userID int64, at time.Time) {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO events (user_id, type, payload, created_at) VALUES (?, ?, NULL, ?)`,
			userID, domain.EventStart, domain.FormatTime(at))
		require.NoError(t, err)
	}
	now := time.Now().UTC()
	insertAt(1, now.Add(-2*time.Hour))
	insertAt(2, now.Add(-time.Minute))

	users, err := r.ListUsersByActivity(ctx, 200)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.EqualValues(t, 2, users[0].UserID)
	require.EqualValues(t, 1, users[1].UserID)
	require.EqualValues(t, 3, users[2].UserID, "user with no events sorts last")
	require.Nil(t, users[2].LastSeen)
	require.NotNil(t, users[0].LastSeen)
}

func TestResetEventsIdempotentAndPreservesUsers(t *testing.T) {
	ctx := context.Background()
	r, _ := openTestRepo(t)

	require.NoError(t, r.TouchUser(ctx, &domain.User{ID: 1, FirstName: "Anna"}, true))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventStart, ""))
	require.NoError(t, r.AppendEvent(ctx, 1, domain.EventButtonClick, "btn_group"))

	for i := 0; i < 2; i++ {
		require.NoError(t, r.ResetEvents(ctx))
		n, err := r.CountEvents(ctx, domain.EventStart, "", nil)
		require.NoError(t, err)
		require.Zero(t, n)
	}

	u, err := r.GetUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Anna", u.FirstName)
}
