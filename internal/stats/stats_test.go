package stats

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/B0user/woolzy/internal/domain"
)

// fakeRepo serves canned events with controlled timestamps; the write and
// lifecycle methods are unused here.
type fakeRepo struct {
	events []domain.EventView
	users  []domain.UserActivity
}

func (f *fakeRepo) TouchUser(context.Context, *domain.User, bool) error { return nil }
func (f *fakeRepo) GetUser(context.Context, int64) (*domain.User, error) {
	return nil, nil
}
func (f *fakeRepo) AppendEvent(context.Context, int64, string, string) error { return nil }
func (f *fakeRepo) ResetEvents(context.Context) error                        { return nil }
func (f *fakeRepo) Close() error                                             { return nil }

func (f *fakeRepo) CountEvents(_ context.Context, kind, payload string, since *time.Time) (int64, error) {
	var n int64
	for _, e := range f.events {
		if e.Kind != kind {
			continue
		}
		if payload != "" && e.Payload != payload {
			continue
		}
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeRepo) RecentEvents(_ context.Context, since *time.Time, limit int) ([]domain.EventView, error) {
	var res []domain.EventView
	for i := len(f.events) - 1; i >= 0 && len(res) < limit; i-- {
		e := f.events[i]
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		res = append(res, e)
	}
	return res, nil
}

func (f *fakeRepo) ListUsersByActivity(_ context.Context, limit int) ([]domain.UserActivity, error) {
	if len(f.users) > limit {
		return f.users[:limit], nil
	}
	return f.users, nil
}

var testLabels = map[string]string{
	"btn_group": "Кнопка: Перейти в группу",
	"btn_kaspi": "Кнопка: Оформить в Kaspi",
}

func testAggregator(repo *fakeRepo, now time.Time) *Aggregator {
	a := New(repo, testLabels)
	a.now = func() time.Time { return now }
	return a
}

func TestCutoff(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	a := testAggregator(&fakeRepo{}, now)

	c, err := a.Cutoff("24h")
	require.NoError(t, err)
	require.Equal(t, now.Add(-24*time.Hour), *c)

	c, err = a.Cutoff("7d")
	require.NoError(t, err)
	require.Equal(t, now.Add(-7*24*time.Hour), *c)

	c, err = a.Cutoff("all")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = a.Cutoff("bogus")
	require.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestReportCountsMonotonicAcrossPeriods(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{events: []domain.EventView{
		{CreatedAt: now.Add(-30 * 24 * time.Hour), Kind: domain.EventStart, UserID: 1},
		{CreatedAt: now.Add(-3 * 24 * time.Hour), Kind: domain.EventStart, UserID: 2},
		{CreatedAt: now.Add(-3 * 24 * time.Hour), Kind: domain.EventButtonClick, Payload: "btn_group", UserID: 2},
		{CreatedAt: now.Add(-time.Hour), Kind: domain.EventStart, UserID: 3},
		{CreatedAt: now.Add(-time.Hour), Kind: domain.EventButtonClick, Payload: "btn_kaspi", UserID: 3},
	}}
	a := testAggregator(repo, now)

	counts := func(period string) (starts, group, kaspi int64) {
		c, err := a.Cutoff(period)
		require.NoError(t, err)
		starts, _ = repo.CountEvents(context.Background(), domain.EventStart, "", c)
		group, _ = repo.CountEvents(context.Background(), domain.EventButtonClick, "btn_group", c)
		kaspi, _ = repo.CountEvents(context.Background(), domain.EventButtonClick, "btn_kaspi", c)
		return
	}

	s24, g24, k24 := counts("24h")
	s7, g7, k7 := counts("7d")
	sAll, gAll, kAll := counts("all")

	require.LessOrEqual(t, s24, s7)
	require.LessOrEqual(t, s7, sAll)
	require.LessOrEqual(t, g24, g7)
	require.LessOrEqual(t, g7, gAll)
	require.LessOrEqual(t, k24, k7)
	require.LessOrEqual(t, k7, kAll)

	require.EqualValues(t, 1, s24)
	require.EqualValues(t, 2, s7)
	require.EqualValues(t, 3, sAll)
}

func TestBuildReportShort(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{events: []domain.EventView{
		{CreatedAt: now.Add(-time.Hour), Kind: domain.EventStart, UserID: 1},
		{CreatedAt: now.Add(-time.Hour), Kind: domain.EventButtonClick, Payload: "btn_group", UserID: 1},
	}}
	a := testAggregator(repo, now)

	text, err := a.BuildReport(context.Background(), "24h", false)
	require.NoError(t, err)
	require.Contains(t, text, "📊 Статистика за 24 часа")
	require.Contains(t, text, "– Стартовали бота: <b>1</b>")
	require.Contains(t, text, "– Перешли в группу: <b>1</b>")
	require.Contains(t, text, "– Кликнули на Kaspi: <b>0</b>")
	require.NotContains(t, text, "Последние события")
}

func TestBuildReportDetailed(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{events: []domain.EventView{
		{
			CreatedAt: now.Add(-time.Hour), Kind: domain.EventStart,
			UserID: 1, FirstName: "Anna", Username: "annab", LanguageCode: "ru",
		},
		{
			CreatedAt: now.Add(-30 * time.Minute), Kind: domain.EventMessageSent,
			Payload: "welcome", UserID: 1, FirstName: "Anna", Username: "annab", LanguageCode: "ru",
		},
		{
			CreatedAt: now.Add(-10 * time.Minute), Kind: domain.EventButtonClick,
			Payload: "btn_unknown", UserID: 2,
		},
	}}
	a := testAggregator(repo, now)

	text, err := a.BuildReport(context.Background(), "all", true)
	require.NoError(t, err)
	require.Contains(t, text, "Последние события (до 50):")
	require.Contains(t, text, "Anna (@annab) • ru • Старт")
	require.Contains(t, text, "Отправлено: welcome")
	// Unknown tokens fall back to the raw token; userless profile shows the ID.
	require.Contains(t, text, "2 • Кнопка: btn_unknown")

	// Newest first.
	lines := strings.Split(text, "\n")
	last := lines[len(lines)-1]
	require.Contains(t, last, "Старт")
}

func TestListUsers(t *testing.T) {
	now := time.Date(2025, time.May, 10, 12, 0, 0, 0, time.UTC)
	seen := now.Add(-time.Hour)
	repo := &fakeRepo{users: []domain.UserActivity{
		{UserID: 1, FirstName: "Anna", Username: "annab", LanguageCode: "ru", IsPremium: true, LastSeen: &seen},
		{UserID: 2},
	}}
	a := testAggregator(repo, now)

	text, err := a.ListUsers(context.Background())
	require.NoError(t, err)
	require.Contains(t, text, "👥 Пользователи (до 200):")
	require.Contains(t, text, "Anna (@annab) • ru/premium")
	require.Contains(t, text, "— • 2")
}
