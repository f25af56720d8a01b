// Package stats builds admin reports over the event log. All queries are
// read-only.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/B0user/woolzy/internal/domain"
	"github.com/B0user/woolzy/internal/store"
)

// Report limits, matching what fits in one chat message.
const (
	recentEventsLimit = 50
	usersListLimit    = 200
)

// ErrUnknownPeriod is returned for period tags other than 24h/7d/all.
var ErrUnknownPeriod = fmt.Errorf("unknown stats period")

var periods = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
}

var periodHeaders = map[string]string{
	"24h": "за 24 часа",
	"7d":  "за 7 дней",
	"all": "за весь период",
}

// Aggregator computes period-bounded reports from the store.
type Aggregator struct {
	repo        store.Repo
	clickLabels map[string]string
	now         func() time.Time
}

// New creates an Aggregator. clickLabels maps button tokens to the human
// phrases shown in detailed reports.
func New(repo store.Repo, clickLabels map[string]string) *Aggregator {
	return &Aggregator{repo: repo, clickLabels: clickLabels, now: time.Now}
}

// Cutoff maps a period tag to a UTC cutoff. nil means no cutoff ("all").
func (a *Aggregator) Cutoff(period string) (*time.Time, error) {
	if period == "all" {
		return nil, nil
	}
	d, ok := periods[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	cutoff := a.now().UTC().Add(-d)
	return &cutoff, nil
}

// BuildReport renders the stats text for a period. With detailed set it
// appends the most recent events joined with user profiles.
func (a *Aggregator) BuildReport(ctx context.Context, period string, detailed bool) (string, error) {
	cutoff, err := a.Cutoff(period)
	if err != nil {
		return "", err
	}

	starts, err := a.repo.CountEvents(ctx, domain.EventStart, "", cutoff)
	if err != nil {
		return "", fmt.Errorf("count starts: %w", err)
	}
	groupClicks, err := a.repo.CountEvents(ctx, domain.EventButtonClick, "btn_group", cutoff)
	if err != nil {
		return "", fmt.Errorf("count group clicks: %w", err)
	}
	kaspiClicks, err := a.repo.CountEvents(ctx, domain.EventButtonClick, "btn_kaspi", cutoff)
	if err != nil {
		return "", fmt.Errorf("count kaspi clicks: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика %s\n", periodHeaders[period])
	fmt.Fprintf(&b, "– Стартовали бота: <b>%d</b>\n", starts)
	fmt.Fprintf(&b, "– Перешли в группу: <b>%d</b>\n", groupClicks)
	fmt.Fprintf(&b, "– Кликнули на Kaspi: <b>%d</b>", kaspiClicks)

	if detailed {
		events, err := a.repo.RecentEvents(ctx, cutoff, recentEventsLimit)
		if err != nil {
			return "", fmt.Errorf("recent events: %w", err)
		}
		fmt.Fprintf(&b, "\n\nПоследние события (до %d):", recentEventsLimit)
		for _, e := range events {
			b.WriteString("\n")
			b.WriteString(formatEventLine(e, a.clickLabels))
		}
	}
	return b.String(), nil
}

// ListUsers renders the users listing, most recently seen first.
func (a *Aggregator) ListUsers(ctx context.Context) (string, error) {
	users, err := a.repo.ListUsersByActivity(ctx, usersListLimit)
	if err != nil {
		return "", fmt.Errorf("list users: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👥 Пользователи (до %d):", usersListLimit)
	for _, u := range users {
		seen := "—"
		if u.LastSeen != nil {
			seen = domain.FormatTimeShort(*u.LastSeen)
		}
		line := seen + " • " + domain.DisplayName(u.FirstName, u.LastName, u.Username, u.UserID)
		if bits := domain.InfoBits(u.LanguageCode, u.IsPremium, u.IsBot); bits != "" {
			line += " • " + bits
		}
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String(), nil
}

func formatEventLine(e domain.EventView, clickLabels map[string]string) string {
	line := domain.FormatTimeShort(e.CreatedAt) + " • " +
		domain.DisplayName(e.FirstName, e.LastName, e.Username, e.UserID)
	if bits := domain.InfoBits(e.LanguageCode, e.IsPremium, e.IsBot); bits != "" {
		line += " • " + bits
	}
	return line + " • " + actionLabel(e.Kind, e.Payload, clickLabels)
}

func actionLabel(kind, payload string, clickLabels map[string]string) string {
	switch kind {
	case domain.EventStart:
		return "Старт"
	case domain.EventButtonClick:
		if label, ok := clickLabels[payload]; ok {
			return label
		}
		return "Кнопка: " + payload
	case domain.EventMessageSent:
		return "Отправлено: " + payload
	default:
		return kind
	}
}
