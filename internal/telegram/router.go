package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/B0user/woolzy/internal/catalog"
	"github.com/B0user/woolzy/internal/config"
	"github.com/B0user/woolzy/internal/domain"
	"github.com/B0user/woolzy/internal/scheduler"
	"github.com/B0user/woolzy/internal/stats"
	"github.com/B0user/woolzy/internal/store"
)

// API is the slice of the Bot API client the router needs.
// *tgbotapi.BotAPI satisfies it; tests substitute a recorder.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Scheduler is the slice of the timer engine the router needs.
type Scheduler interface {
	Schedule(j scheduler.Job)
	CancelRecipient(userID int64) int
}

// Router wires Telegram updates to the campaign flows.
type Router struct {
	api   API
	log   *zap.Logger
	repo  store.Repo
	agg   *stats.Aggregator
	sched Scheduler
	cat   *catalog.Catalog
	cfg   config.Config
}

// NewRouter creates a Router over the given collaborators.
func NewRouter(api API, log *zap.Logger, repo store.Repo, agg *stats.Aggregator,
	sched Scheduler, cat *catalog.Catalog, cfg config.Config) *Router {
	return &Router{
		api:   api,
		log:   log,
		repo:  repo,
		agg:   agg,
		sched: sched,
		cat:   cat,
		cfg:   cfg,
	}
}

// HandleUpdate routes a single update. Safe for concurrent calls.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil && upd.Message.From != nil {
		text := strings.TrimSpace(upd.Message.Text)
		if strings.HasPrefix(text, "/start") {
			r.handleStart(ctx, upd.Message)
		}
		// Other text is not part of the campaign; ignore.
		return
	}

	if upd.CallbackQuery != nil && upd.CallbackQuery.From != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

// userFromTg maps a transport user into the domain profile.
func userFromTg(from *tgbotapi.User) *domain.User {
	return &domain.User{
		ID:           from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		// The released Bot API client predates the premium flag; the
		// profile column stays false until the dependency exposes it.
		IsPremium: false,
		IsBot:     from.IsBot,
	}
}

// --- Generic send helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (r *Router) sendHTML(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.api.Send(msg); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (r *Router) sendKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	if _, err := r.api.Send(msg); err != nil {
		r.log.Error("send failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Warn("answer callback failed", zap.Error(err))
	}
}
