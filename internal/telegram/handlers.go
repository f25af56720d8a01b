package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/B0user/woolzy/internal/catalog"
	"github.com/B0user/woolzy/internal/domain"
	"github.com/B0user/woolzy/internal/scheduler"
	"github.com/B0user/woolzy/internal/stats"
)

// handleStart records the session start and schedules the campaign
// timeline. A repeat /start replaces the recipient's pending batch.
func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := userFromTg(msg.From)
	chatID := msg.Chat.ID

	if err := r.repo.TouchUser(ctx, user, true); err != nil {
		r.log.Error("touch user failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return
	}
	if err := r.repo.AppendEvent(ctx, user.ID, domain.EventStart, ""); err != nil {
		r.log.Error("record start failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return
	}

	if dropped := r.sched.CancelRecipient(user.ID); dropped > 0 {
		r.log.Info("replaced pending timeline",
			zap.Int64("user_id", user.ID),
			zap.Int("dropped", dropped),
		)
	}

	batch := uuid.NewString()
	now := time.Now()
	for _, e := range r.cat.Timeline {
		r.sched.Schedule(scheduler.Job{
			ID:     scheduler.JobID(user.ID, e.Key, e.Delay()),
			ChatID: chatID,
			UserID: user.ID,
			Key:    e.Key,
			Batch:  batch,
			FireAt: now.Add(e.Delay()),
		})
	}
	r.log.Info("session started",
		zap.Int64("user_id", user.ID),
		zap.String("batch", batch),
		zap.Int("scheduled", len(r.cat.Timeline)),
	)

	// Admins get the timeline for testing but not the welcome message.
	if !r.cfg.IsAdmin(user.ID, chatID) {
		if err := r.deliver(ctx, chatID, user.ID, r.cat.WelcomeKey); err != nil {
			r.log.Error("welcome failed", zap.Error(err), zap.Int64("user_id", user.ID))
		}
	}
}

// DeliverScheduled is the scheduler's fire callback.
func (r *Router) DeliverScheduled(ctx context.Context, job scheduler.Job) error {
	return r.deliver(ctx, job.ChatID, job.UserID, job.Key)
}

// deliver resolves a message key, sends the message with its buttons and
// records the send.
func (r *Router) deliver(ctx context.Context, chatID, userID int64, key string) error {
	spec, ok := r.cat.Message(key)
	if !ok {
		return fmt.Errorf("unknown message key %q", key)
	}

	msg := tgbotapi.NewMessage(chatID, spec.Body)
	msg.ParseMode = tgbotapi.ModeHTML

	rows := buildButtonRows(spec.Buttons)
	if r.cfg.IsAdmin(userID, chatID) {
		rows = append(rows, statsButtonRow())
	}
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	if _, err := r.api.Send(msg); err != nil {
		return fmt.Errorf("send %q: %w", key, err)
	}
	if err := r.repo.AppendEvent(ctx, userID, domain.EventMessageSent, key); err != nil {
		return fmt.Errorf("record send %q: %w", key, err)
	}
	return nil
}

func buildButtonRows(rows [][]catalog.Button) [][]tgbotapi.InlineKeyboardButton {
	var out [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var btns []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Token))
			}
		}
		out = append(out, btns)
	}
	return out
}

// handleCallback records the click, refreshes the profile and dispatches
// on the token.
func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	user := userFromTg(cb.From)
	chatID := cb.Message.Chat.ID
	token := cb.Data

	if err := r.repo.TouchUser(ctx, user, false); err != nil {
		r.log.Error("touch user failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return
	}
	if err := r.repo.AppendEvent(ctx, user.ID, domain.EventButtonClick, token); err != nil {
		r.log.Error("record click failed", zap.Error(err), zap.Int64("user_id", user.ID))
		return
	}

	// Campaign link buttons reply with a fixed text from the catalog.
	if reply, ok := r.cat.TokenReplies[token]; ok {
		r.answerCallback(cb.ID, "")
		r.sendHTML(chatID, reply)
		return
	}

	if token == tokenStats || strings.HasPrefix(token, statsPrefix) {
		r.handleStatsCallback(ctx, user, chatID, cb.ID, token)
		return
	}

	r.answerCallback(cb.ID, ackRecorded)
}

// handleStatsCallback serves the admin reporting surface. Non-admins get
// a silent denial without revealing what the token does.
func (r *Router) handleStatsCallback(ctx context.Context, user *domain.User, chatID int64, cbID, token string) {
	if !r.cfg.IsAdmin(user.ID, chatID) {
		r.answerCallback(cbID, ackDenied)
		return
	}

	switch token {
	case tokenStats:
		r.answerCallback(cbID, "")
		r.sendKeyboard(chatID, textChooseReport, statsMenuKeyboard())

	case tokenStatsUsers:
		r.answerCallback(cbID, "")
		text, err := r.agg.ListUsers(ctx)
		if err != nil {
			r.log.Error("list users failed", zap.Error(err))
			r.sendText(chatID, textReportFailed)
			return
		}
		r.sendText(chatID, text)

	case tokenResetConfirm:
		r.answerCallback(cbID, "")
		r.sendKeyboard(chatID, textResetConfirm, resetConfirmKeyboard())

	case tokenResetYes:
		r.answerCallback(cbID, "")
		if err := r.repo.ResetEvents(ctx); err != nil {
			r.log.Error("reset events failed", zap.Error(err))
			r.sendText(chatID, textReportFailed)
			return
		}
		r.log.Info("statistics reset", zap.Int64("admin_id", user.ID))
		r.sendText(chatID, textResetDone)

	case tokenResetNo:
		r.answerCallback(cbID, ackCanceled)

	default:
		// stats_{short|full}_{24h|7d|all}
		parts := strings.Split(token, "_")
		if len(parts) != 3 || (parts[1] != "short" && parts[1] != "full") {
			r.answerCallback(cbID, ackBadFormat)
			return
		}
		detailed := parts[1] == "full"

		text, err := r.agg.BuildReport(ctx, parts[2], detailed)
		if errors.Is(err, stats.ErrUnknownPeriod) {
			r.answerCallback(cbID, ackBadPeriod)
			return
		}
		if err != nil {
			r.log.Error("build report failed", zap.Error(err), zap.String("token", token))
			r.sendText(chatID, textReportFailed)
			return
		}
		r.answerCallback(cbID, "")
		r.sendHTML(chatID, text)
	}
}
