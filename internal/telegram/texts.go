package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Callback tokens handled by the router. Campaign button tokens
// (btn_group etc.) come from the catalog; these are the admin surface.
const (
	tokenStats        = "btn_stats"
	tokenStatsUsers   = "stats_users"
	tokenResetConfirm = "stats_reset_confirm"
	tokenResetYes     = "stats_reset_yes"
	tokenResetNo      = "stats_reset_no"
	statsPrefix       = "stats_"
)

// UI texts
const (
	ackRecorded      = "Зафиксировал! ✅"
	ackDenied        = "Недоступно"
	ackCanceled      = "Отменено"
	ackBadFormat     = "Неверный формат"
	ackBadPeriod     = "Неверный период"
	textChooseReport = "Выберите отчёт:"
	textResetConfirm = "Вы уверены, что хотите обнулить статистику?"
	textResetDone    = "Статистика обнулена."
	textReportFailed = "Не удалось построить отчёт."
)

// statsButtonRow is the extra row appended to campaign messages for admins.
func statsButtonRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", tokenStats),
	)
}

// statsMenuKeyboard is the period × detail report picker.
func statsMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Кратко 24h", "stats_short_24h"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Подробно 24h", "stats_full_24h"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Кратко 7d", "stats_short_7d"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Подробно 7d", "stats_full_7d"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Кратко всё", "stats_short_all"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Подробно всё", "stats_full_all"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👥 Все пользователи", tokenStatsUsers),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("♻️ Обнулить статистику", tokenResetConfirm),
		),
	)
}

// resetConfirmKeyboard asks for reset confirmation.
func resetConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да, обнулить", tokenResetYes),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", tokenResetNo),
		),
	)
}
