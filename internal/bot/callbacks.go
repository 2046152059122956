package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bike_monitor/internal/model"
)

const (
	cmdStatus = "status"
	cmdPause  = "pause"
	cmdResume = "resume"
	cmdCheck  = "check"
	cmdRecent = "recent"
)

func statusKeyboard(statuses []model.MonitorStatus) *tgbotapi.InlineKeyboardMarkup {
	if len(statuses) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(statuses))
	for _, s := range statuses {
		toggle := tgbotapi.NewInlineKeyboardButtonData("⏸ "+s.Name, cmdPause+":"+s.Name)
		if s.Paused {
			toggle = tgbotapi.NewInlineKeyboardButtonData("▶️ "+s.Name, cmdResume+":"+s.Name)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("🔄 check", cmdCheck+":"+s.Name),
			tgbotapi.NewInlineKeyboardButtonData("📜 recent", cmdRecent+":"+s.Name),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action, name, ok := strings.Cut(cb.Data, ":")
	if !ok || name == "" {
		return
	}
	if cb.From == nil || !b.cfg.IsUserAllowed(cb.From.ID) {
		b.reply(chatID, "Access denied.")
		return
	}

	b.log.Info("callback",
		"action", action,
		"monitor", name,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdPause:
		b.handlePause(chatID, name)
	case cmdResume:
		b.handleResume(chatID, name)
	case cmdCheck:
		b.handleCheck(chatID, name)
	case cmdRecent:
		b.handleRecent(ctx, chatID, name)
	}
}
