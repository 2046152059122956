// Package bot implements the Telegram side of the monitor: listing
// notifications and the control commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bike_monitor/internal/config"
	"bike_monitor/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Controller gives the bot access to the running monitors.
type Controller interface {
	Statuses() []model.MonitorStatus
	Pause(name string) error
	Resume(name string) error
	Trigger(name string) error
}

// History is the notification log read by /recent and /status.
type History interface {
	ListNotifications(ctx context.Context, monitor string, limit int) ([]model.Notification, error)
	CountNotifications(ctx context.Context, monitor string, status model.NotificationStatus) (int, error)
}

// Bot is the Telegram bot that sends notifications and handles user commands.
type Bot struct {
	api     telegramAPI
	history History
	cfg     *config.Config
	log     *slog.Logger

	mu   sync.RWMutex
	ctrl Controller
}

// New creates a Bot with the given Telegram token, notification history and config.
func New(token string, history History, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		history: history,
		cfg:     cfg,
		log:     log,
	}, nil
}

// SetController attaches the monitors controlled by the commands.
func (b *Bot) SetController(c Controller) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctrl = c
}

func (b *Bot) controller() Controller {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctrl
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From == nil || !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// Notify sends an HTML message to the configured chat.
func (b *Bot) Notify(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(b.cfg.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Announce sends an HTML message to the configured chat, logging failures.
func (b *Bot) Announce(ctx context.Context, text string) {
	if err := b.Notify(ctx, text); err != nil {
		b.log.Error("send announcement", "chat_id", b.cfg.ChatID, "error", err)
	}
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case "chatid":
		b.handleChatID(chatID)
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case cmdPause:
		b.handlePause(chatID, args)
	case cmdResume:
		b.handleResume(chatID, args)
	case cmdCheck:
		b.handleCheck(chatID, args)
	case cmdRecent:
		b.handleRecent(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
