package bot

import (
	"context"
	"fmt"

	"bike_monitor/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Bike Monitor!

New bicycle listings from the configured marketplace searches are posted to this chat.

Quick start:
1. /status — see what is being monitored
2. /check <name> — check a search right now
3. /recent — list the latest processed listings

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Monitors:
/status — state, window size and last check of every monitor
/pause <name> — stop checking a monitor
/resume <name> — resume checking a monitor
/check <name> — check a monitor now

History:
/recent [name] [count] — latest processed listings (default 10, max 50)

Other:
/chatid — show the ID of this chat`)
}

func (b *Bot) handleChatID(chatID int64) {
	b.reply(chatID, fmt.Sprintf("Chat ID: %d", chatID))
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	ctrl := b.controller()
	if ctrl == nil {
		b.reply(chatID, "Monitors are not running yet.")
		return
	}
	statuses := append([]model.MonitorStatus(nil), ctrl.Statuses()...)
	for i := range statuses {
		n, err := b.history.CountNotifications(ctx, statuses[i].Name, model.NotificationSent)
		if err != nil {
			b.log.Warn("count notifications", "monitor", statuses[i].Name, "error", err)
			continue
		}
		statuses[i].Sent = n
	}
	b.sendWithKeyboard(chatID, FormatStatus(statuses), statusKeyboard(statuses))
}

func (b *Bot) handlePause(chatID int64, args string) {
	name, err := ParseNameArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /pause <name>")
		return
	}
	ctrl := b.controller()
	if ctrl == nil {
		b.reply(chatID, "Monitors are not running yet.")
		return
	}
	if err := ctrl.Pause(name); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Monitor %q paused.", name))
}

func (b *Bot) handleResume(chatID int64, args string) {
	name, err := ParseNameArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /resume <name>")
		return
	}
	ctrl := b.controller()
	if ctrl == nil {
		b.reply(chatID, "Monitors are not running yet.")
		return
	}
	if err := ctrl.Resume(name); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Monitor %q resumed.", name))
}

func (b *Bot) handleCheck(chatID int64, args string) {
	name, err := ParseNameArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /check <name>")
		return
	}
	ctrl := b.controller()
	if ctrl == nil {
		b.reply(chatID, "Monitors are not running yet.")
		return
	}
	if err := ctrl.Trigger(name); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, fmt.Sprintf("Check of %q scheduled.", name))
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, args string) {
	name, limit, err := ParseRecentArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if b.history == nil {
		b.reply(chatID, "Notification history is not available.")
		return
	}
	ns, err := b.history.ListNotifications(ctx, name, limit)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRecent(name, ns))
}
