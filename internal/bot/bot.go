package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remind-engine/internal/ai"
	"github.com/hray3182/remind-engine/internal/models"
	"github.com/hray3182/remind-engine/internal/repository"
	"github.com/hray3182/remind-engine/internal/scheduler"
)

// Bot is the command surface over the scheduling engine: every command
// turns into a store mutation followed by a schedule or cancel call.
type Bot struct {
	api   *tgbotapi.BotAPI
	repo  *repository.ReminderRepository
	sched *scheduler.Scheduler
	ai    *ai.Client
}

func New(token string, repo *repository.ReminderRepository, sched *scheduler.Scheduler, aiClient *ai.Client) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return &Bot{api: api, repo: repo, sched: sched, ai: aiClient}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.IsCommand() {
		b.handleCommand(ctx, update.Message)
		return
	}

	// Plain text goes through the natural-language parser.
	b.handleNaturalLanguage(ctx, update.Message)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.handleHelp(msg)
	case "remind":
		b.handleRemind(ctx, msg)
	case "reminders":
		b.handleList(ctx, msg)
	case "done":
		b.handleDone(ctx, msg)
	case "snooze":
		b.handleSnooze(ctx, msg)
	case "off":
		b.handleSetEnabled(ctx, msg, false)
	case "on":
		b.handleSetEnabled(ctx, msg, true)
	case "delete":
		b.handleDelete(ctx, msg)
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command, use /help to see what I understand")
	}
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.sendMessage(msg.Chat.ID, `⏰ Reminder engine

/remind <HH:MM> <title> - one-shot reminder today (or tomorrow if passed)
/reminders - list reminders
/done <id> - mark complete
/snooze <id> <minutes> - defer the next fire
/off <id>, /on <id> - disable / enable
/delete <id> - delete

Anything that is not a command is parsed as natural language, e.g.
"nag me every 10 minutes to stretch, starting at 14:00".`)
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	parts := strings.SplitN(args, " ", 2)
	if len(parts) < 2 {
		b.sendMessage(msg.Chat.ID, "Usage: /remind <HH:MM> <title>\nExample: /remind 15:30 standup")
		return
	}

	at, err := parseTimeToday(parts[0])
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Bad time, use HH:MM (e.g. 15:30)")
		return
	}

	r := &models.Reminder{
		Title:             parts[1],
		Priority:          models.PriorityMedium,
		StartTime:         at,
		OriginalStartTime: at,
		RecurrenceType:    models.RecurrenceNone,
		Enabled:           true,
	}
	b.createAndArm(ctx, msg.Chat.ID, r)
}

func (b *Bot) handleNaturalLanguage(ctx context.Context, msg *tgbotapi.Message) {
	if b.ai == nil {
		b.sendMessage(msg.Chat.ID, "Natural language parsing is not configured, use /remind")
		return
	}

	draft, err := b.ai.ParseReminder(ctx, msg.Text)
	if err != nil {
		log.Printf("Failed to parse reminder request: %v", err)
		b.sendMessage(msg.Chat.ID, "Could not understand that, try /remind <HH:MM> <title>")
		return
	}
	r, err := draft.ToReminder()
	if err != nil {
		log.Printf("Failed to build reminder from draft: %v", err)
		b.sendMessage(msg.Chat.ID, "Could not understand that, try /remind <HH:MM> <title>")
		return
	}
	b.createAndArm(ctx, msg.Chat.ID, r)
}

// createAndArm is the edit boundary: validation happens here, before
// anything is persisted or scheduled.
func (b *Bot) createAndArm(ctx context.Context, chatID int64, r *models.Reminder) {
	if err := r.Validate(); err != nil {
		b.sendMessage(chatID, "Invalid reminder: "+err.Error())
		return
	}
	if err := b.repo.Create(ctx, r); err != nil {
		log.Printf("Failed to create reminder: %v", err)
		b.sendMessage(chatID, "Failed to save the reminder, try again later")
		return
	}
	if err := b.sched.Schedule(ctx, r); err != nil {
		log.Printf("Failed to schedule reminder %d: %v", r.ID, err)
	}
	b.sendMessage(chatID, fmt.Sprintf("⏰ Reminder #%d set for %s\n%s",
		r.ID, r.StartTime.Format("2006-01-02 15:04"), r.Title))
}

func (b *Bot) handleList(ctx context.Context, msg *tgbotapi.Message) {
	reminders, err := b.repo.ListActive(ctx)
	if err != nil {
		log.Printf("Failed to list reminders: %v", err)
		b.sendMessage(msg.Chat.ID, "Failed to fetch reminders, try again later")
		return
	}
	if len(reminders) == 0 {
		b.sendMessage(msg.Chat.ID, "⏰ No reminders")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ Reminders\n\n")
	for _, r := range reminders {
		status := "🔔"
		if r.Completed {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s #%d %s\n", status, r.ID, r.Title))
		if r.ArmedAt != nil {
			sb.WriteString(fmt.Sprintf("   next: %s (%s)\n", r.ArmedAt.Format("2006-01-02 15:04"), r.ArmedKind))
		}
		if r.IsRecurring() {
			sb.WriteString("   🔄 " + string(r.RecurrenceType) + "\n")
		}
	}
	b.sendMessage(msg.Chat.ID, sb.String())
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := b.parseID(msg)
	if !ok {
		return
	}
	if err := b.sched.Complete(ctx, id); err != nil {
		log.Printf("Failed to complete reminder %d: %v", id, err)
		b.sendMessage(msg.Chat.ID, "Failed to complete the reminder")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Reminder #%d completed", id))
}

func (b *Bot) handleSnooze(ctx context.Context, msg *tgbotapi.Message) {
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.sendMessage(msg.Chat.ID, "Usage: /snooze <id> <minutes>")
		return
	}
	id, err1 := strconv.ParseInt(fields[0], 10, 64)
	minutes, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil || minutes <= 0 {
		b.sendMessage(msg.Chat.ID, "Usage: /snooze <id> <minutes>")
		return
	}
	if err := b.sched.Snooze(ctx, id, time.Duration(minutes)*time.Minute); err != nil {
		log.Printf("Failed to snooze reminder %d: %v", id, err)
		b.sendMessage(msg.Chat.ID, "Failed to snooze the reminder")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("😴 Reminder #%d snoozed for %d minutes", id, minutes))
}

func (b *Bot) handleSetEnabled(ctx context.Context, msg *tgbotapi.Message, enabled bool) {
	id, ok := b.parseID(msg)
	if !ok {
		return
	}
	if err := b.sched.SetEnabled(ctx, id, enabled); err != nil {
		log.Printf("Failed to toggle reminder %d: %v", id, err)
		b.sendMessage(msg.Chat.ID, "Failed to update the reminder")
		return
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Reminder #%d %s", id, state))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := b.parseID(msg)
	if !ok {
		return
	}
	if err := b.sched.Delete(ctx, id); err != nil {
		log.Printf("Failed to delete reminder %d: %v", id, err)
		b.sendMessage(msg.Chat.ID, "Failed to delete the reminder")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("🗑 Reminder #%d deleted", id))
}

func (b *Bot) parseID(msg *tgbotapi.Message) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Usage: /"+msg.Command()+" <id>")
		return 0, false
	}
	return id, true
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func parseTimeToday(timeStr string) (time.Time, error) {
	now := time.Now()
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, err
	}

	result := time.Date(now.Year(), now.Month(), now.Day(),
		t.Hour(), t.Minute(), 0, 0, now.Location())

	// If the time already passed today, set for tomorrow
	if result.Before(now) {
		result = result.Add(24 * time.Hour)
	}

	return result, nil
}
