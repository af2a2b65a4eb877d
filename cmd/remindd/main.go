package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hray3182/remind-engine/internal/ai"
	"github.com/hray3182/remind-engine/internal/alarm"
	"github.com/hray3182/remind-engine/internal/bot"
	"github.com/hray3182/remind-engine/internal/config"
	"github.com/hray3182/remind-engine/internal/database"
	"github.com/hray3182/remind-engine/internal/notify"
	"github.com/hray3182/remind-engine/internal/repository"
	"github.com/hray3182/remind-engine/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	if cfg.TelegramChatID == 0 {
		log.Fatal("TELEGRAM_CHAT_ID is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	repo := repository.NewReminderRepository(db)

	notifier, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}

	// Wake-up fires route back into the dispatcher; the indirection
	// breaks the construction cycle between the alarm service and the
	// scheduler it ultimately calls.
	var dispatcher *scheduler.Dispatcher
	alarms := alarm.NewTimerService(func(ev scheduler.FireEvent) {
		fireCtx, fireCancel := context.WithTimeout(ctx, 30*time.Second)
		defer fireCancel()
		if err := dispatcher.HandleFire(fireCtx, ev); err != nil {
			log.Printf("Failed to handle fire for reminder %d: %v", ev.ReminderID, err)
		}
	})
	defer alarms.Shutdown()

	sched := scheduler.New(repo, alarms)
	sched.FirePastOneShots = cfg.FirePastOneShots
	dispatcher = scheduler.NewDispatcher(repo, sched, notifier)

	// The wake-up service holds nothing across restarts; re-arm every
	// enabled reminder before the bot starts taking commands.
	if err := sched.Reboot(ctx); err != nil {
		log.Fatalf("Failed to re-arm reminders: %v", err)
	}

	var aiClient *ai.Client
	if cfg.AIAPIKey != "" {
		aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
		log.Printf("AI client initialized (model: %s)", cfg.AIModel)
	} else {
		log.Println("AI client not configured, natural language parsing disabled")
	}

	b, err := bot.New(cfg.TelegramToken, repo, sched, aiClient)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Starting bot...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}
