package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURI    string
	TelegramToken  string
	TelegramChatID int64
	AIAPIKey       string
	AIBaseURL      string
	AIModel        string

	// FirePastOneShots makes a never-fired one-shot whose time already
	// passed fire immediately on startup instead of staying dormant.
	FirePastOneShots bool
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	firePast, _ := strconv.ParseBool(getEnvOrDefault("FIRE_PAST_ONE_SHOTS", "false"))

	return &Config{
		DatabaseURI:      os.Getenv("DATABASE_URI"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID:   chatID,
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIBaseURL:        getEnvOrDefault("AI_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:          getEnvOrDefault("AI_MODEL", "openai/gpt-4o-mini"),
		FirePastOneShots: firePast,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
