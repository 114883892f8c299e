package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is loaded once at process start and injected into every component.
// Values come from config.yaml with environment variables (optionally via a
// .env file) taking precedence.
type Config struct {
	DatabaseURI   string
	HTTPAddr      string
	SessionSecret string

	SchedulerInterval  time.Duration
	EscalationInterval time.Duration
	BackupInterval     time.Duration
	BackupDir          string
	BackupKeep         int

	// Static fallbacks for the settings resolver; DB values win.
	TelegramToken string
	ChatIDs       []int64

	AIAPIKey  string
	AIBaseURL string
	AIModel   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional in production
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetDefault("http_addr", ":8000")
	v.SetDefault("scheduler_interval_sec", 30)
	v.SetDefault("escalation_interval_sec", 3600)
	v.SetDefault("backup_interval_sec", 86400)
	v.SetDefault("backup_path", "data/backups")
	v.SetDefault("backup_keep", 7)
	v.SetDefault("ai_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai_model", "openai/gpt-4o-mini")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// config.yaml is optional; env vars can carry everything
	}

	cfg := &Config{
		DatabaseURI:        getEnvOrDefault("DATABASE_URI", v.GetString("database_uri")),
		HTTPAddr:           getEnvOrDefault("HTTP_ADDR", v.GetString("http_addr")),
		SessionSecret:      getEnvOrDefault("SESSION_SECRET", v.GetString("session_secret")),
		SchedulerInterval:  time.Duration(v.GetInt("scheduler_interval_sec")) * time.Second,
		EscalationInterval: time.Duration(v.GetInt("escalation_interval_sec")) * time.Second,
		BackupInterval:     time.Duration(v.GetInt("backup_interval_sec")) * time.Second,
		BackupDir:          v.GetString("backup_path"),
		BackupKeep:         v.GetInt("backup_keep"),
		TelegramToken:      getEnvOrDefault("TELEGRAM_TOKEN", v.GetString("telegram_token")),
		AIAPIKey:           getEnvOrDefault("AI_API_KEY", v.GetString("ai_api_key")),
		AIBaseURL:          getEnvOrDefault("AI_BASE_URL", v.GetString("ai_base_url")),
		AIModel:            getEnvOrDefault("AI_MODEL", v.GetString("ai_model")),
	}

	for _, id := range v.GetIntSlice("chat_ids") {
		cfg.ChatIDs = append(cfg.ChatIDs, int64(id))
	}
	if raw := os.Getenv("CHAT_IDS"); raw != "" {
		ids, err := parseChatIDs(raw)
		if err != nil {
			return nil, fmt.Errorf("parse CHAT_IDS: %w", err)
		}
		cfg.ChatIDs = ids
	}

	return cfg, nil
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
