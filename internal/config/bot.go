package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// DefaultHomeworkEndpoint is the homework review status API.
const DefaultHomeworkEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// BotConfig configures the homework status bot.
type BotConfig struct {
	PracticumToken   string        `mapstructure:"PRACTICUM_TOKEN"`
	TelegramToken    string        `mapstructure:"TELEGRAM_TOKEN"`
	TelegramChatID   string        `mapstructure:"TELEGRAM_CHAT_ID"`
	TelegramAPIURL   string        `mapstructure:"TELEGRAM_API_URL"`
	HomeworkEndpoint string        `mapstructure:"HOMEWORK_ENDPOINT"`
	RetryTime        time.Duration `mapstructure:"RETRY_TIME"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel         string        `mapstructure:"BOT_LOG_LEVEL"`
	LogFile          string        `mapstructure:"BOT_LOG_FILE"`
}

// LoadBotConfig loads the bot configuration from .env, config files and environment variables.
func LoadBotConfig() (*BotConfig, error) {
	_ = godotenv.Load()

	v, err := newViper()
	if err != nil {
		return nil, err
	}

	v.SetDefault("PRACTICUM_TOKEN", "")
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("TELEGRAM_CHAT_ID", "")
	v.SetDefault("TELEGRAM_API_URL", "https://api.telegram.org")
	v.SetDefault("HOMEWORK_ENDPOINT", DefaultHomeworkEndpoint)
	v.SetDefault("RETRY_TIME", "300s")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BOT_LOG_LEVEL", "info")
	v.SetDefault("BOT_LOG_FILE", "homework-bot.log")

	var cfg BotConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode bot config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bot configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks that every token the bot needs is present.
func (c *BotConfig) Validate() error {
	var errs []error
	if c.PracticumToken == "" {
		errs = append(errs, errors.New("PRACTICUM_TOKEN is required"))
	}
	if c.TelegramToken == "" {
		errs = append(errs, errors.New("TELEGRAM_TOKEN is required"))
	}
	if c.TelegramChatID == "" {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required"))
	}
	if c.RetryTime <= 0 {
		errs = append(errs, errors.New("RETRY_TIME must be positive"))
	}
	return errors.Join(errs...)
}
