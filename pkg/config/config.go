package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	AppName   = "kbchat"
	EnvPrefix = "KBCHAT"
)

// Config collects every default the client relies on. Nothing else in the
// module should carry an inline fallback for these values.
type Config struct {
	BaseURL     string        `mapstructure:"base-url"`
	Cookie      string        `mapstructure:"cookie"`
	HTTPTimeout time.Duration `mapstructure:"http-timeout"`

	Token   TokenConfig   `mapstructure:"token"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Banner  BannerConfig  `mapstructure:"banner"`
	Input   InputConfig   `mapstructure:"input"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type TokenConfig struct {
	CookieName string `mapstructure:"cookie-name"`
	Header     string `mapstructure:"header"`
}

type ChatConfig struct {
	DefaultTitle    string `mapstructure:"default-title"`
	WelcomeMessage  string `mapstructure:"welcome-message"`
	AssistantAvatar string `mapstructure:"assistant-avatar"`
	UserInitials    string `mapstructure:"user-initials"`
	TypingID        string `mapstructure:"typing-id"`
}

type BannerConfig struct {
	Visible time.Duration `mapstructure:"visible"`
	Fade    time.Duration `mapstructure:"fade"`
}

type InputConfig struct {
	MaxLines int `mapstructure:"max-lines"`
}

// RedisConfig switches the UI event bus to Redis Streams.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Group    string `mapstructure:"group"`
	Consumer string `mapstructure:"consumer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

const DefaultWelcomeMessage = "Hello! I'm your AI Knowledge Assistant 🤖. I can help you explore topics, " +
	"answer questions, and provide insights. What would you like to know?"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL: "http://localhost:8000",
		Token: TokenConfig{
			CookieName: "csrftoken",
			Header:     "X-CSRFToken",
		},
		Chat: ChatConfig{
			DefaultTitle:    "New Conversation",
			WelcomeMessage:  DefaultWelcomeMessage,
			AssistantAvatar: "/static/images/ai.webp",
			UserInitials:    "U",
			TypingID:        "typingIndicator",
		},
		Banner: BannerConfig{
			Visible: 5 * time.Second,
			Fade:    300 * time.Millisecond,
		},
		Input: InputConfig{MaxLines: 8},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Group:    "kbchat-ui",
			Consumer: "ui-1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SetDefaults registers Default() on v so that file, env and flag layers
// only need to override what they care about.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("base-url", d.BaseURL)
	v.SetDefault("cookie", d.Cookie)
	v.SetDefault("http-timeout", d.HTTPTimeout)
	v.SetDefault("token.cookie-name", d.Token.CookieName)
	v.SetDefault("token.header", d.Token.Header)
	v.SetDefault("chat.default-title", d.Chat.DefaultTitle)
	v.SetDefault("chat.welcome-message", d.Chat.WelcomeMessage)
	v.SetDefault("chat.assistant-avatar", d.Chat.AssistantAvatar)
	v.SetDefault("chat.user-initials", d.Chat.UserInitials)
	v.SetDefault("chat.typing-id", d.Chat.TypingID)
	v.SetDefault("banner.visible", d.Banner.Visible)
	v.SetDefault("banner.fade", d.Banner.Fade)
	v.SetDefault("input.max-lines", d.Input.MaxLines)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.group", d.Redis.Group)
	v.SetDefault("redis.consumer", d.Redis.Consumer)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// Load reads configuration from configPath, or from the first config.yaml
// found in the working directory or $HOME/.kbchat. A missing file is not an
// error; env vars (KBCHAT_BASE_URL, KBCHAT_REDIS_ENABLED, ...) always apply.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+AppName))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base-url is required")
	}
	if c.Chat.TypingID == "" {
		return errors.New("chat.typing-id must not be empty")
	}
	if c.Input.MaxLines < 1 {
		return errors.Errorf("input.max-lines must be at least 1, got %d", c.Input.MaxLines)
	}
	if c.Banner.Visible < 0 || c.Banner.Fade < 0 {
		return errors.New("banner durations must not be negative")
	}
	return nil
}
