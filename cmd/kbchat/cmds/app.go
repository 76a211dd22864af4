package cmds

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/kbchat/pkg/api"
	"github.com/go-go-golems/kbchat/pkg/config"
	"github.com/go-go-golems/kbchat/pkg/token"
)

// App carries what every subcommand needs: the loaded configuration and a
// way to build an API client from it.
type App struct {
	v          *viper.Viper
	configPath string
	Config     *config.Config
}

func NewApp() *App {
	return &App{v: viper.New()}
}

// flagKeys maps persistent flags to their config keys.
var flagKeys = map[string]string{
	"base-url":      "base-url",
	"cookie":        "cookie",
	"http-timeout":  "http-timeout",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"log-file":      "logging.file",
	"redis-enabled": "redis.enabled",
	"redis-addr":    "redis.addr",
}

func (a *App) AddPersistentFlags(cmd *cobra.Command) error {
	d := config.Default()
	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to the config file (default ./config.yaml or $HOME/.kbchat/config.yaml)")
	f.String("base-url", d.BaseURL, "Root URL of the assistant service")
	f.String("cookie", "", "Cookie string to start with, e.g. \"sessionid=...; csrftoken=...\"")
	f.Duration("http-timeout", d.HTTPTimeout, "Timeout for API requests (0 for none)")
	f.String("log-level", d.Logging.Level, "Log level (debug, info, warn, error)")
	f.String("log-format", d.Logging.Format, "Log format (console, json)")
	f.String("log-file", d.Logging.File, "Write logs to this file")
	f.Bool("redis-enabled", d.Redis.Enabled, "Publish UI events on Redis Streams")
	f.String("redis-addr", d.Redis.Addr, "Redis address for the UI event stream")

	for name, key := range flagKeys {
		if err := a.v.BindPFlag(key, f.Lookup(name)); err != nil {
			return errors.Wrapf(err, "bind flag %s", name)
		}
	}
	return nil
}

// Load reads the configuration and sets up logging on stderr.
func (a *App) Load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.Config = cfg

	if err := InitLogger(cfg.Logging, os.Stderr); err != nil {
		return err
	}
	log.Debug().
		Str("config", a.v.ConfigFileUsed()).
		Str("command", cmd.Name()).
		Str("base_url", cfg.BaseURL).
		Msg("Loaded configuration")
	return nil
}

// NewClient builds an API client whose anti-forgery token is read from its
// own cookie jar, seeded with the configured cookie string.
func (a *App) NewClient() (*api.Client, error) {
	if a.Config == nil {
		return nil, errors.New("configuration not loaded")
	}
	cfg := a.Config

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	token.Seed(jar, base, cfg.Cookie)

	return api.NewClient(cfg.BaseURL,
		api.WithHTTPClient(&http.Client{Jar: jar}),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithTokenHeader(cfg.Token.Header),
		api.WithTokenProvider(token.JarProvider{Jar: jar, URL: base, Name: cfg.Token.CookieName}),
	)
}
