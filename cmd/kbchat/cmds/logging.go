package cmds

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/go-go-golems/kbchat/pkg/config"
)

// InitLogger points the global logger at w, or at w plus the log file when
// one is configured.
func InitLogger(cfg config.LoggingConfig, w io.Writer) error {
	var logWriter io.Writer
	switch cfg.Format {
	case "json":
		logWriter = w
	case "console", "text", "":
		logWriter = zerolog.ConsoleWriter{Out: w}
	default:
		return errors.Errorf("unknown log format %q", cfg.Format)
	}

	if cfg.File != "" {
		logWriter = io.MultiWriter(logWriter, fileWriter(cfg.File))
	}
	log.Logger = log.Output(logWriter)

	return setLevel(cfg.Level)
}

// InitFileLogger sends logs only to a file so they do not draw over the
// terminal UI. Without a configured file it uses kbchat.log in the user
// cache directory.
func InitFileLogger(cfg config.LoggingConfig) (string, error) {
	path := cfg.File
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, config.AppName, config.AppName+".log")
	}
	log.Logger = log.Output(fileWriter(path))
	return path, setLevel(cfg.Level)
}

func fileWriter(path string) io.Writer {
	return zerolog.ConsoleWriter{
		NoColor: true,
		Out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		},
	}
}

func setLevel(level string) error {
	switch strings.ToLower(level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		return errors.Errorf("unknown log level %q", level)
	}
	return nil
}
