package utilities

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string        `env:"LOG_LEVEL"`
	Dev    bool          `env:"LOG_DEV"`
	File   string        `env:"LOG_FILE"`
	MaxAge time.Duration `env:"LOG_MAX_AGE" envDefault:"168h"`
}

// ConfigFromEnv reads logger config from env vars. Malformed values fall
// back to production defaults.
func ConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		cfg = Config{MaxAge: 7 * 24 * time.Hour}
	}
	if cfg.Level == "" {
		if cfg.Dev {
			cfg.Level = "debug"
		} else {
			cfg.Level = "info"
		}
	}
	return cfg
}

func levelFromString(l string) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init initializes and returns a *zap.Logger. With cfg.File set, JSON entries
// are also written to a daily rotated file next to a symlink named cfg.File.
func Init(cfg Config) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev && cfg.File == "" {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl),
	}
	if cfg.File != "" {
		w, err := rotatingWriter(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(w), lvl))
	}
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Dev {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func rotatingWriter(cfg Config) (*rotatelogs.RotateLogs, error) {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	w, err := rotatelogs.New(
		cfg.File+".%Y%m%d",
		rotatelogs.WithLinkName(cfg.File),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("open rotating log %s: %w", cfg.File, err)
	}
	return w, nil
}
