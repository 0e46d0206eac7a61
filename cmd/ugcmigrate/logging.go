package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"ugcmigrate/internal/config"
)

const (
	logLevelEnvKey  = "UGCMIGRATE_LOG_LEVEL"
	logFormatEnvKey = "UGCMIGRATE_LOG_FORMAT"
)

// levelChoice is the log level that won, and where it came from.
type levelChoice struct {
	raw    string
	source string // flag, env, config or default
}

// configureLoggerForCLI installs the default slog logger. A bad --log-level
// is an error; a bad env or config value falls back to the default level
// and is reported as a warning line for stderr.
func configureLoggerForCLI(flagLevel, configLevel string) (string, error) {
	format, err := parseLogFormat(os.Getenv(logFormatEnvKey))
	if err != nil {
		return "", err
	}

	envLevel := os.Getenv(logLevelEnvKey)
	choice := selectLogLevel(flagLevel, envLevel, configLevel)
	level, err := parseLogLevel(choice.raw)
	if err == nil {
		slog.SetDefault(newLogger(os.Stderr, level, format))
		return "", nil
	}

	var warning string
	switch choice.source {
	case "flag":
		return "", fmt.Errorf("invalid --log-level %q", flagLevel)
	case "env":
		warning = fmt.Sprintf("warning: invalid %s=%q; defaulting to %s", logLevelEnvKey, envLevel, config.DefaultLogLevel)
	case "config":
		warning = fmt.Sprintf("warning: invalid log_level=%q; defaulting to %s", configLevel, config.DefaultLogLevel)
	}
	level, _ = parseLogLevel("")
	slog.SetDefault(newLogger(os.Stderr, level, format))
	return warning, nil
}

func selectLogLevel(flagLevel, envLevel, configLevel string) levelChoice {
	for _, c := range []levelChoice{
		{raw: flagLevel, source: "flag"},
		{raw: envLevel, source: "env"},
		{raw: configLevel, source: "config"},
	} {
		if strings.TrimSpace(c.raw) != "" {
			return c
		}
	}
	return levelChoice{source: "default"}
}

func parseLogLevel(raw string) (slog.Level, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = config.DefaultLogLevel
	}
	if strings.EqualFold(value, "warning") {
		value = "warn"
	}

	if numeric, err := strconv.Atoi(value); err == nil {
		return slog.Level(numeric), nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// parseLogFormat accepts text (the default) or json. The background server
// started by withClient inherits the environment, so its log file follows
// the same format.
func parseLogFormat(raw string) (string, error) {
	switch value := strings.ToLower(strings.TrimSpace(raw)); value {
	case "", "text":
		return "text", nil
	case "json":
		return "json", nil
	default:
		return "", fmt.Errorf("invalid %s %q (want text or json)", logFormatEnvKey, raw)
	}
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
