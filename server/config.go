package haptics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is read from the environment, an optional JSON file
// of the same variable names fills in anything the environment leaves out.
type Config struct {
	Addr         string        `env:"HAPTICS_ADDR, default=:8090"`
	Engine       string        `env:"HAPTICS_ENGINE, default=log"`
	MIDIPort     int           `env:"HAPTICS_MIDI_PORT, default=0"`
	MIDIRoot     uint8         `env:"HAPTICS_MIDI_ROOT, default=48"`
	HistoryPath  string        `env:"HAPTICS_HISTORY_PATH"`
	HistoryBatch int           `env:"HAPTICS_HISTORY_BATCH, default=16"`
	FlushEvery   time.Duration `env:"HAPTICS_HISTORY_FLUSH, default=5s"`
	OTel         string        `env:"HAPTICS_OTEL, default=none"`
	LogLevel     string        `env:"HAPTICS_LOG_LEVEL, default=info"`
}

var (
	engineNames = []string{"log", "midi", "terminal", "none"}
	otelModes   = []string{"none", "honeycomb", "grafana"}
)

// LoadConfig reads the environment, then the file if one is named
func LoadConfig(ctx context.Context, filename string) (*Config, error) {
	lookuper := envconfig.OsLookuper()

	if filename != "" {
		fileVars, err := LoadConfigFileName(filename)
		if err != nil {
			return nil, err
		}
		lookuper = envconfig.MultiLookuper(lookuper, envconfig.MapLookuper(fileVars))
	}

	return LoadConfigWith(ctx, lookuper)
}

// LoadConfigWith processes and validates config from any lookuper
func LoadConfigWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var c Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &c,
		Lookuper: l,
	}); err != nil {
		slog.Error("could not process config", slog.Any("error", err))
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := c.Validate(); err != nil {
		slog.Error("Validation failed", slog.Any("error", err))
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no component can use
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(engineNames, c.Engine) {
		errs = append(errs, fmt.Errorf("unknown engine %q, want one of %s", c.Engine, strings.Join(engineNames, ", ")))
	}
	if !slices.Contains(otelModes, c.OTel) {
		errs = append(errs, fmt.Errorf("unknown otel mode %q, want one of %s", c.OTel, strings.Join(otelModes, ", ")))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HistoryBatch < 1 {
		errs = append(errs, fmt.Errorf("history batch must be positive, got %d", c.HistoryBatch))
	}
	if c.FlushEvery <= 0 {
		errs = append(errs, fmt.Errorf("history flush interval must be positive, got %v", c.FlushEvery))
	}
	return errors.Join(errs...)
}

// ParseLogLevel accepts debug, info, warn and error
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}

// LoadConfigFileName pulls a given filename config off local disk.
// The file is a flat JSON object of variable names to values.
// Validation is performed on the file before decoding.
func LoadConfigFileName(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := validateLoad(file); err != nil {
		slog.Error("Validation failed", slog.Any("error", err))
		return nil, err
	}

	var vars map[string]string
	if err := json.NewDecoder(file).Decode(&vars); err != nil {
		slog.Error("could not decode file", slog.String("file", filename))
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	return vars, nil
}

func validateLoad(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		slog.Error("could not stat file")
		return err
	}

	if info.Size() == 0 {
		slog.Error("file is empty")
		return errors.New("file is empty")
	}

	return nil
}
