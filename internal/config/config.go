// Package config loads service settings from defaults, an optional YAML
// file, an optional .env file and the environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/joelkehle/property-analysis/internal/completion"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

type Config struct {
	Completion CompletionConfig `yaml:"completion"`
	Jobs       JobsConfig       `yaml:"jobs"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Report     ReportConfig     `yaml:"report"`
}

// CompletionConfig selects and tunes the completion provider. The API key
// is not required here: a missing key fails each request instead.
type CompletionConfig struct {
	Provider        string        `yaml:"provider" validate:"oneof=gemini anthropic"`
	Endpoint        string        `yaml:"endpoint" validate:"omitempty,url"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"api_key"`
	Temperature     float64       `yaml:"temperature" validate:"min=0,max=1"`
	MaxOutputTokens int           `yaml:"max_output_tokens" validate:"min=1,max=8192"`
	Timeout         time.Duration `yaml:"timeout" validate:"min=0"`
	RPM             int           `yaml:"rpm" validate:"min=0"`
	Burst           int           `yaml:"burst" validate:"min=0"`
}

type JobsConfig struct {
	Store       string `yaml:"store" validate:"oneof=memory sqlite"`
	DBPath      string `yaml:"db_path" validate:"required_if=Store sqlite"`
	MaxAttempts int    `yaml:"max_attempts" validate:"min=1,max=5"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file"`
}

type ReportConfig struct {
	PDF        bool   `yaml:"pdf"`
	ChromePath string `yaml:"chrome_path"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Completion: CompletionConfig{
			Provider:        completion.ProviderGemini,
			Temperature:     completion.DefaultTemperature,
			MaxOutputTokens: completion.DefaultMaxOutputTokens,
			Timeout:         completion.DefaultTimeout,
		},
		Jobs: JobsConfig{
			Store:       StoreMemory,
			DBPath:      "property-analysis.db",
			MaxAttempts: 1,
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Report: ReportConfig{PDF: true},
	}
}

// Sources names where Load reads from. Empty File or DotEnv are skipped; a
// DotEnv path that does not exist is ignored.
type Sources struct {
	File   string
	DotEnv string
	Lookup func(key string) (string, bool)
}

// Load builds and validates the configuration. Process environment wins over
// .env values, which win over the YAML file.
func Load(src Sources) (Config, error) {
	cfg := Default()
	if src.File != "" {
		blob, err := os.ReadFile(src.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(blob, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", src.File, err)
		}
	}

	var dotenv map[string]string
	if src.DotEnv != "" {
		m, err := godotenv.Read(src.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read %s: %w", src.DotEnv, err)
		default:
			dotenv = m
		}
	}
	lookup := src.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	env := envReader{lookup: func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}}

	env.setString("COMPLETION_PROVIDER", &cfg.Completion.Provider)
	cfg.Completion.Provider = strings.ToLower(strings.TrimSpace(cfg.Completion.Provider))
	env.setString("COMPLETION_ENDPOINT", &cfg.Completion.Endpoint)
	env.setString("COMPLETION_MODEL", &cfg.Completion.Model)
	switch cfg.Completion.Provider {
	case completion.ProviderAnthropic:
		env.setString("ANTHROPIC_API_KEY", &cfg.Completion.APIKey)
	default:
		env.setString("GEMINI_API_KEY", &cfg.Completion.APIKey)
	}
	env.setFloat("COMPLETION_TEMPERATURE", &cfg.Completion.Temperature)
	env.setInt("COMPLETION_MAX_OUTPUT_TOKENS", &cfg.Completion.MaxOutputTokens)
	env.setDuration("COMPLETION_TIMEOUT", &cfg.Completion.Timeout)
	env.setInt("COMPLETION_RPM", &cfg.Completion.RPM)
	env.setInt("COMPLETION_BURST", &cfg.Completion.Burst)
	env.setString("JOB_STORE", &cfg.Jobs.Store)
	env.setString("DB_PATH", &cfg.Jobs.DBPath)
	env.setInt("JOB_MAX_ATTEMPTS", &cfg.Jobs.MaxAttempts)
	if port, ok := env.lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		cfg.Server.Addr = ":" + strings.TrimSpace(port)
	}
	env.setString("LISTEN_ADDR", &cfg.Server.Addr)
	env.setString("LOG_LEVEL", &cfg.Log.Level)
	env.setString("LOG_FORMAT", &cfg.Log.Format)
	env.setString("LOG_FILE", &cfg.Log.File)
	env.setBool("PDF_ENABLED", &cfg.Report.PDF)
	env.setString("CHROME_PATH", &cfg.Report.ChromePath)
	if len(env.errs) > 0 {
		return Config{}, errors.Join(env.errs...)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the field constraints declared in struct tags.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Settings converts the completion section for completion.New.
func (c CompletionConfig) Settings() completion.Settings {
	return completion.Settings{
		Endpoint:        c.Endpoint,
		Model:           c.Model,
		APIKey:          c.APIKey,
		Temperature:     c.Temperature,
		MaxOutputTokens: c.MaxOutputTokens,
		Timeout:         c.Timeout,
	}
}

// MaskedAPIKey shows only the last four characters of the key.
func (c CompletionConfig) MaskedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) <= 4 {
		return "***"
	}
	return "***" + c.APIKey[len(c.APIKey)-4:]
}

// envReader applies set variables onto fields and collects parse errors.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	if v, ok := e.value(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) setFloat(key string, dst *float64) {
	if v, ok := e.value(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = f
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	if v, ok := e.value(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	if v, ok := e.value(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
