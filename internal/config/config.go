package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const defaultPolicyTTLSeconds = 30

type Config struct {
	DiscordToken      string          `yaml:"discord_token"       envconfig:"DISCORD_TOKEN"`
	DatabaseURL       string          `yaml:"database_url"        envconfig:"DATABASE_URL"`
	LogLevel          string          `yaml:"log_level"           envconfig:"LOG_LEVEL"`
	RetentionDays     int             `yaml:"retention_days"      envconfig:"RETENTION_DAYS"`
	Prefixes          []string        `yaml:"prefixes"            envconfig:"PREFIXES"`
	OwnerID           string          `yaml:"owner_id"            envconfig:"OWNER_ID"`
	PrivateMode       bool            `yaml:"private_mode"        envconfig:"PRIVATE_MODE"`
	ExclusiveUsers    []string        `yaml:"exclusive_users"     envconfig:"EXCLUSIVE_USERS"`
	DMAllowedCommands []string        `yaml:"dm_allowed_commands" envconfig:"DM_ALLOWED_COMMANDS"`
	TriggerWords      []string        `yaml:"trigger_words"       envconfig:"TRIGGER_WORDS"`
	BotNicknames      []string        `yaml:"bot_nicknames"       envconfig:"BOT_NICKNAMES"`
	Profanity         ProfanityConfig `yaml:"profanity"           envconfig:"PROFANITY"`
	PolicyCache       CacheConfig     `yaml:"policy_cache"        envconfig:"POLICY_CACHE"`
	Health            HealthConfig    `yaml:"health"              envconfig:"HEALTH"`
	Notifications     NotifyConfig    `yaml:"notifications"       envconfig:"NOTIFICATIONS"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Addr    string `yaml:"addr"    envconfig:"ADDR"`
}

type ProfanityConfig struct {
	ExtraWords     []string `yaml:"extra_words"     envconfig:"EXTRA_WORDS"`
	FalsePositives []string `yaml:"false_positives" envconfig:"FALSE_POSITIVES"`
}

type CacheConfig struct {
	Size       int `yaml:"size"        envconfig:"SIZE"`
	TTLSeconds int `yaml:"ttl_seconds" envconfig:"TTL_SECONDS"`
}

type NotifyConfig struct {
	// LogChannelID receives WARN and CRIT audit events. Empty disables it.
	LogChannelID string      `yaml:"log_channel_id" envconfig:"LOG_CHANNEL_ID"`
	EmbedColors  EmbedColors `yaml:"embed_colors"   envconfig:"EMBED_COLORS"`
}

type EmbedColors struct {
	Action  int `yaml:"action"  envconfig:"ACTION"`
	Warning int `yaml:"warning" envconfig:"WARNING"`
	Error   int `yaml:"error"   envconfig:"ERROR"`
}

func DefaultConfig() Config {
	return Config{
		DatabaseURL:       "sqlite:///data/sentinel.db",
		LogLevel:          "info",
		RetentionDays:     30,
		Prefixes:          []string{"!"},
		DMAllowedCommands: []string{"help", "ping", "roll"},
		TriggerWords:      []string{"stupid", "retard", "dumb", "idiot", "useless", "shut up"},
		BotNicknames:      []string{"bot"},
		PolicyCache:       CacheConfig{Size: 1024, TTLSeconds: defaultPolicyTTLSeconds},
		Health:            HealthConfig{Enabled: false, Addr: ":8080"},
		Notifications: NotifyConfig{
			EmbedColors: EmbedColors{
				Action:  0xF59E0B,
				Warning: 0xEF4444,
				Error:   0xF97316,
			},
		},
	}
}

// Load reads the file named by CONFIG_PATH (default config.yaml), applies the
// environment on top and requires a bot token.
func Load() (Config, error) {
	cfg, err := LoadFrom(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFrom is Load without the token check. A missing file is not an error.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	normalize(&cfg)
	if len(cfg.Prefixes) == 0 {
		return Config{}, errors.New("at least one command prefix is required")
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Prefixes = cleanList(cfg.Prefixes, false)
	// Longest first so "!!" wins over "!" when both are configured.
	sort.SliceStable(cfg.Prefixes, func(i, j int) bool {
		return len(cfg.Prefixes[i]) > len(cfg.Prefixes[j])
	})
	cfg.ExclusiveUsers = cleanList(cfg.ExclusiveUsers, false)
	cfg.DMAllowedCommands = cleanList(cfg.DMAllowedCommands, true)
	cfg.TriggerWords = cleanList(cfg.TriggerWords, true)
	cfg.BotNicknames = cleanList(cfg.BotNicknames, true)
	cfg.Profanity.ExtraWords = cleanList(cfg.Profanity.ExtraWords, true)
	cfg.Profanity.FalsePositives = cleanList(cfg.Profanity.FalsePositives, true)
	if cfg.PolicyCache.Size <= 0 {
		cfg.PolicyCache.Size = 1024
	}
	// The cache never expires entries with a zero TTL.
	if cfg.PolicyCache.TTLSeconds <= 0 {
		cfg.PolicyCache.TTLSeconds = defaultPolicyTTLSeconds
	}
}

func cleanList(values []string, lower bool) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if lower {
			value = strings.ToLower(value)
		}
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
