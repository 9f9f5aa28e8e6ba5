package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root gateway configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Channels  ChannelsConfig  `yaml:"channels"`
	Provider  ProviderConfig  `yaml:"provider"`
	Languages LanguagesConfig `yaml:"languages"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Redis     RedisConfig     `yaml:"redis"`
	Subjects  []string        `yaml:"subjects"`
	Tasks     []string        `yaml:"tasks"`
}

// ServerConfig holds the ops HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ChannelsConfig holds per-channel transport settings
type ChannelsConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	WebChat  WebChatConfig  `yaml:"webchat"`
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// DiscordConfig holds Discord bot settings
type DiscordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

// WebChatConfig holds the websocket chat settings
type WebChatConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ProviderConfig selects and configures the completion provider
type ProviderConfig struct {
	Type    string       `yaml:"type"` // openai, ollama
	OpenAI  OpenAIConfig `yaml:"openai"`
	Ollama  OllamaConfig `yaml:"ollama"`
	Timeout Duration     `yaml:"timeout"`
}

// OpenAIConfig holds OpenAI provider settings
type OpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"`
}

// OllamaConfig holds Ollama provider settings
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// LanguagesConfig fixes the two answer languages and the speech source language
type LanguagesConfig struct {
	Primary   string `yaml:"primary"`   // language answers are generated in
	Secondary string `yaml:"secondary"` // language answers are translated to and shown first
	Speech    string `yaml:"speech"`    // source language for voice transcription
}

// RateLimitConfig holds sliding-window admission settings
type RateLimitConfig struct {
	Limit  int      `yaml:"limit"`
	Window Duration `yaml:"window"`
}

// CacheConfig bounds the bilingual reply cache
type CacheConfig struct {
	MaxEntries int      `yaml:"max_entries"`
	TTL        Duration `yaml:"ttl"`
}

// SessionsConfig controls idle-session eviction
type SessionsConfig struct {
	IdleTTL       Duration `yaml:"idle_ttl"`
	SweepSchedule string   `yaml:"sweep_schedule"`
}

// RedisConfig holds the user registry backend settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "45s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the config file, then applies env overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 18700},
		Provider:  ProviderConfig{Type: "openai", Timeout: Duration(45 * time.Second)},
		Languages: LanguagesConfig{Primary: "en", Secondary: "am", Speech: "en"},
		RateLimit: RateLimitConfig{Limit: 5, Window: Duration(time.Minute)},
		Cache:     CacheConfig{MaxEntries: 4096, TTL: Duration(24 * time.Hour)},
		Sessions:  SessionsConfig{IdleTTL: Duration(12 * time.Hour), SweepSchedule: "*/30 * * * *"},
		Subjects:  []string{"Math", "Physics", "Chemistry"},
		Tasks:     []string{"worksheet", "homework", "assignment"},
	}
}

// applyEnv lets secrets come from the environment instead of the YAML file
func (c *Config) applyEnv() {
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Channels.Telegram.Token = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Channels.Discord.Token = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Provider.OpenAI.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Provider.Type {
	case "openai":
		if c.Provider.OpenAI.APIKey == "" {
			return fmt.Errorf("provider openai requires an API key")
		}
	case "ollama":
		if c.Provider.Ollama.URL == "" {
			return fmt.Errorf("provider ollama requires a URL")
		}
	default:
		return fmt.Errorf("unsupported provider type: %s", c.Provider.Type)
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window.Std() <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Languages.Primary == "" || c.Languages.Secondary == "" {
		return fmt.Errorf("both answer languages must be set")
	}
	if len(c.Subjects) == 0 {
		return fmt.Errorf("at least one subject is required")
	}
	if c.Channels.Telegram.Enabled && c.Channels.Telegram.Token == "" {
		return fmt.Errorf("telegram channel enabled without a token")
	}
	if c.Channels.Discord.Enabled && c.Channels.Discord.Token == "" {
		return fmt.Errorf("discord channel enabled without a token")
	}
	if c.Channels.WebChat.Enabled && c.Channels.WebChat.Port <= 0 {
		return fmt.Errorf("webchat channel enabled without a port")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis enabled without an address")
	}
	return nil
}
