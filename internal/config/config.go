package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dailybrief/internal/domain"
)

const (
	configPathEnv     = "DAILYBRIEF_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	llmAPIKeyEnv      = "LLM_API_KEY"
	llmModelEnv       = "LLM_MODEL"
	smtpPasswordEnv   = "SMTP_PASSWORD"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	elevenLabsKeyEnv  = "ELEVENLABS_API_KEY"
)

// Duration wraps time.Duration so YAML can carry values like "60s".
type Duration time.Duration

// UnmarshalYAML parses a duration string into the wrapped value.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard-library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Mailbox  MailboxConfig  `yaml:"mailbox"`
	LLM      LLMConfig      `yaml:"llm"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Telegram TelegramConfig `yaml:"telegram"`
	Audio    AudioConfig    `yaml:"audio"`
	Briefing BriefingConfig `yaml:"briefing"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Retry    RetryConfig    `yaml:"retry"`
	Sources  []SourceConfig `yaml:"sources"`
}

// LoggingConfig selects log verbosity and output encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN
// disables report persistence.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ScheduleConfig defines the daily trigger time in UTC.
type ScheduleConfig struct {
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// MailboxConfig points at the maildrop directory holding newsletter issues.
type MailboxConfig struct {
	Root string `yaml:"root"`
}

// LLMConfig defines how to contact the language-model API.
type LLMConfig struct {
	Endpoint string   `yaml:"endpoint"`
	Model    string   `yaml:"model"`
	APIKey   string   `yaml:"apiKey"`
	Timeout  Duration `yaml:"timeout"`
}

// SMTPConfig wires all data required to send the digest mail.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
	Admin    []string `yaml:"admin"`
}

// TelegramConfig wires the optional secondary channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// AudioConfig wires the optional spoken rendition.
type AudioConfig struct {
	Enabled bool   `yaml:"enabled"`
	VoiceID string `yaml:"voiceId"`
	APIKey  string `yaml:"apiKey"`
}

// BriefingConfig shapes the rendered digest.
type BriefingConfig struct {
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// PipelineConfig tunes the extraction and ranking stages.
type PipelineConfig struct {
	TopStories          int     `yaml:"topStories"`
	SecondaryStories    int     `yaml:"secondaryStories"`
	SimilarityThreshold float64 `yaml:"similarityThreshold"`
	NoveltyThreshold    float64 `yaml:"noveltyThreshold"`
	MaxSummaryChars     int     `yaml:"maxSummaryChars"`
	CorroborationWeight float64 `yaml:"corroborationWeight"`
	MinDocumentChars    int     `yaml:"minDocumentChars"`
	MaxDocumentChars    int     `yaml:"maxDocumentChars"`
	Workers             int     `yaml:"workers"`
	RequireItems        bool    `yaml:"requireItems"`
}

// RetryConfig tunes the shared backoff policy for outbound calls.
type RetryConfig struct {
	MaxAttempts int      `yaml:"maxAttempts"`
	BaseDelay   Duration `yaml:"baseDelay"`
	MaxDelay    Duration `yaml:"maxDelay"`
}

// SourceConfig describes a single newsletter source.
type SourceConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName"`
	Address     string `yaml:"address"`
	FeedURL     string `yaml:"feedUrl"`
	Kind        string `yaml:"kind"`
	Enabled     *bool  `yaml:"enabled"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// LoadFile reads YAML configuration from an explicit path and applies
// environment overrides. Unlike Load, a broken file is an error.
func LoadFile(path string) (Config, error) {
	cfg := defaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg = mergeConfig(cfg, fileCfg)
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(llmAPIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}

	if v := os.Getenv(llmModelEnv); v != "" {
		c.LLM.Model = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.SMTP.Password = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}

	if v := os.Getenv(elevenLabsKeyEnv); v != "" {
		c.Audio.APIKey = v
	}
}

// Validate reports the settings a delivering run cannot start without.
func (c Config) Validate() error {
	var problems []string

	if c.LLM.APIKey == "" {
		problems = append(problems, "llm.apiKey is empty (set "+llmAPIKeyEnv+")")
	}
	if c.SMTP.Host == "" {
		problems = append(problems, "smtp.host is empty")
	}
	if c.SMTP.From == "" {
		problems = append(problems, "smtp.from is empty")
	}
	if len(c.SMTP.To) == 0 {
		problems = append(problems, "smtp.to has no recipients")
	}
	if len(c.Sources) == 0 {
		problems = append(problems, "sources list is empty")
	}
	for _, src := range c.Sources {
		switch domain.SourceKind(src.Kind) {
		case domain.SourceMailbox, domain.SourceFeed:
		default:
			problems = append(problems, fmt.Sprintf("source %s has unknown kind %q", src.Name, src.Kind))
		}
		if src.Name == "" {
			problems = append(problems, "a source has no name")
		}
	}
	if c.Schedule.Hour < 0 || c.Schedule.Hour > 23 || c.Schedule.Minute < 0 || c.Schedule.Minute > 59 {
		problems = append(problems, fmt.Sprintf("schedule %02d:%02d is not a valid time", c.Schedule.Hour, c.Schedule.Minute))
	}
	if c.Audio.Enabled && (c.Audio.VoiceID == "" || c.Audio.APIKey == "") {
		problems = append(problems, "audio is enabled without voiceId or apiKey (set "+elevenLabsKeyEnv+")")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// DomainSources maps the configured sources into domain values, keeping
// file order. Enabled defaults to true when omitted.
func (c Config) DomainSources() []domain.Source {
	out := make([]domain.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		enabled := true
		if src.Enabled != nil {
			enabled = *src.Enabled
		}
		out = append(out, domain.Source{
			Name:        src.Name,
			DisplayName: src.DisplayName,
			Address:     src.Address,
			FeedURL:     src.FeedURL,
			Kind:        domain.SourceKind(src.Kind),
			Enabled:     enabled,
		})
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Schedule.Hour != 0 || override.Schedule.Minute != 0 {
		base.Schedule = override.Schedule
	}

	if override.Mailbox.Root != "" {
		base.Mailbox = override.Mailbox
	}

	if override.LLM.Endpoint != "" {
		base.LLM.Endpoint = override.LLM.Endpoint
	}
	if override.LLM.Model != "" {
		base.LLM.Model = override.LLM.Model
	}
	if override.LLM.APIKey != "" {
		base.LLM.APIKey = override.LLM.APIKey
	}
	if override.LLM.Timeout != 0 {
		base.LLM.Timeout = override.LLM.Timeout
	}

	if override.SMTP.Host != "" {
		base.SMTP.Host = override.SMTP.Host
	}
	if override.SMTP.Port != 0 {
		base.SMTP.Port = override.SMTP.Port
	}
	if override.SMTP.Username != "" {
		base.SMTP.Username = override.SMTP.Username
	}
	if override.SMTP.Password != "" {
		base.SMTP.Password = override.SMTP.Password
	}
	if override.SMTP.From != "" {
		base.SMTP.From = override.SMTP.From
	}
	if len(override.SMTP.To) > 0 {
		base.SMTP.To = override.SMTP.To
	}
	if len(override.SMTP.Admin) > 0 {
		base.SMTP.Admin = override.SMTP.Admin
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	if override.Audio.Enabled {
		base.Audio.Enabled = true
	}
	if override.Audio.VoiceID != "" {
		base.Audio.VoiceID = override.Audio.VoiceID
	}
	if override.Audio.APIKey != "" {
		base.Audio.APIKey = override.Audio.APIKey
	}

	if override.Briefing.SubjectPrefix != "" {
		base.Briefing.SubjectPrefix = override.Briefing.SubjectPrefix
	}

	base.Pipeline = mergePipeline(base.Pipeline, override.Pipeline)

	if override.Retry.MaxAttempts != 0 {
		base.Retry.MaxAttempts = override.Retry.MaxAttempts
	}
	if override.Retry.BaseDelay != 0 {
		base.Retry.BaseDelay = override.Retry.BaseDelay
	}
	if override.Retry.MaxDelay != 0 {
		base.Retry.MaxDelay = override.Retry.MaxDelay
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func mergePipeline(base, override PipelineConfig) PipelineConfig {
	if override.TopStories != 0 {
		base.TopStories = override.TopStories
	}
	if override.SecondaryStories != 0 {
		base.SecondaryStories = override.SecondaryStories
	}
	if override.SimilarityThreshold != 0 {
		base.SimilarityThreshold = override.SimilarityThreshold
	}
	if override.NoveltyThreshold != 0 {
		base.NoveltyThreshold = override.NoveltyThreshold
	}
	if override.MaxSummaryChars != 0 {
		base.MaxSummaryChars = override.MaxSummaryChars
	}
	if override.CorroborationWeight != 0 {
		base.CorroborationWeight = override.CorroborationWeight
	}
	if override.MinDocumentChars != 0 {
		base.MinDocumentChars = override.MinDocumentChars
	}
	if override.MaxDocumentChars != 0 {
		base.MaxDocumentChars = override.MaxDocumentChars
	}
	if override.Workers != 0 {
		base.Workers = override.Workers
	}
	if override.RequireItems {
		base.RequireItems = true
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Schedule: ScheduleConfig{Hour: 7, Minute: 0},
		Mailbox:  MailboxConfig{Root: "./mailbox"},
		LLM: LLMConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
			Timeout:  Duration(60 * time.Second),
		},
		SMTP:     SMTPConfig{Port: 587},
		Briefing: BriefingConfig{SubjectPrefix: "Daily Brief"},
		Pipeline: PipelineConfig{
			TopStories:          5,
			SecondaryStories:    10,
			SimilarityThreshold: 0.55,
			NoveltyThreshold:    0.5,
			MaxSummaryChars:     600,
			CorroborationWeight: 2,
			MinDocumentChars:    100,
			MaxDocumentChars:    50000,
			Workers:             4,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   Duration(2 * time.Second),
			MaxDelay:    Duration(30 * time.Second),
		},
	}
}
