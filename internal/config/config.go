package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources     map[string]string `yaml:"sources" mapstructure:"sources"`
	Engines     []string          `yaml:"engines" mapstructure:"engines"`
	Data        DataConfig        `yaml:"data" mapstructure:"data"`
	Extract     ExtractConfig     `yaml:"extract" mapstructure:"extract"`
	Annotate    AnnotateConfig    `yaml:"annotate" mapstructure:"annotate"`
	Anthropic   AnthropicConfig   `yaml:"anthropic" mapstructure:"anthropic"`
	Perspective PerspectiveConfig `yaml:"perspective" mapstructure:"perspective"`
	Moderation  ModerationConfig  `yaml:"moderation" mapstructure:"moderation"`
	Filter      FilterConfig      `yaml:"filter" mapstructure:"filter"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// SourceNames returns the configured source names.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	return names
}

// DataConfig locates the on-disk dataset.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ExtractConfig controls which OPs and sentences qualify as questions.
type ExtractConfig struct {
	MinReplies        int `yaml:"min_replies" mapstructure:"min_replies"`
	MaxQuestionLength int `yaml:"max_question_length" mapstructure:"max_question_length"`
}

// AnnotateConfig controls the chunked LLM annotation stages.
type AnnotateConfig struct {
	ChunkSize   int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PerspectiveConfig holds Perspective API settings. Interval paces
// successive calls; BackoffStep is the linear retry increment after a
// rate-limit signal.
type PerspectiveConfig struct {
	Key         string        `yaml:"key" mapstructure:"key"`
	Interval    time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	BackoffStep time.Duration `yaml:"backoff_step" mapstructure:"backoff_step"`
}

// ModerationConfig holds OpenAI moderation API settings.
type ModerationConfig struct {
	Key      string        `yaml:"key" mapstructure:"key"`
	Model    string        `yaml:"model" mapstructure:"model"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

// FilterConfig sets the thresholds for exports and the serve API.
type FilterConfig struct {
	MinCount       int     `yaml:"min_count" mapstructure:"min_count"`
	MustBeExplicit bool    `yaml:"must_be_explicit" mapstructure:"must_be_explicit"`
	MinToxicity    float64 `yaml:"min_toxicity" mapstructure:"min_toxicity"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("QUESTMINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("engines", []string{"google", "bing"})
	v.SetDefault("data.dir", "data")
	v.SetDefault("extract.min_replies", 100)
	v.SetDefault("extract.max_question_length", 500)
	v.SetDefault("annotate.chunk_size", 3)
	v.SetDefault("annotate.max_retries", 5)
	v.SetDefault("annotate.max_tokens", 4096)
	v.SetDefault("annotate.temperature", 0.1)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("perspective.interval", "1s")
	v.SetDefault("perspective.max_retries", 3)
	v.SetDefault("perspective.backoff_step", "10s")
	v.SetDefault("moderation.model", "omni-moderation-latest")
	v.SetDefault("moderation.interval", "1s")
	v.SetDefault("filter.min_count", 20)
	v.SetDefault("filter.must_be_explicit", true)
	v.SetDefault("filter.min_toxicity", 0.2)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
