package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete keiyakucheck configuration.
// The structure matches config.yaml and every key can be overridden by a
// KEIYAKU_ prefixed environment variable (KEIYAKU_LLM_API_KEY, ...).
type Config struct {
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	LLM      LLMConfig      `json:"llm" mapstructure:"llm"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Audit    AuditConfig    `json:"audit" mapstructure:"audit"`
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis"`
	Sink     SinkConfig     `json:"sink" mapstructure:"sink"`
}

// ServerConfig contains gateway configuration

type ServerConfig struct {
	Addr         string        `json:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	CORSOrigins  []string      `json:"cors_origins" mapstructure:"cors_origins"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint

type LLMConfig struct {
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	Endpoint  string        `json:"endpoint" mapstructure:"endpoint"`
	Model     string        `json:"model" mapstructure:"model"`
	APIKey    string        `json:"api_key" mapstructure:"api_key"`
	MaxTokens int           `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
}

// CacheConfig selects the report cache backend

type CacheConfig struct {
	Backend  string      `json:"backend" mapstructure:"backend"`
	Path     string      `json:"path" mapstructure:"path"`
	Capacity int         `json:"capacity" mapstructure:"capacity"`
	MinIO    MinIOConfig `json:"minio" mapstructure:"minio"`
}

// MinIOConfig is used by the minio cache backend

type MinIOConfig struct {
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
	Prefix    string `json:"prefix" mapstructure:"prefix"`
	UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
}

type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

type AnalysisConfig struct {
	SpeculationTTL time.Duration `json:"speculation_ttl" mapstructure:"speculation_ttl"`
	PruneSchedule  string        `json:"prune_schedule" mapstructure:"prune_schedule"`
}

// SinkConfig names the relational store that receives final reports. An
// empty URL disables it.
type SinkConfig struct {
	PostgresURL string `json:"postgres_url" mapstructure:"postgres_url"`
}

// Load loads the configuration from config.yaml (in . or
// $HOME/.keiyakucheck), .env and the environment.
func Load() (*Config, error) {
	// Load .env first (ignore error if not present)
	_ = godotenv.Load()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.keiyakucheck")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults")
		} else {
			return nil, err
		}
	}
	return decode(v)
}

// LoadFile loads the configuration from an explicit file, still applying
// defaults and environment overrides.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("KEIYAKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Resolve paths (expand ~)
	cfg.Cache.Path = resolvePath(cfg.Cache.Path)
	cfg.Audit.Path = resolvePath(cfg.Audit.Path)
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "240s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// LM Studio's local server speaks the OpenAI protocol
	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.endpoint", "http://localhost:1234")
	v.SetDefault("llm.model", "local-model")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", "180s")

	v.SetDefault("cache.backend", "sqlite")
	v.SetDefault("cache.path", "~/.keiyakucheck/cache.db")
	v.SetDefault("cache.capacity", 100)
	v.SetDefault("cache.minio.endpoint", "localhost:9000")
	v.SetDefault("cache.minio.bucket", "keiyakucheck")
	v.SetDefault("cache.minio.prefix", "cache")
	v.SetDefault("cache.minio.use_ssl", false)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.path", "~/.keiyakucheck/audit.db")

	v.SetDefault("analysis.speculation_ttl", "30m")
	v.SetDefault("analysis.prune_schedule", "@every 5m")

	v.SetDefault("sink.postgres_url", "")
}

// resolvePath resolves ~ to home directory and cleans the path
func resolvePath(p string) string {
	if p == "" || p == ":memory:" {
		return p
	}
	if p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(p)
}
