package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/ericksa/keiyakucheck/internal/job"
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}

	// Validate address format and port
	if _, err := net.ResolveTCPAddr("tcp", c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts cannot be negative")
	}

	// Validate LLM configuration
	if c.LLM.Enabled {
		if c.LLM.Endpoint == "" {
			return errors.New("llm endpoint cannot be empty when llm is enabled")
		}
		u, err := url.Parse(c.LLM.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid llm endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid llm endpoint scheme: %q", u.Scheme)
		}
		if c.LLM.Timeout <= 0 {
			return errors.New("llm timeout must be positive")
		}
		if c.LLM.MaxTokens < 0 {
			return errors.New("llm max_tokens cannot be negative")
		}
	}

	// Validate cache configuration
	switch c.Cache.Backend {
	case "memory":
	case "minio":
		if c.Cache.MinIO.Endpoint == "" || c.Cache.MinIO.Bucket == "" {
			return errors.New("cache minio endpoint and bucket are required when backend is minio")
		}
	case "sqlite":
		if c.Cache.Path == "" {
			return errors.New("cache path cannot be empty when backend is sqlite")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	if c.Cache.Capacity <= 0 {
		return errors.New("cache capacity must be positive")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return errors.New("audit path cannot be empty when audit is enabled")
	}

	if c.Analysis.SpeculationTTL <= 0 {
		return errors.New("speculation ttl must be positive")
	}
	if c.Analysis.PruneSchedule != "" {
		if err := job.ValidSchedule(c.Analysis.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule: %w", err)
		}
	}

	if c.Sink.PostgresURL != "" {
		u, err := url.Parse(c.Sink.PostgresURL)
		if err != nil {
			return fmt.Errorf("invalid sink postgres url: %w", err)
		}
		if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			return fmt.Errorf("invalid sink postgres url scheme: %q", u.Scheme)
		}
	}

	return nil
}
