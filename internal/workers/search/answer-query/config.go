// internal/workers/search/answer-query/config.go
package answerquery

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	MaxAlternates int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       60 * time.Second,
		MaxAlternates: 5,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	if cfg.Pipeline.MaxAlternates > 0 {
		c.MaxAlternates = cfg.Pipeline.MaxAlternates
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
