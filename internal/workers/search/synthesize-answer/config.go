// internal/workers/search/synthesize-answer/config.go
package synthesizeanswer

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// AttemptTimeout bounds one provider/model attempt.
	AttemptTimeout time.Duration
	FallbackCites  int
	ChunkSize      int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        60 * time.Second,
		AttemptTimeout: 9 * time.Second,
		FallbackCites:  5,
		ChunkSize:      90,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	if cfg.APIs.LLM.Timeout > 0 {
		c.AttemptTimeout = config.GetDuration(cfg.APIs.LLM.Timeout)
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
