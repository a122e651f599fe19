// internal/workers/search/rank-results/config.go
package rankresults

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// SignalTimeout bounds every store call; the store is optional.
	SignalTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:       10 * time.Second,
		SignalTimeout: 500 * time.Millisecond,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
