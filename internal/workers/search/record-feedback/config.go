// internal/workers/search/record-feedback/config.go
package recordfeedback

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// PublishEventType is the SNS eventType attribute of feedback records.
	PublishEventType string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		PublishEventType: "answer.feedback",
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
