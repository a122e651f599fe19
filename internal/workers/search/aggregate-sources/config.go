// internal/workers/search/aggregate-sources/config.go
package aggregatesources

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout               time.Duration
	MaxCitations          int
	PeopleResultsPerQuery int
	TopicResultsPerQuery  int
	// Concurrency bounds simultaneous web queries per request; zero or less
	// means no bound.
	Concurrency int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:               20 * time.Second,
		MaxCitations:          10,
		PeopleResultsPerQuery: 3,
		TopicResultsPerQuery:  4,
		Concurrency:           8,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	p := cfg.Pipeline
	if p.MaxCitations > 0 {
		c.MaxCitations = p.MaxCitations
	}
	if p.PeopleResultsPerQuery > 0 {
		c.PeopleResultsPerQuery = p.PeopleResultsPerQuery
	}
	if p.TopicResultsPerQuery > 0 {
		c.TopicResultsPerQuery = p.TopicResultsPerQuery
	}
	if p.SearchConcurrency > 0 {
		c.Concurrency = p.SearchConcurrency
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
