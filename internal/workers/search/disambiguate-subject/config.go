// internal/workers/search/disambiguate-subject/config.go
package disambiguatesubject

import (
	"time"

	"wizkid-search/internal/common/config"
)

type Config struct {
	Timeout           time.Duration
	ConfidentMatch    float64
	MaxAlternates     int
	EncyclopediaLimit int
	WebResultsPerSite int
	PageviewDays      int
	PoolSize          int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:           20 * time.Second,
		ConfidentMatch:    0.85,
		MaxAlternates:     5,
		EncyclopediaLimit: 6,
		WebResultsPerSite: 3,
		PageviewDays:      60,
		PoolSize:          16,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	p := cfg.Pipeline
	if p.ConfidentMatch > 0 {
		c.ConfidentMatch = p.ConfidentMatch
	}
	if p.MaxAlternates > 0 {
		c.MaxAlternates = p.MaxAlternates
	}
	if p.EncyclopediaResults > 0 {
		c.EncyclopediaLimit = p.EncyclopediaResults
	}
	if p.PeopleResultsPerQuery > 0 {
		c.WebResultsPerSite = p.PeopleResultsPerQuery
	}
	if p.EnrichmentPoolSize > 0 {
		c.PoolSize = p.EnrichmentPoolSize
	}
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}
