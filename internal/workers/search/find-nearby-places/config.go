// internal/workers/search/find-nearby-places/config.go
package findnearbyplaces

import (
	"time"

	"wizkid-search/internal/common/config"
)

const (
	MinRadius     = 800
	MaxRadius     = 15000
	DefaultRadius = 6000
)

type Config struct {
	Timeout         time.Duration
	DefaultRadius   int
	MaxPlaces       int
	GeoapifyLimit   int
	LocateByNetwork bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         15 * time.Second,
		DefaultRadius:   DefaultRadius,
		MaxPlaces:       12,
		GeoapifyLimit:   20,
		LocateByNetwork: true,
	}
}

func NewConfig(cfg *config.Config) *Config {
	c := LoadConfig()
	p := cfg.Pipeline
	if p.DefaultRadius > 0 {
		c.DefaultRadius = ClampRadius(p.DefaultRadius, DefaultRadius)
	}
	if p.MaxPlaces > 0 {
		c.MaxPlaces = p.MaxPlaces
	}
	c.LocateByNetwork = p.LocateByNetwork
	if wc := config.GetWorkerConfig(cfg, TaskType); wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	return c
}

// ClampRadius bounds r to [MinRadius, MaxRadius]; zero or negative means def.
func ClampRadius(r, def int) int {
	if r <= 0 {
		r = def
	}
	if r < MinRadius {
		return MinRadius
	}
	if r > MaxRadius {
		return MaxRadius
	}
	return r
}
