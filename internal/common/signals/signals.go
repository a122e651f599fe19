// Package signals stores learned ranking feedback: per-domain show and
// click counters and per-query entity preferences.
package signals

import (
	"context"
	"strings"

	"wizkid-search/internal/common/textsim"
	"wizkid-search/internal/models"
)

// DomainCounters are the impressions and clicks recorded for a host.
type DomainCounters struct {
	Shows  int64 `json:"shows"`
	Clicks int64 `json:"clicks"`
}

// Store is the read and write side of the bias model. A failing store is
// treated by callers as empty.
type Store interface {
	Counters(ctx context.Context, hosts []string) (map[string]DomainCounters, error)
	RecordShown(ctx context.Context, hosts ...string) error
	RecordClicked(ctx context.Context, host string) error
	LoadBias(ctx context.Context, query string) (models.Bias, error)
	Prefer(ctx context.Context, query, name string) error
	Avoid(ctx context.Context, query, name string) error
	Close() error
}

const (
	kindPrefer = "prefer"
	kindAvoid  = "avoid"
)

// Host normalizes a host or URL to the counter key form: lowercase with a
// leading "www." removed.
func Host(hostOrURL string) string {
	if strings.Contains(hostOrURL, "://") {
		return models.DomainOf(hostOrURL)
	}
	h := strings.ToLower(strings.TrimSpace(hostOrURL))
	return strings.TrimPrefix(h, "www.")
}

// DomainKey is the Redis hash key for a host's counters.
func DomainKey(host string) string {
	return "wizkid:dom:ctr:" + Host(host)
}

// EntityKey is the Redis sorted set key for a query's prefer or avoid list.
func EntityKey(query, kind string) string {
	return "wizkid:ent:" + textsim.Normalize(query) + ":" + kind
}

// Noop is a Store that records nothing and returns zero values.
type Noop struct{}

func (Noop) Counters(context.Context, []string) (map[string]DomainCounters, error) {
	return map[string]DomainCounters{}, nil
}

func (Noop) RecordShown(context.Context, ...string) error { return nil }
func (Noop) RecordClicked(context.Context, string) error { return nil }
func (Noop) LoadBias(context.Context, string) (models.Bias, error) { return models.NewBias(), nil }
func (Noop) Prefer(context.Context, string, string) error { return nil }
func (Noop) Avoid(context.Context, string, string) error { return nil }
func (Noop) Close() error { return nil }

func uniqueHosts(hosts []string) []string {
	seen := make(map[string]bool, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = Host(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
