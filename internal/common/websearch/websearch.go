// Package websearch provides web search providers behind one interface.
package websearch

import (
	"context"
	"errors"
	"fmt"

	"wizkid-search/internal/models"
)

// ErrNotConfigured is returned by a provider that lacks credentials.
var ErrNotConfigured = errors.New("WEB_SEARCH_NOT_CONFIGURED")

// Searcher runs one web query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
}

// Multi queries every provider in order and concatenates their hits.
// It fails only when all providers fail.
type Multi struct {
	providers []Searcher
	logger    Logger
}

func NewMulti(logger Logger, providers ...Searcher) *Multi {
	return &Multi{providers: providers, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of configured providers.
func (m *Multi) Len() int { return len(m.providers) }

func (m *Multi) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if len(m.providers) == 0 {
		return nil, ErrNotConfigured
	}

	var out []models.SearchResult
	var errs []error
	for _, p := range m.providers {
		hits, err := p.Search(ctx, query, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			if m.logger != nil {
				m.logger.Warn("web search provider failed", map[string]interface{}{
					"provider": p.Name(),
					"query":    query,
					"error":    err.Error(),
				})
			}
			continue
		}
		out = append(out, hits...)
	}
	if len(errs) == len(m.providers) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
