// internal/workers/search/aggregate-sources/handler.go
package aggregatesources

import (
	"context"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
)

const (
	TaskType = "aggregate-sources"
)

type Handler struct {
	config *Config
	web    WebSearcher
	kg     KnowledgeGraph
	wiki   Encyclopedia
	logger logger.Logger
}

func NewHandler(config *Config, web WebSearcher, kg KnowledgeGraph, wiki Encyclopedia, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		web:    web,
		kg:     kg,
		wiki:   wiki,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, errors.NewInvalidRequestError("subject is required")
	}
	cites, err := h.Aggregate(ctx, input)
	if err != nil {
		return nil, err
	}
	return &Output{Citations: cites}, nil
}

// Queries returns the web queries for an intent, in merge order, and the
// result count per query.
func (h *Handler) Queries(subject string, intent models.Intent) ([]string, int) {
	if intent == models.IntentPeople {
		return []string{
			subject,
			subject + " biography",
			subject + " achievements",
			"site:wikipedia.org " + subject,
			"site:linkedin.com " + subject,
			"site:instagram.com " + subject,
			"site:facebook.com " + subject,
		}, h.config.PeopleResultsPerQuery
	}
	return []string{
		subject,
		subject + " official site",
		subject + " overview",
		subject + " directors",
		subject + " team",
		"site:wikipedia.org " + subject,
		"site:linkedin.com " + subject,
	}, h.config.TopicResultsPerQuery
}

// Aggregate collects citations for subject. Knowledge-graph links come
// first, then web results in query order. Only cancellation is an error.
func (h *Handler) Aggregate(ctx context.Context, input *Input) ([]models.Citation, error) {
	subject := strings.TrimSpace(input.Subject)
	var prelim []models.Citation

	for _, link := range h.officialLinks(ctx, subject, input).Ordered() {
		prelim = append(prelim, models.Citation{Title: link.Label, URL: link.URL})
	}

	if h.web != nil {
		queries, limit := h.Queries(subject, input.Intent)
		results := make([][]models.SearchResult, len(queries))

		g, gctx := errgroup.WithContext(ctx)
		if h.config.Concurrency > 0 {
			g.SetLimit(h.config.Concurrency)
		}
		for i, q := range queries {
			i, q := i, q
			g.Go(func() error {
				err := errors.Safely(func() error {
					hits, err := h.web.Search(gctx, q, limit)
					results[i] = hits
					return err
				})
				if err != nil {
					results[i] = nil
					h.logger.Debug("web query failed", map[string]interface{}{"query": q, "error": err.Error()})
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, hits := range results {
			for _, r := range hits {
				prelim = append(prelim, models.Citation{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cites := Dedupe(prelim, h.config.MaxCitations)
	if len(cites) == 0 && h.wiki != nil {
		summary, err := h.wiki.Summary(ctx, subject)
		if err != nil {
			h.logger.Debug("fallback summary failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		} else if summary != nil {
			cites = Dedupe([]models.Citation{{Title: summary.Title, URL: summary.URL, Snippet: summary.Extract}}, 1)
		}
	}

	h.logger.Debug("sources aggregated", map[string]interface{}{
		"subject":   subject,
		"intent":    input.Intent,
		"citations": len(cites),
	})
	return cites, nil
}

func (h *Handler) officialLinks(ctx context.Context, subject string, input *Input) models.Links {
	if input.Links != nil {
		return *input.Links
	}
	if input.Intent != models.IntentCompany || h.kg == nil {
		return models.Links{}
	}
	links, err := h.kg.OfficialLinks(ctx, subject)
	if err != nil {
		h.logger.Debug("knowledge graph lookup failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		return models.Links{}
	}
	return links
}

// Dedupe drops entries whose canonical URL was already seen, fills the
// domain, caps the list and numbers it 1..n.
func Dedupe(prelim []models.Citation, max int) []models.Citation {
	seen := make(map[string]bool, len(prelim))
	out := make([]models.Citation, 0, max)
	for _, c := range prelim {
		if len(out) >= max {
			break
		}
		if c.URL == "" {
			continue
		}
		key := models.CanonicalURL(c.URL)
		if seen[key] {
			continue
		}
		seen[key] = true
		if c.Title == "" {
			c.Title = c.URL
		}
		c.Domain = models.DomainOf(c.URL)
		out = append(out, c)
	}
	return models.Renumber(out)
}
