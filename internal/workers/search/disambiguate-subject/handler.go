// internal/workers/search/disambiguate-subject/handler.go
package disambiguatesubject

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/panjf2000/ants/v2"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/textsim"
	"wizkid-search/internal/models"
)

const (
	TaskType = "disambiguate-subject"
)

// Site-restricted queries for people without an encyclopedia entry.
var socialSites = []string{"linkedin.com/in", "instagram.com", "facebook.com", "x.com"}

// Web mentions add pulseWeight each to fame, counting at most pulseResults.
const (
	pulseWeight  = 50
	pulseResults = 3
)

var (
	handlePattern = regexp.MustCompile(`^(.+?)\s*\(@`)
	dashPattern   = regexp.MustCompile(`^(.+?)(?:\s+-\s|\s*\|)`)
	sitePattern   = regexp.MustCompile(`(?i)\s*(\||•|-)\s*(linkedin|instagram|facebook|x|twitter)\s*$`)
)

type Handler struct {
	config *Config
	wiki   Encyclopedia
	kg     KnowledgeGraph
	web    WebSearcher
	og     PreviewFetcher
	pool   *ants.Pool
	logger logger.Logger
}

// NewHandler creates the enrichment pool. Close releases it.
func NewHandler(config *Config, wiki Encyclopedia, kg KnowledgeGraph, web WebSearcher, og PreviewFetcher, log logger.Logger) (*Handler, error) {
	pool, err := ants.NewPool(config.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("create enrichment pool: %w", err)
	}
	return &Handler{
		config: config,
		wiki:   wiki,
		kg:     kg,
		web:    web,
		og:     og,
		pool:   pool,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Close() {
	h.pool.Release()
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, errors.NewInvalidRequestError("subject is required")
	}
	return h.Disambiguate(ctx, subject)
}

// Disambiguate resolves subject to candidate entities. Source failures
// reduce the candidate set; they are never returned as errors.
func (h *Handler) Disambiguate(ctx context.Context, subject string) (*Output, error) {
	candidates := h.fromEncyclopedia(ctx, subject)
	if len(candidates) == 0 {
		candidates = h.fromWebSearch(ctx, subject)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Gate(candidates, subject, h.config.ConfidentMatch, h.config.MaxAlternates), nil
}

// Gate sorts candidates by similarity to subject and splits them into a
// confident primary and alternates. Alternates are capped only when a
// primary was chosen; without one every candidate is offered.
func Gate(candidates []models.Candidate, subject string, threshold float64, maxAlternates int) *Output {
	sorted := make([]models.Candidate, len(candidates))
	copy(sorted, candidates)
	for i := range sorted {
		sorted[i].Similarity = textsim.Similarity(subject, sorted[i].Name)
	}
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Similarity > sorted[b].Similarity })

	out := &Output{Alternates: []models.Candidate{}}
	rest := sorted
	if len(sorted) > 0 && sorted[0].Similarity >= threshold {
		primary := sorted[0]
		out.Primary = &primary
		rest = sorted[1:]
		if maxAlternates >= 0 && len(rest) > maxAlternates {
			rest = rest[:maxAlternates]
		}
	}
	out.Alternates = append(out.Alternates, rest...)
	return out
}

func (h *Handler) fromEncyclopedia(ctx context.Context, subject string) []models.Candidate {
	hits, err := h.wiki.Search(ctx, subject, h.config.EncyclopediaLimit)
	if err != nil {
		h.logger.Warn("encyclopedia search failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	out := make([]models.Candidate, len(hits))
	for i, hit := range hits {
		out[i] = models.Candidate{
			Name:        hit.Title,
			Description: hit.Snippet,
			URL:         hit.URL,
			Links:       models.Links{Wiki: hit.URL},
			Source:      "wikipedia",
		}
	}

	h.each(ctx, len(out), func(i int) {
		h.enrich(ctx, &out[i])
	})
	return out
}

func (h *Handler) enrich(ctx context.Context, c *models.Candidate) {
	if summary, err := h.wiki.Summary(ctx, c.Name); err != nil {
		h.logger.Debug("summary failed", map[string]interface{}{"title": c.Name, "error": err.Error()})
	} else if summary != nil {
		c.Name = summary.Title
		c.Description = summary.Description
		c.Extract = summary.Extract
		c.Image = summary.Image
		c.URL = summary.URL
		c.Links.Wiki = summary.URL
	}

	if h.kg != nil {
		if links, err := h.kg.OfficialLinks(ctx, c.Name); err != nil {
			h.logger.Debug("knowledge graph lookup failed", map[string]interface{}{"name": c.Name, "error": err.Error()})
		} else {
			c.Links = c.Links.Merge(links)
		}
	}

	if h.web != nil {
		c.Links = c.Links.Merge(h.socialLinks(ctx, c.Name, c.Links))
	}

	if c.Image == "" && h.og != nil {
		for _, u := range []string{c.Links.LinkedIn, c.Links.Instagram} {
			if u == "" {
				continue
			}
			if meta, err := h.og.Fetch(ctx, u); err == nil && meta.Image != "" {
				c.Image = meta.Image
				break
			}
		}
	}

	views, err := h.wiki.Pageviews(ctx, c.Name, h.config.PageviewDays)
	if err != nil {
		h.logger.Debug("pageviews failed", map[string]interface{}{"title": c.Name, "error": err.Error()})
	}
	c.Fame = float64(views) + float64(c.Links.SocialWeight())*100 + float64(h.pulse(ctx, c.Name))*pulseWeight
}

// socialLinks searches each social site the knowledge graph left empty and
// keeps the first hit on that site.
func (h *Handler) socialLinks(ctx context.Context, name string, have models.Links) models.Links {
	var found models.Links
	for _, site := range socialSites {
		if siteLink(have, site) != "" {
			continue
		}
		q := fmt.Sprintf("site:%s \"%s\"", site, name)
		hits, err := h.web.Search(ctx, q, 1)
		if err != nil {
			h.logger.Debug("social link search failed", map[string]interface{}{"query": q, "error": err.Error()})
			continue
		}
		for _, r := range hits {
			if link := linkFor(r.URL); siteLink(link, site) != "" {
				found = found.Merge(link)
				break
			}
		}
	}
	return found
}

// pulse counts general web mentions of name, up to pulseResults.
func (h *Handler) pulse(ctx context.Context, name string) int {
	if h.web == nil {
		return 0
	}
	hits, err := h.web.Search(ctx, fmt.Sprintf("\"%s\"", name), pulseResults)
	if err != nil {
		h.logger.Debug("web pulse failed", map[string]interface{}{"name": name, "error": err.Error()})
		return 0
	}
	return min(len(hits), pulseResults)
}

func siteLink(l models.Links, site string) string {
	switch site {
	case "linkedin.com/in":
		return l.LinkedIn
	case "instagram.com":
		return l.Instagram
	case "facebook.com":
		return l.Facebook
	case "x.com":
		return l.X
	}
	return ""
}

func (h *Handler) fromWebSearch(ctx context.Context, subject string) []models.Candidate {
	if h.web == nil {
		return nil
	}

	results := make([][]models.SearchResult, len(socialSites))
	h.each(ctx, len(socialSites), func(i int) {
		q := fmt.Sprintf("site:%s \"%s\"", socialSites[i], subject)
		hits, err := h.web.Search(ctx, q, h.config.WebResultsPerSite)
		if err != nil {
			h.logger.Debug("social search failed", map[string]interface{}{"query": q, "error": err.Error()})
			return
		}
		results[i] = hits
	})

	var out []models.Candidate
	index := map[string]int{}
	for _, hits := range results {
		for _, r := range hits {
			name := NameFromTitle(r.Title)
			if name == "" {
				name = subject
			}
			links := linkFor(r.URL)
			key := textsim.Normalize(name)
			if i, ok := index[key]; ok {
				out[i].Links = out[i].Links.Merge(links)
				continue
			}
			index[key] = len(out)
			out = append(out, models.Candidate{
				Name:        name,
				Description: r.Snippet,
				URL:         r.URL,
				Links:       links,
				Source:      "web",
			})
		}
	}

	if h.og != nil {
		h.each(ctx, len(out), func(i int) {
			if meta, err := h.og.Fetch(ctx, out[i].URL); err == nil && meta.Image != "" {
				out[i].Image = meta.Image
			}
		})
	}
	for i := range out {
		out[i].Fame = float64(out[i].Links.SocialWeight()) * 100
	}
	return out
}

// each runs fn(0..n-1) on the pool and waits. A full or released pool runs
// the task inline.
func (h *Handler) each(ctx context.Context, n int, fn func(i int)) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			err := errors.Safely(func() error {
				fn(i)
				return nil
			})
			if err != nil {
				h.logger.Warn("enrichment task failed", map[string]interface{}{"error": err.Error()})
			}
		}
		if err := h.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()
}

// NameFromTitle extracts a person name from a social profile page title.
func NameFromTitle(title string) string {
	t := strings.NewReplacer("–", "-", "—", "-").Replace(strings.TrimSpace(title))
	if m := handlePattern.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := dashPattern.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(sitePattern.ReplaceAllString(t, ""))
}

func linkFor(rawURL string) models.Links {
	host := models.DomainOf(rawURL)
	switch {
	case strings.HasSuffix(host, "linkedin.com"):
		return models.Links{LinkedIn: rawURL}
	case strings.HasSuffix(host, "instagram.com"):
		return models.Links{Instagram: rawURL}
	case strings.HasSuffix(host, "facebook.com"):
		return models.Links{Facebook: rawURL}
	case host == "x.com" || host == "twitter.com":
		return models.Links{X: rawURL}
	}
	return models.Links{}
}
