// internal/workers/search/rank-results/handler.go
package rankresults

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/signals"
	"wizkid-search/internal/common/textsim"
	"wizkid-search/internal/models"
)

const (
	TaskType = "rank-results"
)

// Candidate score weights.
const (
	PreferWeight     = 5000
	SimilarityWeight = 1000
	AvoidWeight      = 7000
)

// RankCandidates scores every candidate as
// fame + prefer*5000 + similarity*1000 - avoid*7000 and sorts descending.
// Equal scores keep input order. The input slice is not modified.
func RankCandidates(candidates []models.Candidate, bias models.Bias, query string) []models.Candidate {
	out := make([]models.Candidate, len(candidates))
	copy(out, candidates)
	for i := range out {
		prefer, avoid := bias.Weights(out[i].Name)
		sim := textsim.Similarity(query, out[i].Name)
		out[i].Similarity = sim
		out[i].Score = out[i].Fame + prefer*PreferWeight + sim*SimilarityWeight - avoid*AvoidWeight
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

// DomainScore turns click-through counters into a score in [0, 5].
func DomainScore(c signals.DomainCounters) float64 {
	ctr := float64(c.Clicks) / math.Max(1, float64(c.Shows))
	return math.Min(5, ctr*2+math.Min(1, float64(c.Clicks)/10))
}

// RankCitations stable-sorts citations by descending domain score and
// renumbers them 1..n.
func RankCitations(cites []models.Citation, score func(domain string) float64) []models.Citation {
	type scored struct {
		c models.Citation
		s float64
	}
	tmp := make([]scored, len(cites))
	for i, c := range cites {
		tmp[i] = scored{c: c, s: score(c.Domain)}
	}
	sort.SliceStable(tmp, func(a, b int) bool { return tmp[a].s > tmp[b].s })

	out := make([]models.Citation, len(tmp))
	for i, t := range tmp {
		out[i] = t.c
	}
	return models.Renumber(out)
}

// Handler reads the bias model and ranks candidates and citations.
// Store failures degrade to zero bias.
type Handler struct {
	config *Config
	store  signals.Store
	logger logger.Logger

	pending sync.WaitGroup
}

func NewHandler(config *Config, store signals.Store, log logger.Logger) *Handler {
	if store == nil {
		store = signals.Noop{}
	}
	return &Handler{
		config: config,
		store:  store,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{
		Candidates: []models.Candidate{},
		Citations:  []models.Citation{},
	}
	if len(input.Candidates) > 0 {
		out.Candidates = RankCandidates(input.Candidates, h.LoadBias(ctx, input.Query), input.Query)
	}
	if len(input.Citations) > 0 {
		out.Citations = h.RankCitations(ctx, input.Citations)
	}
	return out, nil
}

// LoadBias returns the entity bias for query, or zero bias when the store
// is unavailable.
func (h *Handler) LoadBias(ctx context.Context, query string) models.Bias {
	ctx, cancel := context.WithTimeout(ctx, h.config.SignalTimeout)
	defer cancel()

	bias, err := h.store.LoadBias(ctx, query)
	if err != nil {
		h.logger.Warn("bias store unavailable, using zero bias", map[string]interface{}{"error": err.Error()})
		return models.NewBias()
	}
	return bias
}

// RankCitations orders citations by learned domain score.
func (h *Handler) RankCitations(ctx context.Context, cites []models.Citation) []models.Citation {
	hosts := make([]string, 0, len(cites))
	for _, c := range cites {
		hosts = append(hosts, c.Domain)
	}

	sctx, cancel := context.WithTimeout(ctx, h.config.SignalTimeout)
	defer cancel()
	counters, err := h.store.Counters(sctx, hosts)
	if err != nil {
		h.logger.Warn("domain counters unavailable", map[string]interface{}{"error": err.Error()})
		counters = map[string]signals.DomainCounters{}
	}

	return RankCitations(cites, func(domain string) float64 {
		c, ok := counters[signals.Host(domain)]
		if !ok {
			return 0
		}
		return DomainScore(c)
	})
}

// RecordShown counts an impression for the citation's domain without
// blocking the caller. Wait drains outstanding writes.
func (h *Handler) RecordShown(cite models.Citation) {
	if cite.Domain == "" {
		return
	}
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), h.config.SignalTimeout)
		defer cancel()
		err := errors.Safely(func() error {
			return h.store.RecordShown(ctx, cite.Domain)
		})
		if err != nil {
			h.logger.Debug("record shown failed", map[string]interface{}{
				"domain": cite.Domain,
				"error":  err.Error(),
			})
		}
	}()
}

// Wait blocks until pending RecordShown writes finish.
func (h *Handler) Wait() {
	h.pending.Wait()
}
