// internal/workers/search/synthesize-answer/handler.go
package synthesizeanswer

import (
	"context"
	stderrors "errors"
	"iter"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/llm"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/metrics"
)

const (
	TaskType = "synthesize-answer"
)

var errConsumerGone = stderrors.New("consumer stopped")

type Handler struct {
	config    *Config
	providers []llm.Provider
	logger    logger.Logger
}

// NewHandler takes the providers in automatic order.
func NewHandler(config *Config, providers []llm.Provider, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		providers: providers,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

// Execute collects the full answer text.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var b strings.Builder
	for frag := range h.Synthesize(ctx, input) {
		b.WriteString(frag)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Output{Answer: b.String()}, nil
}

// Plan returns the attempt order. A known vendor moves its models to the
// front; anything else keeps the automatic order.
func (h *Handler) Plan(vendor string) []llm.Provider {
	vendor = strings.ToLower(strings.TrimSpace(vendor))
	if vendor == "" || vendor == "auto" {
		return h.providers
	}
	first := make([]llm.Provider, 0, len(h.providers))
	var rest []llm.Provider
	for _, p := range h.providers {
		if p.Vendor() == vendor {
			first = append(first, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(first, rest...)
}

// Synthesize streams a cited answer. Providers are tried in plan order
// until one produces text; a rate-limited vendor is skipped for the rest
// of the call. Text already yielded is never retracted. When no provider
// produces anything the stitched fallback is yielded instead, so the
// sequence is never empty unless ctx ends first.
func (h *Handler) Synthesize(ctx context.Context, input *Input) iter.Seq[string] {
	return func(yield func(string) bool) {
		filter := newCitationFilter(len(input.Citations))
		emitted := false
		stopped := false

		emit := func(raw string) bool {
			out := filter.Write(raw)
			if out == "" {
				return true
			}
			if strings.TrimSpace(out) != "" {
				emitted = true
			}
			if !yield(out) {
				stopped = true
				return false
			}
			return true
		}
		finish := func() {
			if rest := filter.Flush(); rest != "" && !stopped {
				yield(rest)
			}
		}

		prompt := BuildPrompt(input)
		exhausted := make(map[string]bool)

		for _, p := range h.Plan(input.Provider) {
			if exhausted[p.Vendor()] {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			err := h.attempt(ctx, p, prompt, emit)
			if stopped {
				return
			}
			if !emitted {
				filter.Flush()
			}
			switch {
			case err == nil && emitted:
				finish()
				return
			case err == nil:
				metrics.SynthesisFallbacks.WithLabelValues(p.Vendor(), "empty").Inc()
			case emitted:
				h.logger.Warn("provider failed mid-stream", map[string]interface{}{
					"vendor": p.Vendor(),
					"model":  p.Model(),
					"error":  err.Error(),
				})
				finish()
				return
			case stderrors.Is(err, llm.ErrRateLimited):
				exhausted[p.Vendor()] = true
				metrics.SynthesisFallbacks.WithLabelValues(p.Vendor(), "rate_limited").Inc()
				h.logger.Info("provider rate limited", map[string]interface{}{"vendor": p.Vendor(), "model": p.Model()})
			default:
				metrics.SynthesisFallbacks.WithLabelValues(p.Vendor(), "error").Inc()
				h.logger.Warn("provider attempt failed", map[string]interface{}{
					"vendor": p.Vendor(),
					"model":  p.Model(),
					"error":  err.Error(),
				})
			}
		}

		if ctx.Err() != nil {
			return
		}
		metrics.SynthesisFallbacks.WithLabelValues("stitched", "exhausted").Inc()
		for _, chunk := range Chunk(StitchedText(input.Citations, h.config.FallbackCites), h.config.ChunkSize) {
			if !yield(chunk) {
				return
			}
		}
	}
}

func (h *Handler) attempt(ctx context.Context, p llm.Provider, prompt string, emit func(string) bool) error {
	actx, cancel := context.WithTimeout(ctx, h.config.AttemptTimeout)
	defer cancel()

	start := time.Now()
	err := p.Stream(actx, prompt, func(frag string) error {
		if frag == "" {
			return nil
		}
		if !emit(frag) {
			return errConsumerGone
		}
		return nil
	})

	name := p.Vendor() + ":" + p.Model()
	metrics.ProviderLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.ProviderCalls.WithLabelValues(name, metrics.OutcomeOK).Inc()
	case stderrors.Is(err, llm.ErrRateLimited):
		metrics.ProviderCalls.WithLabelValues(name, metrics.OutcomeRateLimited).Inc()
	default:
		metrics.ProviderCalls.WithLabelValues(name, metrics.OutcomeError).Inc()
	}
	return err
}
