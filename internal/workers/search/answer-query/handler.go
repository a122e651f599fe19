// internal/workers/search/answer-query/handler.go
package answerquery

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/metrics"
	"wizkid-search/internal/common/observability"
	"wizkid-search/internal/models"
	aggregatesources "wizkid-search/internal/workers/search/aggregate-sources"
	classifyintent "wizkid-search/internal/workers/search/classify-intent"
	findnearbyplaces "wizkid-search/internal/workers/search/find-nearby-places"
	rankresults "wizkid-search/internal/workers/search/rank-results"
	synthesizeanswer "wizkid-search/internal/workers/search/synthesize-answer"
)

const (
	TaskType = "answer-query"

	StatusDisambiguating = "disambiguating"
	StatusSearching      = "searching"
	StatusSummarizing    = "summarizing"
	StatusNeedLocation   = "need_location"

	EmptyQueryMarkdown   = "(empty query)"
	NeedLocationMarkdown = "Share your location (or allow location access) so I can search nearby."
)

type Handler struct {
	config *Config
	stages Stages
	obs    *observability.Observability
	logger logger.Logger
	newID  func() string
}

// NewHandler accepts a nil obs.
func NewHandler(config *Config, stages Stages, obs *observability.Observability, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		stages: stages,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		newID:  uuid.NewString,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

// Execute answers without a live client and returns the event log.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sess := NewSession(SinkFunc(func(models.Event) error { return nil }))
	if err := h.answer(ctx, input.Request(), sess); err != nil {
		return nil, err
	}
	out := &Output{
		Intent: classifyintent.Classify(input.Query),
		Events: sess.Events(),
	}
	if n := len(out.Events); n > 0 && out.Events[n-1].Snapshot != nil {
		out.Snapshot = *out.Events[n-1].Snapshot
	}
	return out, nil
}

// Answer runs the pipeline for req and streams its events to sink. Every
// outcome ends with exactly one final event, except when ctx ends or the
// sink fails; those are returned.
func (h *Handler) Answer(ctx context.Context, req *models.AskRequest, sink Sink) error {
	return h.answer(ctx, req, NewSession(sink))
}

func (h *Handler) answer(ctx context.Context, req *models.AskRequest, sess *Session) error {
	start := time.Now()
	query := req.Trimmed()
	if query == "" {
		return sess.Final(models.Snapshot{
			ID:         h.newID(),
			Markdown:   EmptyQueryMarkdown,
			Confidence: models.ConfidenceLow,
		})
	}

	intent := classifyintent.Classify(query)
	ctx, span := h.obs.StartSpan(ctx, "answer", attribute.String("intent", string(intent)))
	defer span.End()
	metrics.AsksTotal.WithLabelValues(string(intent)).Inc()

	snap, err := h.run(ctx, sess, req, intent)
	if ctxErr := ctx.Err(); ctxErr != nil {
		h.logger.Info("answer cancelled", map[string]interface{}{"intent": intent, "error": ctxErr.Error()})
		return ctxErr
	}
	if sinkErr := sess.Err(); sinkErr != nil {
		return sinkErr
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		stdErr := errors.Normalize(err)
		h.logger.Error("answer failed", map[string]interface{}{
			"intent": intent,
			"code":   stdErr.Code,
			"error":  err.Error(),
		})
		if emitErr := sess.Emit(models.ErrorEvent(stdErr.Message)); emitErr != nil {
			return emitErr
		}
		snap = &models.Snapshot{Confidence: models.ConfidenceLow}
	}

	snap.ID = h.newID()
	if err := sess.Final(*snap); err != nil {
		return err
	}

	elapsed := time.Since(start)
	metrics.AskDuration.WithLabelValues(string(intent)).Observe(elapsed.Seconds())
	h.obs.RecordAsk(ctx, string(intent), string(snap.Confidence), elapsed)
	h.logger.Info("answer finished", map[string]interface{}{
		"intent":     intent,
		"confidence": snap.Confidence,
		"cites":      len(snap.Cites),
		"durationMs": elapsed.Milliseconds(),
	})
	return nil
}

// run executes one branch and returns the snapshot to finalize. A panic is
// converted to an error.
func (h *Handler) run(ctx context.Context, sess *Session, req *models.AskRequest, intent models.Intent) (snap *models.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = errors.NewInternalError(fmt.Errorf("panic: %v", r))
		}
	}()

	if intent == models.IntentLocal {
		return h.runLocal(ctx, sess, req)
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = classifyintent.SubjectOf(req.Trimmed())
	}

	var links *models.Links
	if intent == models.IntentPeople {
		var stop *models.Snapshot
		subject, links, stop, err = h.resolvePerson(ctx, sess, req.Trimmed(), subject)
		if err != nil || stop != nil {
			return stop, err
		}
	}
	return h.runSources(ctx, sess, req, intent, subject, links)
}

func (h *Handler) runLocal(ctx context.Context, sess *Session, req *models.AskRequest) (*models.Snapshot, error) {
	out, err := h.stages.Places.FindNearby(ctx, &findnearbyplaces.Input{
		Query:    req.Trimmed(),
		Coords:   req.Coords,
		Radius:   req.Radius,
		ClientIP: req.ClientIP,
	})
	if err != nil {
		return nil, err
	}
	if out.NeedLocation {
		if err := sess.Status(StatusNeedLocation); err != nil {
			return nil, err
		}
		return &models.Snapshot{Markdown: NeedLocationMarkdown, Confidence: models.ConfidenceLow}, nil
	}

	category := out.Category
	if category == "" {
		category = "unknown"
	}
	if err := sess.Status("local:" + category); err != nil {
		return nil, err
	}
	if err := sess.Emit(models.PlacesEvent(out.Places)); err != nil {
		return nil, err
	}
	return &models.Snapshot{
		Markdown:   findnearbyplaces.Summary(out.Category, out.Places),
		Confidence: models.ConfidenceFor(0),
	}, nil
}

// resolvePerson picks the profile for a people query. A non-nil snapshot
// ends the answer there.
func (h *Handler) resolvePerson(ctx context.Context, sess *Session, query, subject string) (string, *models.Links, *models.Snapshot, error) {
	if err := sess.Status(StatusDisambiguating); err != nil {
		return "", nil, nil, err
	}
	bias := h.stages.Ranker.LoadBias(ctx, query)

	res, err := h.stages.Disambiguator.Disambiguate(ctx, subject)
	if err != nil {
		return "", nil, nil, err
	}

	var all []models.Candidate
	if res.Primary != nil {
		all = append(all, *res.Primary)
	}
	all = append(all, res.Alternates...)
	if len(all) == 0 {
		return subject, nil, nil, nil
	}

	ranked := rankresults.RankCandidates(all, bias, query)
	primary := choosePrimary(res.Primary, ranked, bias)
	alternates := make([]models.Candidate, 0, len(ranked))
	for _, c := range ranked {
		if primary == nil || !sameCandidate(c, *primary) {
			alternates = append(alternates, c)
		}
	}
	if primary != nil && len(alternates) > h.config.MaxAlternates {
		alternates = alternates[:h.config.MaxAlternates]
	}

	if len(alternates) > 0 {
		if err := sess.Emit(models.CandidatesEvent(alternates)); err != nil {
			return "", nil, nil, err
		}
	}
	if primary == nil {
		return "", nil, &models.Snapshot{
			Markdown:   fmt.Sprintf("I found several people named %q. Pick one of the candidates to continue.", subject),
			Confidence: models.ConfidenceLow,
		}, nil
	}
	if err := sess.Emit(models.ProfileEvent(*primary)); err != nil {
		return "", nil, nil, err
	}

	links := primary.Links
	if links.Wiki == "" {
		links.Wiki = primary.URL
	}
	return primary.Name, &links, nil, nil
}

// choosePrimary keeps the confident match unless feedback says otherwise:
// a preferred top-ranked candidate replaces it, and an avoided match is
// dropped. Without a confident match only a preferred candidate is chosen.
func choosePrimary(confident *models.Candidate, ranked []models.Candidate, bias models.Bias) *models.Candidate {
	top := ranked[0]
	if preferred(top, bias) {
		return &top
	}
	if confident == nil || avoided(*confident, bias) {
		return nil
	}
	for i := range ranked {
		if sameCandidate(ranked[i], *confident) {
			return &ranked[i]
		}
	}
	return confident
}

func sameCandidate(a, b models.Candidate) bool {
	return a.Name == b.Name && a.URL == b.URL
}

func preferred(c models.Candidate, bias models.Bias) bool {
	prefer, avoid := bias.Weights(c.Name)
	return prefer > 0 && prefer > avoid
}

func avoided(c models.Candidate, bias models.Bias) bool {
	prefer, avoid := bias.Weights(c.Name)
	return avoid > 0 && avoid > prefer
}

func (h *Handler) runSources(ctx context.Context, sess *Session, req *models.AskRequest, intent models.Intent, subject string, links *models.Links) (*models.Snapshot, error) {
	if err := sess.Status(StatusSearching); err != nil {
		return nil, err
	}
	cites, err := h.stages.Aggregator.Aggregate(ctx, &aggregatesources.Input{
		Subject: subject,
		Intent:  intent,
		Links:   links,
	})
	if err != nil {
		return nil, err
	}
	cites = h.stages.Ranker.RankCitations(ctx, cites)

	for _, c := range cites {
		if err := sess.Emit(models.CiteEvent(c)); err != nil {
			return nil, err
		}
		h.stages.Ranker.RecordShown(c)
	}
	if err := sess.Emit(models.RelatedEvent(Related(intent, subject))); err != nil {
		return nil, err
	}
	if err := sess.Status(StatusSummarizing); err != nil {
		return nil, err
	}

	var md strings.Builder
	for frag := range h.stages.Synthesizer.Synthesize(ctx, &synthesizeanswer.Input{
		Question:  req.Trimmed(),
		Subject:   subject,
		Intent:    intent,
		Style:     req.EffectiveStyle(),
		Provider:  req.Provider,
		Citations: cites,
	}) {
		md.WriteString(frag)
		if err := sess.Emit(models.TokenEvent(frag)); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &models.Snapshot{
		Markdown:   md.String(),
		Cites:      cites,
		Confidence: models.ConfidenceFor(len(cites)),
	}, nil
}

// IsClientGone reports whether err ended an answer because the caller left.
func IsClientGone(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
