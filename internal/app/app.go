// Package app wires the search stages to their providers and stores from
// configuration. The server binary and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wizkid-search/internal/common/aws"
	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/config"
	"wizkid-search/internal/common/database"
	"wizkid-search/internal/common/geoip"
	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/common/llm"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/observability"
	"wizkid-search/internal/common/opengraph"
	"wizkid-search/internal/common/places"
	"wizkid-search/internal/common/signals"
	"wizkid-search/internal/common/websearch"
	"wizkid-search/internal/common/wikidata"
	"wizkid-search/internal/common/wikipedia"
	"wizkid-search/internal/server"
	aggregatesources "wizkid-search/internal/workers/search/aggregate-sources"
	answerquery "wizkid-search/internal/workers/search/answer-query"
	classifyintent "wizkid-search/internal/workers/search/classify-intent"
	disambiguatesubject "wizkid-search/internal/workers/search/disambiguate-subject"
	findnearbyplaces "wizkid-search/internal/workers/search/find-nearby-places"
	rankresults "wizkid-search/internal/workers/search/rank-results"
	recordfeedback "wizkid-search/internal/workers/search/record-feedback"
	synthesizeanswer "wizkid-search/internal/workers/search/synthesize-answer"
)

// App holds every stage handler plus the clients they share.
type App struct {
	Config *config.Config
	Obs    *observability.Observability

	Classify     *classifyintent.Handler
	Disambiguate *disambiguatesubject.Handler
	Aggregate    *aggregatesources.Handler
	Rank         *rankresults.Handler
	Synthesize   *synthesizeanswer.Handler
	Places       *findnearbyplaces.Handler
	Answer       *answerquery.Handler
	Feedback     *recordfeedback.Handler
	Locator      *geoip.Locator

	// Checks are the readiness probes of the optional backends in use.
	Checks map[string]server.Check

	logger  logger.Logger
	closers []func() error
}

// Options tune how hard Build tries to reach backends.
type Options struct {
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// Build connects the configured backends and creates the stage handlers.
// Optional backends that cannot be reached are logged and left out.
func Build(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger, opts Options) (*App, error) {
	if opts.ConnectAttempts <= 0 {
		opts.ConnectAttempts = 1
	}
	a := &App{
		Config: cfg,
		Obs:    obs,
		Checks: map[string]server.Check{},
		logger: log,
	}

	ua := cfg.APIs.UserAgent
	wiki := wikipedia.NewClient(
		httpclient.NewClient(config.GetDuration(cfg.APIs.Wikipedia.Timeout), ua),
		cfg.APIs.Wikipedia.BaseURL, cfg.APIs.Wikipedia.PageviewsURL,
	)
	kg := wikidata.NewClient(httpclient.NewClient(config.GetDuration(cfg.APIs.Wikidata.Timeout), ua), cfg.APIs.Wikidata.BaseURL)
	og := opengraph.NewFetcher(httpclient.NewClient(config.GetDuration(cfg.APIs.Wikipedia.Timeout), ua))
	placesHTTP := httpclient.NewClient(config.GetDuration(cfg.APIs.Places.Timeout), ua)
	a.Locator = geoip.NewLocator(httpclient.NewClient(config.GetDuration(cfg.APIs.GeoIP.Timeout), ua), cfg.APIs.GeoIP.Endpoints)

	store := a.openSignals(ctx, opts)
	web := websearch.NewMulti(logger.Component(log, "websearch"), a.webProviders(ctx, opts)...)
	db := a.openFeedbackDB(ctx, opts)

	var publisher recordfeedback.Publisher
	if sns := cfg.Notifications.AWS.SNS; sns.Enabled && sns.FeedbackTopicARN != "" {
		client, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			log.Warn("sns unavailable, feedback will not be published", map[string]interface{}{"error": err.Error()})
		} else {
			publisher = aws.NewFeedbackPublisher(client, sns.FeedbackTopicARN)
		}
	}

	providers := Providers(ctx, cfg.APIs.LLM, log)
	if len(providers) == 0 {
		log.Warn("no LLM provider configured, answers will be stitched from sources", nil)
	}

	var err error
	a.Classify = classifyintent.NewHandler(classifyintent.NewConfig(cfg), log)
	a.Disambiguate, err = disambiguatesubject.NewHandler(disambiguatesubject.NewConfig(cfg), wiki, kg, web, og, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, func() error { a.Disambiguate.Close(); return nil })
	a.Aggregate = aggregatesources.NewHandler(aggregatesources.NewConfig(cfg), web, kg, wiki, log)
	a.Rank = rankresults.NewHandler(rankresults.NewConfig(cfg), store, log)
	a.Synthesize = synthesizeanswer.NewHandler(synthesizeanswer.NewConfig(cfg), providers, log)
	a.Places = findnearbyplaces.NewHandler(
		findnearbyplaces.NewConfig(cfg),
		places.NewOverpass(placesHTTP, cfg.APIs.Places.OverpassEndpoints),
		places.NewGeoapify(placesHTTP, cfg.APIs.Places.Geoapify.BaseURL, cfg.APIs.Places.Geoapify.APIKey),
		a.Locator,
		log,
	)
	a.Feedback = recordfeedback.NewHandler(recordfeedback.NewConfig(cfg), store, db, publisher, log)
	a.Answer = answerquery.NewHandler(answerquery.NewConfig(cfg), answerquery.Stages{
		Disambiguator: a.Disambiguate,
		Aggregator:    a.Aggregate,
		Ranker:        a.Rank,
		Synthesizer:   a.Synthesize,
		Places:        a.Places,
	}, obs, log)

	log.Info("pipeline ready", map[string]interface{}{
		"signals":      cfg.Signals.Backend,
		"webProviders": web.Len(),
		"llmProviders": len(providers),
		"feedbackDB":   db != nil,
		"sns":          publisher != nil,
	})
	return a, nil
}

// JobHandlers maps every task type to its zeebe handler.
func (a *App) JobHandlers() map[string]camunda.JobHandler {
	return map[string]camunda.JobHandler{
		classifyintent.TaskType:      a.Classify,
		disambiguatesubject.TaskType: a.Disambiguate,
		aggregatesources.TaskType:    a.Aggregate,
		rankresults.TaskType:         a.Rank,
		synthesizeanswer.TaskType:    a.Synthesize,
		findnearbyplaces.TaskType:    a.Places,
		answerquery.TaskType:         a.Answer,
		recordfeedback.TaskType:      a.Feedback,
	}
}

// Close drains pending signal writes and releases every backend.
func (a *App) Close() {
	if a.Rank != nil {
		a.Rank.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	a.closers = nil
}

func (a *App) openSignals(ctx context.Context, opts Options) signals.Store {
	cfg := a.Config
	switch cfg.Signals.Backend {
	case "redis":
		rc := database.NewRedis(cfg.Database.Redis)
		err := Retry(func() error { return rc.Ping(ctx) }, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "redis connection")
		if err != nil {
			a.logger.Warn("redis unreachable, bias signals degrade to zero", map[string]interface{}{"error": err.Error()})
		}
		a.Checks["redis"] = rc.Ping
		store := signals.NewRedisStore(rc.Client)
		a.closers = append(a.closers, store.Close)
		return store
	case "badger":
		store, err := signals.OpenBadger(cfg.Signals.Path, a.logger)
		if err != nil {
			a.logger.Warn("badger store unavailable, bias signals disabled", map[string]interface{}{
				"path":  cfg.Signals.Path,
				"error": err.Error(),
			})
			return signals.Noop{}
		}
		a.closers = append(a.closers, store.Close)
		return store
	}
	return signals.Noop{}
}

func (a *App) webProviders(ctx context.Context, opts Options) []websearch.Searcher {
	cfg := a.Config
	ws := cfg.APIs.WebSearch
	client := httpclient.NewClient(config.GetDuration(ws.Timeout), cfg.APIs.UserAgent)

	var out []websearch.Searcher
	for _, name := range ws.Providers {
		switch name {
		case "cse":
			if ws.CSE.APIKey == "" || ws.CSE.EngineID == "" {
				a.logger.Debug("cse search skipped, no credentials", nil)
				continue
			}
			out = append(out, websearch.NewGoogleCSE(client, ws.CSE.BaseURL, ws.CSE.APIKey, ws.CSE.EngineID))
		case "brave":
			if ws.Brave.APIKey == "" {
				a.logger.Debug("brave search skipped, no token", nil)
				continue
			}
			out = append(out, websearch.NewBrave(client, ws.Brave.BaseURL, ws.Brave.APIKey))
		case "elastic":
			if idx := a.openElastic(ctx, opts); idx != nil {
				out = append(out, idx)
			}
		}
	}
	return out
}

func (a *App) openElastic(ctx context.Context, opts Options) *websearch.ElasticIndex {
	esCfg := a.Config.Database.Elasticsearch
	if esCfg.GetURL() == "" {
		a.logger.Warn("elastic search provider listed without database.elasticsearch.url", nil)
		return nil
	}
	es, err := database.NewElasticsearch(esCfg)
	if err != nil {
		a.logger.Warn("elasticsearch client failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	err = Retry(es.Ping, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "Elasticsearch connection")
	if err == nil {
		err = es.EnsureIndex(ctx, esCfg.Index)
	}
	if err != nil {
		a.logger.Warn("elasticsearch unavailable, site index search disabled", map[string]interface{}{"error": err.Error()})
		return nil
	}
	a.Checks["elasticsearch"] = func(context.Context) error { return es.Ping() }
	return websearch.NewElasticIndex(es.Client, esCfg.Index)
}

func (a *App) openFeedbackDB(ctx context.Context, opts Options) *sql.DB {
	pgCfg := a.Config.Database.Postgres
	if !pgCfg.Enabled() {
		return nil
	}
	pg, err := database.NewPostgres(pgCfg)
	if err != nil {
		a.logger.Warn("postgres client failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	err = Retry(func() error { return pg.Ping(ctx) }, opts.ConnectAttempts, opts.ConnectDelay, a.logger, "PostgreSQL connection")
	if err == nil {
		err = pg.EnsureSchema(ctx)
	}
	if err != nil {
		a.logger.Warn("postgres unavailable, feedback will only be logged", map[string]interface{}{"error": err.Error()})
		_ = pg.Close()
		return nil
	}
	a.Checks["postgres"] = pg.Ping
	a.closers = append(a.closers, pg.Close)
	return pg.DB
}

// Providers builds the LLM attempt list. Without an explicit order OpenAI
// goes first, then every configured Gemini model. Vendors without a key
// are skipped.
func Providers(ctx context.Context, cfg config.LLMConfig, log logger.Logger) []llm.Provider {
	order := cfg.Order
	if len(order) == 0 {
		order = []string{llm.VendorOpenAI, llm.VendorGemini}
	}

	var out []llm.Provider
	for _, vendor := range order {
		switch vendor {
		case llm.VendorOpenAI:
			if cfg.OpenAI.APIKey == "" {
				continue
			}
			p, err := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model)
			if err != nil {
				log.Warn("openai provider skipped", map[string]interface{}{"error": err.Error()})
				continue
			}
			out = append(out, p)
		case llm.VendorGemini:
			if cfg.Gemini.APIKey == "" {
				continue
			}
			client, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, "")
			if err != nil {
				log.Warn("gemini provider skipped", map[string]interface{}{"error": err.Error()})
				continue
			}
			for _, model := range cfg.Gemini.Models {
				out = append(out, llm.NewGemini(client, model))
			}
		}
	}
	return out
}

// Retry runs operation up to attempts times, doubling the delay after each
// failure.
func Retry(operation func() error, attempts int, initialDelay time.Duration, log logger.Logger, name string) error {
	var err error
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i < attempts-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", name), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  attempts,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, err)
}
