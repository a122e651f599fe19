// Package server exposes the answer pipeline over HTTP. Answers stream as
// server-sent events.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/geoip"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/observability"
	"wizkid-search/internal/common/validation"
	"wizkid-search/internal/models"
	answerquery "wizkid-search/internal/workers/search/answer-query"
	recordfeedback "wizkid-search/internal/workers/search/record-feedback"
)

const maxBodyBytes = 64 << 10

// TimedOutMessage is sent as an error event when the server ends an answer
// before the pipeline did.
const TimedOutMessage = "The answer took too long. Please try again."

type Asker interface {
	Answer(ctx context.Context, req *models.AskRequest, sink answerquery.Sink) error
}

type FeedbackRecorder interface {
	RecordClick(ctx context.Context, rawURL string) error
	Execute(ctx context.Context, input *recordfeedback.Input) (*recordfeedback.Output, error)
}

type Locator interface {
	Locate(ctx context.Context, ip string) (*geoip.Location, error)
}

// Check is one readiness probe.
type Check func(ctx context.Context) error

type Options struct {
	TrustForwardedFor bool
	// RequestTimeout bounds one answer. Zero means no bound.
	RequestTimeout time.Duration
	Checks         map[string]Check
}

type Server struct {
	opts     Options
	asker    Asker
	feedback FeedbackRecorder
	locator  Locator
	obs      *observability.Observability
	logger   logger.Logger

	askSchema      *validation.Validator
	clickSchema    *validation.Validator
	feedbackSchema *validation.Validator
	now            func() time.Time
}

func New(opts Options, asker Asker, feedback FeedbackRecorder, locator Locator, obs *observability.Observability, log logger.Logger) *Server {
	return &Server{
		opts:           opts,
		asker:          asker,
		feedback:       feedback,
		locator:        locator,
		obs:            obs,
		logger:         logger.Component(log, "http"),
		askSchema:      validation.New(validation.AskSchema),
		clickSchema:    validation.New(validation.ClickSchema),
		feedbackSchema: validation.New(validation.FeedbackSchema),
		now:            time.Now,
	}
}

// Routes returns the handler for every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ask", s.handleAsk)
	mux.HandleFunc("GET /api/ask", s.handleAsk)
	mux.HandleFunc("POST /api/click", s.handleClick)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	mux.HandleFunc("GET /api/geo", s.handleGeo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.logRequests(mux)
}

// NewHTTPServer builds the listener config. There is no write timeout
// because answers stream.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeAsk(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	req.ClientIP = s.clientIP(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	ctx, span := s.obs.StartSpan(r.Context(), "http.ask", attribute.String("method", r.Method))
	defer span.End()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &eventWriter{w: w, flusher: flusher}
	err = s.asker.Answer(ctx, req, sink)
	switch {
	case err == nil:
	case stderrors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
		s.logger.Warn("answer timed out", map[string]interface{}{"timeout": s.opts.RequestTimeout.String()})
		if sendErr := sink.Send(models.ErrorEvent(TimedOutMessage)); sendErr == nil {
			_ = sink.Send(models.FinalEvent(models.Snapshot{
				Cites:      []models.Citation{},
				Confidence: models.ConfidenceLow,
			}))
		}
	case answerquery.IsClientGone(err):
		s.logger.Debug("client left before final", nil)
	default:
		s.logger.Warn("answer stream ended early", map[string]interface{}{"error": err.Error()})
	}
}

// decodeAsk reads a JSON body on POST and query parameters on GET. Both
// forms are checked against the same schema.
func (s *Server) decodeAsk(r *http.Request) (*models.AskRequest, error) {
	var raw []byte
	if r.Method == http.MethodGet {
		req, err := askFromQuery(r)
		if err != nil {
			return nil, err
		}
		raw, _ = json.Marshal(req)
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		if err != nil {
			return nil, errors.NewInvalidRequestError("request body too large or unreadable")
		}
		raw = body
	}

	if err := s.askSchema.Validate(raw); err != nil {
		return nil, err
	}
	var req models.AskRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, errors.NewInvalidRequestError("invalid JSON body")
	}
	return &req, nil
}

func askFromQuery(r *http.Request) (*models.AskRequest, error) {
	q := r.URL.Query()
	req := &models.AskRequest{
		Query:    q.Get("q"),
		Subject:  q.Get("subject"),
		Style:    models.Style(q.Get("style")),
		Provider: q.Get("provider"),
	}

	lat, lon := q.Get("lat"), q.Get("lon")
	if lat != "" || lon != "" {
		la, errLat := strconv.ParseFloat(lat, 64)
		lo, errLon := strconv.ParseFloat(lon, 64)
		if errLat != nil || errLon != nil {
			return nil, errors.NewInvalidRequestError("lat and lon must both be numbers")
		}
		req.Coords = &models.Coords{Lat: la, Lon: lo}
	}
	if radius := q.Get("radius"); radius != "" {
		n, err := strconv.Atoi(radius)
		if err != nil {
			return nil, errors.NewInvalidRequestError("radius must be an integer")
		}
		req.Radius = n
	}
	return req, nil
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := s.decodeBody(r, s.clickSchema, &body); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.feedback.RecordClick(r.Context(), body.URL); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var input recordfeedback.Input
	if err := s.decodeBody(r, s.feedbackSchema, &input); err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.feedback.Execute(r.Context(), &input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	if s.locator == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "location unavailable"})
		return
	}
	loc, err := s.locator.Locate(r.Context(), s.clientIP(r))
	if err != nil {
		s.logger.Debug("geo lookup failed", map[string]interface{}{"error": err.Error()})
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "location unavailable"})
		return
	}
	s.writeJSON(w, http.StatusOK, loc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.opts.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not_ready",
			"failed": failed,
			"time":   s.now().Format(time.RFC3339),
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   s.now().Format(time.RFC3339),
	})
}

func (s *Server) decodeBody(r *http.Request, schema *validation.Validator, out interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewInvalidRequestError("request body too large or unreadable")
	}
	if err := schema.Validate(body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewInvalidRequestError("invalid JSON body")
	}
	return nil
}

func (s *Server) clientIP(r *http.Request) string {
	forwarded := ""
	if s.opts.TrustForwardedFor {
		forwarded = r.Header.Get("X-Forwarded-For")
	}
	return geoip.ClientIP(forwarded, r.RemoteAddr)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if stderrors.As(err, &verr) {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  string(errors.ErrCodeInvalidRequest),
			"fields": verr.Fields,
		})
		return
	}

	stdErr := errors.Normalize(err)
	status := http.StatusInternalServerError
	switch errors.GetErrorCategory(stdErr.Code) {
	case "VALIDATION":
		status = http.StatusBadRequest
	case "STORAGE", "PROVIDER":
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		s.logger.Error("request failed", map[string]interface{}{"code": stdErr.Code, "error": err.Error()})
	}
	s.writeJSON(w, status, map[string]string{
		"error":   string(stdErr.Code),
		"message": stdErr.Message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("response write failed", map[string]interface{}{"error": err.Error()})
	}
}
