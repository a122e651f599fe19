package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/geoip"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
	answerquery "wizkid-search/internal/workers/search/answer-query"
	recordfeedback "wizkid-search/internal/workers/search/record-feedback"
)

type fakeAsker struct {
	mu     sync.Mutex
	got    []*models.AskRequest
	events []models.Event
	block  bool
}

func (f *fakeAsker) Answer(ctx context.Context, req *models.AskRequest, sink answerquery.Sink) error {
	f.mu.Lock()
	f.got = append(f.got, req)
	f.mu.Unlock()

	if f.block {
		if err := sink.Send(models.StatusEvent("searching")); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	}
	for _, ev := range f.events {
		if err := sink.Send(ev); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeAsker) last(t *testing.T) *models.AskRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.got)
	return f.got[len(f.got)-1]
}

type mockFeedback struct {
	mock.Mock
}

func (m *mockFeedback) RecordClick(ctx context.Context, rawURL string) error {
	args := m.Called(ctx, rawURL)
	return args.Error(0)
}

func (m *mockFeedback) Execute(ctx context.Context, input *recordfeedback.Input) (*recordfeedback.Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*recordfeedback.Output)
	return out, args.Error(1)
}

type fakeLocator struct {
	loc    *geoip.Location
	gotIP  string
	called bool
}

func (f *fakeLocator) Locate(_ context.Context, ip string) (*geoip.Location, error) {
	f.called = true
	f.gotIP = ip
	if f.loc == nil {
		return nil, geoip.ErrNotFound
	}
	return f.loc, nil
}

func newTestServer(t *testing.T, opts Options, asker Asker, fb FeedbackRecorder, loc Locator) http.Handler {
	t.Helper()
	s := New(opts, asker, fb, loc, nil, logger.NewTestLogger(t))
	s.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return s.Routes()
}

func readEvents(t *testing.T, body string) []models.Event {
	t.Helper()
	var events []models.Event
	for _, frame := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(frame) == "" {
			continue
		}
		require.True(t, strings.HasPrefix(frame, "data: "), "bad frame %q", frame)
		var ev models.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func eventTypes(events []models.Event) []models.EventType {
	types := make([]models.EventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestAsk_PostStreamsEvents(t *testing.T) {
	asker := &fakeAsker{events: []models.Event{
		models.StatusEvent("searching"),
		models.TokenEvent("Hello [1]."),
		models.FinalEvent(models.Snapshot{ID: "s1", Markdown: "Hello [1].", Confidence: models.ConfidenceMedium}),
	}}
	h := newTestServer(t, Options{}, asker, &mockFeedback{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"query":"what is go","style":"expert"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, rec.Flushed)

	events := readEvents(t, rec.Body.String())
	assert.Equal(t, []models.EventType{models.EventStatus, models.EventToken, models.EventFinal}, eventTypes(events))
	require.NotNil(t, events[2].Snapshot)
	assert.Equal(t, "s1", events[2].Snapshot.ID)

	got := asker.last(t)
	assert.Equal(t, "what is go", got.Query)
	assert.Equal(t, models.StyleExpert, got.Style)
	assert.Equal(t, "192.0.2.1", got.ClientIP)
}

func TestAsk_GetReadsQueryParameters(t *testing.T) {
	asker := &fakeAsker{events: []models.Event{models.FinalEvent(models.Snapshot{Confidence: models.ConfidenceLow})}}
	h := newTestServer(t, Options{}, asker, &mockFeedback{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ask?q=doctor+near+me&lat=51.5&lon=-0.12&radius=2000&provider=gemini", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	got := asker.last(t)
	assert.Equal(t, "doctor near me", got.Query)
	assert.Equal(t, "gemini", got.Provider)
	assert.Equal(t, 2000, got.Radius)
	require.NotNil(t, got.Coords)
	assert.InDelta(t, 51.5, got.Coords.Lat, 1e-9)
	assert.InDelta(t, -0.12, got.Coords.Lon, 1e-9)

	events := readEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, models.EventFinal, events[0].Type)
	assert.NotNil(t, events[0].Snapshot.Cites)
}

func TestAsk_RejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"unknown style", http.MethodPost, "/api/ask", `{"query":"x","style":"loud"}`},
		{"query not a string", http.MethodPost, "/api/ask", `{"query":7}`},
		{"query too long", http.MethodPost, "/api/ask", fmt.Sprintf(`{"query":%q}`, strings.Repeat("a", 501))},
		{"latitude out of range", http.MethodPost, "/api/ask", `{"query":"x","coords":{"lat":95,"lon":0}}`},
		{"not json", http.MethodPost, "/api/ask", `{`},
		{"lat without lon", http.MethodGet, "/api/ask?q=x&lat=1", ""},
		{"radius not a number", http.MethodGet, "/api/ask?q=x&radius=far", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{}
			h := newTestServer(t, Options{}, asker, &mockFeedback{}, nil)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
			assert.Empty(t, asker.got)
		})
	}
}

func TestAsk_MissingQueryStreamsEmptyAnswer(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"post without query", http.MethodPost, "/api/ask", `{"subject":"x"}`},
		{"post empty object", http.MethodPost, "/api/ask", `{}`},
		{"get without q", http.MethodGet, "/api/ask", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{events: []models.Event{models.FinalEvent(models.Snapshot{
				Markdown:   answerquery.EmptyQueryMarkdown,
				Confidence: models.ConfidenceLow,
			})}}
			h := newTestServer(t, Options{}, asker, &mockFeedback{}, nil)

			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
			assert.Empty(t, asker.last(t).Query)

			events := readEvents(t, rec.Body.String())
			require.Len(t, events, 1)
			assert.Equal(t, models.EventFinal, events[0].Type)
			assert.Equal(t, answerquery.EmptyQueryMarkdown, events[0].Snapshot.Markdown)
		})
	}
}

func TestAsk_TimeoutEndsWithErrorAndFinal(t *testing.T) {
	asker := &fakeAsker{block: true}
	h := newTestServer(t, Options{RequestTimeout: 20 * time.Millisecond}, asker, &mockFeedback{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"query":"slow"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	events := readEvents(t, rec.Body.String())
	assert.Equal(t, []models.EventType{models.EventStatus, models.EventError, models.EventFinal}, eventTypes(events))
	assert.Equal(t, TimedOutMessage, events[1].Msg)
	assert.Equal(t, models.ConfidenceLow, events[2].Snapshot.Confidence)
}

func TestAsk_ClientGoneWritesNoFinal(t *testing.T) {
	asker := &fakeAsker{block: true}
	h := newTestServer(t, Options{}, asker, &mockFeedback{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"query":"bye"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(rec, req)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	events := readEvents(t, rec.Body.String())
	assert.Equal(t, []models.EventType{models.EventStatus}, eventTypes(events))
}

func TestClick(t *testing.T) {
	t.Run("recorded", func(t *testing.T) {
		fb := &mockFeedback{}
		fb.On("RecordClick", mock.Anything, "https://example.com/a").Return(nil).Once()
		h := newTestServer(t, Options{}, &fakeAsker{}, fb, nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(`{"url":"https://example.com/a"}`)))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		fb.AssertExpectations(t)
	})

	t.Run("missing url", func(t *testing.T) {
		fb := &mockFeedback{}
		h := newTestServer(t, Options{}, &fakeAsker{}, fb, nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		fb.AssertNotCalled(t, "RecordClick", mock.Anything, mock.Anything)
	})

	t.Run("store down", func(t *testing.T) {
		fb := &mockFeedback{}
		fb.On("RecordClick", mock.Anything, "https://example.com").
			Return(errors.NewSignalStoreUnavailableError(fmt.Errorf("connection refused")))
		h := newTestServer(t, Options{}, &fakeAsker{}, fb, nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/click", strings.NewReader(`{"url":"https://example.com"}`)))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "SIGNAL_STORE_UNAVAILABLE")
	})
}

func TestFeedback(t *testing.T) {
	fb := &mockFeedback{}
	fb.On("Execute", mock.Anything, mock.MatchedBy(func(in *recordfeedback.Input) bool {
		return in.Query == "ada lovelace" && in.Helpful != nil && *in.Helpful && in.Verdict == "prefer"
	})).Return(&recordfeedback.Output{Verdict: "prefer", FeedbackID: 7}, nil).Once()
	h := newTestServer(t, Options{}, &fakeAsker{}, fb, nil)

	body := `{"query":"ada lovelace","helpful":true,"entity":"Ada Lovelace","verdict":"prefer"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var out recordfeedback.Output
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, int64(7), out.FeedbackID)
	fb.AssertExpectations(t)
}

func TestFeedback_RejectsUnknownVerdict(t *testing.T) {
	fb := &mockFeedback{}
	h := newTestServer(t, Options{}, &fakeAsker{}, fb, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/feedback",
		bytes.NewBufferString(`{"query":"q","verdict":"meh"}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fb.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestGeo(t *testing.T) {
	tests := []struct {
		name      string
		trust     bool
		forwarded string
		loc       *geoip.Location
		wantCode  int
		wantIP    string
	}{
		{"remote address", false, "", &geoip.Location{Lat: 1, Lon: 2, City: "Town", Source: "ipapi.co"}, http.StatusOK, "192.0.2.1"},
		{"forwarded ignored", false, "8.8.8.8", &geoip.Location{Lat: 1, Lon: 2, Source: "ipapi.co"}, http.StatusOK, "192.0.2.1"},
		{"forwarded trusted", true, "8.8.8.8, 10.0.0.1", &geoip.Location{Lat: 1, Lon: 2, Source: "ipapi.co"}, http.StatusOK, "8.8.8.8"},
		{"not found", false, "", nil, http.StatusNotFound, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := &fakeLocator{loc: tt.loc}
			h := newTestServer(t, Options{TrustForwardedFor: tt.trust}, &fakeAsker{}, &mockFeedback{}, loc)

			req := httptest.NewRequest(http.MethodGet, "/api/geo", nil)
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantIP, loc.gotIP)
			if tt.wantCode == http.StatusOK {
				var got geoip.Location
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, *tt.loc, got)
			}
		})
	}
}

func TestGeo_NoLocator(t *testing.T) {
	h := newTestServer(t, Options{}, &fakeAsker{}, &mockFeedback{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/geo", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	healthy := func(context.Context) error { return nil }
	broken := func(context.Context) error { return fmt.Errorf("dial tcp: refused") }

	t.Run("health", func(t *testing.T) {
		h := newTestServer(t, Options{}, &fakeAsker{}, &mockFeedback{}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"healthy","time":"2025-05-01T09:00:00Z"}`, rec.Body.String())
	})

	t.Run("ready", func(t *testing.T) {
		h := newTestServer(t, Options{Checks: map[string]Check{"redis": healthy}}, &fakeAsker{}, &mockFeedback{}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ready"`)
	})

	t.Run("not ready", func(t *testing.T) {
		h := newTestServer(t, Options{Checks: map[string]Check{"redis": healthy, "postgres": broken}}, &fakeAsker{}, &mockFeedback{}, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body struct {
			Failed map[string]string `json:"failed"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, map[string]string{"postgres": "dial tcp: refused"}, body.Failed)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Options{}, &fakeAsker{}, &mockFeedback{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
