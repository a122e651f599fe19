package aggregatesources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/wikipedia"
	"wizkid-search/internal/models"
)

type fakeWeb struct {
	mu      sync.Mutex
	queries map[string]int
	results map[string][]models.SearchResult
	failing map[string]bool
	panics  map[string]bool
}

func (f *fakeWeb) Search(_ context.Context, q string, limit int) ([]models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queries == nil {
		f.queries = map[string]int{}
	}
	f.queries[q] = limit
	if f.failing[q] {
		return nil, errors.New("quota exceeded")
	}
	if f.panics[q] {
		var broken map[string]int
		broken[q]++
	}
	return f.results[q], nil
}

type fakeKG struct {
	links models.Links
	calls int
}

func (f *fakeKG) OfficialLinks(_ context.Context, _ string) (models.Links, error) {
	f.calls++
	return f.links, nil
}

type fakeWiki struct {
	summary *wikipedia.Summary
}

func (f *fakeWiki) Summary(_ context.Context, _ string) (*wikipedia.Summary, error) {
	return f.summary, nil
}

func hit(title, url string) models.SearchResult {
	return models.SearchResult{Title: title, URL: url, Snippet: title + " snippet"}
}

func TestExecute_CompanyLinksFirst(t *testing.T) {
	web := &fakeWeb{results: map[string][]models.SearchResult{
		"Acme Corp": {
			hit("Acme home", "https://acme.com/?utm_source=x"),
			hit("Acme news", "https://news.example.com/acme"),
		},
		"Acme Corp overview": {hit("Acme on Example", "https://www.example.org/acme#top")},
	}}
	kg := &fakeKG{links: models.Links{Website: "https://acme.com/", LinkedIn: "https://www.linkedin.com/company/acme"}}
	h := NewHandler(LoadConfig(), web, kg, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "Acme Corp", Intent: models.IntentCompany})
	require.NoError(t, err)
	require.Len(t, out.Citations, 4)

	assert.Equal(t, 1, kg.calls)
	assert.Equal(t, "Official website", out.Citations[0].Title)
	assert.Equal(t, "LinkedIn", out.Citations[1].Title)
	assert.Equal(t, "https://news.example.com/acme", out.Citations[2].URL)
	assert.Equal(t, "example.org", out.Citations[3].Domain)
	for i, c := range out.Citations {
		assert.Equal(t, i+1, c.ID)
	}
	assert.Equal(t, 4, web.queries["Acme Corp team"])
	assert.Len(t, web.queries, 7)
}

func TestExecute_PeopleQueries(t *testing.T) {
	web := &fakeWeb{
		results: map[string][]models.SearchResult{
			"Ada Lovelace biography": {hit("Bio", "https://bio.example.com/ada")},
		},
		failing: map[string]bool{"Ada Lovelace": true},
	}
	kg := &fakeKG{links: models.Links{Website: "https://should-not-be-used"}}
	h := NewHandler(LoadConfig(), web, kg, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "Ada Lovelace", Intent: models.IntentPeople})
	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "bio.example.com", out.Citations[0].Domain)
	assert.Zero(t, kg.calls)
	assert.Equal(t, 3, web.queries["site:instagram.com Ada Lovelace"])
	assert.Len(t, web.queries, 7)
}

func TestExecute_PanickingProviderIsSkipped(t *testing.T) {
	web := &fakeWeb{
		results: map[string][]models.SearchResult{
			"Ada Lovelace":           {hit("Home", "https://ada.example.com/")},
			"Ada Lovelace biography": {hit("Bio", "https://bio.example.com/ada")},
		},
		panics: map[string]bool{"Ada Lovelace biography": true},
	}
	h := NewHandler(LoadConfig(), web, nil, nil, logger.NewTestLogger(t))

	var out *Output
	var err error
	require.NotPanics(t, func() {
		out, err = h.Execute(context.Background(), &Input{Subject: "Ada Lovelace", Intent: models.IntentPeople})
	})
	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "ada.example.com", out.Citations[0].Domain)
}

func TestExecute_ZeroConcurrencyIsUnbounded(t *testing.T) {
	web := &fakeWeb{results: map[string][]models.SearchResult{"quantum computing": {hit("QC", "https://qc.example.com/")}}}
	h := NewHandler(&Config{MaxCitations: 10, TopicResultsPerQuery: 4}, web, nil, nil, logger.NewTestLogger(t))

	done := make(chan *Output, 1)
	go func() {
		out, _ := h.Execute(context.Background(), &Input{Subject: "quantum computing", Intent: models.IntentGeneral})
		done <- out
	}()
	select {
	case out := <-done:
		require.NotNil(t, out)
		assert.Len(t, out.Citations, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("aggregation blocked with zero concurrency")
	}
}

func TestExecute_ProvidedLinksSkipLookup(t *testing.T) {
	kg := &fakeKG{}
	links := &models.Links{Wiki: "https://en.wikipedia.org/wiki/Acme"}
	h := NewHandler(LoadConfig(), &fakeWeb{}, kg, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "Acme", Intent: models.IntentCompany, Links: links})
	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "Wikipedia", out.Citations[0].Title)
	assert.Zero(t, kg.calls)
}

func TestExecute_CapsAtMaxCitations(t *testing.T) {
	var many []models.SearchResult
	for i := 0; i < 15; i++ {
		many = append(many, hit(fmt.Sprintf("r%d", i), fmt.Sprintf("https://site%d.example.com/", i)))
	}
	web := &fakeWeb{results: map[string][]models.SearchResult{"quantum computing": many}}
	h := NewHandler(LoadConfig(), web, nil, nil, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "quantum computing", Intent: models.IntentGeneral})
	require.NoError(t, err)
	require.Len(t, out.Citations, 10)
	assert.Equal(t, 10, out.Citations[9].ID)
	assert.Equal(t, "r9", out.Citations[9].Title)
}

func TestExecute_EncyclopediaFallback(t *testing.T) {
	wiki := &fakeWiki{summary: &wikipedia.Summary{
		Title:   "Quantum computing",
		Extract: "A quantum computer is...",
		URL:     "https://en.wikipedia.org/wiki/Quantum_computing",
	}}
	h := NewHandler(LoadConfig(), &fakeWeb{}, nil, wiki, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "quantum computing", Intent: models.IntentGeneral})
	require.NoError(t, err)
	require.Len(t, out.Citations, 1)
	assert.Equal(t, "A quantum computer is...", out.Citations[0].Snippet)
	assert.Equal(t, "en.wikipedia.org", out.Citations[0].Domain)
}

func TestExecute_NothingFound(t *testing.T) {
	h := NewHandler(LoadConfig(), &fakeWeb{}, nil, &fakeWiki{}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Subject: "zzzz", Intent: models.IntentGeneral})
	require.NoError(t, err)
	assert.Empty(t, out.Citations)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewHandler(LoadConfig(), &fakeWeb{}, nil, nil, logger.NewTestLogger(t))

	_, err := h.Execute(ctx, &Input{Subject: "x", Intent: models.IntentGeneral})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecute_SubjectRequired(t *testing.T) {
	h := NewHandler(LoadConfig(), nil, nil, nil, logger.NewTestLogger(t))
	_, err := h.Execute(context.Background(), &Input{Subject: "  "})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_REQUEST")
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]models.Citation{
		{URL: "https://A.com/x?a=1"},
		{URL: "https://a.com/x#frag", Title: "dup"},
		{URL: ""},
		{URL: "https://b.com/y", Title: "B"},
	}, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "https://A.com/x?a=1", got[0].Title)
	assert.Equal(t, 2, got[1].ID)
}
