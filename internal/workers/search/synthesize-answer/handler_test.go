package synthesizeanswer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizkid-search/internal/common/llm"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
)

type scriptedProvider struct {
	vendor string
	model  string
	frags  []string
	err    error
	calls  int
}

func (p *scriptedProvider) Vendor() string { return p.vendor }

func (p *scriptedProvider) Model() string { return p.model }

func (p *scriptedProvider) Stream(ctx context.Context, _ string, onFragment func(string) error) error {
	p.calls++
	for _, f := range p.frags {
		if err := onFragment(f); err != nil {
			return err
		}
	}
	return p.err
}

func rateLimited(vendor string) error {
	return fmt.Errorf("%w: %s: 429", llm.ErrRateLimited, vendor)
}

func cites(n int) []models.Citation {
	out := make([]models.Citation, n)
	for i := range out {
		out[i] = models.Citation{
			ID:      i + 1,
			Title:   fmt.Sprintf("Source %d", i+1),
			URL:     fmt.Sprintf("https://s%d.example.com", i+1),
			Snippet: fmt.Sprintf("snippet %d", i+1),
		}
	}
	return out
}

func collect(h *Handler, in *Input) []string {
	var out []string
	for f := range h.Synthesize(context.Background(), in) {
		out = append(out, f)
	}
	return out
}

func newHandler(t *testing.T, providers ...llm.Provider) *Handler {
	return NewHandler(LoadConfig(), providers, logger.NewTestLogger(t))
}

func TestSynthesize_FirstProviderStreams(t *testing.T) {
	openai := &scriptedProvider{vendor: llm.VendorOpenAI, model: "gpt-4o-mini", frags: []string{"Ada was ", "a mathematician [1]."}}
	gemini := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash-8b"}
	h := newHandler(t, openai, gemini)

	got := collect(h, &Input{Question: "who is ada lovelace", Intent: models.IntentPeople, Citations: cites(2)})
	assert.Equal(t, []string{"Ada was ", "a mathematician [1]."}, got)
	assert.Zero(t, gemini.calls)
}

func TestSynthesize_RateLimitSkipsVendor(t *testing.T) {
	flash8b := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash-8b", err: rateLimited("gemini")}
	flash := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash", frags: []string{"never"}}
	openai := &scriptedProvider{vendor: llm.VendorOpenAI, model: "gpt-4o-mini", frags: []string{"answer [1]"}}
	h := newHandler(t, flash8b, flash, openai)

	got := collect(h, &Input{Question: "q", Citations: cites(1)})
	assert.Equal(t, "answer [1]", strings.Join(got, ""))
	assert.Equal(t, 1, flash8b.calls)
	assert.Zero(t, flash.calls)
	assert.Equal(t, 1, openai.calls)
}

func TestSynthesize_TransientErrorTriesNext(t *testing.T) {
	flash8b := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash-8b", err: errors.New("503")}
	flash := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash", frags: []string{"ok [1]"}}
	h := newHandler(t, flash8b, flash)

	got := collect(h, &Input{Question: "q", Citations: cites(1)})
	assert.Equal(t, "ok [1]", strings.Join(got, ""))
	assert.Equal(t, 1, flash8b.calls)
}

func TestSynthesize_ErrorAfterFragmentsStops(t *testing.T) {
	first := &scriptedProvider{vendor: llm.VendorOpenAI, model: "gpt-4o-mini", frags: []string{"partial "}, err: errors.New("connection reset")}
	second := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash"}
	h := newHandler(t, first, second)

	got := collect(h, &Input{Question: "q", Citations: cites(3)})
	assert.Equal(t, []string{"partial "}, got)
	assert.Zero(t, second.calls)
}

func TestSynthesize_StitchedFallback(t *testing.T) {
	h := newHandler(t,
		&scriptedProvider{vendor: llm.VendorGemini, model: "a", err: rateLimited("gemini")},
		&scriptedProvider{vendor: llm.VendorOpenAI, model: "b", err: rateLimited("openai")},
	)

	got := collect(h, &Input{Question: "q", Citations: cites(7)})
	require.NotEmpty(t, got)
	text := strings.Join(got, "")
	assert.Equal(t, StitchedText(cites(7), 5), text)
	assert.Contains(t, text, "Source 1 [1]: snippet 1")
	assert.Contains(t, text, "Source 5 [5]: snippet 5")
	assert.NotContains(t, text, "Source 6")
	for _, chunk := range got {
		assert.LessOrEqual(t, len([]rune(chunk)), 90)
	}
}

func TestSynthesize_NoProvidersNoCitations(t *testing.T) {
	h := newHandler(t)
	got := collect(h, &Input{Question: "q"})
	assert.Equal(t, apology, strings.Join(got, ""))
}

func TestSynthesize_EmptyProviderFallsThrough(t *testing.T) {
	empty := &scriptedProvider{vendor: llm.VendorOpenAI, model: "a", frags: []string{"", "  "}}
	next := &scriptedProvider{vendor: llm.VendorGemini, model: "b", frags: []string{"real [1]"}}
	h := newHandler(t, empty, next)

	got := collect(h, &Input{Question: "q", Citations: cites(1)})
	assert.Contains(t, strings.Join(got, ""), "real [1]")
	assert.Equal(t, 1, next.calls)
}

func TestSynthesize_DropsUnknownMarkers(t *testing.T) {
	p := &scriptedProvider{vendor: llm.VendorOpenAI, model: "a", frags: []string{"One [1]. Two [", "12]. Three [2", "]. Array[i] [3"}}
	h := newHandler(t, p)

	got := collect(h, &Input{Question: "q", Citations: cites(2)})
	assert.Equal(t, "One [1]. Two . Three [2]. Array[i] [3", strings.Join(got, ""))

	p = &scriptedProvider{vendor: llm.VendorOpenAI, model: "a", frags: []string{"Fact [12", "34] and [7] and [2]."}}
	h = newHandler(t, p)
	got = collect(h, &Input{Question: "q", Citations: cites(3)})
	assert.Equal(t, "Fact  and  and [2].", strings.Join(got, ""))
}

func TestCitationFilter_LongMarkers(t *testing.T) {
	f := newCitationFilter(3)
	assert.Equal(t, "Fact  and  and [2].", f.Write("Fact [1234] and [7] and [2]."))
	assert.Equal(t, "", f.Flush())

	f = newCitationFilter(3)
	assert.Equal(t, "id [123456789012345678901234] ok", f.Write("id [123456789012345678901234] ok")+f.Flush())
	assert.Equal(t, "ref  end", f.Write("ref [99999999999999999999] end"))
}

func TestSynthesize_ConsumerStops(t *testing.T) {
	p := &scriptedProvider{vendor: llm.VendorOpenAI, model: "a", frags: []string{"a", "b", "c"}}
	next := &scriptedProvider{vendor: llm.VendorGemini, model: "b"}
	h := newHandler(t, p, next)

	var got []string
	for f := range h.Synthesize(context.Background(), &Input{Question: "q"}) {
		got = append(got, f)
		break
	}
	assert.Equal(t, []string{"a"}, got)
	assert.Zero(t, next.calls)
}

func TestPlan(t *testing.T) {
	oa := &scriptedProvider{vendor: llm.VendorOpenAI, model: "gpt-4o-mini"}
	g1 := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash-8b"}
	g2 := &scriptedProvider{vendor: llm.VendorGemini, model: "gemini-1.5-flash"}
	h := newHandler(t, oa, g1, g2)

	assert.Equal(t, []llm.Provider{oa, g1, g2}, h.Plan("auto"))
	assert.Equal(t, []llm.Provider{oa, g1, g2}, h.Plan(""))
	assert.Equal(t, []llm.Provider{g1, g2, oa}, h.Plan("Gemini"))
}

func TestExecute_CollectsAnswer(t *testing.T) {
	p := &scriptedProvider{vendor: llm.VendorOpenAI, model: "a", frags: []string{"Hello ", "world [1]."}}
	h := newHandler(t, p)

	out, err := h.Execute(context.Background(), &Input{Question: "q", Citations: cites(1)})
	require.NoError(t, err)
	assert.Equal(t, "Hello world [1].", out.Answer)
}

func TestBuildPrompt(t *testing.T) {
	people := BuildPrompt(&Input{Question: "who is ada", Subject: "Ada Lovelace", Intent: models.IntentPeople, Citations: cites(2)})
	assert.Contains(t, people, "PERSON BIO in <= 200 words")
	assert.Contains(t, people, "Subject: Ada Lovelace")
	assert.Contains(t, people, "[2] Source 2 — https://s2.example.com")
	assert.Contains(t, people, simpleRegister)

	topic := BuildPrompt(&Input{Question: "what is rust", Intent: models.IntentGeneral, Style: models.StyleExpert})
	assert.Contains(t, topic, "<= 180 words")
	assert.Contains(t, topic, "Query: what is rust")
	assert.Contains(t, topic, expertRegister)
}

func TestChunk(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor ", 20)
	chunks := Chunk(text, 90)
	assert.Equal(t, text, strings.Join(chunks, ""))
	for _, c := range chunks[:len(chunks)-1] {
		assert.LessOrEqual(t, len(c), 90)
		assert.True(t, strings.HasSuffix(c, " "))
	}

	long := strings.Repeat("x", 200)
	assert.Equal(t, []string{long[:90], long[90:180], long[180:]}, Chunk(long, 90))
}
