package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

// GoogleCSE queries the Google Custom Search JSON API.
type GoogleCSE struct {
	http     *httpclient.Client
	baseURL  string
	apiKey   string
	engineID string
}

func NewGoogleCSE(http *httpclient.Client, baseURL, apiKey, engineID string) *GoogleCSE {
	return &GoogleCSE{http: http, baseURL: baseURL, apiKey: apiKey, engineID: engineID}
}

func (g *GoogleCSE) Name() string { return "cse" }

func (g *GoogleCSE) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if g.apiKey == "" || g.engineID == "" {
		return nil, ErrNotConfigured
	}
	// the API rejects num outside 1..10
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	params := url.Values{}
	params.Set("key", g.apiKey)
	params.Set("cx", g.engineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))

	var resp struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := g.http.GetJSON(ctx, g.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("google cse: %w", err)
	}

	out := make([]models.SearchResult, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, models.SearchResult{Title: it.Title, URL: it.Link, Snippet: it.Snippet, Source: "cse"})
	}
	return out, nil
}
