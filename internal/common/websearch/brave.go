package websearch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

// Brave queries the Brave Search web API.
type Brave struct {
	http    *httpclient.Client
	baseURL string
	token   string
}

func NewBrave(http *httpclient.Client, baseURL, token string) *Brave {
	return &Brave{http: http, baseURL: baseURL, token: token}
}

func (b *Brave) Name() string { return "brave" }

func (b *Brave) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if b.token == "" {
		return nil, ErrNotConfigured
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(limit))

	var resp struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{"X-Subscription-Token": b.token}
	if err := b.http.GetJSON(ctx, b.baseURL+"?"+params.Encode(), headers, &resp); err != nil {
		return nil, fmt.Errorf("brave: %w", err)
	}

	out := make([]models.SearchResult, 0, len(resp.Web.Results))
	for i, r := range resp.Web.Results {
		if i >= limit {
			break
		}
		out = append(out, models.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description, Source: "brave"})
	}
	return out, nil
}
