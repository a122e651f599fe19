// Package wikipedia talks to the MediaWiki search, REST summary and
// pageviews APIs.
package wikipedia

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	httpclient "wizkid-search/internal/common/http"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// SearchHit is one row of list=search.
type SearchHit struct {
	Title   string
	Snippet string
	URL     string
}

// Summary is the REST page summary of an article.
type Summary struct {
	Title       string
	Description string
	Extract     string
	Image       string
	URL         string
}

type Client struct {
	http         *httpclient.Client
	baseURL      string
	pageviewsURL string
	now          func() time.Time
}

func NewClient(http *httpclient.Client, baseURL, pageviewsURL string) *Client {
	return &Client{
		http:         http,
		baseURL:      strings.TrimRight(baseURL, "/"),
		pageviewsURL: strings.TrimRight(pageviewsURL, "/"),
		now:          time.Now,
	}
}

// Slug converts a title to its URL path segment.
func Slug(title string) string {
	return url.PathEscape(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}

// PageURL returns the article URL for a title.
func (c *Client) PageURL(title string) string {
	return fmt.Sprintf("%s/wiki/%s", c.baseURL, Slug(title))
}

// Search runs a full-text title search.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")
	params.Set("utf8", "1")

	var resp struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/w/api.php?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("wikipedia search: %w", err)
	}

	hits := make([]SearchHit, 0, len(resp.Query.Search))
	for _, s := range resp.Query.Search {
		hits = append(hits, SearchHit{
			Title:   s.Title,
			Snippet: strings.TrimSpace(tagPattern.ReplaceAllString(s.Snippet, "")),
			URL:     c.PageURL(s.Title),
		})
	}
	return hits, nil
}

// Summary fetches the page summary. A missing page returns (nil, nil).
func (c *Client) Summary(ctx context.Context, title string) (*Summary, error) {
	var resp struct {
		Type          string `json:"type"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Extract       string `json:"extract"`
		OriginalImage struct {
			Source string `json:"source"`
		} `json:"originalimage"`
		Thumbnail struct {
			Source string `json:"source"`
		} `json:"thumbnail"`
	}
	err := c.http.GetJSON(ctx, c.baseURL+"/api/rest_v1/page/summary/"+Slug(title), nil, &resp)
	if httpclient.IsStatus(err, 404) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wikipedia summary: %w", err)
	}

	s := &Summary{
		Title:       resp.Title,
		Description: resp.Description,
		Extract:     resp.Extract,
		Image:       resp.OriginalImage.Source,
		URL:         c.PageURL(resp.Title),
	}
	if s.Title == "" {
		s.Title = title
		s.URL = c.PageURL(title)
	}
	if s.Image == "" {
		s.Image = resp.Thumbnail.Source
	}
	if s.Description == "" {
		s.Description = s.Extract
	}
	return s, nil
}

// Pageviews sums daily user pageviews of an article over the last days.
func (c *Client) Pageviews(ctx context.Context, title string, days int) (int, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -days)
	endpoint := fmt.Sprintf("%s/%s/daily/%s/%s",
		c.pageviewsURL, Slug(title), start.Format("20060102"), end.Format("20060102"))

	var resp struct {
		Items []struct {
			Views int `json:"views"`
		} `json:"items"`
	}
	if err := c.http.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return 0, fmt.Errorf("wikipedia pageviews: %w", err)
	}
	total := 0
	for _, it := range resp.Items {
		total += it.Views
	}
	return total, nil
}
