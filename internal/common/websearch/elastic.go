package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"wizkid-search/internal/models"
)

var sitePattern = regexp.MustCompile(`\bsite:(\S+)`)

// ElasticIndex searches a self-hosted index of crawled pages.
type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	return &ElasticIndex{client: client, index: index}
}

func (e *ElasticIndex) Name() string { return "elastic" }

// Search runs a multi_match over title and content. A "site:host" operator
// becomes a wildcard filter on the url field.
func (e *ElasticIndex) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	text := query
	filters := []interface{}{}
	if m := sitePattern.FindStringSubmatch(query); m != nil {
		text = strings.TrimSpace(sitePattern.ReplaceAllString(query, ""))
		filters = append(filters, map[string]interface{}{
			"wildcard": map[string]interface{}{"url": "*" + m[1] + "*"},
		})
	}
	text = strings.Trim(text, `" `)

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  text,
							"fields": []string{"title^2", "content"},
						},
					},
				},
				"filter": filters,
			},
		},
		"_source": []string{"title", "url", "snippet"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elastic: failed to encode query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elastic: search failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Title   string `json:"title"`
					URL     string `json:"url"`
					Snippet string `json:"snippet"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("elastic: failed to decode response: %w", err)
	}

	out := make([]models.SearchResult, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		if h.Source.URL == "" {
			continue
		}
		out = append(out, models.SearchResult{
			Title:   h.Source.Title,
			URL:     h.Source.URL,
			Snippet: h.Source.Snippet,
			Source:  "elastic",
		})
	}
	return out, nil
}
