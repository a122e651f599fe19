// Package wikidata resolves official links of an entity from Wikidata claims.
package wikidata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

// Claim properties used for official links.
const (
	PropWebsite         = "P856"
	PropTwitter         = "P2002"
	PropInstagram       = "P2003"
	PropFacebook        = "P2013"
	PropLinkedInPerson  = "P6634"
	PropLinkedInCompany = "P4264"
)

type Client struct {
	http    *httpclient.Client
	baseURL string
}

func NewClient(http *httpclient.Client, baseURL string) *Client {
	return &Client{http: http, baseURL: strings.TrimRight(baseURL, "/")}
}

// OfficialLinks looks up the best matching entity for name and returns its
// links. No match returns empty Links and a nil error.
func (c *Client) OfficialLinks(ctx context.Context, name string) (models.Links, error) {
	id, err := c.searchEntity(ctx, name)
	if err != nil || id == "" {
		return models.Links{}, err
	}

	params := url.Values{}
	params.Set("action", "wbgetentities")
	params.Set("ids", id)
	params.Set("props", "claims")
	params.Set("format", "json")

	var resp struct {
		Entities map[string]struct {
			Claims map[string][]struct {
				Mainsnak struct {
					Datavalue struct {
						Value json.RawMessage `json:"value"`
					} `json:"datavalue"`
				} `json:"mainsnak"`
			} `json:"claims"`
		} `json:"entities"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/w/api.php?"+params.Encode(), nil, &resp); err != nil {
		return models.Links{}, fmt.Errorf("wikidata entities: %w", err)
	}

	claims := resp.Entities[id].Claims
	first := func(prop string) string {
		vals := claims[prop]
		if len(vals) == 0 {
			return ""
		}
		return claimString(vals[0].Mainsnak.Datavalue.Value)
	}

	var links models.Links
	links.Website = first(PropWebsite)
	if handle := first(PropTwitter); handle != "" {
		links.X = "https://x.com/" + handle
	}
	if handle := first(PropInstagram); handle != "" {
		links.Instagram = "https://instagram.com/" + handle
	}
	if handle := first(PropFacebook); handle != "" {
		links.Facebook = "https://facebook.com/" + handle
	}
	if li := first(PropLinkedInPerson); li != "" {
		if strings.HasPrefix(li, "http") {
			links.LinkedIn = li
		} else {
			links.LinkedIn = "https://www.linkedin.com/in/" + strings.TrimLeft(li, "/")
		}
	}
	if org := first(PropLinkedInCompany); org != "" {
		links.LinkedIn = "https://www.linkedin.com/company/" + org
	}
	return links, nil
}

func (c *Client) searchEntity(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("search", name)
	params.Set("language", "en")
	params.Set("format", "json")
	params.Set("limit", "1")

	var resp struct {
		Search []struct {
			ID string `json:"id"`
		} `json:"search"`
	}
	if err := c.http.GetJSON(ctx, c.baseURL+"/w/api.php?"+params.Encode(), nil, &resp); err != nil {
		return "", fmt.Errorf("wikidata search: %w", err)
	}
	if len(resp.Search) == 0 {
		return "", nil
	}
	return resp.Search[0].ID, nil
}

// claimString reads a string datavalue or the url field of an object value.
func claimString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
		ID  string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.URL != "" {
			return obj.URL
		}
		return obj.ID
	}
	return ""
}
