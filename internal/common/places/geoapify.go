package places

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

// Geoapify queries the Geoapify Places API by free text.
type Geoapify struct {
	http    *httpclient.Client
	baseURL string
	apiKey  string
}

func NewGeoapify(http *httpclient.Client, baseURL, apiKey string) *Geoapify {
	return &Geoapify{http: http, baseURL: baseURL, apiKey: apiKey}
}

// Enabled reports whether an API key is configured.
func (g *Geoapify) Enabled() bool { return g != nil && g.apiKey != "" }

func (g *Geoapify) Nearby(ctx context.Context, text string, at models.Coords, limit int, category string) ([]models.Place, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("bias", fmt.Sprintf("proximity:%f,%f", at.Lon, at.Lat))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("lang", "en")
	params.Set("apiKey", g.apiKey)

	var resp struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Name         string `json:"name"`
				AddressLine1 string `json:"address_line1"`
				Formatted    string `json:"formatted"`
				Website      string `json:"website"`
				Contact      struct {
					Phone string `json:"phone"`
				} `json:"contact"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := g.http.GetJSON(ctx, g.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("geoapify: %w", err)
	}

	out := make([]models.Place, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		p := f.Properties
		name := firstNonEmpty(p.Name, p.AddressLine1)
		if name == "" {
			continue
		}
		out = append(out, models.Place{
			Name:     name,
			Lat:      f.Geometry.Coordinates[1],
			Lon:      f.Geometry.Coordinates[0],
			Address:  firstNonEmpty(p.Formatted, p.AddressLine1),
			Phone:    p.Contact.Phone,
			Website:  p.Website,
			Category: category,
			Source:   "geoapify",
		})
	}
	return out, nil
}
