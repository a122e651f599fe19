// Package places queries open map data for points of interest near a position.
package places

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

// ErrNoEndpoint is returned when every Overpass endpoint failed.
var ErrNoEndpoint = errors.New("OVERPASS_UNAVAILABLE")

// Tag is an OSM key with the accepted values, e.g. amenity=doctors|clinic.
type Tag struct {
	Key    string
	Values []string
}

// Overpass queries the Overpass API, trying endpoints in order.
type Overpass struct {
	http      *httpclient.Client
	endpoints []string
}

func NewOverpass(http *httpclient.Client, endpoints []string) *Overpass {
	return &Overpass{http: http, endpoints: endpoints}
}

type overpassResponse struct {
	Elements []struct {
		Type   string            `json:"type"`
		ID     int64             `json:"id"`
		Lat    float64           `json:"lat"`
		Lon    float64           `json:"lon"`
		Center *struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// BuildQuery renders the Overpass QL for nodes, ways and relations carrying
// the tag within radius meters.
func BuildQuery(tag Tag, at models.Coords, radius int) string {
	around := fmt.Sprintf("around:%d,%f,%f", radius, at.Lat, at.Lon)
	var b strings.Builder
	for _, v := range tag.Values {
		for _, kind := range []string{"node", "way", "relation"} {
			fmt.Fprintf(&b, "%s[%s=%s](%s);", kind, tag.Key, v, around)
		}
	}
	return fmt.Sprintf("[out:json][timeout:25];(%s);out center tags 80;", b.String())
}

// Nearby returns named elements matching tag. Distance is left zero.
func (o *Overpass) Nearby(ctx context.Context, tag Tag, at models.Coords, radius int, category string) ([]models.Place, error) {
	form := url.Values{"data": {BuildQuery(tag, at, radius)}}

	var resp overpassResponse
	var lastErr error = ErrNoEndpoint
	ok := false
	for _, ep := range o.endpoints {
		if err := o.http.PostFormJSON(ctx, ep, form, &resp); err != nil {
			lastErr = fmt.Errorf("overpass %s: %w", ep, err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		ok = true
		break
	}
	if !ok {
		return nil, lastErr
	}

	out := make([]models.Place, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["name:en"]
		}
		lat, lon := el.Lat, el.Lon
		if el.Center != nil {
			lat, lon = el.Center.Lat, el.Center.Lon
		}
		if name == "" || (lat == 0 && lon == 0) {
			continue
		}
		out = append(out, models.Place{
			Name:     name,
			Lat:      lat,
			Lon:      lon,
			Address:  joinNonEmpty(" ", el.Tags["addr:housenumber"], el.Tags["addr:street"], el.Tags["addr:city"]),
			Phone:    firstNonEmpty(el.Tags["phone"], el.Tags["contact:phone"]),
			Website:  firstNonEmpty(el.Tags["website"], el.Tags["contact:website"]),
			Category: category,
			Source:   "osm",
		})
	}
	return out, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	keep := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
