// Package geoip resolves approximate coordinates for a client address.
package geoip

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	httpclient "wizkid-search/internal/common/http"
)

// ErrNotFound is returned when no endpoint produced coordinates.
var ErrNotFound = errors.New("GEOIP_NOT_FOUND")

// Location is an approximate position.
type Location struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	City   string  `json:"city,omitempty"`
	Source string  `json:"source"`
}

// Locator tries endpoint templates in order. A template's {ip} is replaced
// by the address; an empty address asks the service to use the caller's.
type Locator struct {
	http      *httpclient.Client
	endpoints []string
}

func NewLocator(http *httpclient.Client, endpoints []string) *Locator {
	return &Locator{http: http, endpoints: endpoints}
}

// Locate returns the first usable location.
func (l *Locator) Locate(ctx context.Context, ip string) (*Location, error) {
	if l == nil || len(l.endpoints) == 0 {
		return nil, ErrNotFound
	}
	if ip != "" && isPrivate(ip) {
		ip = ""
	}

	var errs []error
	for _, tmpl := range l.endpoints {
		endpoint := expand(tmpl, ip)

		var resp struct {
			Success   *bool    `json:"success"`
			Error     bool     `json:"error"`
			Latitude  *float64 `json:"latitude"`
			Longitude *float64 `json:"longitude"`
			Lat       *float64 `json:"lat"`
			Lon       *float64 `json:"lon"`
			City      string   `json:"city"`
		}
		if err := l.http.GetJSON(ctx, endpoint, nil, &resp); err != nil {
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if resp.Error || (resp.Success != nil && !*resp.Success) {
			continue
		}
		lat, lon := pick(resp.Latitude, resp.Lat), pick(resp.Longitude, resp.Lon)
		if lat == nil || lon == nil {
			continue
		}
		return &Location{Lat: *lat, Lon: *lon, City: resp.City, Source: hostOf(endpoint)}, nil
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, errors.Join(errs...))
	}
	return nil, ErrNotFound
}

func expand(tmpl, ip string) string {
	if ip != "" {
		return strings.ReplaceAll(tmpl, "{ip}", ip)
	}
	out := strings.ReplaceAll(tmpl, "{ip}/", "")
	return strings.ReplaceAll(out, "{ip}", "")
}

func pick(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}

func hostOf(endpoint string) string {
	rest := endpoint
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func isPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() || parsed.IsLinkLocalUnicast()
}

// ClientIP extracts the originating address from X-Forwarded-For or the
// remote address.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first := strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
