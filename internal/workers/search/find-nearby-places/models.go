// internal/workers/search/find-nearby-places/models.go
package findnearbyplaces

import (
	"context"

	"wizkid-search/internal/common/geoip"
	"wizkid-search/internal/common/places"
	"wizkid-search/internal/models"
)

type Input struct {
	Query    string         `json:"query"`
	Coords   *models.Coords `json:"coords,omitempty"`
	Radius   int            `json:"radius,omitempty"`
	ClientIP string         `json:"clientIp,omitempty"`
}

type Output struct {
	// Category is empty when the query names no known service.
	Category string         `json:"category"`
	Places   []models.Place `json:"places"`
	Origin   *models.Coords `json:"origin,omitempty"`
	// LocatedBy names the geolocation service when coordinates came from
	// the client address.
	LocatedBy string `json:"locatedBy,omitempty"`
	Radius    int    `json:"radius"`
	// NeedLocation is set when no coordinates could be resolved.
	NeedLocation bool `json:"needLocation"`
}

type TagSource interface {
	Nearby(ctx context.Context, tag places.Tag, at models.Coords, radius int, category string) ([]models.Place, error)
}

type TextSource interface {
	Enabled() bool
	Nearby(ctx context.Context, text string, at models.Coords, limit int, category string) ([]models.Place, error)
}

type Locator interface {
	Locate(ctx context.Context, ip string) (*geoip.Location, error)
}
