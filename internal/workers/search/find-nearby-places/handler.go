// internal/workers/search/find-nearby-places/handler.go
package findnearbyplaces

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	"wizkid-search/internal/common/camunda"
	"wizkid-search/internal/common/errors"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/models"
)

const (
	TaskType = "find-nearby-places"

	earthRadius = 6371000.0
)

type Handler struct {
	config   *Config
	osm      TagSource
	geoapify TextSource
	locator  Locator
	logger   logger.Logger
}

// NewHandler accepts nil for geoapify and locator.
func NewHandler(config *Config, osm TagSource, geoapify TextSource, locator Locator, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		osm:      osm,
		geoapify: geoapify,
		locator:  locator,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.RunJob(client, job, TaskType, h.config.Timeout, h.logger, h.Execute)
}

// Execute fails with NEED_LOCATION so a process can branch on it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out, err := h.FindNearby(ctx, input)
	if err != nil {
		return nil, err
	}
	if out.NeedLocation {
		return nil, errors.NewNeedLocationError()
	}
	return out, nil
}

// FindNearby resolves the origin, then queries the place sources for the
// category named in the query. Source failures yield fewer places, not an
// error.
func (h *Handler) FindNearby(ctx context.Context, input *Input) (*Output, error) {
	out := &Output{
		Category: DetectCategory(input.Query),
		Places:   []models.Place{},
		Radius:   ClampRadius(input.Radius, h.config.DefaultRadius),
	}

	origin, locatedBy := h.resolveOrigin(ctx, input)
	if origin == nil {
		out.NeedLocation = true
		return out, nil
	}
	out.Origin = origin
	out.LocatedBy = locatedBy

	cat, ok := lookup(input.Query)
	if !ok {
		return out, nil
	}

	var fromOSM, fromText []models.Place
	g, gctx := errgroup.WithContext(ctx)
	if h.osm != nil {
		g.Go(func() error {
			var found []models.Place
			err := errors.Safely(func() (err error) {
				found, err = h.osm.Nearby(gctx, cat.tag, *origin, out.Radius, cat.name)
				return err
			})
			if err != nil {
				h.logger.Warn("overpass lookup failed", map[string]interface{}{"category": cat.name, "error": err.Error()})
				return nil
			}
			fromOSM = found
			return nil
		})
	}
	if h.geoapify != nil && h.geoapify.Enabled() {
		g.Go(func() error {
			var found []models.Place
			err := errors.Safely(func() (err error) {
				found, err = h.geoapify.Nearby(gctx, cat.name, *origin, h.config.GeoapifyLimit, cat.name)
				return err
			})
			if err != nil {
				h.logger.Warn("geoapify lookup failed", map[string]interface{}{"category": cat.name, "error": err.Error()})
				return nil
			}
			fromText = found
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out.Places = Arrange(*origin, append(fromOSM, fromText...), h.config.MaxPlaces)
	h.logger.Debug("nearby places found", map[string]interface{}{
		"category": cat.name,
		"radius":   out.Radius,
		"places":   len(out.Places),
	})
	return out, nil
}

func (h *Handler) resolveOrigin(ctx context.Context, input *Input) (*models.Coords, string) {
	if input.Coords != nil {
		c := *input.Coords
		return &c, ""
	}
	if !h.config.LocateByNetwork || h.locator == nil || input.ClientIP == "" {
		return nil, ""
	}
	loc, err := h.locator.Locate(ctx, input.ClientIP)
	if err != nil || loc == nil {
		h.logger.Debug("network location unavailable", map[string]interface{}{"error": fmt.Sprint(err)})
		return nil, ""
	}
	return &models.Coords{Lat: loc.Lat, Lon: loc.Lon}, loc.Source
}

// Arrange sets distances from origin, sorts ascending, drops repeats of the
// same name at the same spot and caps the list.
func Arrange(origin models.Coords, found []models.Place, max int) []models.Place {
	for i := range found {
		found[i].Distance = math.Round(Haversine(origin, models.Coords{Lat: found[i].Lat, Lon: found[i].Lon}))
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Distance < found[j].Distance })

	seen := make(map[string]bool, len(found))
	out := make([]models.Place, 0, max)
	for _, p := range found {
		if len(out) >= max {
			break
		}
		key := fmt.Sprintf("%s|%.4f|%.4f", strings.ToLower(strings.TrimSpace(p.Name)), p.Lat, p.Lon)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// Haversine is the great-circle distance in meters.
func Haversine(a, b models.Coords) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(s))
}

// Summary is the one-line answer shown with the places.
func Summary(category string, found []models.Place) string {
	label := category
	if len(found) == 0 {
		if label == "" {
			label = "relevant"
		}
		return fmt.Sprintf("I couldn't find %s results near you. Try expanding the radius or a different term.", label)
	}
	if label == "" {
		label = "places"
	}
	top := found
	if len(top) > 5 {
		top = top[:5]
	}
	parts := make([]string, 0, len(top))
	for _, p := range top {
		parts = append(parts, fmt.Sprintf("%s (%.1f km)", p.Name, p.Distance/1000))
	}
	return fmt.Sprintf("Top %s near you: %s.", label, strings.Join(parts, ", "))
}
