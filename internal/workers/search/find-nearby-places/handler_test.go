package findnearbyplaces

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wizkid-search/internal/common/geoip"
	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/common/logger"
	"wizkid-search/internal/common/places"
	"wizkid-search/internal/models"
)

var origin = models.Coords{Lat: 51.5007, Lon: -0.1246}

type fakeOSM struct {
	places []models.Place
	err    error
	panics bool
	tag    places.Tag
	radius int
}

func (f *fakeOSM) Nearby(_ context.Context, tag places.Tag, _ models.Coords, radius int, category string) ([]models.Place, error) {
	f.tag = tag
	f.radius = radius
	if f.panics {
		panic("malformed overpass element")
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Place, len(f.places))
	for i, p := range f.places {
		p.Category = category
		out[i] = p
	}
	return out, nil
}

type fakeText struct {
	enabled bool
	places  []models.Place
	calls   int
}

func (f *fakeText) Enabled() bool { return f.enabled }

func (f *fakeText) Nearby(_ context.Context, _ string, _ models.Coords, _ int, _ string) ([]models.Place, error) {
	f.calls++
	return f.places, nil
}

type fakeLocator struct {
	loc *geoip.Location
	err error
	ip  string
}

func (f *fakeLocator) Locate(_ context.Context, ip string) (*geoip.Location, error) {
	f.ip = ip
	return f.loc, f.err
}

func place(name string, lat, lon float64, source string) models.Place {
	return models.Place{Name: name, Lat: lat, Lon: lon, Source: source}
}

func TestFindNearby_MergesAndSorts(t *testing.T) {
	osm := &fakeOSM{places: []models.Place{
		place("Far Clinic", 51.53, -0.12, "osm"),
		place("Near Clinic", 51.501, -0.1246, "osm"),
	}}
	text := &fakeText{enabled: true, places: []models.Place{
		place("Mid Surgery", 51.51, -0.1246, "geoapify"),
		place("near clinic", 51.50100, -0.12460, "geoapify"),
	}}
	h := NewHandler(LoadConfig(), osm, text, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "doctor near me", Coords: &origin})
	require.NoError(t, err)

	assert.Equal(t, "doctor", out.Category)
	assert.Equal(t, []string{"doctors", "clinic"}, osm.tag.Values)
	assert.Equal(t, DefaultRadius, osm.radius)
	require.Len(t, out.Places, 3)
	assert.Equal(t, "Near Clinic", out.Places[0].Name)
	assert.Equal(t, "Mid Surgery", out.Places[1].Name)
	assert.Equal(t, "Far Clinic", out.Places[2].Name)
	assert.InDelta(t, 33, out.Places[0].Distance, 2)
	assert.False(t, out.NeedLocation)
}

func TestFindNearby_CapsResults(t *testing.T) {
	var many []models.Place
	for i := 0; i < 20; i++ {
		many = append(many, place("Bank "+string(rune('A'+i)), origin.Lat+float64(i)*0.001, origin.Lon, "osm"))
	}
	h := NewHandler(LoadConfig(), &fakeOSM{places: many}, nil, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "banks nearby", Coords: &origin, Radius: 100000})
	require.NoError(t, err)
	assert.Len(t, out.Places, 12)
	assert.Equal(t, MaxRadius, out.Radius)
}

func TestFindNearby_NeedLocation(t *testing.T) {
	osm := &fakeOSM{}
	h := NewHandler(LoadConfig(), osm, nil, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "doctor near me"})
	require.NoError(t, err)
	assert.True(t, out.NeedLocation)
	assert.Empty(t, out.Places)
	assert.Nil(t, osm.tag.Values)

	_, err = h.Execute(context.Background(), &Input{Query: "doctor near me"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NEED_LOCATION")
}

func TestFindNearby_LocatesByNetwork(t *testing.T) {
	loc := &fakeLocator{loc: &geoip.Location{Lat: origin.Lat, Lon: origin.Lon, Source: "ipapi.co"}}
	osm := &fakeOSM{places: []models.Place{place("Chemist", 51.501, -0.1246, "osm")}}
	h := NewHandler(LoadConfig(), osm, nil, loc, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "pharmacy near me", ClientIP: "81.2.69.142"})
	require.NoError(t, err)
	assert.Equal(t, "81.2.69.142", loc.ip)
	assert.Equal(t, "ipapi.co", out.LocatedBy)
	require.NotNil(t, out.Origin)
	assert.Len(t, out.Places, 1)
}

func TestFindNearby_NetworkLocationDisabled(t *testing.T) {
	cfg := LoadConfig()
	cfg.LocateByNetwork = false
	loc := &fakeLocator{loc: &geoip.Location{Lat: 1, Lon: 1}}
	h := NewHandler(cfg, &fakeOSM{}, nil, loc, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "atm near me", ClientIP: "81.2.69.142"})
	require.NoError(t, err)
	assert.True(t, out.NeedLocation)
	assert.Empty(t, loc.ip)
}

func TestFindNearby_UnknownCategory(t *testing.T) {
	text := &fakeText{enabled: true}
	h := NewHandler(LoadConfig(), &fakeOSM{}, text, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "things near me", Coords: &origin})
	require.NoError(t, err)
	assert.Empty(t, out.Category)
	assert.Empty(t, out.Places)
	assert.Zero(t, text.calls)
}

func TestFindNearby_SourceFailure(t *testing.T) {
	text := &fakeText{enabled: true, places: []models.Place{place("Counsel LLP", 51.502, -0.1246, "geoapify")}}
	h := NewHandler(LoadConfig(), &fakeOSM{err: errors.New("overpass down")}, text, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "lawyer near me", Coords: &origin})
	require.NoError(t, err)
	require.Len(t, out.Places, 1)
	assert.Equal(t, "geoapify", out.Places[0].Source)
}

func TestFindNearby_PanickingSourceIsSkipped(t *testing.T) {
	text := &fakeText{enabled: true, places: []models.Place{place("Counsel LLP", 51.502, -0.1246, "geoapify")}}
	h := NewHandler(LoadConfig(), &fakeOSM{panics: true}, text, nil, logger.NewTestLogger(t))

	var out *Output
	var err error
	require.NotPanics(t, func() {
		out, err = h.FindNearby(context.Background(), &Input{Query: "lawyer near me", Coords: &origin})
	})
	require.NoError(t, err)
	require.Len(t, out.Places, 1)
	assert.Equal(t, "Counsel LLP", out.Places[0].Name)
}

func TestFindNearby_OverpassIntegration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "office=lawyer")
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","lat":51.5010,"lon":-0.1246,"tags":{"name":"Temple Chambers","office":"lawyer"}},
			{"type":"way","center":{"lat":51.5050,"lon":-0.1246},"tags":{"name":"Inn Counsel"}}
		]}`))
	}))
	defer server.Close()

	osm := places.NewOverpass(httpclient.NewClient(2*time.Second, "test"), []string{server.URL})
	h := NewHandler(LoadConfig(), osm, nil, nil, logger.NewTestLogger(t))

	out, err := h.FindNearby(context.Background(), &Input{Query: "attorney near me", Coords: &origin, Radius: 300})
	require.NoError(t, err)
	assert.Equal(t, "lawyer", out.Category)
	assert.Equal(t, MinRadius, out.Radius)
	require.Len(t, out.Places, 2)
	assert.Equal(t, "Temple Chambers", out.Places[0].Name)
	assert.Equal(t, "lawyer", out.Places[1].Category)
}

func TestDetectCategory(t *testing.T) {
	cases := map[string]string{
		"doctor near me":           "doctor",
		"GP nearby":                "doctor",
		"best restaurants near me": "restaurant",
		"coffee nearby":            "cafe",
		"atm near me":              "atm",
		"treatment options nearby": "",
		"lawyers near me":          "lawyer",
		"who is ada lovelace":      "",
	}
	for q, want := range cases {
		assert.Equal(t, want, DetectCategory(q), q)
	}
}

func TestClampRadius(t *testing.T) {
	assert.Equal(t, 6000, ClampRadius(0, 6000))
	assert.Equal(t, MinRadius, ClampRadius(10, 6000))
	assert.Equal(t, MaxRadius, ClampRadius(50000, 6000))
	assert.Equal(t, 2500, ClampRadius(2500, 6000))
}

func TestHaversine(t *testing.T) {
	london := models.Coords{Lat: 51.5074, Lon: -0.1278}
	paris := models.Coords{Lat: 48.8566, Lon: 2.3522}
	assert.InDelta(t, 343556, Haversine(london, paris), 1000)
	assert.Zero(t, Haversine(london, london))
}

func TestSummary(t *testing.T) {
	found := []models.Place{{Name: "A", Distance: 1234}, {Name: "B", Distance: 56}}
	assert.Equal(t, "Top doctor near you: A (1.2 km), B (0.1 km).", Summary("doctor", found))
	assert.Equal(t,
		"I couldn't find bank results near you. Try expanding the radius or a different term.",
		Summary("bank", nil))
}
