package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpclient "wizkid-search/internal/common/http"
	"wizkid-search/internal/models"
)

var here = models.Coords{Lat: 52.52, Lon: 13.405}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(Tag{Key: "amenity", Values: []string{"doctors", "clinic"}}, here, 6000)
	assert.True(t, strings.HasPrefix(q, "[out:json][timeout:25];("))
	assert.Contains(t, q, "node[amenity=doctors](around:6000,52.520000,13.405000);")
	assert.Contains(t, q, "relation[amenity=clinic](around:6000,52.520000,13.405000);")
	assert.True(t, strings.HasSuffix(q, "out center tags 80;"))
}

func TestOverpass_FallsBackToSecondEndpoint(t *testing.T) {
	var firstHits int32
	first := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&firstHits, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer first.Close()

	second := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Contains(t, r.PostForm.Get("data"), "amenity=pharmacy")
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"node","id":1,"lat":52.521,"lon":13.406,"tags":{"name":"Apotheke Mitte","phone":"+49 30 1","addr:street":"Hauptstr","addr:housenumber":"5"}},
			{"type":"way","id":2,"center":{"lat":52.53,"lon":13.41},"tags":{"name:en":"Central Pharmacy","contact:website":"https://cp.example"}},
			{"type":"node","id":3,"lat":52.5,"lon":13.4,"tags":{}}
		]}`))
	}))
	defer second.Close()

	o := NewOverpass(httpclient.NewClient(2*time.Second, "test"), []string{first.URL, second.URL})
	got, err := o.Nearby(context.Background(), Tag{Key: "amenity", Values: []string{"pharmacy"}}, here, 6000, "pharmacy")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&firstHits))

	assert.Equal(t, "Apotheke Mitte", got[0].Name)
	assert.Equal(t, "5 Hauptstr", got[0].Address)
	assert.Equal(t, "+49 30 1", got[0].Phone)
	assert.Equal(t, "Central Pharmacy", got[1].Name)
	assert.Equal(t, 52.53, got[1].Lat)
	assert.Equal(t, "https://cp.example", got[1].Website)
	assert.Equal(t, "osm", got[1].Source)
}

func TestOverpass_AllEndpointsFail(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer down.Close()

	o := NewOverpass(httpclient.NewClient(time.Second, "test"), []string{down.URL, down.URL})
	_, err := o.Nearby(context.Background(), Tag{Key: "amenity", Values: []string{"atm"}}, here, 800, "atm")
	require.Error(t, err)
}

func TestGeoapify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "dentist near me", q.Get("text"))
		assert.Equal(t, "proximity:13.405000,52.520000", q.Get("bias"))
		assert.Equal(t, "12", q.Get("limit"))
		assert.Equal(t, "key", q.Get("apiKey"))
		_, _ = w.Write([]byte(`{"features":[
			{"geometry":{"coordinates":[13.41,52.51]},"properties":{"name":"Smile Dental","formatted":"Str 1, Berlin","contact":{"phone":"123"}}},
			{"geometry":{"coordinates":[]},"properties":{"name":"broken"}}
		]}`))
	}))
	defer server.Close()

	g := NewGeoapify(httpclient.NewClient(2*time.Second, "test"), server.URL, "key")
	require.True(t, g.Enabled())
	got, err := g.Nearby(context.Background(), "dentist near me", here, 12, "dentist")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.Place{
		Name: "Smile Dental", Lat: 52.51, Lon: 13.41, Address: "Str 1, Berlin",
		Phone: "123", Category: "dentist", Source: "geoapify",
	}, got[0])

	assert.False(t, NewGeoapify(nil, "", "").Enabled())
}
