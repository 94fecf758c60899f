package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-normalizer/internal/imagery"
)

const manifestFixture = `{
	"version": "2.0",
	"generated": 1717243500,
	"host": "https://tilecache.rainviewer.com",
	"radar": {
		"past": [
			{"time": 1717242600, "path": "/v2/radar/1717242600"},
			{"time": 1717243200, "path": "/v2/radar/1717243200"},
			{"time": 1717242000, "path": "/v2/radar/1717242000"}
		],
		"nowcast": [
			{"time": 1717244400, "path": "/v2/radar/nowcast_1"},
			{"time": 1717243800, "path": "/v2/radar/nowcast_0"}
		]
	},
	"satellite": {
		"infrared": [{"time": 1717242000, "path": "/v2/satellite/1"}]
	}
}`

func TestRainViewerProvider_Timeline(t *testing.T) {
	clock := newFakeClock()
	up, srv := newUpstream(t, manifestFixture)
	p := NewRainViewerProvider(newTestClient(clock, "", true), srv.URL)
	m := imagery.NewManager(p, "", discardLogger())

	tl, err := m.GetTimeline(context.Background(), imagery.LayerRadar)
	require.NoError(t, err)

	want := []imagery.Frame{
		{Timestamp: 1717242000, IsPast: true},
		{Timestamp: 1717242600, IsPast: true},
		{Timestamp: 1717243200, IsPast: true},
		{Timestamp: 1717243800},
		{Timestamp: 1717244400},
	}
	assert.Equal(t, want, tl.Frames)
	require.NotNil(t, tl.Current)
	assert.EqualValues(t, 1717243200, *tl.Current)
	assert.False(t, tl.Stale)

	sat, err := m.GetTimeline(context.Background(), imagery.LayerSatellite)
	require.NoError(t, err)
	assert.Len(t, sat.Frames, 1)
	assert.EqualValues(t, 1, up.hits.Load(), "both layers share one cached manifest")

	// Upstream outage serves the cached manifest.
	clock.Advance(time.Hour)
	up.status.Store(http.StatusServiceUnavailable)
	tl, err = m.GetTimeline(context.Background(), imagery.LayerRadar)
	require.NoError(t, err)
	assert.True(t, tl.Stale)
	assert.Len(t, tl.Frames, 5)
}

func TestRainViewerProvider_Errors(t *testing.T) {
	up, srv := newUpstream(t, `{"radar": `)
	p := NewRainViewerProvider(newTestClient(newFakeClock(), "", true), srv.URL)

	_, err := p.FetchManifest(context.Background())
	assert.ErrorIs(t, err, ErrParse)

	up.status.Store(http.StatusInternalServerError)
	p.ClearCache()
	_, err = p.FetchManifest(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestNormalizeManifest(t *testing.T) {
	m, err := decodeJSON[RainViewerManifest]([]byte(manifestFixture))
	require.NoError(t, err)

	got := NormalizeManifest(m)
	assert.Equal(t, []int64{1717242600, 1717243200, 1717242000}, got.RadarPast)
	assert.Equal(t, []int64{1717244400, 1717243800}, got.RadarNowcast)
	assert.Equal(t, []int64{1717242000}, got.SatellitePast)
	assert.Equal(t, time.Unix(1717243500, 0).UTC(), got.Generated)

	empty := NormalizeManifest(RainViewerManifest{})
	assert.Empty(t, empty.RadarPast)
	assert.True(t, empty.Generated.IsZero())
}
