package providers

import (
	"context"
	"time"

	"github.com/i474232898/weather-normalizer/internal/imagery"
)

// DefaultRainViewerManifestURL is the public RainViewer frame manifest.
const DefaultRainViewerManifestURL = "https://api.rainviewer.com/public/weather-maps.json"

type rainViewerFrame struct {
	Time int64  `json:"time"`
	Path string `json:"path"`
}

// RainViewerManifest is the native weather-maps.json body.
type RainViewerManifest struct {
	Version   string `json:"version"`
	Generated int64  `json:"generated"`
	Host      string `json:"host"`
	Radar     struct {
		Past    []rainViewerFrame `json:"past"`
		Nowcast []rainViewerFrame `json:"nowcast"`
	} `json:"radar"`
	Satellite struct {
		Infrared []rainViewerFrame `json:"infrared"`
	} `json:"satellite"`
}

// RainViewerProvider implements imagery.ManifestSource.
type RainViewerProvider struct {
	manifestURL string
	client      *Client
}

func NewRainViewerProvider(client *Client, manifestURL string) *RainViewerProvider {
	if manifestURL == "" {
		manifestURL = DefaultRainViewerManifestURL
	}
	return &RainViewerProvider{manifestURL: manifestURL, client: client}
}

// FetchManifest returns the current frame manifest.
func (p *RainViewerProvider) FetchManifest(ctx context.Context) (imagery.Manifest, error) {
	f, err := fetchWithCache(ctx, p.client, p.manifestURL, "imagery:manifest", func(body []byte) (imagery.Manifest, error) {
		m, err := decodeJSON[RainViewerManifest](body)
		if err != nil {
			return imagery.Manifest{}, err
		}
		return NormalizeManifest(m), nil
	})
	if err != nil {
		return imagery.Manifest{}, err
	}

	m := f.Value
	m.Stale = f.Stale
	return m, nil
}

// SetTTL changes the freshness window of the manifest cache.
func (p *RainViewerProvider) SetTTL(ttl time.Duration) {
	p.client.SetTTL(ttl)
}

// ClearCache drops the manifest cache.
func (p *RainViewerProvider) ClearCache() {
	p.client.ClearCache()
}

// NormalizeManifest keeps only the frame timestamps of each layer.
func NormalizeManifest(m RainViewerManifest) imagery.Manifest {
	out := imagery.Manifest{
		Host:          m.Host,
		RadarPast:     frameTimes(m.Radar.Past),
		RadarNowcast:  frameTimes(m.Radar.Nowcast),
		SatellitePast: frameTimes(m.Satellite.Infrared),
	}
	if m.Generated > 0 {
		out.Generated = time.Unix(m.Generated, 0).UTC()
	}
	return out
}

func frameTimes(frames []rainViewerFrame) []int64 {
	out := make([]int64, 0, len(frames))
	for _, f := range frames {
		out = append(out, f.Time)
	}
	return out
}
