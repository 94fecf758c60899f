package imagery

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Layer names an imagery product.
type Layer string

const (
	LayerRadar     Layer = "radar"
	LayerSatellite Layer = "satellite"
)

// ErrUnknownLayer is returned for layer names other than radar and satellite.
var ErrUnknownLayer = errors.New("unknown imagery layer")

// ParseLayer accepts a case-insensitive layer name. Empty means radar.
func ParseLayer(s string) (Layer, error) {
	switch Layer(strings.ToLower(strings.TrimSpace(s))) {
	case "", LayerRadar:
		return LayerRadar, nil
	case LayerSatellite:
		return LayerSatellite, nil
	default:
		return "", ErrUnknownLayer
	}
}

func (l Layer) path() string {
	if l == LayerSatellite {
		return "v2/satellite"
	}
	return "v2/radar"
}

// Manifest lists the frame timestamps currently published upstream.
type Manifest struct {
	Host          string
	Generated     time.Time
	RadarPast     []int64
	RadarNowcast  []int64
	SatellitePast []int64
	Stale         bool
}

// ManifestSource fetches the frame manifest.
type ManifestSource interface {
	FetchManifest(ctx context.Context) (Manifest, error)
}

// Frame is one imagery time step.
type Frame struct {
	Timestamp int64 `json:"timestamp"`
	IsPast    bool  `json:"isPast"`
}

// Timeline is the ordered frame list for a layer. Past frames come first,
// followed by forecast frames, each group ascending. Current is the newest
// past frame, or nil when there are none.
type Timeline struct {
	Layer   Layer   `json:"layer"`
	Frames  []Frame `json:"frames"`
	Current *int64  `json:"current"`
	Stale   bool    `json:"stale,omitempty"`
}
