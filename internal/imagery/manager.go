package imagery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// DefaultTileBaseURL is the public RainViewer tile host.
const DefaultTileBaseURL = "https://tilecache.rainviewer.com"

// Manager builds timelines from the manifest source and formats tile URLs.
type Manager struct {
	source  ManifestSource
	baseURL string
	logger  *slog.Logger
}

func NewManager(source ManifestSource, baseURL string, logger *slog.Logger) *Manager {
	if baseURL == "" {
		baseURL = DefaultTileBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		source:  source,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "imagery"),
	}
}

// GetTimeline fetches the manifest and returns the frames of layer.
func (m *Manager) GetTimeline(ctx context.Context, layer Layer) (Timeline, error) {
	if m.source == nil {
		return Timeline{}, errors.New("no imagery source configured")
	}

	manifest, err := m.source.FetchManifest(ctx)
	if err != nil {
		return Timeline{}, fmt.Errorf("failed to get imagery manifest: %w", err)
	}

	var tl Timeline
	switch layer {
	case LayerRadar:
		tl = BuildTimeline(manifest.RadarPast, manifest.RadarNowcast)
	case LayerSatellite:
		tl = BuildTimeline(manifest.SatellitePast, nil)
	default:
		return Timeline{}, ErrUnknownLayer
	}
	tl.Layer = layer
	tl.Stale = manifest.Stale

	m.logger.Debug("timeline built", "layer", layer, "frames", len(tl.Frames), "stale", tl.Stale)
	return tl, nil
}

// BuildTimeline merges past and forecast timestamps. The inputs are not modified.
func BuildTimeline(past, forecast []int64) Timeline {
	p := slices.Clone(past)
	f := slices.Clone(forecast)
	slices.Sort(p)
	slices.Sort(f)

	frames := make([]Frame, 0, len(p)+len(f))
	for _, ts := range p {
		frames = append(frames, Frame{Timestamp: ts, IsPast: true})
	}
	for _, ts := range f {
		frames = append(frames, Frame{Timestamp: ts})
	}

	tl := Timeline{Frames: frames}
	if len(p) > 0 {
		current := p[len(p)-1]
		tl.Current = &current
	}
	return tl
}

// TileURL formats the URL of one tile. style is normalized first.
func (m *Manager) TileURL(layer Layer, ts int64, zoom, x, y int, style TileStyle) string {
	s := style.Normalize()
	return fmt.Sprintf("%s/%s/%d/%d/%d/%d/%d/%d/%d_%d.png",
		m.baseURL, layer.path(), ts, zoom, x, y, s.Size, s.Color, s.Smooth, s.Snow)
}

// TileFunc returns a URL generator for every tile of one frame, suitable
// for handing to a map widget.
func (m *Manager) TileFunc(layer Layer, ts int64, style TileStyle) func(zoom, x, y int) string {
	s := style.Normalize()
	return func(zoom, x, y int) string {
		return m.TileURL(layer, ts, zoom, x, y, s)
	}
}
