package imagery

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level TileAt resolves.
const MaxZoom = 20

// TileStyle selects tile rendering options.
type TileStyle struct {
	Size   int `json:"size"`
	Color  int `json:"color"`
	Smooth int `json:"smooth"`
	Snow   int `json:"snow"`
}

// DefaultTileStyle is 256px tiles, color scheme 2, smoothing and snow on.
func DefaultTileStyle() TileStyle {
	return TileStyle{Size: 256, Color: 2, Smooth: 1, Snow: 1}
}

// Normalize replaces every out-of-range field with its default.
func (s TileStyle) Normalize() TileStyle {
	def := DefaultTileStyle()
	if s.Size != 256 && s.Size != 512 {
		s.Size = def.Size
	}
	if s.Color < 0 || s.Color > 8 {
		s.Color = def.Color
	}
	if s.Smooth != 0 && s.Smooth != 1 {
		s.Smooth = def.Smooth
	}
	if s.Snow != 0 && s.Snow != 1 {
		s.Snow = def.Snow
	}
	return s
}

// Tile is a slippy-map tile address.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// TileAt returns the tile containing the coordinate at zoom, which is
// clamped to [0, MaxZoom].
func TileAt(lat, lon float64, zoom int) Tile {
	zoom = max(0, min(zoom, MaxZoom))
	t := maptile.At(orb.Point{lon, lat}, maptile.Zoom(zoom))
	return Tile{X: int(t.X), Y: int(t.Y), Z: int(t.Z)}
}
