package mapview

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/mercator"
)

// TileProvider maps tile coordinates to an image URL.
type TileProvider interface {
	TileURL(x, y, z int) string
}

// TileProviderFunc adapts a function to TileProvider.
type TileProviderFunc func(x, y, z int) string

// TileURL implements TileProvider.
func (f TileProviderFunc) TileURL(x, y, z int) string {
	return f(x, y, z)
}

// Tile is one overlay tile with its resolved URL.
type Tile struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	Z   int    `json:"z"`
	URL string `json:"url"`
}

// DensityTiles is the GBIF occurrence density tile provider for one taxon.
type DensityTiles struct {
	BaseURL  string // e.g. https://api.gbif.org/v2/map/occurrence/density
	Style    string // e.g. purpleYellow.point
	TaxonKey int
}

// TileURL implements TileProvider.
func (d DensityTiles) TileURL(x, y, z int) string {
	q := url.Values{}
	q.Set("srs", "EPSG:3857")
	if d.Style != "" {
		q.Set("style", d.Style)
	}
	if d.TaxonKey != 0 {
		q.Set("taxonKey", fmt.Sprintf("%d", d.TaxonKey))
	}
	return fmt.Sprintf("%s/%d/%d/%d@1x.png?%s", strings.TrimRight(d.BaseURL, "/"), z, x, y, q.Encode())
}

// VisibleTiles enumerates the tiles covering the projector's viewport at the
// integer zoom below the current fractional zoom.
func VisibleTiles(p mercator.Projector, provider TileProvider) []Tile {
	return withURLs(visibleTiles(p), provider)
}

func visibleTiles(p mercator.Projector) []maptile.Tile {
	b := p.Bounds()
	z := maptile.Zoom(math.Floor(p.Viewport().Zoom))

	minTile := maptile.At(orb.Point{b.West, b.North}, z)
	maxTile := maptile.At(orb.Point{b.East, b.South}, z)

	last := uint32(1)<<uint32(z) - 1
	minX, maxX := minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	minX, maxX = min(minX, last), min(maxX, last)
	minY, maxY = min(minY, last), min(maxY, last)

	var tiles []maptile.Tile
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, maptile.New(x, y, z))
		}
	}
	return tiles
}

func withURLs(tiles []maptile.Tile, provider TileProvider) []Tile {
	out := make([]Tile, len(tiles))
	for i, t := range tiles {
		out[i] = Tile{X: int(t.X), Y: int(t.Y), Z: int(t.Z)}
		if provider != nil {
			out[i].URL = provider.TileURL(out[i].X, out[i].Y, out[i].Z)
		}
	}
	return out
}

// tileCache remembers the tile set computed for the last settled viewport.
type tileCache struct {
	mu    sync.Mutex
	vp    domain.Viewport
	tiles []maptile.Tile
	valid bool
}

func (c *tileCache) get(vp domain.Viewport, animating bool, provider TileProvider) []Tile {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.valid || (!animating && c.vp != vp) {
		c.tiles = visibleTiles(mercator.NewProjector(vp))
		c.vp = vp
		c.valid = true
	}
	return withURLs(c.tiles, provider)
}
