// Package mapview tracks the live map viewport and the tile overlays drawn
// on top of the base map.
package mapview

import (
	"math"
	"sync"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/mercator"
)

// Zoom limits.
const (
	MinZoom = 0.0
	MaxZoom = 22.0
)

// Navigator moves the camera on request of another component, e.g. a
// "locate" action in a polygon list. A nil zoom keeps the current zoom.
type Navigator interface {
	NavigateTo(lat, lng float64, zoom *float64) error
}

// Camera holds the live viewport. The base map reports every pan/zoom step
// through ViewportChanged; vector overlays always project from the live
// state, while tile overlays are frozen during programmatic animations.
type Camera struct {
	mu        sync.RWMutex
	vp        domain.Viewport
	animating bool
	target    domain.Viewport
	tiles     *tileCache
}

// NewCamera creates a camera showing vp.
func NewCamera(vp domain.Viewport) (*Camera, error) {
	vp.Center.Lat = mercator.ClampLatitude(vp.Center.Lat)
	if err := vp.Validate(); err != nil {
		return nil, err
	}
	return &Camera{vp: vp, tiles: &tileCache{}}, nil
}

// Viewport returns the live viewport.
func (c *Camera) Viewport() domain.Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vp
}

// Projector returns a projector for the live viewport. Take it once per
// paint.
func (c *Camera) Projector() mercator.Projector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return mercator.NewProjector(c.vp)
}

// Animating reports whether a NavigateTo animation is in progress.
func (c *Camera) Animating() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.animating
}

// ViewportChanged is the base map callback fired on every pan/zoom step.
// The center is wrapped and clamped into the Mercator world, so a pan
// across the antimeridian keeps the overlays in sync. Only non-finite
// values are rejected. Reaching the navigation target ends the animation.
func (c *Camera) ViewportChanged(center domain.GeoPoint, zoom float64) error {
	if err := finite("latitude", center.Lat); err != nil {
		return err
	}
	if err := finite("longitude", center.Lng); err != nil {
		return err
	}
	if err := finite("zoom", zoom); err != nil {
		return err
	}
	center.Lat = mercator.ClampLatitude(center.Lat)
	center.Lng = mercator.WrapLongitude(center.Lng)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.vp.Center = center
	c.vp.Zoom = clampZoom(zoom)
	if c.animating && sameView(c.vp, c.target) {
		c.animating = false
	}
	return nil
}

// Resize updates the pixel size of the viewport.
func (c *Camera) Resize(width, height float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.vp
	next.Width, next.Height = width, height
	if err := next.Validate(); err != nil {
		return err
	}
	c.vp = next
	return nil
}

// NavigateTo starts an animated camera move. The base map drives the
// animation through ViewportChanged; Settle jumps to the end.
func (c *Camera) NavigateTo(lat, lng float64, zoom *float64) error {
	target := domain.GeoPoint{Lat: lat, Lng: lng}
	if err := target.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.target = c.vp
	c.target.Center = target
	if zoom != nil {
		c.target.Zoom = clampZoom(*zoom)
	}
	c.animating = !sameView(c.vp, c.target)
	return nil
}

// Settle ends a running animation at its target.
func (c *Camera) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.animating {
		return
	}
	c.vp.Center = c.target.Center
	c.vp.Zoom = c.target.Zoom
	c.animating = false
}

// Target returns the navigation target and whether an animation runs.
func (c *Camera) Target() (domain.Viewport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.target, c.animating
}

// OverlayTiles returns the tiles a tile-dependent overlay should show. While
// an animation is running the last settled set is returned unchanged, so no
// intermediate step triggers fetches.
func (c *Camera) OverlayTiles(provider TileProvider) []Tile {
	c.mu.RLock()
	vp, animating := c.vp, c.animating
	c.mu.RUnlock()

	return c.tiles.get(vp, animating, provider)
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return MinZoom
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

func sameView(a, b domain.Viewport) bool {
	const eps = 1e-9
	return math.Abs(a.Center.Lat-b.Center.Lat) < eps &&
		math.Abs(a.Center.Lng-b.Center.Lng) < eps &&
		math.Abs(a.Zoom-b.Zoom) < eps
}

func finite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &domain.ValidationError{
			Field:      field,
			Value:      v,
			Constraint: "finite",
			Message:    field + " must be a finite number",
			Err:        domain.ErrInvalidInput,
		}
	}
	return nil
}
