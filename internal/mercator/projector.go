package mercator

import (
	"math"

	"github.com/jobrunner/limes/internal/domain"
)

// Pixel is a screen position relative to the top-left corner of the viewport.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Pixel) Sub(q Pixel) Pixel {
	return Pixel{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the euclidean distance between p and q.
func (p Pixel) Dist(q Pixel) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Projector converts between geographic and screen positions for one fixed
// viewport. It is a value: a paint takes one Projector and uses it for every
// element, so nothing in a frame mixes two viewport states.
type Projector struct {
	vp      domain.Viewport
	centerX float64
	centerY float64
}

// NewProjector snapshots vp. The center latitude is clamped.
func NewProjector(vp domain.Viewport) Projector {
	vp.Center.Lat = ClampLatitude(vp.Center.Lat)
	cx, cy := GeoToWorld(vp.Center.Lat, vp.Center.Lng, vp.Zoom)
	return Projector{vp: vp, centerX: cx, centerY: cy}
}

// Viewport returns the snapshotted viewport.
func (p Projector) Viewport() domain.Viewport {
	return p.vp
}

// GeoToPixel projects g onto the screen.
func (p Projector) GeoToPixel(g domain.GeoPoint) Pixel {
	x, y := GeoToWorld(g.Lat, g.Lng, p.vp.Zoom)
	return Pixel{
		X: x - p.centerX + p.vp.Width/2,
		Y: y - p.centerY + p.vp.Height/2,
	}
}

// PixelToGeo is the exact inverse of GeoToPixel. The result is not clamped or
// wrapped: a position outside the projected world yields an invalid GeoPoint
// that the caller rejects.
func (p Projector) PixelToGeo(px Pixel) domain.GeoPoint {
	lat, lng := WorldToGeo(
		px.X-p.vp.Width/2+p.centerX,
		px.Y-p.vp.Height/2+p.centerY,
		p.vp.Zoom,
	)
	return domain.GeoPoint{Lat: lat, Lng: lng}
}

// GeoDelta returns the geographic offset between two screen positions.
func (p Projector) GeoDelta(from, to Pixel) (dLat, dLng float64) {
	return p.PixelToGeo(to).Sub(p.PixelToGeo(from))
}

// Bounds returns the geographic extent of the visible rectangle, clipped to
// the valid range.
func (p Projector) Bounds() domain.BBox {
	nw := p.PixelToGeo(Pixel{X: 0, Y: 0})
	se := p.PixelToGeo(Pixel{X: p.vp.Width, Y: p.vp.Height})
	return domain.BBox{
		North: ClampLatitude(nw.Lat),
		South: ClampLatitude(se.Lat),
		East:  math.Min(se.Lng, domain.MaxLongitude),
		West:  math.Max(nw.Lng, domain.MinLongitude),
	}
}

// InView reports whether px lies inside the viewport rectangle.
func (p Projector) InView(px Pixel) bool {
	return px.X >= 0 && px.Y >= 0 && px.X <= p.vp.Width && px.Y <= p.vp.Height
}
