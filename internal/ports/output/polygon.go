package output

import (
	"context"

	"github.com/jobrunner/limes/internal/domain"
)

// PolygonRepository defines the secondary port for persisting annotated
// polygons.
type PolygonRepository interface {
	// List returns every stored polygon, oldest first.
	List(ctx context.Context) ([]domain.AnnotatedPolygon, error)

	// Save inserts or replaces a polygon.
	Save(ctx context.Context, p domain.AnnotatedPolygon) error

	// Delete removes a polygon. Deleting an unknown id returns
	// domain.ErrPolygonNotFound.
	Delete(ctx context.Context, id string) error

	// Close releases the underlying connection.
	Close() error
}
