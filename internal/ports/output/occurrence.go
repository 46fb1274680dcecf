package output

import (
	"context"
	"time"

	"github.com/jobrunner/limes/internal/domain"
)

// OccurrenceSearcher defines the secondary port to the occurrence search
// service.
type OccurrenceSearcher interface {
	// SearchOccurrences returns up to limit georeferenced occurrences inside
	// bbox. A speciesKey of 0 searches all species.
	SearchOccurrences(ctx context.Context, speciesKey int, bbox domain.BBox, limit int) ([]domain.Occurrence, error)

	// GetDataset returns the metadata of a dataset.
	GetDataset(ctx context.Context, key string) (domain.Dataset, error)
}

// SpeciesLookup defines the secondary port for resolving species names.
type SpeciesLookup interface {
	// SuggestSpecies returns species whose name starts with query.
	SuggestSpecies(ctx context.Context, query string, limit int) ([]domain.SpeciesRef, error)

	// GetSpecies returns the species with the given taxon key.
	GetSpecies(ctx context.Context, key int) (domain.SpeciesRef, error)
}

// DatasetCache defines the secondary port for caching dataset metadata.
type DatasetCache interface {
	// Get returns a cached dataset. The bool is false on a miss.
	Get(ctx context.Context, key string) (domain.Dataset, bool, error)

	// Set stores a dataset for ttl.
	Set(ctx context.Context, ds domain.Dataset, ttl time.Duration) error
}
