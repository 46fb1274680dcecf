package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/ports/output"
)

// InvestigationConfig holds configuration for area searches.
type InvestigationConfig struct {
	RadiusKm   float64       // Half side of the search box
	Limit      int           // Maximum occurrences per search
	Timeout    time.Duration // Deadline for the whole search
	DatasetTTL time.Duration // How long dataset metadata is cached
}

// InvestigationService runs area searches around a clicked point. Searches
// are strictly serialised: while one is in flight a new request is rejected
// with domain.ErrSearchInFlight. Each search carries a generation number and
// a search that is no longer current stops publishing results.
type InvestigationService struct {
	searcher output.OccurrenceSearcher
	cache    output.DatasetCache
	species  func() int
	metrics  output.MetricsCollector
	logger   *slog.Logger
	cfg      InvestigationConfig
	now      func() time.Time

	mu         sync.Mutex
	generation uint64
	current    *domain.Investigation

	wg sync.WaitGroup
}

// NewInvestigationService creates a new investigation service. species
// returns the taxon key to search for; cache may be nil.
func NewInvestigationService(
	searcher output.OccurrenceSearcher,
	cache output.DatasetCache,
	species func() int,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg InvestigationConfig,
) *InvestigationService {
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 10
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.DatasetTTL <= 0 {
		cfg.DatasetTTL = 24 * time.Hour
	}
	if species == nil {
		species = func() int { return 0 }
	}

	return &InvestigationService{
		searcher: searcher,
		cache:    cache,
		species:  species,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Investigate starts a search around point and returns immediately. Results
// are appended to the returned investigation as they are enriched.
func (s *InvestigationService) Investigate(ctx context.Context, point domain.GeoPoint) (*domain.Investigation, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.Status() == domain.InvestigationSearching {
		s.mu.Unlock()
		return nil, domain.ErrSearchInFlight
	}
	s.generation++
	inv := domain.NewInvestigation(s.generation, point, s.cfg.RadiusKm, s.species(), s.now().UTC())
	s.current = inv
	s.mu.Unlock()

	s.logger.Info("investigation started",
		"generation", inv.Generation,
		"lat", point.Lat,
		"lng", point.Lng,
		"species_key", inv.SpeciesKey,
	)

	// The search outlives the request that triggered it.
	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), inv)

	return inv, nil
}

// Close dismisses an investigation. Results still in flight are discarded.
func (s *InvestigationService) Close(inv *domain.Investigation) {
	if inv == nil {
		return
	}
	inv.Close()

	s.mu.Lock()
	if s.current == inv {
		s.current = nil
	}
	s.mu.Unlock()
}

// Current returns the latest investigation, nil if none is open.
func (s *InvestigationService) Current() *domain.Investigation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Wait blocks until all running searches have ended.
func (s *InvestigationService) Wait() {
	s.wg.Wait()
}

func (s *InvestigationService) run(ctx context.Context, inv *domain.Investigation) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	// Closing the investigation aborts the remaining lookups.
	go func() {
		select {
		case <-inv.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	occurrences, err := s.searcher.SearchOccurrences(ctx, inv.SpeciesKey, inv.BBox(), s.cfg.Limit)
	if err != nil {
		serr := &domain.SearchError{Operation: "search", Err: err}
		s.logger.Warn("occurrence search failed", "generation", inv.Generation, "error", err)
		s.metrics.IncSearchCount(false)
		if s.isCurrent(inv) {
			inv.Fail(domain.Notice(serr))
		}
		return
	}
	s.metrics.IncSearchCount(true)

	datasets := make(map[string]domain.Dataset)
	for _, occ := range occurrences {
		if !s.isCurrent(inv) {
			s.logger.Debug("discarding stale investigation results", "generation", inv.Generation)
			return
		}

		ds, ok := datasets[occ.DatasetKey]
		if !ok {
			ds = s.dataset(ctx, occ.DatasetKey)
			datasets[occ.DatasetKey] = ds
		}
		if !inv.Append(domain.OccurrenceResult{Occurrence: occ, Dataset: ds}) {
			return
		}
	}

	inv.Finish()
	s.metrics.ObserveSearchDuration(time.Since(start))
	s.logger.Info("investigation finished", "generation", inv.Generation, "results", len(occurrences))
}

// dataset resolves dataset metadata. Lookups are best effort: any failure
// yields the unknown dataset placeholder.
func (s *InvestigationService) dataset(ctx context.Context, key string) domain.Dataset {
	if key == "" {
		return domain.UnknownDatasetFor(key)
	}

	if s.cache != nil {
		ds, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("dataset cache lookup failed", "key", key, "error", err)
		} else if ok {
			return ds
		}
	}

	ds, err := s.searcher.GetDataset(ctx, key)
	if err != nil {
		s.logger.Debug("dataset lookup failed", "key", key, "error", err)
		return domain.UnknownDatasetFor(key)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ds, s.cfg.DatasetTTL); err != nil {
			s.logger.Debug("dataset cache store failed", "key", key, "error", err)
		}
	}
	return ds
}

func (s *InvestigationService) isCurrent(inv *domain.Investigation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == inv && s.generation == inv.Generation
}
