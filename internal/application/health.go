package application

import (
	"context"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/ports/input"
)

// HealthService provides health check functionality.
type HealthService struct {
	registry *RuleRegistry
	store    *PolygonStore
	loaded   func() bool
}

// NewHealthService creates a new health service. loaded reports whether the
// polygon collection has been read from the repository.
func NewHealthService(registry *RuleRegistry, store *PolygonStore, loaded func() bool) *HealthService {
	if loaded == nil {
		loaded = func() bool { return true }
	}
	return &HealthService{
		registry: registry,
		store:    store,
		loaded:   loaded,
	}
}

// IsHealthy returns true if the service is healthy.
func (s *HealthService) IsHealthy(_ context.Context) bool {
	return true
}

// IsReady returns true once the polygons are loaded and no rule set is
// still loading.
func (s *HealthService) IsReady(ctx context.Context) bool {
	if !s.loaded() {
		return false
	}
	sets, err := s.registry.ListRuleSets(ctx)
	if err != nil {
		return false
	}
	for _, set := range sets {
		status, _ := s.registry.GetRuleSetStatus(ctx, set.ID)
		if status == domain.RuleSetLoading {
			return false
		}
	}
	return true
}

// GetHealthDetails returns detailed health information.
func (s *HealthService) GetHealthDetails(ctx context.Context) input.HealthDetails {
	sets, _ := s.registry.ListRuleSets(ctx)

	ready := 0
	components := map[string]string{
		"storage":  "ok",
		"database": "ok",
	}
	for _, set := range sets {
		status, _ := s.registry.GetRuleSetStatus(ctx, set.ID)
		if status == domain.RuleSetReady {
			ready++
		}
		if status == domain.RuleSetError {
			components["rules"] = "degraded"
		}
	}
	if !s.loaded() {
		components["database"] = "loading"
	}

	return input.HealthDetails{
		Healthy:        s.IsHealthy(ctx),
		Ready:          s.IsReady(ctx),
		RuleSetsLoaded: len(sets),
		RuleSetsReady:  ready,
		Polygons:       s.store.Count(),
		Components:     components,
	}
}

// RuleSetHealth contains health info for a single rule set.
type RuleSetHealth struct {
	ID     string
	Status domain.RuleSetStatus
	Rules  int
}

// GetRuleSetHealth returns health info for all rule sets.
func (s *HealthService) GetRuleSetHealth(ctx context.Context) []RuleSetHealth {
	sets, _ := s.registry.ListRuleSets(ctx)

	health := make([]RuleSetHealth, len(sets))
	for i, set := range sets {
		status, _ := s.registry.GetRuleSetStatus(ctx, set.ID)
		health[i] = RuleSetHealth{
			ID:     set.ID,
			Status: status,
			Rules:  set.RuleCount(),
		}
	}
	return health
}
