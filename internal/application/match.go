package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/ports/output"
)

// MatchService answers which annotation rules contain a point.
type MatchService struct {
	registry   *RuleRegistry
	metrics    output.MetricsCollector
	logger     *slog.Logger
	maxMatches int
}

// MatchServiceConfig holds configuration for the match service.
type MatchServiceConfig struct {
	MaxMatches int
}

// NewMatchService creates a new match service.
func NewMatchService(
	registry *RuleRegistry,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg MatchServiceConfig,
) *MatchService {
	if cfg.MaxMatches == 0 {
		cfg.MaxMatches = 1000
	}
	return &MatchService{
		registry:   registry,
		metrics:    metrics,
		logger:     logger,
		maxMatches: cfg.MaxMatches,
	}
}

// Match tests point against every ready rule set. A speciesKey of 0 tests
// all rules.
func (s *MatchService) Match(_ context.Context, point domain.GeoPoint, speciesKey int) (*domain.MatchResult, error) {
	start := time.Now()

	if err := point.Validate(); err != nil {
		return nil, err
	}

	result := &domain.MatchResult{
		Point:      point,
		SpeciesKey: speciesKey,
		Matches:    []domain.RuleMatch{},
	}

	for _, set := range s.registry.ReadyRuleSets() {
		result.RuleSetsTested++
		matched := false
		for _, rule := range set.ForSpecies(speciesKey) {
			if !rule.BBox().Contains(point) || !geometry.RuleContains(rule, point) {
				continue
			}
			matched = true
			result.Matches = append(result.Matches, domain.RuleMatch{
				RuleSetID:  set.ID,
				RuleID:     rule.ID,
				Name:       rule.Name,
				Annotation: rule.Annotation,
				SpeciesKey: rule.SpeciesKey,
			})
			if len(result.Matches) >= s.maxMatches {
				break
			}
		}
		s.metrics.IncRuleMatches(set.ID, matched)
		if matched {
			s.registry.MarkMatched(set.ID, time.Now())
		}
		if len(result.Matches) >= s.maxMatches {
			s.logger.Debug("match limit reached", "limit", s.maxMatches)
			break
		}
	}

	result.ProcessingTime = time.Since(start)
	s.metrics.ObserveMatchDuration(result.ProcessingTime)
	return result, nil
}
