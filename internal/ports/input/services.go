// Package input defines the primary/driving ports of the application.
package input

import (
	"context"

	"github.com/jobrunner/limes/internal/domain"
)

// RuleMatcher defines the primary port for matching points against
// annotation rules.
type RuleMatcher interface {
	// Match returns every rule whose area contains point.
	Match(ctx context.Context, point domain.GeoPoint, speciesKey int) (*domain.MatchResult, error)
}

// RuleRegistry defines the primary port for rule set management.
type RuleRegistry interface {
	// ListRuleSets returns all loaded rule sets.
	ListRuleSets(ctx context.Context) ([]domain.RuleSet, error)

	// GetRuleSet returns a rule set by ID.
	GetRuleSet(ctx context.Context, id string) (*domain.RuleSet, error)

	// GetRuleSetStatus returns the status of a rule set.
	GetRuleSetStatus(ctx context.Context, id string) (domain.RuleSetStatus, error)
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy        bool              // Overall health status
	Ready          bool              // Ready to accept requests
	RuleSetsLoaded int               // Number of loaded rule sets
	RuleSetsReady  int               // Number of ready rule sets
	Polygons       int               // Number of stored polygons
	Components     map[string]string // Component statuses
}
