package output

import "time"

// MetricsCollector defines the secondary port for metrics collection.
type MetricsCollector interface {
	// IncSearchCount increments the occurrence search counter.
	IncSearchCount(success bool)

	// ObserveSearchDuration records how long an investigation took.
	ObserveSearchDuration(duration time.Duration)

	// IncRuleMatches increments the rule match counter.
	IncRuleMatches(ruleSetID string, matched bool)

	// ObserveMatchDuration records rule matching duration.
	ObserveMatchDuration(duration time.Duration)

	// SetRuleSetsLoaded sets the number of loaded rule sets.
	SetRuleSetsLoaded(count int)

	// SetPolygons sets the number of stored polygons.
	SetPolygons(count int)

	// IncPolygonMutations increments the counter of committed edits.
	IncPolygonMutations(operation string, success bool)

	// IncStorageOperations increments storage operation counter.
	IncStorageOperations(operation string, success bool)

	// ObserveStorageDuration records storage operation duration.
	ObserveStorageDuration(operation string, duration time.Duration)
}

// NoOpMetrics is a no-op implementation of MetricsCollector.
type NoOpMetrics struct{}

// IncSearchCount implements MetricsCollector.
func (n *NoOpMetrics) IncSearchCount(_ bool) {}

// ObserveSearchDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveSearchDuration(_ time.Duration) {}

// IncRuleMatches implements MetricsCollector.
func (n *NoOpMetrics) IncRuleMatches(_ string, _ bool) {}

// ObserveMatchDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveMatchDuration(_ time.Duration) {}

// SetRuleSetsLoaded implements MetricsCollector.
func (n *NoOpMetrics) SetRuleSetsLoaded(_ int) {}

// SetPolygons implements MetricsCollector.
func (n *NoOpMetrics) SetPolygons(_ int) {}

// IncPolygonMutations implements MetricsCollector.
func (n *NoOpMetrics) IncPolygonMutations(_ string, _ bool) {}

// IncStorageOperations implements MetricsCollector.
func (n *NoOpMetrics) IncStorageOperations(_ string, _ bool) {}

// ObserveStorageDuration implements MetricsCollector.
func (n *NoOpMetrics) ObserveStorageDuration(_ string, _ time.Duration) {}
