package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/ports/output"
)

// RuleRegistry manages loaded annotation rule sets.
type RuleRegistry struct {
	mu        sync.RWMutex
	sets      map[string]*ruleSetEntry
	storage   output.ObjectStorage
	metrics   output.MetricsCollector
	logger    *slog.Logger
	localPath string
}

type ruleSetEntry struct {
	Set    *domain.RuleSet
	Status domain.RuleSetStatus
	Error  error
}

// NewRuleRegistry creates a new rule registry. Remote rule files are copied
// to localPath before they are parsed.
func NewRuleRegistry(
	storage output.ObjectStorage,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	localPath string,
) *RuleRegistry {
	return &RuleRegistry{
		sets:      make(map[string]*ruleSetEntry),
		storage:   storage,
		metrics:   metrics,
		logger:    logger,
		localPath: localPath,
	}
}

// LoadRuleSet parses the rule file at path and registers it. Loading a file
// whose set is already registered replaces it.
func (r *RuleRegistry) LoadRuleSet(_ context.Context, path string) error {
	id := deriveRuleSetID(path)
	r.logger.Info("loading rule set", "id", id, "path", path)

	r.mu.Lock()
	if entry, ok := r.sets[id]; ok {
		entry.Status = domain.RuleSetLoading
	} else {
		r.sets[id] = &ruleSetEntry{Set: &domain.RuleSet{ID: id, Name: id, Path: path}, Status: domain.RuleSetLoading}
	}
	r.mu.Unlock()

	set, err := readRuleSet(id, path)
	if err != nil {
		r.mu.Lock()
		r.sets[id].Status = domain.RuleSetError
		r.sets[id].Error = err
		r.mu.Unlock()
		r.updateMetrics()
		r.logger.Error("failed to load rule set", "path", path, "error", err)
		return err
	}

	r.mu.Lock()
	r.sets[id] = &ruleSetEntry{Set: set, Status: domain.RuleSetReady}
	r.mu.Unlock()

	r.updateMetrics()
	r.logger.Info("rule set loaded", "id", id, "rules", set.RuleCount())
	return nil
}

func readRuleSet(id, path string) (*domain.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.StorageError{Operation: "read", Key: path, Err: err}
	}
	rules, err := geometry.DecodeRules(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", id, err)
	}
	return &domain.RuleSet{
		ID:       id,
		Name:     id,
		Path:     path,
		Size:     int64(len(data)),
		Rules:    rules,
		LoadedAt: time.Now(),
	}, nil
}

// UnloadRuleSet removes a rule set.
func (r *RuleRegistry) UnloadRuleSet(_ context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.sets[id]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}
	delete(r.sets, id)
	r.mu.Unlock()

	r.updateMetrics()
	r.logger.Info("rule set unloaded", "id", id)
	return nil
}

// ListRuleSets returns all registered rule sets ordered by ID.
func (r *RuleRegistry) ListRuleSets(_ context.Context) ([]domain.RuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sets := make([]domain.RuleSet, 0, len(r.sets))
	for _, entry := range r.sets {
		sets = append(sets, *entry.Set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })
	return sets, nil
}

// GetRuleSet returns a specific rule set by ID.
func (r *RuleRegistry) GetRuleSet(_ context.Context, id string) (*domain.RuleSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}
	set := *entry.Set
	return &set, nil
}

// GetRuleSetStatus returns the status of a rule set.
func (r *RuleRegistry) GetRuleSetStatus(_ context.Context, id string) (domain.RuleSetStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sets[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrRuleNotFound, id)
	}
	return entry.Status, nil
}

// ReadyRuleSets returns copies of all ready rule sets ordered by ID.
func (r *RuleRegistry) ReadyRuleSets() []domain.RuleSet {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sets []domain.RuleSet
	for _, entry := range r.sets {
		if entry.Status == domain.RuleSetReady {
			sets = append(sets, *entry.Set)
		}
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })
	return sets
}

// RulesFor returns the rules of every ready set that apply to speciesKey.
func (r *RuleRegistry) RulesFor(speciesKey int) []domain.AnnotationRule {
	var rules []domain.AnnotationRule
	for _, set := range r.ReadyRuleSets() {
		rules = append(rules, set.ForSpecies(speciesKey)...)
	}
	return rules
}

// MarkMatched records the time a rule set last produced a match.
func (r *RuleRegistry) MarkMatched(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.sets[id]; ok {
		entry.Set.LastMatched = at
	}
}

// IsLoaded returns true if a rule set with the given ID is registered.
func (r *RuleRegistry) IsLoaded(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[id]
	return ok
}

// RuleSetCount returns the number of registered rule sets.
func (r *RuleRegistry) RuleSetCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}

func (r *RuleRegistry) updateMetrics() {
	r.mu.RLock()
	ready := 0
	for _, entry := range r.sets {
		if entry.Status == domain.RuleSetReady {
			ready++
		}
	}
	r.mu.RUnlock()

	r.metrics.SetRuleSetsLoaded(ready)
}

// LoadAll copies every rule file from storage and loads it.
func (r *RuleRegistry) LoadAll(ctx context.Context) error {
	r.logger.Info("loading all rule sets from storage")

	objects, err := r.storage.List(ctx)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		localPath := filepath.Join(r.localPath, obj.Key)
		if err := r.storage.Download(ctx, obj.Key, localPath); err != nil {
			r.logger.Error("failed to download rule file", "key", obj.Key, "error", err)
			continue
		}
		if err := r.LoadRuleSet(ctx, localPath); err != nil {
			r.logger.Error("failed to load rule file", "path", localPath, "error", err)
		}
	}
	return nil
}

// SyncStats contains statistics from a sync operation.
type SyncStats struct {
	Added   int
	Updated int
	Removed int
}

// Sync reconciles the registry with storage: new files are loaded, files
// whose size changed are reloaded and sets whose file disappeared are
// removed together with their local copy.
func (r *RuleRegistry) Sync(ctx context.Context) (SyncStats, error) {
	r.logger.Info("syncing rule sets from storage")

	objects, err := r.storage.List(ctx)
	if err != nil {
		return SyncStats{}, err
	}

	remote := make(map[string]output.StorageObject, len(objects))
	for _, obj := range objects {
		remote[deriveRuleSetID(obj.Key)] = obj
	}

	stats := SyncStats{}
	for id, obj := range remote {
		loaded := r.IsLoaded(id)
		if loaded && !r.changed(id, obj) {
			continue
		}

		localPath := filepath.Join(r.localPath, obj.Key)
		if err := r.storage.Download(ctx, obj.Key, localPath); err != nil {
			r.logger.Error("failed to download rule file", "key", obj.Key, "error", err)
			continue
		}
		if err := r.LoadRuleSet(ctx, localPath); err != nil {
			continue
		}
		if loaded {
			stats.Updated++
		} else {
			stats.Added++
		}
	}

	for _, id := range r.findRuleSetsToRemove(remote) {
		localPath := r.ruleSetPath(id)
		if err := r.UnloadRuleSet(ctx, id); err != nil {
			continue
		}
		if localPath != "" {
			if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
				r.logger.Warn("failed to delete local copy", "path", localPath, "error", err)
			}
		}
		stats.Removed++
	}

	r.logger.Info("rule sync completed",
		"added", stats.Added,
		"updated", stats.Updated,
		"removed", stats.Removed,
		"total", r.RuleSetCount(),
	)
	return stats, nil
}

func (r *RuleRegistry) changed(id string, obj output.StorageObject) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sets[id]
	if !ok {
		return true
	}
	return entry.Status != domain.RuleSetReady || (obj.Size > 0 && obj.Size != entry.Set.Size)
}

func (r *RuleRegistry) findRuleSetsToRemove(remote map[string]output.StorageObject) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var toRemove []string
	for id := range r.sets {
		if _, ok := remote[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toRemove
}

func (r *RuleRegistry) ruleSetPath(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.sets[id]; ok && entry.Set != nil {
		return entry.Set.Path
	}
	return ""
}

// deriveRuleSetID extracts a rule set ID from a file path or object key.
func deriveRuleSetID(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}

// RuleSetID returns the ID a rule file at path is registered under.
func RuleSetID(path string) string {
	return deriveRuleSetID(path)
}
