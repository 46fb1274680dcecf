package domain

import (
	"sync"
	"time"
)

// UnknownDataset is the title used when a dataset lookup fails.
const UnknownDataset = "Unknown dataset"

// Occurrence is a single species-occurrence record returned by the search
// collaborator.
type Occurrence struct {
	Key            int64    `json:"key"`
	ScientificName string   `json:"scientificName"`
	Position       GeoPoint `json:"position"`
	EventDate      string   `json:"eventDate,omitempty"`
	Country        string   `json:"country,omitempty"`
	BasisOfRecord  string   `json:"basisOfRecord,omitempty"`
	DatasetKey     string   `json:"datasetKey,omitempty"`
}

// Dataset is the metadata of the dataset an occurrence was published in.
type Dataset struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	Publisher string `json:"publisher,omitempty"`
}

// UnknownDatasetFor returns the placeholder used when the lookup of key fails.
func UnknownDatasetFor(key string) Dataset {
	return Dataset{Key: key, Title: UnknownDataset}
}

// OccurrenceResult is an occurrence enriched with its dataset metadata.
type OccurrenceResult struct {
	Occurrence Occurrence `json:"occurrence"`
	Dataset    Dataset    `json:"dataset"`
}

// InvestigationStatus describes the lifecycle of an area search.
type InvestigationStatus string

// Investigation status values.
const (
	InvestigationSearching InvestigationStatus = "searching"
	InvestigationDone      InvestigationStatus = "done"
	InvestigationFailed    InvestigationStatus = "failed"
	InvestigationClosed    InvestigationStatus = "closed"
)

// Investigation is the results surface of one area search. Results are
// appended one by one as they are enriched; all methods are safe for
// concurrent use.
type Investigation struct {
	Generation uint64
	Point      GeoPoint
	RadiusKm   float64
	SpeciesKey int
	StartedAt  time.Time

	mu      sync.RWMutex
	status  InvestigationStatus
	results []OccurrenceResult
	notice  string
	done    chan struct{}
}

// NewInvestigation creates an investigation in the searching state.
func NewInvestigation(generation uint64, point GeoPoint, radiusKm float64, speciesKey int, now time.Time) *Investigation {
	return &Investigation{
		Generation: generation,
		Point:      point,
		RadiusKm:   radiusKm,
		SpeciesKey: speciesKey,
		StartedAt:  now,
		status:     InvestigationSearching,
		done:       make(chan struct{}),
	}
}

// BBox returns the search area around the investigated point.
func (i *Investigation) BBox() BBox {
	return BBoxAround(i.Point, i.RadiusKm)
}

// Append adds one result. It is ignored once the investigation finished.
func (i *Investigation) Append(r OccurrenceResult) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != InvestigationSearching {
		return false
	}
	i.results = append(i.results, r)
	return true
}

// Finish marks the search as complete.
func (i *Investigation) Finish() {
	i.finish(InvestigationDone, "")
}

// Fail marks the search as failed; any partial results are dropped so the
// surface shows an empty state.
func (i *Investigation) Fail(notice string) {
	i.mu.Lock()
	if i.status == InvestigationSearching {
		i.results = nil
	}
	i.mu.Unlock()
	i.finish(InvestigationFailed, notice)
}

// Close marks the investigation as dismissed by the user.
func (i *Investigation) Close() {
	i.finish(InvestigationClosed, "")
}

func (i *Investigation) finish(status InvestigationStatus, notice string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status != InvestigationSearching {
		return
	}
	i.status = status
	i.notice = notice
	close(i.done)
}

// Done is closed once the investigation leaves the searching state.
func (i *Investigation) Done() <-chan struct{} {
	return i.done
}

// Status returns the current status.
func (i *Investigation) Status() InvestigationStatus {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

// InvestigationSnapshot is a point-in-time copy of an investigation.
type InvestigationSnapshot struct {
	Generation uint64              `json:"generation"`
	Point      GeoPoint            `json:"point"`
	RadiusKm   float64             `json:"radiusKm"`
	SpeciesKey int                 `json:"speciesKey"`
	Status     InvestigationStatus `json:"status"`
	Notice     string              `json:"notice,omitempty"`
	Results    []OccurrenceResult  `json:"results"`
	StartedAt  time.Time           `json:"startedAt"`
}

// Snapshot returns a copy of the current state.
func (i *Investigation) Snapshot() InvestigationSnapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()
	results := make([]OccurrenceResult, len(i.results))
	copy(results, i.results)
	return InvestigationSnapshot{
		Generation: i.Generation,
		Point:      i.Point,
		RadiusKm:   i.RadiusKm,
		SpeciesKey: i.SpeciesKey,
		Status:     i.status,
		Notice:     i.notice,
		Results:    results,
		StartedAt:  i.StartedAt,
	}
}
