// Package gbif implements the occurrence search and species lookup ports
// against the GBIF REST API.
package gbif

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jobrunner/limes/internal/domain"
)

// DefaultBaseURL is the public GBIF API.
const DefaultBaseURL = "https://api.gbif.org/v1"

// GBIF caps occurrence search pages at 300 records.
const maxPageSize = 300

// Config holds GBIF client configuration.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the GBIF occurrence, dataset and species endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewClient creates a new GBIF client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "limes"
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
	}
}

type occurrenceRecord struct {
	Key              int64    `json:"key"`
	ScientificName   string   `json:"scientificName"`
	DecimalLatitude  *float64 `json:"decimalLatitude"`
	DecimalLongitude *float64 `json:"decimalLongitude"`
	EventDate        string   `json:"eventDate"`
	Country          string   `json:"country"`
	BasisOfRecord    string   `json:"basisOfRecord"`
	DatasetKey       string   `json:"datasetKey"`
}

type occurrencePage struct {
	Offset       int                `json:"offset"`
	Limit        int                `json:"limit"`
	EndOfRecords bool               `json:"endOfRecords"`
	Count        int                `json:"count"`
	Results      []occurrenceRecord `json:"results"`
}

// SearchOccurrences returns up to limit georeferenced occurrences inside
// bbox. Records without coordinates are skipped.
func (c *Client) SearchOccurrences(ctx context.Context, speciesKey int, bbox domain.BBox, limit int) ([]domain.Occurrence, error) {
	if limit <= 0 {
		return nil, nil
	}

	var occurrences []domain.Occurrence
	for offset := 0; len(occurrences) < limit; {
		q := searchQuery(speciesKey, bbox)
		q.Set("offset", strconv.Itoa(offset))
		q.Set("limit", strconv.Itoa(min(limit-len(occurrences), maxPageSize)))

		var page occurrencePage
		if err := c.getJSON(ctx, "/occurrence/search", q, &page); err != nil {
			return nil, err
		}

		for _, rec := range page.Results {
			if rec.DecimalLatitude == nil || rec.DecimalLongitude == nil {
				continue
			}
			occurrences = append(occurrences, domain.Occurrence{
				Key:            rec.Key,
				ScientificName: rec.ScientificName,
				Position:       domain.GeoPoint{Lat: *rec.DecimalLatitude, Lng: *rec.DecimalLongitude},
				EventDate:      rec.EventDate,
				Country:        rec.Country,
				BasisOfRecord:  rec.BasisOfRecord,
				DatasetKey:     rec.DatasetKey,
			})
			if len(occurrences) == limit {
				break
			}
		}

		if page.EndOfRecords || len(page.Results) == 0 {
			break
		}
		offset += len(page.Results)
	}

	return occurrences, nil
}

// searchQuery builds the occurrence search filter. GBIF range filters take
// "min,max"; a box crossing the antimeridian is sent with west > east, which
// the API understands as wrapping.
func searchQuery(speciesKey int, bbox domain.BBox) url.Values {
	q := url.Values{}
	if speciesKey > 0 {
		q.Set("taxonKey", strconv.Itoa(speciesKey))
	}
	q.Set("hasCoordinate", "true")
	q.Set("hasGeospatialIssue", "false")
	q.Set("decimalLatitude", formatRange(bbox.South, bbox.North))
	q.Set("decimalLongitude", formatRange(bbox.West, bbox.East))
	return q
}

func formatRange(lo, hi float64) string {
	return strconv.FormatFloat(lo, 'f', -1, 64) + "," + strconv.FormatFloat(hi, 'f', -1, 64)
}

type datasetRecord struct {
	Key                       string `json:"key"`
	Title                     string `json:"title"`
	PublishingOrganizationKey string `json:"publishingOrganizationKey"`
}

type organizationRecord struct {
	Title string `json:"title"`
}

// GetDataset returns the title and publisher of a dataset. The publisher
// lookup is best effort; on failure the organization key is reported.
func (c *Client) GetDataset(ctx context.Context, key string) (domain.Dataset, error) {
	if key == "" {
		return domain.Dataset{}, fmt.Errorf("%w: empty dataset key", domain.ErrInvalidInput)
	}

	var rec datasetRecord
	if err := c.getJSON(ctx, "/dataset/"+url.PathEscape(key), nil, &rec); err != nil {
		return domain.Dataset{}, err
	}

	ds := domain.Dataset{Key: key, Title: rec.Title, Publisher: rec.PublishingOrganizationKey}
	if rec.PublishingOrganizationKey != "" {
		var org organizationRecord
		if err := c.getJSON(ctx, "/organization/"+url.PathEscape(rec.PublishingOrganizationKey), nil, &org); err == nil && org.Title != "" {
			ds.Publisher = org.Title
		}
	}
	if ds.Title == "" {
		ds.Title = domain.UnknownDataset
	}
	return ds, nil
}

type speciesRecord struct {
	Key            int    `json:"key"`
	ScientificName string `json:"scientificName"`
	CanonicalName  string `json:"canonicalName"`
	Rank           string `json:"rank"`
}

func (r speciesRecord) ref() domain.SpeciesRef {
	return domain.SpeciesRef{Key: r.Key, ScientificName: r.ScientificName}
}

// SuggestSpecies returns species whose name starts with query.
func (c *Client) SuggestSpecies(ctx context.Context, query string, limit int) ([]domain.SpeciesRef, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("rank", "SPECIES")
	q.Set("limit", strconv.Itoa(limit))

	var records []speciesRecord
	if err := c.getJSON(ctx, "/species/suggest", q, &records); err != nil {
		return nil, err
	}

	refs := make([]domain.SpeciesRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, r.ref())
	}
	return refs, nil
}

// GetSpecies returns the species with the given taxon key.
func (c *Client) GetSpecies(ctx context.Context, key int) (domain.SpeciesRef, error) {
	if key <= 0 {
		return domain.SpeciesRef{}, fmt.Errorf("%w: species key must be positive", domain.ErrInvalidInput)
	}

	var rec speciesRecord
	if err := c.getJSON(ctx, "/species/"+strconv.Itoa(key), nil, &rec); err != nil {
		return domain.SpeciesRef{}, err
	}
	return rec.ref(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &domain.SearchError{Operation: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.SearchError{Operation: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &domain.SearchError{Operation: path, Err: domain.ErrNotFound}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.SearchError{
			Operation: path,
			Err:       fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.SearchError{Operation: path, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
