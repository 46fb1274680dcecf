package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jobrunner/limes/internal/application"
	"github.com/jobrunner/limes/internal/domain"
)

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.services.Health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":           boolToStatus(details.Healthy),
		"ready":            details.Ready,
		"rule_sets_loaded": details.RuleSetsLoaded,
		"rule_sets_ready":  details.RuleSetsReady,
		"polygons":         details.Polygons,
		"components":       details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.services.Health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleListRuleSets returns all registered rule sets.
func (s *Server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.services.Rules.ListRuleSets(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i].ID < sets[j].ID })

	response := make([]map[string]interface{}, len(sets))
	for i := range sets {
		response[i] = s.formatRuleSet(r, &sets[i])
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"rule_sets": response,
		"count":     len(sets),
	})
}

// handleGetRuleSet returns one rule set with its rules.
func (s *Server) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	set, err := s.services.Rules.GetRuleSet(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rules := make([]map[string]interface{}, len(set.Rules))
	for i, rule := range set.Rules {
		rules[i] = map[string]interface{}{
			"id":          rule.ID,
			"name":        rule.Name,
			"annotation":  rule.Annotation,
			"species_key": rule.SpeciesKey,
			"polygons":    len(rule.Polygons),
			"bbox":        rule.BBox(),
		}
	}

	out := s.formatRuleSet(r, set)
	out["rules"] = rules
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) formatRuleSet(r *http.Request, set *domain.RuleSet) map[string]interface{} {
	status, _ := s.services.Rules.GetRuleSetStatus(r.Context(), set.ID)
	return map[string]interface{}{
		"id":           set.ID,
		"name":         set.Name,
		"path":         set.Path,
		"size":         set.Size,
		"rule_count":   set.RuleCount(),
		"attribution":  set.Attribution,
		"status":       status,
		"loaded_at":    set.LoadedAt,
		"last_matched": set.LastMatched,
	}
}

// handleMatch tests a point against the annotation rules.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	point, err := parsePoint(r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	speciesKey := 0
	if v := r.URL.Query().Get("species"); v != "" {
		speciesKey, err = strconv.Atoi(v)
		if err != nil || speciesKey < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid species parameter")
			return
		}
	}

	result, err := s.services.Matcher.Match(r.Context(), point, speciesKey)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

// handleSync handles the sync trigger endpoint.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.services.Sync.TriggerSync(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrRateLimited) {
			retry := int(application.SyncCooldown.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			s.writeError(w, http.StatusTooManyRequests, fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retry))
			return
		}
		s.logger.Error("sync failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Sync failed")
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// parsePoint reads the lat and lng query parameters.
func parsePoint(r *http.Request) (domain.GeoPoint, error) {
	q := r.URL.Query()
	lat, err := parseFloat(q.Get("lat"), "lat")
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lng, err := parseFloat(q.Get("lng"), "lng")
	if err != nil {
		return domain.GeoPoint{}, err
	}
	p := domain.GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return domain.GeoPoint{}, err
	}
	return p, nil
}

func parseFloat(v, name string) (float64, error) {
	if v == "" {
		return 0, &domain.ValidationError{Field: name, Constraint: "required", Message: name + " is required"}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &domain.ValidationError{Field: name, Value: v, Constraint: "number", Message: "invalid " + name + " parameter"}
	}
	return f, nil
}

// decodeJSON reads a size limited JSON request body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Field: "body", Constraint: "json", Message: "request body is empty"}
		}
		return &domain.ValidationError{Field: "body", Constraint: "json", Message: "invalid request body: " + err.Error()}
	}
	return nil
}

// readBody reads a size limited raw request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &domain.ValidationError{Field: "body", Constraint: "size", Message: "request body too large"}
	}
	return data, nil
}

// writeDomainError maps application errors to HTTP status codes. The
// message is the short notice shown to the user.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var searchErr *domain.SearchError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, domain.Notice(err))
	case errors.Is(err, domain.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, domain.Notice(err))
	case errors.Is(err, domain.ErrConflict):
		s.writeError(w, http.StatusConflict, domain.Notice(err))
	case errors.Is(err, domain.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, domain.Notice(err))
	case errors.As(err, &searchErr):
		s.writeError(w, http.StatusBadGateway, "occurrence service unavailable")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
