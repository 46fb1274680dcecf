package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/jobrunner/limes/internal/domain"
)

// handleListPolygons returns every stored polygon in insertion order.
func (s *Server) handleListPolygons(w http.ResponseWriter, _ *http.Request) {
	polygons := s.services.Store.List()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"polygons": polygons,
		"count":    len(polygons),
	})
}

// handleImportPolygon stores a WKT polygon. The body is either plain WKT
// or a JSON object {"wkt": "..."}.
func (s *Server) handleImportPolygon(w http.ResponseWriter, r *http.Request) {
	var wkt string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			WKT string `json:"wkt"`
		}
		if err := s.decodeJSON(w, r, &req); err != nil {
			s.writeDomainError(w, err)
			return
		}
		wkt = req.WKT
	} else {
		data, err := s.readBody(w, r)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		wkt = string(data)
	}

	ap, err := s.services.Store.Import(r.Context(), wkt)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ap)
}

// handleExportPolygons returns all polygons as a GeoJSON FeatureCollection.
func (s *Server) handleExportPolygons(w http.ResponseWriter, _ *http.Request) {
	data, err := s.services.Store.ExportGeoJSON()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Header().Set("Content-Disposition", `attachment; filename="polygons.geojson"`)
	_, _ = w.Write(data)
}

func (s *Server) handleGetPolygon(w http.ResponseWriter, r *http.Request) {
	ap, err := s.services.Store.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ap)
}

// handleDeletePolygon removes a polygon. Deleting the polygon in edit mode
// also leaves edit mode.
func (s *Server) handleDeletePolygon(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Workspace.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type patchPolygonRequest struct {
	Annotation *string            `json:"annotation"`
	Species    *domain.SpeciesRef `json:"species"`
	// ClearSpecies removes the species reference.
	ClearSpecies bool `json:"clearSpecies"`
}

// handlePatchPolygon changes the annotation or species of a polygon.
func (s *Server) handlePatchPolygon(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req patchPolygonRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	if req.Annotation != nil {
		a, err := domain.ParseAnnotation(*req.Annotation)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if err := s.services.Store.SetAnnotation(r.Context(), id, a); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}
	if req.Species != nil || req.ClearSpecies {
		if err := s.services.Store.SetSpecies(r.Context(), id, req.Species); err != nil {
			s.writeDomainError(w, err)
			return
		}
	}

	s.handleGetPolygon(w, r)
}

// handleSetCoordinates replaces the geometry of a polygon. The body is the
// stored coordinate form: number[][] or number[][][].
func (s *Server) handleSetCoordinates(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	coords, _, err := domain.DecodeCoordinates(data)
	if err != nil {
		s.writeDomainError(w, &domain.ValidationError{
			Field:      "coordinates",
			Constraint: "number[][] | number[][][]",
			Message:    "invalid coordinates",
			Err:        domain.ErrInvalidGeometry,
		})
		return
	}
	if err := s.services.Store.UpdatePolygon(r.Context(), mux.Vars(r)["id"], coords); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.handleGetPolygon(w, r)
}

func (s *Server) handleInvertPolygon(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Workspace.ToggleInvert(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.handleGetPolygon(w, r)
}

// handleLocatePolygon centers the map on a polygon.
func (s *Server) handleLocatePolygon(w http.ResponseWriter, r *http.Request) {
	if err := s.services.Workspace.Locate(mux.Vars(r)["id"]); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.services.Workspace.Viewport())
}

func (s *Server) handlePolygonWKT(w http.ResponseWriter, r *http.Request) {
	wkt, err := s.services.Store.ExportWKT(mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(wkt))
}

type selectionResponse struct {
	Annotation domain.Annotation  `json:"annotation"`
	Species    *domain.SpeciesRef `json:"species"`
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	annotation, species := s.services.Store.Selection()
	s.writeJSON(w, http.StatusOK, selectionResponse{Annotation: annotation, Species: species})
}

// handleSetSelection sets the annotation and species for new polygons.
func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Annotation string             `json:"annotation"`
		Species    *domain.SpeciesRef `json:"species"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	a, err := domain.ParseAnnotation(req.Annotation)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.services.Store.SetSelection(a, req.Species); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.handleGetSelection(w, r)
}

// handleSuggestSpecies proxies the species autocomplete.
func (s *Server) handleSuggestSpecies(w http.ResponseWriter, r *http.Request) {
	if s.services.Species == nil {
		s.writeError(w, http.StatusNotFound, "species lookup disabled")
		return
	}

	q := r.URL.Query()
	limit := 10
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			s.writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	species, err := s.services.Species.SuggestSpecies(r.Context(), q.Get("q"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if species == nil {
		species = []domain.SpeciesRef{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"species": species,
		"count":   len(species),
	})
}

func (s *Server) handleGetSpecies(w http.ResponseWriter, r *http.Request) {
	if s.services.Species == nil {
		s.writeError(w, http.StatusNotFound, "species lookup disabled")
		return
	}
	key, err := strconv.Atoi(mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid species key")
		return
	}
	sp, err := s.services.Species.GetSpecies(r.Context(), key)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sp)
}
