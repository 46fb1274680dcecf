package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jobrunner/limes/internal/application"
	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/editor"
)

func (s *Server) handleEditorView(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.services.Workspace.View())
}

// handlePointer feeds one pointer event to the editor. The response carries
// the resolved target and the editor state after the event.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var in application.PointerInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, err)
		return
	}

	target, err := s.services.Workspace.Pointer(r.Context(), in)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"target": target,
		"view":   s.services.Workspace.View(),
	})
}

// handleStartDrawing begins a polygon, rectangle or latband shape.
func (s *Server) handleStartDrawing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	mode, err := editor.ParseMode(req.Mode)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.editorAction(w, s.services.Workspace.StartDrawing(r.Context(), mode))
}

// handleFinish completes the shape and returns the stored polygon.
func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	ap, err := s.services.Workspace.Finish(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ap)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.editorAction(w, s.services.Workspace.Cancel(r.Context()))
}

func (s *Server) handleSetLatBand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Upper float64 `json:"upper"`
		Lower float64 `json:"lower"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.editorAction(w, s.services.Workspace.SetLatBand(req.Upper, req.Lower))
}

func (s *Server) handleEnterEditMode(w http.ResponseWriter, r *http.Request) {
	s.editorAction(w, s.services.Workspace.EnterEditMode(r.Context(), mux.Vars(r)["id"]))
}

func (s *Server) handleExitEditMode(w http.ResponseWriter, _ *http.Request) {
	s.editorAction(w, s.services.Workspace.ExitEditMode())
}

func (s *Server) handleDensify(w http.ResponseWriter, r *http.Request) {
	s.editorAction(w, s.services.Workspace.Densify(r.Context()))
}

func (s *Server) handleDecimate(w http.ResponseWriter, r *http.Request) {
	s.editorAction(w, s.services.Workspace.Decimate(r.Context()))
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleMoveTool(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.editorAction(w, s.services.Workspace.SetMoveTool(req.Enabled))
}

// handleInvestigateMode toggles area search on click. Without an occurrence
// service the mode cannot be enabled.
func (s *Server) handleInvestigateMode(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	if req.Enabled && s.services.Investigations == nil {
		s.writeError(w, http.StatusServiceUnavailable, "occurrence search disabled")
		return
	}
	s.services.Workspace.SetInvestigateMode(req.Enabled)
	s.editorAction(w, nil)
}

// handleGetInvestigation returns the running or finished investigation.
func (s *Server) handleGetInvestigation(w http.ResponseWriter, _ *http.Request) {
	if s.services.Investigations == nil {
		s.writeError(w, http.StatusNotFound, "occurrence search disabled")
		return
	}
	inv := s.services.Investigations.Current()
	if inv == nil {
		s.writeError(w, http.StatusNotFound, "no investigation")
		return
	}
	s.writeJSON(w, http.StatusOK, inv.Snapshot())
}

func (s *Server) handleCloseInvestigation(w http.ResponseWriter, _ *http.Request) {
	s.editorAction(w, s.services.Workspace.CloseInvestigation())
}

// editorAction answers an editor command with the resulting editor state.
func (s *Server) editorAction(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.services.Workspace.View())
}

func (s *Server) handleGetViewport(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.services.Workspace.Viewport())
}

// handleSetViewport reports a pan or zoom step of the base map.
func (s *Server) handleSetViewport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Center domain.GeoPoint `json:"center"`
		Zoom   float64         `json:"zoom"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.viewportAction(w, s.services.Workspace.ViewportChanged(req.Center, req.Zoom))
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.viewportAction(w, s.services.Workspace.Resize(req.Width, req.Height))
}

// handleNavigate starts a camera move. Zoom is optional.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat  float64  `json:"lat"`
		Lng  float64  `json:"lng"`
		Zoom *float64 `json:"zoom"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.viewportAction(w, s.services.Workspace.NavigateTo(req.Lat, req.Lng, req.Zoom))
}

func (s *Server) handleSettle(w http.ResponseWriter, _ *http.Request) {
	s.services.Workspace.Settle()
	s.viewportAction(w, nil)
}

func (s *Server) viewportAction(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.services.Workspace.Viewport())
}

// handleScene returns the projected drawing of the current state.
func (s *Server) handleScene(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.services.Workspace.Scene())
}

func (s *Server) handleSceneSVG(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write([]byte(s.services.Workspace.Scene().SVG()))
}

// handleTiles lists the occurrence density tiles covering the viewport.
func (s *Server) handleTiles(w http.ResponseWriter, _ *http.Request) {
	tiles := s.services.Workspace.Tiles()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tiles": tiles,
		"count": len(tiles),
	})
}
