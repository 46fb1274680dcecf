package editor

import "github.com/jobrunner/limes/internal/domain"

// View is a read-only copy of the editor state for rendering and the API.
type View struct {
	State           string                        `json:"state"`
	Mode            Mode                          `json:"mode,omitempty"`
	EditingID       string                        `json:"editingId,omitempty"`
	MoveTool        bool                          `json:"moveTool"`
	InvestigateMode bool                          `json:"investigateMode"`
	Draft           domain.Polygon                `json:"draft,omitempty"`
	Rubber          domain.Polygon                `json:"rubberBand,omitempty"`
	Cursor          *domain.GeoPoint              `json:"cursor,omitempty"`
	PreviewID       string                        `json:"previewId,omitempty"`
	Preview         domain.MultiPolygon           `json:"preview,omitempty"`
	Investigation   *domain.InvestigationSnapshot `json:"investigation,omitempty"`
}

// Snapshot returns the current view. Slices are copies.
func (e *Editor) Snapshot() View {
	v := View{
		State:           e.state.Name(),
		EditingID:       e.editingID,
		MoveTool:        e.moveTool,
		InvestigateMode: e.investigateMode,
		Rubber:          e.rubber.Clone(),
	}
	if e.cursor != nil {
		c := *e.cursor
		v.Cursor = &c
	}

	switch s := e.state.(type) {
	case Drawing:
		v.Mode = s.Mode
		v.Draft = s.Points.Clone()
	case DraggingVertex:
		v.PreviewID = s.TargetID
		v.Preview = e.preview.Clone()
	case DraggingPolygon:
		v.PreviewID = s.TargetID
		v.Preview = e.preview.Clone()
	case Investigating:
		if s.Investigation != nil {
			snap := s.Investigation.Snapshot()
			v.Investigation = &snap
		}
	}
	return v
}
