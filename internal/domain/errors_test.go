package domain

import (
	"errors"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := &ValidationError{
		Field:      "longitude",
		Value:      200.0,
		Constraint: "[-180, 180]",
		Message:    "longitude outside valid geographic bounds",
	}

	if got := err.Error(); got == "" {
		t.Error("Error() should not return empty string")
	}

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
}

func TestValidationErrorSpecificSentinel(t *testing.T) {
	err := &ValidationError{Field: "polygon", Message: "too small", Err: ErrMinVertices}

	if !errors.Is(err, ErrMinVertices) {
		t.Error("ValidationError should unwrap to its specific sentinel")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("specific sentinel should still wrap ErrInvalidInput")
	}
}

func TestSearchError(t *testing.T) {
	tests := []struct {
		name string
		err  *SearchError
	}{
		{
			name: "with key",
			err:  &SearchError{Operation: "search", Key: "2435099", Err: errors.New("connection refused")},
		},
		{
			name: "without key",
			err:  &SearchError{Operation: "dataset", Err: errors.New("timeout")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got == "" {
				t.Error("Error() should not return empty string")
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  *StorageError
	}{
		{
			name: "with key",
			err: &StorageError{
				Operation: "download",
				Key:       "rules.geojson",
				Err:       errors.New("network error"),
			},
		},
		{
			name: "without key",
			err: &StorageError{
				Operation: "list",
				Err:       errors.New("access denied"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got == "" {
				t.Error("Error() should not return empty string")
			}
			if !errors.Is(tt.err, tt.err.Err) {
				t.Error("Unwrap should return the underlying error")
			}
		})
	}
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "storage.local_path",
		Message: "path not found",
	}

	if got := err.Error(); got == "" {
		t.Error("Error() should not return empty string")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ConfigError should unwrap to ErrInvalidInput")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"ErrOutOfBounds", ErrOutOfBounds, ErrInvalidInput},
		{"ErrTooFewPoints", ErrTooFewPoints, ErrInvalidInput},
		{"ErrMinVertices", ErrMinVertices, ErrInvalidInput},
		{"ErrVertexIndex", ErrVertexIndex, ErrInvalidInput},
		{"ErrInvalidLatBand", ErrInvalidLatBand, ErrInvalidInput},
		{"ErrInvalidAnnotation", ErrInvalidAnnotation, ErrInvalidInput},
		{"ErrInvalidGeometry", ErrInvalidGeometry, ErrInvalidInput},
		{"ErrPolygonNotFound", ErrPolygonNotFound, ErrNotFound},
		{"ErrRuleNotFound", ErrRuleNotFound, ErrNotFound},
		{"ErrBusy", ErrBusy, ErrConflict},
		{"ErrNotDrawing", ErrNotDrawing, ErrConflict},
		{"ErrNotEditing", ErrNotEditing, ErrConflict},
		{"ErrSearchInFlight", ErrSearchInFlight, ErrConflict},
		{"ErrNotReady", ErrNotReady, ErrUnavailable},
		{"ErrStorageUnavailable", ErrStorageUnavailable, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.wantErr) {
				t.Errorf("%s should wrap %v", tt.name, tt.wantErr)
			}
		})
	}
}

func TestNotice(t *testing.T) {
	ve := &ValidationError{Field: "polygon", Message: "a polygon needs at least 3 points", Err: ErrTooFewPoints}
	if got := Notice(ve); got != "a polygon needs at least 3 points" {
		t.Errorf("Notice(validation) = %q", got)
	}
	if got := Notice(ErrSearchInFlight); got != ErrSearchInFlight.Error() {
		t.Errorf("Notice(sentinel) = %q", got)
	}
}
