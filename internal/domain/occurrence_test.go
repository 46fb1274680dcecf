package domain

import (
	"testing"
	"time"
)

func TestInvestigationLifecycle(t *testing.T) {
	inv := NewInvestigation(3, NewGeoPoint(47, 8), 10, 2435099, time.Now())

	if inv.Status() != InvestigationSearching {
		t.Fatalf("Status() = %s, want searching", inv.Status())
	}

	if !inv.Append(OccurrenceResult{Occurrence: Occurrence{Key: 1}}) {
		t.Error("Append() should accept results while searching")
	}
	inv.Append(OccurrenceResult{Occurrence: Occurrence{Key: 2}})
	inv.Finish()

	select {
	case <-inv.Done():
	default:
		t.Fatal("Done() should be closed after Finish()")
	}

	if inv.Append(OccurrenceResult{Occurrence: Occurrence{Key: 3}}) {
		t.Error("Append() should be ignored after Finish()")
	}

	snap := inv.Snapshot()
	if snap.Status != InvestigationDone || len(snap.Results) != 2 || snap.Generation != 3 {
		t.Errorf("Snapshot() = %+v", snap)
	}

	// Finishing twice is harmless.
	inv.Close()
	if inv.Status() != InvestigationDone {
		t.Errorf("Status() = %s after late Close(), want done", inv.Status())
	}
}

func TestInvestigationFail(t *testing.T) {
	inv := NewInvestigation(1, NewGeoPoint(0, 0), 5, 0, time.Now())
	inv.Append(OccurrenceResult{})
	inv.Fail("search failed")

	snap := inv.Snapshot()
	if snap.Status != InvestigationFailed {
		t.Errorf("Status = %s, want failed", snap.Status)
	}
	if len(snap.Results) != 0 {
		t.Errorf("failed investigation should have empty results, got %d", len(snap.Results))
	}
	if snap.Notice != "search failed" {
		t.Errorf("Notice = %q", snap.Notice)
	}
}

func TestInvestigationBBox(t *testing.T) {
	inv := NewInvestigation(1, NewGeoPoint(10, 10), 20, 0, time.Now())
	if !inv.BBox().Contains(inv.Point) {
		t.Error("BBox() should contain the investigated point")
	}
}

func TestUnknownDatasetFor(t *testing.T) {
	d := UnknownDatasetFor("abc")
	if d.Key != "abc" || d.Title != UnknownDataset {
		t.Errorf("UnknownDatasetFor() = %+v", d)
	}
}
