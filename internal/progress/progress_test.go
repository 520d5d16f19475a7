package progress

import "testing"

type captureSink struct{ events []Event }

func (c *captureSink) Report(ev Event) { c.events = append(c.events, ev) }

func TestTrackerEnforcesMonotonicity(t *testing.T) {
	sink := &captureSink{}
	tr := NewTracker(sink)

	tr.Report(Event{DocumentID: "d1", Stage: "extract_content", Percent: 40})
	tr.Report(Event{DocumentID: "d1", Stage: "classify_document", Percent: 20})
	tr.Report(Event{DocumentID: "d1", Stage: "store_document", Percent: 60})

	if len(sink.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(sink.events))
	}
	if sink.events[1].Percent != 40 {
		t.Fatalf("expected regression clamped to 40, got %d", sink.events[1].Percent)
	}
	if sink.events[2].Percent != 60 {
		t.Fatalf("expected forward progress preserved, got %d", sink.events[2].Percent)
	}
}

func TestStatsSnapshotIsConsistentSnapshot(t *testing.T) {
	var s Stats
	s.IncDocumentsProcessed()
	s.IncDocumentsProcessed()
	s.AddChunksCreated(5)
	s.AddEmbeddingsDegraded(1)

	snap := s.Snapshot()
	if snap.DocumentsProcessed != 2 || snap.ChunksCreated != 5 || snap.EmbeddingsDegraded != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
