package classify

import "testing"

func TestDetectSeriesKonicaMinoltaBizhub(t *testing.T) {
	info := DetectSeries("km_manual.pdf", "This bizhub C450i unit requires servicing.", "konica_minolta")
	if info.DetectedSeries != "BizHub" {
		t.Fatalf("expected BizHub, got %q", info.DetectedSeries)
	}
	if info.Description == "" {
		t.Fatalf("expected a non-empty description")
	}
}

func TestDetectSeriesUnknownManufacturer(t *testing.T) {
	info := DetectSeries("doc.pdf", "bizhub content", "unknown")
	if info.DetectedSeries != "unknown" || info.Confidence != 0 {
		t.Fatalf("expected unknown series for unknown manufacturer, got %+v", info)
	}
}
