package core

import (
	"testing"
	"time"
)

func TestMetricsAverage(t *testing.T) {
	if err := MetricsInitialize(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < int(AVG_COUNT); i++ {
		MetricsUpdate(4 * time.Millisecond)
	}
	if got := MetricsFrameTime(); got < 3.999 || got > 4.001 {
		t.Fatalf("expected 4ms average, got %f", got)
	}

	before := MetricsSkipped()
	MetricsUpdate(0)
	if MetricsSkipped() != before+1 {
		t.Fatal("aborted frame should be counted as skipped")
	}
}
