package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// MetricsState keeps a rolling average over the last AVG_COUNT paint calls
// and a once-per-second paints-per-second counter.
type MetricsState struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
	Skipped            uint64

	mu sync.Mutex
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{
			MStimes: [AVG_COUNT]float64{0},
		}
	})
	return nil
}

// MetricsUpdate records one paint call. A zero duration means the frame was
// aborted and is only counted as skipped.
func MetricsUpdate(frameElapsed time.Duration) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()

	if frameElapsed == 0 {
		metricsState.Skipped++
		return
	}

	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	metricsState.MStimes[metricsState.FrameAVGCounter] = frameMS
	if metricsState.FrameAVGCounter == AVG_COUNT-1 {
		sum := 0.0
		for i := uint8(0); i < AVG_COUNT; i++ {
			sum += metricsState.MStimes[i]
		}
		metricsState.MSavg = sum / float64(AVG_COUNT)
	}
	metricsState.FrameAVGCounter++
	metricsState.FrameAVGCounter %= AVG_COUNT

	metricsState.AccumulatedFrameMS += frameMS
	if metricsState.AccumulatedFrameMS > 1000 {
		metricsState.FPS = float64(metricsState.Frames)
		metricsState.AccumulatedFrameMS -= 1000
		metricsState.Frames = 0
	}

	metricsState.Frames++
}

func MetricsFPS() float64 {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	return metricsState.FPS
}

func MetricsFrameTime() float64 {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	return metricsState.MSavg
}

func MetricsSkipped() uint64 {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	return metricsState.Skipped
}
