package rate

import (
	"math"
	"testing"
	"time"
)

// ts builds evenly spaced timestamps at the given interval.
func ts(n int, interval time.Duration) []time.Time {
	base := time.Unix(0, 0)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = base.Add(time.Duration(i) * interval)
	}
	return out
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		frameTimes    []time.Time
		totalDuration time.Duration
		wantFrames    int
		wantFPSMean   float64
		wantStable    bool
		epsilon       float64
	}{
		{
			name:          "perfect 30 Hz stream",
			frameTimes:    ts(31, time.Second/30),
			totalDuration: time.Second + time.Second/30,
			wantFrames:    31,
			wantFPSMean:   30.0,
			wantStable:    true,
			epsilon:       1.0,
		},
		{
			name:          "perfect 1 Hz stream",
			frameTimes:    ts(10, time.Second),
			totalDuration: 10 * time.Second,
			wantFrames:    10,
			wantFPSMean:   1.0,
			wantStable:    true,
			epsilon:       0.01,
		},
		{
			name: "jittery stream is unstable",
			frameTimes: []time.Time{
				time.Unix(0, 0),
				time.Unix(0, 100*1000*1000),  // 100ms
				time.Unix(0, 900*1000*1000),  // 800ms gap
				time.Unix(0, 1000*1000*1000), // 100ms
				time.Unix(0, 1800*1000*1000), // 800ms gap
				time.Unix(0, 1900*1000*1000), // 100ms
			},
			totalDuration: 1900 * time.Millisecond,
			wantFrames:    6,
			wantFPSMean:   6.0 / 1.9,
			wantStable:    false,
			epsilon:       0.01,
		},
		{
			name:          "single frame",
			frameTimes:    ts(1, time.Second),
			totalDuration: time.Second,
			wantFrames:    1,
			wantFPSMean:   1.0,
			wantStable:    false,
			epsilon:       0.01,
		},
		{
			name:          "no frames",
			frameTimes:    nil,
			totalDuration: time.Second,
			wantFrames:    0,
			wantFPSMean:   0,
			wantStable:    false,
			epsilon:       0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.frameTimes, tt.totalDuration)

			if got.FramesReceived != tt.wantFrames {
				t.Errorf("FramesReceived = %d, want %d", got.FramesReceived, tt.wantFrames)
			}
			if math.Abs(got.FPSMean-tt.wantFPSMean) > tt.epsilon {
				t.Errorf("FPSMean = %.3f, want %.3f (±%.3f)", got.FPSMean, tt.wantFPSMean, tt.epsilon)
			}
			if got.IsStable != tt.wantStable {
				t.Errorf("IsStable = %v, want %v (stddev=%.3f jitter=%.4f)",
					got.IsStable, tt.wantStable, got.FPSStdDev, got.JitterMean)
			}
			if got.Duration != tt.totalDuration {
				t.Errorf("Duration = %v, want %v", got.Duration, tt.totalDuration)
			}
		})
	}
}

func TestCalculate_MinMax(t *testing.T) {
	// Intervals of 500ms, 250ms, 1s give instantaneous rates 2, 4 and 1 Hz.
	times := []time.Time{
		time.Unix(0, 0),
		time.Unix(0, 500*1000*1000),
		time.Unix(0, 750*1000*1000),
		time.Unix(1, 750*1000*1000),
	}
	got := Calculate(times, 1750*time.Millisecond)

	if math.Abs(got.FPSMin-1.0) > 0.01 {
		t.Errorf("FPSMin = %.3f, want 1.0", got.FPSMin)
	}
	if math.Abs(got.FPSMax-4.0) > 0.01 {
		t.Errorf("FPSMax = %.3f, want 4.0", got.FPSMax)
	}
	if got.JitterMax <= 0 {
		t.Errorf("JitterMax = %.4f, want > 0 for uneven intervals", got.JitterMax)
	}
}

func TestCalculate_ZeroDuration(t *testing.T) {
	got := Calculate(ts(3, time.Second), 0)
	if got.FramesReceived != 0 || got.IsStable {
		t.Errorf("Calculate() with zero duration = %+v, want empty stats", got)
	}
}
