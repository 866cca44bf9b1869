// Package rate computes frame-rate statistics over observed frame
// timestamps: mean and spread of the instantaneous rate plus jitter, and a
// stability verdict.
package rate

import (
	"math"
	"time"
)

const (
	// fpsStabilityThreshold: stable if the stddev of instantaneous FPS
	// stays under 15% of the mean.
	fpsStabilityThreshold = 0.15

	// jitterStabilityThreshold: stable if mean jitter stays under 20% of
	// the expected inter-frame interval.
	jitterStabilityThreshold = 0.20
)

// Stats summarizes the cadence of a frame sequence.
type Stats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	JitterMean     float64
	JitterStdDev   float64
	JitterMax      float64
	IsStable       bool
}

// Calculate derives Stats from frame timestamps observed over
// totalDuration. Fewer than two frames always yields IsStable=false.
func Calculate(frameTimes []time.Time, totalDuration time.Duration) *Stats {
	n := len(frameTimes)
	if n == 0 || totalDuration <= 0 {
		return &Stats{Duration: totalDuration}
	}

	fpsMean := float64(n) / totalDuration.Seconds()

	instantaneous := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		interval := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		if interval > 0 {
			instantaneous = append(instantaneous, 1.0/interval)
		}
	}

	if len(instantaneous) == 0 {
		return &Stats{
			FramesReceived: n,
			Duration:       totalDuration,
			FPSMean:        fpsMean,
		}
	}

	fpsMin, fpsMax := instantaneous[0], instantaneous[0]
	for _, fps := range instantaneous {
		if fps < fpsMin {
			fpsMin = fps
		}
		if fps > fpsMax {
			fpsMax = fps
		}
	}

	var sumSquares float64
	for _, fps := range instantaneous {
		diff := fps - fpsMean
		sumSquares += diff * diff
	}
	fpsStdDev := math.Sqrt(sumSquares / float64(len(instantaneous)))

	expectedInterval := 1.0 / fpsMean
	jitters := make([]float64, 0, n-1)
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		actual := frameTimes[i].Sub(frameTimes[i-1]).Seconds()
		j := math.Abs(actual - expectedInterval)
		jitters = append(jitters, j)
		jitterSum += j
		if j > jitterMax {
			jitterMax = j
		}
	}
	jitterMean := jitterSum / float64(len(jitters))

	var jitterSquares float64
	for _, j := range jitters {
		diff := j - jitterMean
		jitterSquares += diff * diff
	}
	jitterStdDev := math.Sqrt(jitterSquares / float64(len(jitters)))

	stable := len(instantaneous) >= 2 &&
		fpsStdDev < fpsMean*fpsStabilityThreshold &&
		jitterMean < expectedInterval*jitterStabilityThreshold

	return &Stats{
		FramesReceived: n,
		Duration:       totalDuration,
		FPSMean:        fpsMean,
		FPSStdDev:      fpsStdDev,
		FPSMin:         fpsMin,
		FPSMax:         fpsMax,
		JitterMean:     jitterMean,
		JitterStdDev:   jitterStdDev,
		JitterMax:      jitterMax,
		IsStable:       stable,
	}
}
