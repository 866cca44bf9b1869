package screengrab

import (
	"time"

	"github.com/visiona/screengrab/internal/rate"
)

// RateStats summarizes the cadence of a captured frame sequence: mean and
// spread of the instantaneous framerate, jitter, and a stability verdict.
type RateStats = rate.Stats

// CalculateRateStats derives RateStats from frame timestamps observed over
// totalDuration. Useful to verify the stream settled at the negotiated
// rate before trusting it:
//
//	var times []time.Time
//	for len(times) < 150 {
//	    f, err := sess.Grab()
//	    if err != nil {
//	        continue
//	    }
//	    times = append(times, f.Timestamp)
//	}
//	stats := screengrab.CalculateRateStats(times, times[len(times)-1].Sub(times[0]))
//	log.Printf("fps=%.2f stable=%v", stats.FPSMean, stats.IsStable)
//
// Stability requires the FPS stddev under 15% of the mean and mean jitter
// under 20% of the expected inter-frame interval.
func CalculateRateStats(frameTimes []time.Time, totalDuration time.Duration) *RateStats {
	return rate.Calculate(frameTimes, totalDuration)
}
