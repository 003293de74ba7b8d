package usecase

import "math"

const (
	// DefaultRefreshCycleThreshold is the progress above which a cycle
	// completes. It sits below 1 so frame overshoot cannot skip a cycle.
	DefaultRefreshCycleThreshold = 0.998

	// DefaultProgressPerMilli advances progress by one full cycle every 10s.
	DefaultProgressPerMilli = 0.0001
)

// RefreshScheduler accumulates normalized progress from frame deltas and
// fires its trigger once per completed cycle.
//
// A cycle completes when the progress seen at the start of a tick is above
// the threshold. The tick then fires the trigger and resets progress to
// exactly 0; the sliver between the threshold and 1 is dropped, not carried.
type RefreshScheduler struct {
	progress  float64
	threshold float64
	perMilli  float64
	trigger   func()
}

func NewRefreshScheduler(threshold, perMilli float64, trigger func()) *RefreshScheduler {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultRefreshCycleThreshold
	}
	if perMilli <= 0 {
		perMilli = DefaultProgressPerMilli
	}
	return &RefreshScheduler{
		threshold: threshold,
		perMilli:  perMilli,
		trigger:   trigger,
	}
}

// Tick advances progress by deltaMillis and reports whether the trigger fired.
func (s *RefreshScheduler) Tick(deltaMillis float64) bool {
	if s.progress > s.threshold {
		if s.trigger != nil {
			s.trigger()
		}
		s.progress = 0
		return true
	}

	if deltaMillis < 0 || math.IsNaN(deltaMillis) || math.IsInf(deltaMillis, 0) {
		deltaMillis = 0
	}
	s.progress = math.Mod(s.progress+deltaMillis*s.perMilli, 1)
	return false
}

// Progress returns the current progress in [0, 1).
func (s *RefreshScheduler) Progress() float64 {
	return s.progress
}

func (s *RefreshScheduler) Threshold() float64 {
	return s.threshold
}

// CycleDurationMillis is the nominal wall-clock length of one cycle.
func (s *RefreshScheduler) CycleDurationMillis() float64 {
	return 1 / s.perMilli
}
