package usecase

import "time"

// FrameHost is the host capability to run a callback on the next display
// frame. The returned func cancels the request if it has not run yet.
type FrameHost interface {
	RequestFrame(cb func(now time.Time)) (cancel func())
}

// AnimationLoop re-registers itself on a FrameHost every frame while
// enabled and hands the elapsed milliseconds since the previous frame to
// onFrame. The first frame after enabling only records its timestamp.
type AnimationLoop struct {
	host    FrameHost
	onFrame func(deltaMillis float64)

	enabled bool
	stopped bool
	gen     int
	cancel  func()
	last    time.Time
	hasLast bool
}

func NewAnimationLoop(host FrameHost, onFrame func(deltaMillis float64)) *AnimationLoop {
	return &AnimationLoop{
		host:    host,
		onFrame: onFrame,
	}
}

func (l *AnimationLoop) Enable() {
	if l.stopped || l.enabled {
		return
	}
	l.enabled = true
	l.hasLast = false
	l.schedule()
}

func (l *AnimationLoop) Disable() {
	if !l.enabled {
		return
	}
	l.enabled = false
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Stop disables the loop for good.
func (l *AnimationLoop) Stop() {
	l.Disable()
	l.stopped = true
}

func (l *AnimationLoop) Enabled() bool {
	return l.enabled
}

func (l *AnimationLoop) schedule() {
	gen := l.gen
	l.cancel = l.host.RequestFrame(func(now time.Time) {
		l.frame(gen, now)
	})
}

func (l *AnimationLoop) frame(gen int, now time.Time) {
	if gen != l.gen || !l.enabled {
		return
	}
	l.cancel = nil

	if l.hasLast {
		delta := float64(now.Sub(l.last)) / float64(time.Millisecond)
		l.last = now
		l.onFrame(delta)
	} else {
		l.last = now
		l.hasLast = true
	}

	// onFrame may have disabled (and even re-enabled) the loop.
	if l.enabled && !l.stopped && l.cancel == nil && gen == l.gen {
		l.schedule()
	}
}
