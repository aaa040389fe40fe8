package circuitbreaker

import "time"

// behavior decides, from a stream of recorded outcomes, whether a breaker
// sitting in Closed should trip to Open. The controller calls these
// methods exclusively under its own lock, so implementations need no
// synchronization of their own.
type behavior interface {
	onSuccess(now time.Time)
	// onFailure records a failure and reports whether it should trip the
	// breaker.
	onFailure(now time.Time) bool
	healthInfo(now time.Time) HealthInfo
	reset(now time.Time)
}

// consecutiveBehavior implements the basic variant: it opens after
// threshold handled failures with no intervening success. It carries no
// notion of throughput or elapsed time.
type consecutiveBehavior struct {
	threshold int
	streak    int
}

func newConsecutiveBehavior(threshold int) *consecutiveBehavior {
	return &consecutiveBehavior{threshold: threshold}
}

func (b *consecutiveBehavior) onSuccess(time.Time) { b.streak = 0 }

func (b *consecutiveBehavior) onFailure(time.Time) bool {
	b.streak++
	return b.streak >= b.threshold
}

func (b *consecutiveBehavior) healthInfo(time.Time) HealthInfo {
	if b.streak == 0 {
		return HealthInfo{}
	}
	return HealthInfo{Throughput: b.streak, FailureCount: b.streak, FailureRate: 1}
}

func (b *consecutiveBehavior) reset(time.Time) { b.streak = 0 }

// healthMetricBehavior implements the advanced variant: it opens once the
// failure rate over the rolling window reaches failureThreshold, provided
// the window has recorded at least minimumThroughput outcomes.
type healthMetricBehavior struct {
	window            healthWindow
	failureThreshold  float64
	minimumThroughput int
}

func newHealthMetricBehavior(window healthWindow, failureThreshold float64, minimumThroughput int) *healthMetricBehavior {
	return &healthMetricBehavior{
		window:            window,
		failureThreshold:  failureThreshold,
		minimumThroughput: minimumThroughput,
	}
}

func (b *healthMetricBehavior) onSuccess(now time.Time) {
	b.window.record(now, true)
}

func (b *healthMetricBehavior) onFailure(now time.Time) bool {
	b.window.record(now, false)
	info := b.window.snapshot(now)
	return info.Throughput >= b.minimumThroughput && info.FailureRate >= b.failureThreshold
}

func (b *healthMetricBehavior) healthInfo(now time.Time) HealthInfo {
	return b.window.snapshot(now)
}

func (b *healthMetricBehavior) reset(now time.Time) {
	b.window.reset(now)
}
