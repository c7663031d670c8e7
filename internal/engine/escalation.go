package engine

import (
	"math"
	"time"
)

// ShouldEscalate reports whether reaching round crosses a speed milestone:
// rounds 1+every, 1+2*every, and so on.
func ShouldEscalate(round, every int) bool {
	return every > 0 && round > 1 && (round-1)%every == 0
}

// EscalationPolicy maps the n-th speed milestone (1-based) to the tick
// interval the countdown should use from then on.
type EscalationPolicy interface {
	TickInterval(milestone int, base time.Duration) time.Duration
}

type EscalationFunc func(milestone int, base time.Duration) time.Duration

func (f EscalationFunc) TickInterval(milestone int, base time.Duration) time.Duration {
	return f(milestone, base)
}

// GeometricEscalation shrinks the interval by Factor per milestone, never
// going below Floor. It never returns more than base.
type GeometricEscalation struct {
	Factor float64
	Floor  time.Duration
}

func DefaultEscalation() GeometricEscalation {
	return GeometricEscalation{Factor: 0.9, Floor: 400 * time.Millisecond}
}

func (g GeometricEscalation) TickInterval(milestone int, base time.Duration) time.Duration {
	if milestone <= 0 || g.Factor <= 0 || g.Factor >= 1 {
		return base
	}
	d := time.Duration(float64(base) * math.Pow(g.Factor, float64(milestone)))
	return min(base, max(d, g.Floor))
}
