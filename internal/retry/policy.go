package retry

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	StrategyFixed       = "fixed"
	StrategyExponential = "exponential"
)

// Policy decides how long to wait before the given retry.
// retry is 1 for the wait between the first and the second attempt.
type Policy interface {
	Delay(retry int) time.Duration
	String() string
}

// FixedDelay waits the same interval before every retry.
type FixedDelay struct {
	Interval time.Duration
}

func (f FixedDelay) Delay(int) time.Duration {
	return f.Interval
}

func (f FixedDelay) String() string {
	return fmt.Sprintf("fixed(%s)", f.Interval)
}

// ExponentialBackoff multiplies the base delay by Factor for every further retry, capped at Max when Max > 0.
type ExponentialBackoff struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

func (e ExponentialBackoff) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	factor := e.Factor
	if factor < 1 {
		factor = 2
	}

	d := time.Duration(float64(e.Base) * math.Pow(factor, float64(retry-1)))
	if d < 0 || (e.Max > 0 && d > e.Max) {
		return e.Max
	}
	return d
}

func (e ExponentialBackoff) String() string {
	return fmt.Sprintf("exponential(base=%s, factor=%g, max=%s)", e.Base, e.Factor, e.Max)
}

// NewPolicy builds a policy from its configured name.
func NewPolicy(strategy string, delay time.Duration, maxDelay time.Duration) (Policy, error) {
	switch strings.ToLower(strategy) {
	case "", StrategyFixed:
		return FixedDelay{Interval: delay}, nil
	case StrategyExponential:
		return ExponentialBackoff{Base: delay, Factor: 2, Max: maxDelay}, nil
	default:
		return nil, fmt.Errorf("unknown retry strategy %q", strategy)
	}
}
