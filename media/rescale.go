// SPDX-License-Identifier: EPL-2.0

package media

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// NoPTS marks an unknown timestamp. It passes through every rescale untouched.
const NoPTS int64 = math.MinInt64

// Rational is a time base or ratio expressed as Num/Den.
type Rational struct {
	Num int64
	Den int64
}

// TimeBaseNanos is the time base of time.Duration values.
var TimeBaseNanos = Rational{Num: 1, Den: int64(time.Second)}

// SampleTimeBase returns the time base whose unit is one sample at rate.
func SampleTimeBase(rate int) Rational {
	return Rational{Num: 1, Den: int64(rate)}
}

func (r Rational) Valid() bool     { return r.Num > 0 && r.Den > 0 }
func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Float returns r as a float64. Zero denominators yield 0.
func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Rounding selects how Rescale resolves a remainder.
type Rounding int

// The numeric values follow the conventional av_rescale_rnd ordering so the
// sign trick in RescaleRnd can swap Down and Up with a single XOR.
const (
	RoundZero    Rounding = 0 // toward zero
	RoundInf     Rounding = 1 // away from zero
	RoundDown    Rounding = 2 // toward negative infinity
	RoundUp      Rounding = 3 // toward positive infinity
	RoundNearInf Rounding = 5 // nearest, ties away from zero
)

func (r Rounding) String() string {
	switch r {
	case RoundZero:
		return "zero"
	case RoundInf:
		return "inf"
	case RoundDown:
		return "down"
	case RoundUp:
		return "up"
	case RoundNearInf:
		return "near_inf"
	}
	return fmt.Sprintf("rounding(%d)", int(r))
}

// RescaleRnd computes a*b/c with the given rounding. The product is kept in a
// 128-bit intermediate so hours-long timestamps at high sample rates never
// overflow before the division. b and c must be positive; results outside the
// int64 range saturate.
func RescaleRnd(a, b, c int64, rnd Rounding) int64 {
	if a == NoPTS {
		return NoPTS
	}
	if b <= 0 || c <= 0 {
		return NoPTS
	}
	if a < 0 {
		// floor(-x) == -ceil(x): swap Down/Up, the rest are symmetric.
		return -RescaleRnd(-a, b, c, rnd^((rnd>>1)&1))
	}

	var r uint64
	switch rnd {
	case RoundNearInf:
		r = uint64(c) / 2
	case RoundInf, RoundUp:
		r = uint64(c) - 1
	}

	hi, lo := bits.Mul64(uint64(a), uint64(b))
	lo, carry := bits.Add64(lo, r, 0)
	hi += carry
	if hi >= uint64(c) {
		return math.MaxInt64
	}

	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(q)
}

// Rescale converts value from one time base to another.
func Rescale(value int64, from, to Rational, rnd Rounding) int64 {
	if value == NoPTS || !from.Valid() || !to.Valid() {
		return NoPTS
	}
	return RescaleRnd(value, from.Num*to.Den, from.Den*to.Num, rnd)
}

// DurationToPTS converts d into a timestamp in tb.
func DurationToPTS(d time.Duration, tb Rational, rnd Rounding) int64 {
	return Rescale(int64(d), TimeBaseNanos, tb, rnd)
}

// PTSToDuration converts a timestamp in tb into a time.Duration rounded to
// the nearest nanosecond. NoPTS maps to 0.
func PTSToDuration(pts int64, tb Rational) time.Duration {
	if pts == NoPTS {
		return 0
	}
	return time.Duration(Rescale(pts, tb, TimeBaseNanos, RoundNearInf))
}
