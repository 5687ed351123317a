// Package rational implements exact rational time values for timeline
// arithmetic. A Time is an integer frame count at a rational frame rate
// (num/den fps). All arithmetic is exact integer math - no value ever
// passes through a float except at the Seconds/FromSeconds boundary.
package rational

import (
	"fmt"
	"math"
	"math/bits"
)

// Time is an immutable exact time value: a frame count at a rational rate.
// The zero value is invalid (zero rate); construct through New.
type Time struct {
	Frames  int64
	RateNum int64
	RateDen int64
}

// Common broadcast and film rates.
var (
	Rate24   = Rate{24, 1}
	Rate25   = Rate{25, 1}
	Rate30   = Rate{30, 1}
	Rate2997 = Rate{30000, 1001}
	Rate5994 = Rate{60000, 1001}
)

// Rate is a frame rate expressed as an exact fraction (frames per second).
type Rate struct {
	Num int64
	Den int64
}

// Valid reports whether both rate components are positive.
func (r Rate) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

// New constructs a Time from an integer frame count and a rate.
// Construction fails closed: a non-positive rate component is an error,
// never defaulted.
func New(frames, num, den int64) (Time, error) {
	if num <= 0 {
		return Time{}, fmt.Errorf("rational: rate numerator must be positive, got %d", num)
	}
	if den <= 0 {
		return Time{}, fmt.Errorf("rational: rate denominator must be positive, got %d", den)
	}
	return Time{Frames: frames, RateNum: num, RateDen: den}, nil
}

// MustNew is like New but panics on error. Use in tests and for
// compile-time-known rates.
func MustNew(frames, num, den int64) Time {
	t, err := New(frames, num, den)
	if err != nil {
		panic(err)
	}
	return t
}

// FromSeconds converts a seconds value to the nearest frame at the given
// rate, rounding half up.
func FromSeconds(sec float64, num, den int64) (Time, error) {
	if num <= 0 || den <= 0 {
		return Time{}, fmt.Errorf("rational: invalid rate %d/%d", num, den)
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return Time{}, fmt.Errorf("rational: seconds value %v is not finite", sec)
	}
	frames := math.Floor(sec*float64(num)/float64(den) + 0.5)
	return Time{Frames: int64(frames), RateNum: num, RateDen: den}, nil
}

// Rate returns the time's frame rate.
func (t Time) Rate() Rate {
	return Rate{t.RateNum, t.RateDen}
}

// RateEqual reports whether two times have the same rate, compared as
// exact fractions (30000/1001 equals 60000/2002).
func (t Time) RateEqual(o Time) bool {
	return t.RateNum*o.RateDen == o.RateNum*t.RateDen
}

// floorDiv returns floor(a/b) for b > 0.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// roundHalfUp returns round(n/d) for d > 0, with halves rounding toward
// positive infinity (2.5 -> 3, -2.5 -> -2).
func roundHalfUp(n, d int64) int64 {
	return floorDiv(2*n+d, 2*d)
}

// Rescale returns the time expressed at a new rate. The frame count is
// converted by exact cross-multiplication with round-half-up. Rescaling to
// the time's own rate is the identity.
func (t Time) Rescale(num, den int64) (Time, error) {
	if num <= 0 || den <= 0 {
		return Time{}, fmt.Errorf("rational: invalid target rate %d/%d", num, den)
	}
	if t.RateNum == num && t.RateDen == den {
		return t, nil
	}
	// seconds = frames*den/num; new frames = seconds * num'/den'
	n := t.Frames * num * t.RateDen
	d := t.RateNum * den
	return Time{Frames: roundHalfUp(n, d), RateNum: num, RateDen: den}, nil
}

// rescaleTo converts o to t's rate. Both rates were validated at
// construction so this cannot fail.
func (t Time) rescaleTo(o Time) Time {
	r, _ := o.Rescale(t.RateNum, t.RateDen)
	return r
}

// Add returns t + o at t's rate. A differing-rate operand is rescaled to
// t's rate first.
func (t Time) Add(o Time) Time {
	o = t.rescaleTo(o)
	return Time{Frames: t.Frames + o.Frames, RateNum: t.RateNum, RateDen: t.RateDen}
}

// Sub returns t - o at t's rate.
func (t Time) Sub(o Time) Time {
	o = t.rescaleTo(o)
	return Time{Frames: t.Frames - o.Frames, RateNum: t.RateNum, RateDen: t.RateDen}
}

// Neg returns -t.
func (t Time) Neg() Time {
	return Time{Frames: -t.Frames, RateNum: t.RateNum, RateDen: t.RateDen}
}

// MulScalar returns t scaled by an integer factor.
func (t Time) MulScalar(k int64) Time {
	return Time{Frames: t.Frames * k, RateNum: t.RateNum, RateDen: t.RateDen}
}

// DivScalar returns t divided by an integer factor, rounding half up.
// Division by zero is an error.
func (t Time) DivScalar(k int64) (Time, error) {
	if k == 0 {
		return Time{}, fmt.Errorf("rational: division by zero scalar")
	}
	n, d := t.Frames, k
	if d < 0 {
		n, d = -n, -d
	}
	return Time{Frames: roundHalfUp(n, d), RateNum: t.RateNum, RateDen: t.RateDen}, nil
}

// Div returns the dimensionless ratio t/o. Dividing by a zero duration is
// an error.
func (t Time) Div(o Time) (float64, error) {
	if o.Frames == 0 {
		return 0, fmt.Errorf("rational: division by zero duration")
	}
	return t.Seconds() / o.Seconds(), nil
}

// Compare returns -1, 0 or 1 ordering t against o. Comparison across rates
// uses exact cross-multiplication and never rescales either operand.
func (t Time) Compare(o Time) int {
	// t seconds = Frames*RateDen/RateNum, so compare
	// t.Frames*t.RateDen*o.RateNum against o.Frames*o.RateDen*t.RateNum.
	// The rate cross-product fits int64 for any real frame rate; the
	// frame term gets a full 128-bit product so extreme frame counts
	// cannot wrap.
	aneg, ahi, alo := mul128(t.Frames, t.RateDen*o.RateNum)
	bneg, bhi, blo := mul128(o.Frames, o.RateDen*t.RateNum)
	if aneg != bneg {
		if aneg {
			return -1
		}
		return 1
	}
	var c int
	switch {
	case ahi != bhi:
		if ahi < bhi {
			c = -1
		} else {
			c = 1
		}
	case alo != blo:
		if alo < blo {
			c = -1
		} else {
			c = 1
		}
	}
	if aneg {
		return -c
	}
	return c
}

// mul128 returns the sign and 128-bit magnitude of a*b.
func mul128(a, b int64) (neg bool, hi, lo uint64) {
	neg = (a < 0) != (b < 0)
	hi, lo = bits.Mul64(magnitude(a), magnitude(b))
	if hi == 0 && lo == 0 {
		neg = false
	}
	return neg, hi, lo
}

// magnitude returns |a| as a uint64. Negating math.MinInt64 wraps to
// itself, and the unsigned conversion of that is exactly 1<<63.
func magnitude(a int64) uint64 {
	if a < 0 {
		return uint64(-a)
	}
	return uint64(a)
}

// Less reports t < o.
func (t Time) Less(o Time) bool { return t.Compare(o) < 0 }

// Equal reports t == o as points in time (rates may differ).
func (t Time) Equal(o Time) bool { return t.Compare(o) == 0 }

// Max returns the later of a and b, expressed at a's rate.
func Max(a, b Time) Time {
	if a.Compare(b) >= 0 {
		return a
	}
	return a.rescaleTo(b)
}

// Seconds converts to floating-point seconds. Display only; never feed the
// result back into frame arithmetic.
func (t Time) Seconds() float64 {
	return float64(t.Frames) * float64(t.RateDen) / float64(t.RateNum)
}

func (t Time) String() string {
	return fmt.Sprintf("%d@%d/%d", t.Frames, t.RateNum, t.RateDen)
}
