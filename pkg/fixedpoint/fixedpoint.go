// Package fixedpoint — signed fixed-point values of heterogeneous scale.
//
// A value is a pair (magnitude, decimals): the magnitude is a signed
// integer bounded to the 128-bit range, interpreted as magnitude/10^decimals.
// Aggregation rescales every value to the maximum decimals in the set
// before summing, so high-precision entries are never truncated. All
// arithmetic is integer-only and fails loudly on overflow.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
)

// MaxDecimals is the largest supported decimal scale.
const MaxDecimals = 18

var (
	// ErrOverflow is returned when a scaled or summed magnitude leaves
	// the signed 128-bit range. Arithmetic never wraps silently.
	ErrOverflow = errors.New("fixedpoint: value outside signed 128-bit range")

	// ErrScale is returned when Normalize is asked to reduce precision.
	ErrScale = errors.New("fixedpoint: target decimals below source decimals")

	// ErrDecimals is returned for a decimal scale above MaxDecimals.
	ErrDecimals = errors.New("fixedpoint: decimals above maximum")
)

// MaxInt128 and MinInt128 bound every magnitude: ±(2^127 − 1) and −2^127.
var (
	MaxInt128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	MinInt128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
)

// pow10 holds 10^0 .. 10^MaxDecimals.
var pow10 [MaxDecimals + 1]*big.Int

func init() {
	pow10[0] = big.NewInt(1)
	ten := big.NewInt(10)
	for i := 1; i <= MaxDecimals; i++ {
		pow10[i] = new(big.Int).Mul(pow10[i-1], ten)
	}
}

// Value is a signed decimal magnitude with its scale.
type Value struct {
	Int      *big.Int
	Decimals uint8
}

// InRange reports whether v fits the signed 128-bit range.
func InRange(v *big.Int) bool {
	return v.Cmp(MinInt128) >= 0 && v.Cmp(MaxInt128) <= 0
}

// Normalize rescales a magnitude from decimals to targetDecimals, which
// must not be smaller. The result is value * 10^(target − decimals);
// ErrOverflow if the scaled magnitude leaves the 128-bit range.
func Normalize(value *big.Int, decimals, targetDecimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals || targetDecimals > MaxDecimals {
		return nil, ErrDecimals
	}
	if targetDecimals < decimals {
		return nil, fmt.Errorf("%w: %d < %d", ErrScale, targetDecimals, decimals)
	}
	scaled := new(big.Int).Mul(value, pow10[targetDecimals-decimals])
	if !InRange(scaled) {
		return nil, ErrOverflow
	}
	return scaled, nil
}

// Aggregate sums a set of values of possibly differing scale. The target
// scale is the maximum decimals among the set; every value is normalized
// to it before summation. An empty set yields (0, 0) by convention.
// Callers needing an average divide externally by the record count.
func Aggregate(values []Value) (*big.Int, uint8, error) {
	if len(values) == 0 {
		return big.NewInt(0), 0, nil
	}

	var maxDecimals uint8
	for _, v := range values {
		if v.Decimals > MaxDecimals {
			return nil, 0, ErrDecimals
		}
		if v.Decimals > maxDecimals {
			maxDecimals = v.Decimals
		}
	}

	sum := big.NewInt(0)
	for _, v := range values {
		scaled, err := Normalize(v.Int, v.Decimals, maxDecimals)
		if err != nil {
			return nil, 0, err
		}
		sum.Add(sum, scaled)
		if !InRange(sum) {
			return nil, 0, ErrOverflow
		}
	}
	return sum, maxDecimals, nil
}
