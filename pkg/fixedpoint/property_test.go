package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func int128FromParts(hi, lo uint64, negative bool) *big.Int {
	v := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
	v.Add(v, new(big.Int).SetUint64(lo))
	if negative {
		v.Neg(v)
	}
	return v
}

// Normalizing to the source scale is the identity.
func TestNormalizeIdentityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize to same scale is identity", prop.ForAll(
		func(hi, lo uint64, negative bool, decimals uint8) bool {
			v := int128FromParts(hi, lo, negative)
			d := decimals % (MaxDecimals + 1)
			got, err := Normalize(v, d, d)
			if err != nil {
				return false
			}
			return got.Cmp(v) == 0
		},
		gen.UInt64Range(0, 1<<62),
		gen.UInt64(),
		gen.Bool(),
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// Summation order never changes the aggregate.
func TestAggregateCommutesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("aggregate is order independent", prop.ForAll(
		func(a, b, c int64, da, db, dc uint8) bool {
			values := []Value{
				{Int: big.NewInt(a), Decimals: da % (MaxDecimals + 1)},
				{Int: big.NewInt(b), Decimals: db % (MaxDecimals + 1)},
				{Int: big.NewInt(c), Decimals: dc % (MaxDecimals + 1)},
			}
			reversed := []Value{values[2], values[1], values[0]}

			sum1, dec1, err1 := Aggregate(values)
			sum2, dec2, err2 := Aggregate(reversed)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			return sum1.Cmp(sum2) == 0 && dec1 == dec2
		},
		gen.Int64(), gen.Int64(), gen.Int64(),
		gen.UInt8(), gen.UInt8(), gen.UInt8(),
	))

	properties.TestingRun(t)
}
