package quote

import "github.com/holiman/uint256"

var bpsDenom = uint256.NewInt(10_000)

// SlippageFloor returns amount * (10000 - bps) / 10000 without overflow.
func SlippageFloor(amount uint64, bps uint16) uint64 {
	if bps >= 10_000 {
		return 0
	}
	v := uint256.NewInt(amount)
	v.Mul(v, uint256.NewInt(uint64(10_000-bps)))
	v.Div(v, bpsDenom)
	return v.Uint64()
}
