package chain

import "github.com/holiman/uint256"

// MulDiv returns a*b*c/d truncated. ok is false when d is zero or the
// quotient does not fit in 64 bits.
func MulDiv(a, b, c, d uint64) (uint64, bool) {
	if d == 0 {
		return 0, false
	}
	x := uint256.NewInt(a)
	x.Mul(x, uint256.NewInt(b))
	x.Mul(x, uint256.NewInt(c))
	x.Div(x, uint256.NewInt(d))
	if !x.IsUint64() {
		return 0, false
	}
	return x.Uint64(), true
}
