package amm

import (
	"errors"
	"math/bits"
)

// Slippage tolerances are expressed in basis points of this denominator.
const bpsDenominator uint64 = 10_000

// ErrExceedsReserves rejects a mirrored buy whose base amount cannot be
// paid out of the pool.
var ErrExceedsReserves = errors.New("cannot buy more base tokens than the pool reserves")

// QuoteBuy returns the base tokens received for spending quoteIn against a
// constant-product pool with the given reserves.
//
//	quoteAfter = quoteReserve + quoteIn
//	baseAfter  = (quoteReserve * baseReserve) / quoteAfter
//	baseOut    = baseReserve - baseAfter
//
// Any zero argument quotes zero. Arithmetic saturates the way the venue
// programs do instead of erroring: an overflowing reserve addition keeps
// the pre-trade reserve, an underflowing subtraction collapses to zero.
func QuoteBuy(quoteIn, quoteReserve, baseReserve uint64) uint64 {
	if quoteIn == 0 || quoteReserve == 0 || baseReserve == 0 {
		return 0
	}
	quoteAfter := quoteReserve + quoteIn
	if quoteAfter < quoteReserve {
		quoteAfter = quoteReserve
	}
	hi, lo := bits.Mul64(quoteReserve, baseReserve)
	baseAfter := div128(hi, lo, quoteAfter)
	if baseAfter > baseReserve {
		return 0
	}
	return baseReserve - baseAfter
}

// QuoteSell returns the quote tokens received for selling baseIn into the
// pool. Mirror image of QuoteBuy.
func QuoteSell(baseIn, baseReserve, quoteReserve uint64) uint64 {
	if baseIn == 0 || baseReserve == 0 || quoteReserve == 0 {
		return 0
	}
	baseAfter := baseReserve + baseIn
	if baseAfter < baseReserve {
		baseAfter = baseReserve
	}
	hi, lo := bits.Mul64(baseReserve, quoteReserve)
	quoteAfter := div128(hi, lo, baseAfter)
	if quoteAfter > quoteReserve {
		return 0
	}
	return quoteReserve - quoteAfter
}

// MaxInWithSlippage scales amount up by slippageBps, bounding the quote
// spent on a buy. An overflowing product falls back to the bare amount
// before the final division.
func MaxInWithSlippage(amount, slippageBps uint64) uint64 {
	factor := slippageBps + bpsDenominator
	if factor < bpsDenominator {
		factor = bpsDenominator
	}
	hi, product := bits.Mul64(amount, factor)
	if hi != 0 {
		product = amount
	}
	return product / bpsDenominator
}

// MinOutWithSlippage scales amount down by slippageBps, giving the floor a
// sell accepts. 10_000 bps floors at zero, which is how forced
// liquidations take any fill.
func MinOutWithSlippage(amount, slippageBps uint64) uint64 {
	factor := bpsDenominator
	if slippageBps <= bpsDenominator {
		factor = bpsDenominator - slippageBps
	}
	hi, product := bits.Mul64(amount, factor)
	if hi != 0 {
		product = amount
	}
	return product / bpsDenominator
}

// CheckBuyFill validates a copied buy amount against the live pool reserve
// before any transaction is assembled. The copied trade carries the base
// amount the target received, which the pool may no longer hold.
func CheckBuyFill(baseOut, baseReserve uint64) error {
	if baseOut > baseReserve {
		return ErrExceedsReserves
	}
	return nil
}

// PoolPrice is the spot price of one raw base unit in raw quote units.
// A drained base side prices at zero.
func PoolPrice(quoteReserve, baseReserve uint64) float64 {
	if baseReserve == 0 {
		return 0
	}
	return float64(quoteReserve) / float64(baseReserve)
}

// div128 divides the 128-bit value hi:lo by y, truncating the quotient to
// its low 64 bits. Division by zero yields zero.
func div128(hi, lo, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	q, _ := bits.Div64(hi%y, lo, y)
	return q
}
