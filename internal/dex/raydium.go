package dex

import (
	"github.com/shopspring/decimal"

	"WhaleTrail/internal/domain/models"
)

// RaydiumProgramID is the Raydium AMM v4 program address.
const RaydiumProgramID = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// raydiumSwapDiscriminator selects the swap-base-in instruction variant.
const raydiumSwapDiscriminator = 9

// RaydiumDecoder decodes Raydium AMM swap instructions.
//
// Layout: [0] discriminator, [1:9] amount in, [9:17] min amount out, both
// little-endian u64, followed by the 32-byte pool id.
type RaydiumDecoder struct{}

func NewRaydiumDecoder() *RaydiumDecoder { return &RaydiumDecoder{} }

func (d *RaydiumDecoder) Venue() models.Venue { return models.VenueRaydium }

func (d *RaydiumDecoder) ProgramID() string { return RaydiumProgramID }

func (d *RaydiumDecoder) Decode(tx *models.RawTransaction) (*models.TradeEvent, bool) {
	data := tx.InstructionData
	if len(data) < 1 || data[0] != raydiumSwapDiscriminator {
		return nil, false
	}

	amountIn, ok := readU64(data, 1)
	if !ok {
		return nil, false
	}
	minAmountOut, ok := readU64(data, 9)
	if !ok {
		return nil, false
	}
	if len(data) < 17+32 { // pool id must be present
		return nil, false
	}

	dir, token := direction(tx.TokenIn, tx.TokenOut)
	if dir == models.DirectionUnknown {
		return nil, false
	}

	amount := minAmountOut
	if dir == models.DirectionSell {
		amount = amountIn
	}

	slippage := raydiumImpliedSlippage(amountIn, minAmountOut)
	return &models.TradeEvent{
		Venue:       models.VenueRaydium,
		Direction:   dir,
		Token:       token,
		Amount:      decimal.NewFromUint64(amount),
		Price:       price(dir, amountIn, minAmountOut),
		Slippage:    slippage,
		PriceImpact: slippage / 2,
		Signature:   tx.Signature,
		Timestamp:   tx.Timestamp,
	}, true
}

// raydiumDefaultSlippage is assumed when the instruction amounts cannot
// yield a tolerance (different token units on each side).
const raydiumDefaultSlippage = 0.005

// raydiumImpliedSlippage derives the tolerance the trader encoded into their
// minimum-output bound. Usable only when both sides share a unit; anything
// implausible falls back to the venue default.
func raydiumImpliedSlippage(amountIn, minAmountOut uint64) float64 {
	if amountIn == 0 || minAmountOut >= amountIn {
		return raydiumDefaultSlippage
	}
	s := float64(amountIn-minAmountOut) / float64(amountIn)
	if s > 0.10 {
		return raydiumDefaultSlippage
	}
	return s
}
