package dex

import (
	"github.com/shopspring/decimal"

	"WhaleTrail/internal/domain/models"
)

// JupiterProgramID is the Jupiter v6 aggregator program address.
const JupiterProgramID = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

// jupiterSwapDiscriminator selects the route/swap instruction variant.
const jupiterSwapDiscriminator = 2

// JupiterDecoder decodes Jupiter swap instructions.
//
// Layout: [0] discriminator, [1:9] in amount, [9:17] out amount,
// [17:25] slippage bps, [25:33] platform fee bps; all little-endian u64.
type JupiterDecoder struct{}

func NewJupiterDecoder() *JupiterDecoder { return &JupiterDecoder{} }

func (d *JupiterDecoder) Venue() models.Venue { return models.VenueJupiter }

func (d *JupiterDecoder) ProgramID() string { return JupiterProgramID }

func (d *JupiterDecoder) Decode(tx *models.RawTransaction) (*models.TradeEvent, bool) {
	data := tx.InstructionData
	if len(data) < 1 || data[0] != jupiterSwapDiscriminator {
		return nil, false
	}

	inAmount, ok := readU64(data, 1)
	if !ok {
		return nil, false
	}
	outAmount, ok := readU64(data, 9)
	if !ok {
		return nil, false
	}
	slippageBps, ok := readU64(data, 17)
	if !ok {
		return nil, false
	}
	if _, ok := readU64(data, 25); !ok { // platform fee bps must be present
		return nil, false
	}

	dir, token := direction(tx.TokenIn, tx.TokenOut)
	if dir == models.DirectionUnknown {
		return nil, false
	}

	amount := outAmount
	if dir == models.DirectionSell {
		amount = inAmount
	}

	slippage := float64(slippageBps) / 10000
	return &models.TradeEvent{
		Venue:     models.VenueJupiter,
		Direction: dir,
		Token:     token,
		Amount:    decimal.NewFromUint64(amount),
		Price:     price(dir, inAmount, outAmount),
		Slippage:  slippage,
		// Instruction data carries no pool depth; approximate impact as
		// half the allowed slippage.
		PriceImpact: slippage / 2,
		Signature:   tx.Signature,
		Timestamp:   tx.Timestamp,
	}, true
}
