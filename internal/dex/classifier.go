// Package dex decodes venue-specific swap instructions into canonical trade
// events. Input is untrusted: decoders bound-check every slice and fail
// closed on anything malformed.
package dex

import (
	"encoding/binary"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/logger"
)

// Well-known quote mints used to orient a swap into buy/sell.
const (
	SOLMint  = "So11111111111111111111111111111111111111112"
	USDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

var quoteMints = map[string]bool{
	SOLMint:  true,
	USDCMint: true,
}

// Decoder decodes one venue's swap instruction layout.
type Decoder interface {
	Venue() models.Venue
	ProgramID() string
	Decode(tx *models.RawTransaction) (*models.TradeEvent, bool)
}

// Classifier dispatches transactions to the decoder owning the program
// address. The decoder registry doubles as the venue allow-list: an
// unregistered program is not a recognized DEX interaction.
type Classifier struct {
	decoders       map[string]Decoder
	minTradeAmount uint64
	log            *logger.Logger
}

// NewClassifier builds a classifier over the given decoders. minTradeAmount
// is the notional floor (in base units) below which trades are treated as
// dust and dropped.
func NewClassifier(minTradeAmount uint64, log *logger.Logger, decoders ...Decoder) *Classifier {
	reg := make(map[string]Decoder, len(decoders))
	for _, d := range decoders {
		reg[d.ProgramID()] = d
	}
	return &Classifier{decoders: reg, minTradeAmount: minTradeAmount, log: log}
}

// Classify decodes a raw transaction into a TradeEvent. The second return is
// false when the transaction is not a recognized DEX interaction, decoding
// fails, the direction cannot be determined, or the trade is below the
// notional floor. Classification is pure: the same input always yields the
// same result.
func (c *Classifier) Classify(tx *models.RawTransaction) (*models.TradeEvent, bool) {
	if tx == nil || tx.ProgramID == "" {
		return nil, false
	}

	d, ok := c.decoders[tx.ProgramID]
	if !ok {
		return nil, false
	}

	ev, ok := d.Decode(tx)
	if !ok {
		if c.log != nil {
			c.log.Debug("swap decode failed",
				logger.String("venue", string(d.Venue())),
				logger.String("signature", tx.Signature))
		}
		return nil, false
	}

	if ev.Direction == models.DirectionUnknown {
		return nil, false
	}

	if notional(tx, ev) < c.minTradeAmount {
		if c.log != nil {
			c.log.Debug("trade below minimum amount",
				logger.String("signature", tx.Signature),
				logger.Uint64("floor", c.minTradeAmount))
		}
		return nil, false
	}

	return ev, true
}

// Venues lists the program addresses the classifier recognizes.
func (c *Classifier) Venues() []string {
	out := make([]string, 0, len(c.decoders))
	for id := range c.decoders {
		out = append(out, id)
	}
	return out
}

// notional is the quote-side size of the swap in base units, used against
// the dust floor.
func notional(tx *models.RawTransaction, ev *models.TradeEvent) uint64 {
	if tx.Lamports > 0 {
		return tx.Lamports
	}
	// Fall back to the token amount when the source did not resolve the
	// lamport value.
	return uint64(ev.Amount.IntPart())
}

// direction orients a swap from the trader's point of view: spending a
// quote mint is a buy of the other token, receiving one is a sell.
func direction(tokenIn, tokenOut string) (models.Direction, string) {
	switch {
	case quoteMints[tokenIn] && !quoteMints[tokenOut]:
		return models.DirectionBuy, tokenOut
	case !quoteMints[tokenIn] && quoteMints[tokenOut]:
		return models.DirectionSell, tokenIn
	default:
		return models.DirectionUnknown, ""
	}
}

// price is the quote units paid or received per token unit.
func price(dir models.Direction, amountIn, amountOut uint64) float64 {
	switch dir {
	case models.DirectionBuy:
		if amountOut == 0 {
			return 0
		}
		return float64(amountIn) / float64(amountOut)
	case models.DirectionSell:
		if amountIn == 0 {
			return 0
		}
		return float64(amountOut) / float64(amountIn)
	default:
		return 0
	}
}

func readU64(data []byte, off int) (uint64, bool) {
	if off < 0 || off+8 > len(data) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[off : off+8]), true
}
