package models

import "encoding/json"

// VenueQuote is a priced route returned by a DEX aggregator.
type VenueQuote struct {
	InputToken  string          `json:"inputMint"`
	OutputToken string          `json:"outputMint"`
	InAmount    uint64          `json:"inAmount,string"`
	OutAmount   uint64          `json:"outAmount,string"`
	PriceImpact float64         `json:"priceImpactPct,string"`
	RoutePlan   json.RawMessage `json:"routePlan,omitempty"`
}

// SwapRequest asks a venue for a signable swap instruction.
type SwapRequest struct {
	InputToken      string          `json:"inputMint"`
	OutputToken     string          `json:"outputMint"`
	Amount          uint64          `json:"amount"`
	MinOutputAmount uint64          `json:"minOutputAmount"`
	UserPublicKey   string          `json:"userPublicKey"`
	RoutePlan       json.RawMessage `json:"routePlan,omitempty"`
}

// SwapInstruction is the signable payload returned by a venue.
type SwapInstruction struct {
	ProgramID string   `json:"programId"`
	Data      []byte   `json:"data"`
	Accounts  []string `json:"accounts"`
}
