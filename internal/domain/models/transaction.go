package models

// RawTransaction is a single confirmed on-chain transaction as delivered by
// an ingestion source. Produced once, consumed once by the classifier, never
// mutated.
type RawTransaction struct {
	Signature   string
	FromAddress string
	ToAddress   string
	Lamports    uint64
	Timestamp   int64
	BlockHeight uint64

	// DEX-instruction payload, populated when the source could extract the
	// top-level program invocation. Empty for plain transfers.
	ProgramID       string
	InstructionData []byte
	Accounts        []string

	// Swap legs resolved from the sender's token balance deltas in the
	// transaction meta. Amounts are display units.
	TokenIn        string
	TokenInAmount  float64
	TokenOut       string
	TokenOutAmount float64
}
