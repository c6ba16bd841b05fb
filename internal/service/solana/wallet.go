package solana

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// Wallet signs venue payloads with the trading keypair.
type Wallet struct {
	priv   ed25519.PrivateKey
	pubkey string
}

// NewWallet parses a base58 64-byte ed25519 private key, the format
// wallets export.
func NewWallet(privateKey string) (*Wallet, error) {
	raw, err := base58.Decode(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{priv: priv, pubkey: base58.Encode(pub)}, nil
}

func (w *Wallet) PublicKey() string { return w.pubkey }

func (w *Wallet) Sign(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("sign: empty payload")
	}
	sig := ed25519.Sign(w.priv, payload)
	return append(sig, payload...), nil
}
