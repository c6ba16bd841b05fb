package solana

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mr-tron/base58"

	"WhaleTrail/internal/dex"
	"WhaleTrail/internal/domain/models"
	pkghttp "WhaleTrail/pkg/http"
	"WhaleTrail/pkg/logger"
)

func rpcServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64 `json:"id"`
			Method string `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		result, ok := results[req.Method]
		if !ok {
			result = `null`
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestLatestBlockhash(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"getLatestBlockhash": `{"value":{"blockhash":"Fh5ouW"}}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	hash, err := c.LatestBlockhash(context.Background())
	if err != nil {
		t.Fatalf("blockhash: %v", err)
	}
	if hash != "Fh5ouW" {
		t.Errorf("expected Fh5ouW, got %s", hash)
	}
}

func TestBalance(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"getBalance": `{"value":123456789}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	bal, err := c.Balance(context.Background(), "addr")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 123456789 {
		t.Errorf("expected 123456789, got %d", bal)
	}
}

func TestTransactionParsing(t *testing.T) {
	data := base58.Encode([]byte{9, 1, 2, 3})
	srv := rpcServer(t, map[string]string{
		"getTransaction": `{
			"slot": 42,
			"blockTime": 1700000000,
			"transaction": {
				"signatures": ["sig-1"],
				"message": {
					"accountKeys": ["whale", "pool", "program"],
					"instructions": [{"programIdIndex": 2, "accounts": [0, 1], "data": "` + data + `"}]
				}
			},
			"meta": {"err": null, "preBalances": [1000, 0, 0], "postBalances": [400, 600, 0]}
		}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	tx, err := c.Transaction(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction")
	}
	if tx.FromAddress != "whale" {
		t.Errorf("expected whale, got %s", tx.FromAddress)
	}
	if tx.ProgramID != "program" {
		t.Errorf("expected program, got %s", tx.ProgramID)
	}
	if tx.Lamports != 600 {
		t.Errorf("expected lamports 600, got %d", tx.Lamports)
	}
	if tx.BlockHeight != 42 || tx.Timestamp != 1700000000 {
		t.Errorf("unexpected slot/time: %d/%d", tx.BlockHeight, tx.Timestamp)
	}
	if len(tx.InstructionData) != 4 || tx.InstructionData[0] != 9 {
		t.Errorf("unexpected instruction data: %v", tx.InstructionData)
	}
}

func TestStreamedSwapClassifies(t *testing.T) {
	// Jupiter route instruction: spend 2 SOL for 50 tokens, 50 bps slippage.
	swap := make([]byte, 33)
	swap[0] = 2
	binary.LittleEndian.PutUint64(swap[1:], 2_000_000_000)
	binary.LittleEndian.PutUint64(swap[9:], 50_000_000_000)
	binary.LittleEndian.PutUint64(swap[17:], 50)
	data := base58.Encode(swap)

	srv := rpcServer(t, map[string]string{
		"getTransaction": `{
			"slot": 99,
			"blockTime": 1700000500,
			"transaction": {
				"signatures": ["sig-swap"],
				"message": {
					"accountKeys": ["whale", "pool", "` + dex.JupiterProgramID + `"],
					"instructions": [{"programIdIndex": 2, "accounts": [0, 1], "data": "` + data + `"}]
				}
			},
			"meta": {
				"err": null,
				"preBalances": [5000000000, 0, 0],
				"postBalances": [3000000000, 0, 0],
				"preTokenBalances": [
					{"accountIndex": 1, "mint": "tokUSDX", "owner": "whale",
					 "uiTokenAmount": {"amount": "0", "decimals": 9, "uiAmount": null}}
				],
				"postTokenBalances": [
					{"accountIndex": 1, "mint": "tokUSDX", "owner": "whale",
					 "uiTokenAmount": {"amount": "50000000000", "decimals": 9, "uiAmount": 50.0}}
				]
			}
		}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	tx, err := c.Transaction(context.Background(), "sig-swap")
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx.TokenIn != wrappedSOL {
		t.Errorf("expected native input leg, got %q", tx.TokenIn)
	}
	if tx.TokenOut != "tokUSDX" || tx.TokenOutAmount != 50 {
		t.Errorf("unexpected output leg: %q %f", tx.TokenOut, tx.TokenOutAmount)
	}

	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	cls := dex.NewClassifier(1_000_000, log, dex.NewJupiterDecoder())
	ev, ok := cls.Classify(tx)
	if !ok {
		t.Fatal("expected node-sourced swap to classify")
	}
	if ev.Direction != models.DirectionBuy {
		t.Errorf("expected buy, got %s", ev.Direction)
	}
	if ev.Token != "tokUSDX" {
		t.Errorf("expected tokUSDX, got %s", ev.Token)
	}
}

func TestTokenFlowsSellLeg(t *testing.T) {
	pre := []tokenBalance{{Mint: "tokUSDX", Owner: "whale"}}
	amt := 50.0
	pre[0].UITokenAmount.UIAmount = &amt
	post := []tokenBalance{{Mint: "tokUSDX", Owner: "whale"}}
	zero := 0.0
	post[0].UITokenAmount.UIAmount = &zero

	in, inAmt, out, _ := tokenFlows(pre, post, "whale", 0)
	if in != "tokUSDX" || inAmt != 50 {
		t.Errorf("unexpected input leg: %q %f", in, inAmt)
	}
	if out != wrappedSOL {
		t.Errorf("expected native output leg, got %q", out)
	}
}

func TestTokenFlowsIgnoresOtherOwners(t *testing.T) {
	amt := 10.0
	post := []tokenBalance{{Mint: "tokUSDX", Owner: "someone-else"}}
	post[0].UITokenAmount.UIAmount = &amt

	in, _, out, _ := tokenFlows(nil, post, "whale", 100)
	if in != "" || out != "" {
		t.Errorf("expected no legs for foreign accounts, got %q/%q", in, out)
	}
}

func TestTransactionFailedMetaSkipped(t *testing.T) {
	srv := rpcServer(t, map[string]string{
		"getTransaction": `{
			"slot": 42,
			"transaction": {"signatures": ["sig-1"], "message": {"accountKeys": [], "instructions": []}},
			"meta": {"err": {"InstructionError": [0, "Custom"]}}
		}`,
	})
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	tx, err := c.Transaction(context.Background(), "sig-1")
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if tx != nil {
		t.Error("expected failed transaction skipped")
	}
}

func TestRPCErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32005,"message":"node is behind"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "confirmed", pkghttp.NewClient())
	if _, err := c.LatestBlockhash(context.Background()); err == nil {
		t.Error("expected rpc error")
	}
}

func TestWalletSignRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}

	w, err := NewWallet(base58.Encode(priv))
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if w.PublicKey() != base58.Encode(pub) {
		t.Errorf("public key mismatch")
	}

	payload := []byte("swap-instruction")
	signed, err := w.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !ed25519.Verify(pub, payload, signed[:ed25519.SignatureSize]) {
		t.Error("signature does not verify")
	}
}

func TestWalletRejectsBadKey(t *testing.T) {
	if _, err := NewWallet("tooShort"); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := NewWallet("!!not-base58!!"); err == nil {
		t.Error("expected error for invalid encoding")
	}
}
