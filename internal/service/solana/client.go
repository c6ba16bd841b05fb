package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/mr-tron/base58"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/internal/service/ratelimit"
	"WhaleTrail/pkg/http"
)

// Client talks JSON-RPC to a Solana node.
type Client struct {
	rpcURL     string
	commitment string
	http       *http.Client
	nextID     atomic.Uint64

	limiter *ratelimit.Limiter
	rlBurst float64
	rlRate  float64
}

type ClientOption func(*Client)

// WithRateLimit budgets outbound RPC calls with a token bucket. Public
// endpoints throttle hard, so callers opt in with the endpoint's quota.
func WithRateLimit(burst, perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = ratelimit.New()
		c.rlBurst = burst
		c.rlRate = perSecond
	}
}

func NewClient(rpcURL, commitment string, httpClient *http.Client, opts ...ClientOption) *Client {
	if commitment == "" {
		commitment = "confirmed"
	}
	c := &Client{
		rpcURL:     rpcURL,
		commitment: commitment,
		http:       httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, "rpc", c.rlBurst, c.rlRate); err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
	}
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	var resp rpcResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    c.rpcURL,
		Body:   req,
	}, &resp)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

type signatureInfo struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Err       any    `json:"err"`
	BlockTime *int64 `json:"blockTime"`
}

type txMessage struct {
	AccountKeys  []string `json:"accountKeys"`
	Instructions []struct {
		ProgramIDIndex int    `json:"programIdIndex"`
		Accounts       []int  `json:"accounts"`
		Data           string `json:"data"`
	} `json:"instructions"`
}

type txResponse struct {
	Slot        uint64 `json:"slot"`
	BlockTime   *int64 `json:"blockTime"`
	Transaction struct {
		Signatures []string  `json:"signatures"`
		Message    txMessage `json:"message"`
	} `json:"transaction"`
	Meta struct {
		Err               any            `json:"err"`
		PreBalances       []uint64       `json:"preBalances"`
		PostBalances      []uint64       `json:"postBalances"`
		PreTokenBalances  []tokenBalance `json:"preTokenBalances"`
		PostTokenBalances []tokenBalance `json:"postTokenBalances"`
	} `json:"meta"`
}

// tokenBalance is one SPL token account snapshot from transaction meta.
type tokenBalance struct {
	AccountIndex  int    `json:"accountIndex"`
	Mint          string `json:"mint"`
	Owner         string `json:"owner"`
	UITokenAmount struct {
		Amount   string   `json:"amount"`
		Decimals int32    `json:"decimals"`
		UIAmount *float64 `json:"uiAmount"`
	} `json:"uiTokenAmount"`
}

// RecentTransactions lists the latest confirmed transactions for address,
// fully resolved. Failed transactions are skipped.
func (c *Client) RecentTransactions(ctx context.Context, address string, limit int) ([]*models.RawTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	var sigs []signatureInfo
	err := c.call(ctx, "getSignaturesForAddress",
		[]interface{}{address, map[string]interface{}{"limit": limit, "commitment": c.commitment}},
		&sigs)
	if err != nil {
		return nil, err
	}

	out := make([]*models.RawTransaction, 0, len(sigs))
	for _, si := range sigs {
		if si.Err != nil {
			continue
		}
		tx, err := c.Transaction(ctx, si.Signature)
		if err != nil {
			return out, fmt.Errorf("resolve %s: %w", si.Signature, err)
		}
		if tx != nil {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Transaction resolves one signature into the raw form the classifier
// consumes. A nil result without error means the node has no record yet.
func (c *Client) Transaction(ctx context.Context, signature string) (*models.RawTransaction, error) {
	var resp *txResponse
	err := c.call(ctx, "getTransaction",
		[]interface{}{signature, map[string]interface{}{
			"encoding":                       "json",
			"commitment":                     c.commitment,
			"maxSupportedTransactionVersion": 0,
		}},
		&resp)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Meta.Err != nil {
		return nil, nil
	}
	return rawFromResponse(signature, resp), nil
}

func rawFromResponse(signature string, resp *txResponse) *models.RawTransaction {
	msg := resp.Transaction.Message
	raw := &models.RawTransaction{
		Signature:   signature,
		BlockHeight: resp.Slot,
		Accounts:    msg.AccountKeys,
	}
	if resp.BlockTime != nil {
		raw.Timestamp = *resp.BlockTime
	}
	if len(msg.AccountKeys) > 0 {
		raw.FromAddress = msg.AccountKeys[0]
	}
	if len(resp.Meta.PreBalances) > 0 && len(resp.Meta.PostBalances) > 0 {
		pre, post := resp.Meta.PreBalances[0], resp.Meta.PostBalances[0]
		if pre > post {
			raw.Lamports = pre - post
		}
	}
	raw.TokenIn, raw.TokenInAmount, raw.TokenOut, raw.TokenOutAmount =
		tokenFlows(resp.Meta.PreTokenBalances, resp.Meta.PostTokenBalances, raw.FromAddress, raw.Lamports)

	// The first instruction addressing a known program carries the swap.
	for _, in := range msg.Instructions {
		if in.ProgramIDIndex < 0 || in.ProgramIDIndex >= len(msg.AccountKeys) {
			continue
		}
		raw.ProgramID = msg.AccountKeys[in.ProgramIDIndex]
		if data, err := base58.Decode(in.Data); err == nil {
			raw.InstructionData = data
		}
		if len(in.Accounts) > 0 {
			last := in.Accounts[len(in.Accounts)-1]
			if last >= 0 && last < len(msg.AccountKeys) {
				raw.ToAddress = msg.AccountKeys[last]
			}
		}
		break
	}
	return raw
}

// wrappedSOL is the native mint; a swap leg settled in lamports shows up
// here instead of in the token balances.
const wrappedSOL = "So11111111111111111111111111111111111111112"

func uiValue(b tokenBalance) float64 {
	if b.UITokenAmount.UIAmount != nil {
		return *b.UITokenAmount.UIAmount
	}
	f, err := strconv.ParseFloat(b.UITokenAmount.Amount, 64)
	if err != nil {
		return 0
	}
	return f / math.Pow10(int(b.UITokenAmount.Decimals))
}

// tokenFlows derives the swap legs from the owner's token balance deltas:
// the mint the owner spent is the input, the mint received is the output.
// A leg missing from the token balances while lamports moved is native SOL.
func tokenFlows(pre, post []tokenBalance, owner string, lamports uint64) (in string, inAmt float64, out string, outAmt float64) {
	if owner == "" {
		return "", 0, "", 0
	}
	deltas := make(map[string]float64)
	for _, b := range pre {
		if b.Owner == owner {
			deltas[b.Mint] -= uiValue(b)
		}
	}
	for _, b := range post {
		if b.Owner == owner {
			deltas[b.Mint] += uiValue(b)
		}
	}

	const epsilon = 1e-9
	for mint, d := range deltas {
		switch {
		case d < -epsilon && -d > inAmt:
			in, inAmt = mint, -d
		case d > epsilon && d > outAmt:
			out, outAmt = mint, d
		}
	}

	if in == "" && out != "" && lamports > 0 {
		in, inAmt = wrappedSOL, float64(lamports)/1e9
	}
	if out == "" && in != "" {
		out = wrappedSOL
	}
	return in, inAmt, out, outAmt
}

type blockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	var res blockhashResult
	err := c.call(ctx, "getLatestBlockhash",
		[]interface{}{map[string]interface{}{"commitment": c.commitment}},
		&res)
	if err != nil {
		return "", err
	}
	return res.Value.Blockhash, nil
}

func (c *Client) SubmitTransaction(ctx context.Context, signed []byte) (string, error) {
	var signature string
	err := c.call(ctx, "sendTransaction",
		[]interface{}{
			base64.StdEncoding.EncodeToString(signed),
			map[string]interface{}{"encoding": "base64"},
		},
		&signature)
	if err != nil {
		return "", err
	}
	return signature, nil
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	var res balanceResult
	err := c.call(ctx, "getBalance",
		[]interface{}{address, map[string]interface{}{"commitment": c.commitment}},
		&res)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}
