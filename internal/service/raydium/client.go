package raydium

import (
	"context"
	"fmt"
	"strconv"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/http"
)

const defaultBaseURL = "https://transaction-v1.raydium.io"

// Client is the Raydium trade API VenueClient, the fallback venue behind
// the aggregator.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) Venue() models.Venue { return models.VenueRaydium }

type computeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		InputMint    string  `json:"inputMint"`
		OutputMint   string  `json:"outputMint"`
		InputAmount  uint64  `json:"inputAmount,string"`
		OutputAmount uint64  `json:"outputAmount,string"`
		PriceImpact  float64 `json:"priceImpactPct"`
	} `json:"data"`
	Msg string `json:"msg"`
}

func (c *Client) Quote(ctx context.Context, inputToken, outputToken string, amount uint64) (*models.VenueQuote, error) {
	var resp computeResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/compute/swap-base-in",
		QueryParams: map[string][]string{
			"inputMint":  {inputToken},
			"outputMint": {outputToken},
			"amount":     {strconv.FormatUint(amount, 10)},
			"txVersion":  {"V0"},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("raydium quote: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("raydium quote: %s", resp.Msg)
	}
	return &models.VenueQuote{
		InputToken:  resp.Data.InputMint,
		OutputToken: resp.Data.OutputMint,
		InAmount:    resp.Data.InputAmount,
		OutAmount:   resp.Data.OutputAmount,
		PriceImpact: resp.Data.PriceImpact,
	}, nil
}

type transactionResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Transaction []byte `json:"transaction"`
	} `json:"data"`
	Msg string `json:"msg"`
}

func (c *Client) SwapInstruction(ctx context.Context, req *models.SwapRequest) (*models.SwapInstruction, error) {
	var resp transactionResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    c.baseURL + "/transaction/swap-base-in",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("raydium swap instruction: %w", err)
	}
	if !resp.Success || len(resp.Data) == 0 {
		return nil, fmt.Errorf("raydium swap instruction: %s", resp.Msg)
	}
	return &models.SwapInstruction{
		ProgramID: "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		Data:      resp.Data[0].Transaction,
	}, nil
}

type poolInfoResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Data []struct {
			TVL float64 `json:"tvl"`
		} `json:"data"`
	} `json:"data"`
}

// Liquidity reports the deepest pool TVL for token, zero when no pool
// exists.
func (c *Client) Liquidity(ctx context.Context, token string) (float64, error) {
	var resp poolInfoResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/pools/info/mint",
		QueryParams: map[string][]string{
			"mint1":    {token},
			"poolType": {"all"},
			"pageSize": {"1"},
			"page":     {"1"},
		},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("raydium liquidity: %w", err)
	}
	if !resp.Success || len(resp.Data.Data) == 0 {
		return 0, nil
	}
	return resp.Data.Data[0].TVL, nil
}
