package jupiter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"WhaleTrail/internal/domain/models"
	"WhaleTrail/pkg/http"
)

const defaultBaseURL = "https://quote-api.jup.ag/v6"

// probeAmount is the notional used for liquidity probes (0.001 SOL).
const probeAmount = 1_000_000

// Client is the Jupiter aggregator VenueClient and PriceSource.
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

func (c *Client) Venue() models.Venue { return models.VenueJupiter }

func (c *Client) Quote(ctx context.Context, inputToken, outputToken string, amount uint64) (*models.VenueQuote, error) {
	var quote models.VenueQuote
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"inputMint":  {inputToken},
			"outputMint": {outputToken},
			"amount":     {strconv.FormatUint(amount, 10)},
		},
	}, &quote)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	if quote.OutAmount == 0 {
		return nil, fmt.Errorf("jupiter quote: no route for %s", outputToken)
	}
	return &quote, nil
}

type swapInstructionResponse struct {
	SwapInstruction struct {
		ProgramID string `json:"programId"`
		Data      []byte `json:"data"`
		Accounts  []struct {
			Pubkey string `json:"pubkey"`
		} `json:"accounts"`
	} `json:"swapInstruction"`
}

func (c *Client) SwapInstruction(ctx context.Context, req *models.SwapRequest) (*models.SwapInstruction, error) {
	var resp swapInstructionResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodPost,
		URL:    c.baseURL + "/swap-instructions",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("jupiter swap instruction: %w", err)
	}

	in := resp.SwapInstruction
	accounts := make([]string, 0, len(in.Accounts))
	for _, a := range in.Accounts {
		accounts = append(accounts, a.Pubkey)
	}
	return &models.SwapInstruction{
		ProgramID: in.ProgramID,
		Data:      in.Data,
		Accounts:  accounts,
	}, nil
}

// Liquidity probes for a route with a tiny notional. A missing route is
// zero liquidity, not an error; transport failures surface so the caller
// can retry them.
func (c *Client) Liquidity(ctx context.Context, token string) (float64, error) {
	resp, err := c.http.SendRequest(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"inputMint":  {"So11111111111111111111111111111111111111112"},
			"outputMint": {token},
			"amount":     {strconv.FormatUint(probeAmount, 10)},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("jupiter liquidity probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The aggregator answers 400 when no route exists.
		return 0, nil
	}
	var quote models.VenueQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return 0, fmt.Errorf("jupiter liquidity probe: decode: %w", err)
	}
	return float64(quote.OutAmount), nil
}
