package jupiter

import (
	"context"
	"fmt"
	"strconv"

	"WhaleTrail/pkg/http"
)

const defaultPriceBaseURL = "https://lite-api.jup.ag"

// PriceClient resolves token prices and display names through the Jupiter
// public data API.
type PriceClient struct {
	baseURL string
	http    *http.Client
}

func NewPriceClient(baseURL string, httpClient *http.Client) *PriceClient {
	if baseURL == "" {
		baseURL = defaultPriceBaseURL
	}
	return &PriceClient{baseURL: baseURL, http: httpClient}
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

func (c *PriceClient) TokenPrice(ctx context.Context, token string) (float64, error) {
	var resp priceResponse
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method:      http.MethodGet,
		URL:         c.baseURL + "/price/v2",
		QueryParams: map[string][]string{"ids": {token}},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("token price: %w", err)
	}

	entry, ok := resp.Data[token]
	if !ok || entry.Price == "" {
		return 0, fmt.Errorf("token price: no price for %s", token)
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("token price: parse %q: %w", entry.Price, err)
	}
	return price, nil
}

type tokenInfo struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

func (c *PriceClient) TokenName(ctx context.Context, token string) (string, error) {
	var info tokenInfo
	err := c.http.SendAndParse(ctx, &http.RequestOptions{
		Method: http.MethodGet,
		URL:    c.baseURL + "/tokens/v1/token/" + token,
	}, &info)
	if err != nil {
		return "", fmt.Errorf("token name: %w", err)
	}
	if info.Symbol != "" {
		return info.Symbol, nil
	}
	if info.Name != "" {
		return info.Name, nil
	}
	return "", fmt.Errorf("token name: no metadata for %s", token)
}
