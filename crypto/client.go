// Package crypto wraps the external market data APIs behind a small client.
package crypto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// ErrUnknownCoin means the API has no listing for the requested coin.
var ErrUnknownCoin = errors.New("unknown coin")

// Quote is one coin's current market snapshot.
type Quote struct {
	Coin      string
	PriceUSD  float64
	Change24h float64
	FetchedAt time.Time
}

// GasPrices is the current Ethereum gas estimate in gwei.
type GasPrices struct {
	Low     float64
	Average float64
	High    float64
}

// quoteTTL bounds how stale a cached quote may be.
const quoteTTL = time.Minute

// Client fetches quotes and gas prices. Quotes are cached briefly so command
// spam does not hammer the API.
type Client struct {
	base        string
	gasBase     string
	etherscanAK string
	http        *http.Client
	cache       *lru.Cache
	now         func() time.Time
}

// New creates a new market data client. base is the price API root,
// etherscanKey may be empty to disable gas lookups.
func New(base, etherscanKey string) (*Client, error) {
	cache, err := lru.New(128)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}
	return &Client{
		base:        strings.TrimSuffix(base, "/"),
		gasBase:     "https://api.etherscan.io/api",
		etherscanAK: etherscanKey,
		http:        &http.Client{Timeout: 10 * time.Second},
		cache:       cache,
		now:         time.Now,
	}, nil
}

// Common ticker aliases the price API does not resolve itself.
var coinAliases = map[string]string{
	"btc":  "bitcoin",
	"eth":  "ethereum",
	"sol":  "solana",
	"doge": "dogecoin",
	"ada":  "cardano",
	"xrp":  "ripple",
	"ltc":  "litecoin",
	"dot":  "polkadot",
}

func canonicalCoin(coin string) string {
	coin = strings.ToLower(strings.TrimSpace(coin))
	if full, ok := coinAliases[coin]; ok {
		return full
	}
	return coin
}

// Quote returns the current USD price and 24h change for a coin, by id or
// common ticker.
func (c *Client) Quote(ctx context.Context, coin string) (*Quote, error) {
	id := canonicalCoin(coin)
	if cached, ok := c.cache.Get(id); ok {
		q := cached.(*Quote)
		if c.now().Sub(q.FetchedAt) < quoteTTL {
			return q, nil
		}
	}

	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		c.base, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching quote for %s", resp.StatusCode, id)
	}

	var raw map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode quote for %s: %w", id, err)
	}

	entry, ok := raw[id]
	if !ok {
		return nil, ErrUnknownCoin
	}

	q := &Quote{
		Coin:      id,
		PriceUSD:  entry["usd"],
		Change24h: entry["usd_24h_change"],
		FetchedAt: c.now(),
	}
	c.cache.Add(id, q)
	return q, nil
}

type gasResponse struct {
	Status string `json:"status"`
	Result struct {
		SafeGasPrice    string `json:"SafeGasPrice"`
		ProposeGasPrice string `json:"ProposeGasPrice"`
		FastGasPrice    string `json:"FastGasPrice"`
	} `json:"result"`
}

// Gas returns current Ethereum gas estimates.
func (c *Client) Gas(ctx context.Context) (*GasPrices, error) {
	endpoint := fmt.Sprintf("%s?module=gastracker&action=gasoracle&apikey=%s",
		c.gasBase, url.QueryEscape(c.etherscanAK))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching gas prices", resp.StatusCode)
	}

	var raw gasResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode gas prices: %w", err)
	}
	if raw.Status != "1" {
		return nil, fmt.Errorf("gas oracle returned status %q", raw.Status)
	}

	low, err := strconv.ParseFloat(raw.Result.SafeGasPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse safe gas price: %w", err)
	}
	avg, err := strconv.ParseFloat(raw.Result.ProposeGasPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proposed gas price: %w", err)
	}
	high, err := strconv.ParseFloat(raw.Result.FastGasPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fast gas price: %w", err)
	}
	return &GasPrices{Low: low, Average: avg, High: high}, nil
}

// Transaction is the decoded view of one Ethereum transaction.
type Transaction struct {
	Hash     string
	From     string
	To       string
	ValueETH float64
	GasGwei  float64
	Pending  bool
}

var ErrTxNotFound = errors.New("transaction not found")

type txResponse struct {
	Result *struct {
		Hash        string `json:"hash"`
		From        string `json:"from"`
		To          string `json:"to"`
		Value       string `json:"value"`
		GasPrice    string `json:"gasPrice"`
		BlockNumber string `json:"blockNumber"`
	} `json:"result"`
}

// Transaction looks a transaction up by hash through the etherscan proxy.
func (c *Client) Transaction(ctx context.Context, hash string) (*Transaction, error) {
	hash = strings.TrimSpace(hash)
	endpoint := fmt.Sprintf("%s?module=proxy&action=eth_getTransactionByHash&txhash=%s&apikey=%s",
		c.gasBase, url.QueryEscape(hash), url.QueryEscape(c.etherscanAK))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching transaction", resp.StatusCode)
	}

	var raw txResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if raw.Result == nil || raw.Result.Hash == "" {
		return nil, ErrTxNotFound
	}

	value, err := hexToBig(raw.Result.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction value: %w", err)
	}
	gasPrice, err := hexToBig(raw.Result.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gas price: %w", err)
	}

	return &Transaction{
		Hash:     raw.Result.Hash,
		From:     raw.Result.From,
		To:       raw.Result.To,
		ValueETH: weiToFloat(value, 18),
		GasGwei:  weiToFloat(gasPrice, 9),
		Pending:  raw.Result.BlockNumber == "" || raw.Result.BlockNumber == "null",
	}, nil
}

func hexToBig(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex quantity: %q", s)
	}
	return n, nil
}

// weiToFloat scales an integer quantity down by 10^decimals.
func weiToFloat(n *big.Int, decimals int) float64 {
	f := new(big.Float).SetInt(n)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(f, scale).Float64()
	return out
}
