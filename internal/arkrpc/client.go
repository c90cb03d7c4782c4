// Package arkrpc implements core.ArkClient against an Ark server's REST API
// over plain net/http — the wallet-signing and round-participation Ark
// internals live in the Ark server itself; this client only ever calls the
// handful of endpoints core.ArkClient needs.
package arkrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arkpunks/punks-core/core"
)

// Client is a thin REST client for one Ark wallet, keyed by privKey
// (forwarded as a bearer credential; the signing itself happens server
// side at the Ark node).
type Client struct {
	baseURL string
	privKey []byte
	http    *http.Client
}

// New returns a Client against baseURL, authenticating wallet operations
// with privKey.
func New(baseURL string, privKey []byte) *Client {
	return &Client{
		baseURL: baseURL,
		privKey: privKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if len(c.privKey) > 0 {
		req.Header.Set("Authorization", "Bearer "+hex.EncodeToString(c.privKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", core.ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: ark server returned %d: %s", core.ErrUpstreamFailure, resp.StatusCode, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Send implements core.ArkClient.
func (c *Client) Send(ctx context.Context, address core.ArkAddress, amount core.Sats) (string, error) {
	var resp struct {
		Txid string `json:"txid"`
	}
	req := struct {
		Address string `json:"address"`
		Amount  uint64 `json:"amount"`
	}{Address: string(address), Amount: uint64(amount)}
	if err := c.do(ctx, http.MethodPost, "/v1/send", req, &resp); err != nil {
		return "", err
	}
	return resp.Txid, nil
}

// GetVTXOs implements core.ArkClient.
func (c *Client) GetVTXOs(ctx context.Context) ([]core.VTXO, error) {
	var resp struct {
		VTXOs []struct {
			Outpoint string `json:"outpoint"`
			Value    uint64 `json:"value"`
			Address  string `json:"address"`
		} `json:"vtxos"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/vtxos", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]core.VTXO, 0, len(resp.VTXOs))
	for _, v := range resp.VTXOs {
		out = append(out, core.VTXO{Outpoint: core.Outpoint(v.Outpoint), Value: core.Sats(v.Value), Address: core.ArkAddress(v.Address)})
	}
	return out, nil
}

// GetBalance implements core.ArkClient.
func (c *Client) GetBalance(ctx context.Context) (core.Sats, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/balance", nil, &resp); err != nil {
		return 0, err
	}
	return core.Sats(resp.Balance), nil
}

// GetBoardingAddress implements core.ArkClient.
func (c *Client) GetBoardingAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/boarding-address", nil, &resp); err != nil {
		return "", err
	}
	return resp.Address, nil
}

var _ core.ArkClient = (*Client)(nil)
