// Package ledger talks to the Solana cluster: a thin JSON-RPC client, the
// relayer keypair, transaction submission and the on-chain commitment tree.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/vaulterr"
)

// Client is a minimal JSON-RPC 2.0 client for the handful of Solana methods
// the relayer needs.
type Client struct {
	url  string
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.RPCTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().RPCTimeout
	}
	return &Client{
		url:  cfg.RPCURL,
		http: &http.Client{Timeout: timeout},
		log:  log.With().Str("component", "ledger-rpc").Logger(),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return vaulterr.Internal("encode rpc request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return vaulterr.Internal("build rpc request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return vaulterr.RPC("solana rpc unreachable").WithCause(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return vaulterr.RPC("solana rpc returned status %d", httpResp.StatusCode)
	}

	var resp rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return vaulterr.RPC("decode rpc response").WithCause(err)
	}
	if resp.Error != nil {
		return vaulterr.RPC("%s failed: %s", method, resp.Error.Message).
			WithDetail("rpc_code", resp.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return vaulterr.RPC("decode %s result", method).WithCause(err)
		}
	}
	return nil
}

// Health probes the cluster and returns the round-trip latency.
func (c *Client) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var status string
	if err := c.call(ctx, "getHealth", nil, &status); err != nil {
		return 0, err
	}
	if status != "ok" {
		return 0, vaulterr.RPC("cluster reports unhealthy: %s", status)
	}
	return time.Since(start), nil
}

// Balance returns the lamport balance of an account.
func (c *Client) Balance(ctx context.Context, pubkey string) (uint64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{pubkey}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// LatestBlockhash returns the recent blockhash required to build a
// transaction.
func (c *Client) LatestBlockhash(ctx context.Context) (string, error) {
	var result struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", []any{map[string]any{"commitment": "confirmed"}}, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", vaulterr.RPC("empty blockhash from cluster")
	}
	return result.Value.Blockhash, nil
}

// ProgramAccounts returns the decoded data of every program account matching
// the given size. The size filter selects one account type out of the
// program's state space.
func (c *Client) ProgramAccounts(ctx context.Context, programID string, dataSize int) ([][]byte, error) {
	params := []any{
		programID,
		map[string]any{
			"encoding": "base64",
			"filters":  []any{map[string]any{"dataSize": dataSize}},
		},
	}

	var result []struct {
		Account struct {
			Data []string `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, "getProgramAccounts", params, &result); err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(result))
	for _, acc := range result {
		if len(acc.Account.Data) == 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(acc.Account.Data[0])
		if err != nil {
			return nil, vaulterr.RPC("corrupt account data from cluster").WithCause(err)
		}
		out = append(out, raw)
	}
	return out, nil
}

// SendTransaction submits a signed, base64-encoded transaction and returns
// its signature.
func (c *Client) SendTransaction(ctx context.Context, txBase64 string) (string, error) {
	params := []any{txBase64, map[string]any{"encoding": "base64"}}

	var signature string
	if err := c.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	if signature == "" {
		return "", vaulterr.RPC("cluster returned empty signature")
	}
	return signature, nil
}
