package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whalevault/relayd/x/relay"
	"github.com/whalevault/relayd/x/vaulterr"
)

// captureServer answers blockhash and sendTransaction calls, recording the
// submitted transaction.
type captureServer struct {
	sentTx  string
	sendErr string
}

func (s *captureServer) serve(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		w.Header().Set("Content-Type", "application/json")
		switch req.Method {
		case "getLatestBlockhash":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": 1,
				"result": map[string]any{"value": map[string]any{"blockhash": "TestB1ockHash1111"}},
			})
		case "sendTransaction":
			if s.sendErr != "" {
				_ = json.NewEncoder(w).Encode(map[string]any{
					"jsonrpc": "2.0", "id": 1,
					"error": map[string]any{"code": -32002, "message": s.sendErr},
				})
				return
			}
			s.sentTx, _ = req.Params[0].(string)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": 1, "result": "submittedSig111",
			})
		case "getBalance":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": 1,
				"result": map[string]any{"value": 7_000_000},
			})
		default:
			t.Fatalf("unexpected rpc method %s", req.Method)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.RPCURL = srv.URL
	return NewClient(cfg, zerolog.New(io.Discard))
}

func newTestSubmitter(t *testing.T, srv *captureServer) (*Submitter, *Keypair) {
	t.Helper()
	kp, err := GenerateKeypair()
	require.NoError(t, err)
	sub := NewSubmitter(srv.serve(t), kp, "TestProgram1111", zerolog.New(io.Discard))
	return sub, kp
}

func unshieldSubmission() relay.UnshieldSubmission {
	return relay.UnshieldSubmission{
		Nullifier: make([]byte, 32),
		Recipient: strings.Repeat("A", 40),
		Amount:    1_000_000_000,
		Fee:       3_000_000,
		Proof:     make([]byte, 256),
	}
}

func TestSubmitter_UnshieldSignsTransaction(t *testing.T) {
	srv := &captureServer{}
	sub, kp := newTestSubmitter(t, srv)

	sig, err := sub.SubmitUnshield(t.Context(), unshieldSubmission())
	require.NoError(t, err)
	require.Equal(t, "submittedSig111", sig)

	raw, err := base64.StdEncoding.DecodeString(srv.sentTx)
	require.NoError(t, err)

	// One ed25519 signature over the message that follows it.
	require.Equal(t, byte(1), raw[0])
	signature := raw[1 : 1+ed25519.SignatureSize]
	message := raw[1+ed25519.SignatureSize:]
	require.True(t, ed25519.Verify(kp.PublicKeyBytes(), message, signature))

	// The message leads with the fee payer and carries the unshield tag.
	require.Equal(t, kp.PublicKeyBytes(), message[:32])
	require.Contains(t, string(message), "TestProgram1111")
}

func TestSubmitter_TransferSignsTransaction(t *testing.T) {
	srv := &captureServer{}
	sub, kp := newTestSubmitter(t, srv)

	sig, err := sub.SubmitTransfer(t.Context(), relay.TransferSubmission{
		Nullifier:     make([]byte, 32),
		NewCommitment: make([]byte, 32),
		Proof:         make([]byte, 256),
	})
	require.NoError(t, err)
	require.Equal(t, "submittedSig111", sig)

	raw, err := base64.StdEncoding.DecodeString(srv.sentTx)
	require.NoError(t, err)
	signature := raw[1 : 1+ed25519.SignatureSize]
	message := raw[1+ed25519.SignatureSize:]
	require.True(t, ed25519.Verify(kp.PublicKeyBytes(), message, signature))
}

func TestSubmitter_SendFailureIsTyped(t *testing.T) {
	srv := &captureServer{sendErr: "Blockhash not found"}
	sub, _ := newTestSubmitter(t, srv)

	_, err := sub.SubmitUnshield(t.Context(), unshieldSubmission())
	var verr *vaulterr.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vaulterr.CodeRPC, verr.Code)
}

func TestSubmitter_Balance(t *testing.T) {
	srv := &captureServer{}
	sub, _ := newTestSubmitter(t, srv)

	balance, err := sub.Balance(t.Context())
	require.NoError(t, err)
	require.Equal(t, uint64(7_000_000), balance)
}
