package pool

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whalevault/relayd/x/ledger"
)

func poolAccount(tvl, deposits, anonSet uint64) []byte {
	data := make([]byte, poolAccountSize)
	binary.LittleEndian.PutUint64(data[8:16], tvl)
	binary.LittleEndian.PutUint64(data[16:24], deposits)
	binary.LittleEndian.PutUint64(data[24:32], anonSet)
	return data
}

func newTestService(t *testing.T, accounts [][]byte, rpcDown bool) *Service {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rpcDown {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		result := make([]any, 0, len(accounts))
		for _, data := range accounts {
			result = append(result, map[string]any{
				"account": map[string]any{
					"data": []string{base64.StdEncoding.EncodeToString(data), "base64"},
				},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1, "result": result,
		})
	}))
	t.Cleanup(srv.Close)

	cfg := ledger.DefaultConfig()
	cfg.RPCURL = srv.URL
	client := ledger.NewClient(cfg, zerolog.New(io.Discard))
	return NewService(client, cfg.ProgramID, zerolog.New(io.Discard))
}

func TestStatus_ParsesPoolAccount(t *testing.T) {
	svc := newTestService(t, [][]byte{poolAccount(5_000_000_000, 42, 37)}, false)

	stats := svc.Status(t.Context())
	require.Equal(t, uint64(5_000_000_000), stats.TotalValueLocked)
	require.Equal(t, uint64(42), stats.TotalDeposits)
	require.Equal(t, uint64(37), stats.AnonymitySetSize)
}

func TestStatus_ZerosWhenPoolMissing(t *testing.T) {
	svc := newTestService(t, nil, false)
	require.Equal(t, Stats{}, svc.Status(t.Context()))
}

func TestStatus_ZerosWhenRPCDown(t *testing.T) {
	svc := newTestService(t, nil, true)
	require.Equal(t, Stats{}, svc.Status(t.Context()))
}

func TestParsePoolAccount_ShortData(t *testing.T) {
	require.Equal(t, Stats{}, parsePoolAccount(make([]byte, 16)))
}
