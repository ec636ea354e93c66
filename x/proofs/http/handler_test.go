package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whalevault/relayd/x/proofs"
)

type fakeProver struct{}

func (fakeProver) Prove(_ context.Context, req proofs.ProveRequest) (proofs.ProveResult, error) {
	return proofs.ProveResult{
		ProofBytes:    strings.Repeat("0f", 256),
		NullifierHash: req.NullifierHash,
	}, nil
}

type staticWitness struct{}

func (staticWitness) Witness(context.Context, []byte) (proofs.Witness, error) {
	elems := make([]string, 10)
	idx := make([]int, 10)
	for i := range elems {
		elems[i] = strings.Repeat("00", 32)
	}
	return proofs.Witness{Root: strings.Repeat("aa", 32), PathElements: elems, PathIndices: idx}, nil
}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	store, err := proofs.NewStore(proofs.StoreConfig{}, zerolog.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sched := proofs.NewScheduler(
		proofs.DefaultConfig(), store, fakeProver{}, staticWitness{}, zerolog.New(io.Discard))

	h := NewHandler(sched, zerolog.New(io.Discard))
	r := mux.NewRouter()
	h.RegisterMux(r)
	return r
}

func submitBody(amount uint64) map[string]any {
	return map[string]any{
		"commitment": strings.Repeat("ab", 32),
		"secret":     strings.Repeat("cd", 32),
		"amount":     amount,
		"recipient":  strings.Repeat("R", 40),
	}
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_SubmitAndStatus_OK(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, routeSubmitUnshield, submitBody(2_000_000))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID         string `json:"jobId"`
		Status        string `json:"status"`
		EstimatedTime int    `json:"estimatedTime"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.JobID)
	require.Equal(t, "pending", resp.Status)
	require.Positive(t, resp.EstimatedTime)

	u, err := r.Get(routeNameStatusByID).URL("jobID", resp.JobID)
	require.NoError(t, err)
	rec2 := doJSON(t, r, http.MethodGet, u.String(), nil)
	require.Equal(t, http.StatusOK, rec2.Code)

	var status struct {
		JobID  string `json:"jobId"`
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &status))
	require.Equal(t, resp.JobID, status.JobID)
	require.Equal(t, "unshield", status.Type)
	require.Equal(t, "pending", status.Status)
}

func TestHandler_Submit_ValidationError(t *testing.T) {
	r := newTestRouter(t)

	body := submitBody(2_000_000)
	body["commitment"] = "not-hex"
	rec := doJSON(t, r, http.MethodPost, routeSubmitTransfer, body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	require.Contains(t, resp.Error.Message, "commitment")
}

func TestHandler_Submit_MalformedJSON(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, routeSubmitUnshield, strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Status_UnknownJob(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/v1/proof/status/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "NOT_FOUND", resp.Error.Code)
}

func TestHandler_Status_NeverLeaksInput(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, routeSubmitUnshield, submitBody(2_000_000))
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID string `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec2 := doJSON(t, r, http.MethodGet, "/v1/proof/status/"+resp.JobID, nil)
	require.Equal(t, http.StatusOK, rec2.Code)
	require.NotContains(t, rec2.Body.String(), strings.Repeat("cd", 32))
}

func TestHandler_Submit_ThrottledPerClient(t *testing.T) {
	r := newTestRouter(t)

	// httptest requests share one RemoteAddr, so they count as one client.
	for i := 0; i < submitBurst; i++ {
		rec := doJSON(t, r, http.MethodPost, routeSubmitUnshield, submitBody(2_000_000))
		require.Equal(t, http.StatusAccepted, rec.Code, "submission %d", i+1)
	}

	rec := doJSON(t, r, http.MethodPost, routeSubmitTransfer, submitBody(2_000_000))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")

	// Status polling is not throttled.
	rec2 := doJSON(t, r, http.MethodGet, "/v1/proof/status/does-not-exist", nil)
	require.Equal(t, http.StatusNotFound, rec2.Code)

	// A different client has its own budget.
	b, err := json.Marshal(submitBody(2_000_000))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, routeSubmitUnshield, bytes.NewReader(b))
	req.RemoteAddr = "203.0.113.9:4000"
	rec3 := httptest.NewRecorder()
	r.ServeHTTP(rec3, req)
	require.Equal(t, http.StatusAccepted, rec3.Code)
}
