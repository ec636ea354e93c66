// Package http serves the pool statistics and stateless commitment routes.
package http

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apicommon "github.com/whalevault/relayd/server/api"
	"github.com/whalevault/relayd/x/pool"
	"github.com/whalevault/relayd/x/proofs"
	"github.com/whalevault/relayd/x/vaultcrypto"
	"github.com/whalevault/relayd/x/vaulterr"
)

const (
	routePoolStatus        = "/v1/pool/status"
	routeComputeCommitment = "/v1/commitment/compute"
)

type Handler struct {
	pool *pool.Service
	log  zerolog.Logger
}

func NewHandler(poolSvc *pool.Service, log zerolog.Logger) *Handler {
	return &Handler{
		pool: poolSvc,
		log:  log.With().Str("component", "pool-http").Logger(),
	}
}

// RegisterMux binds gorilla/mux routes.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc(routePoolStatus, h.handleStatus).Methods(http.MethodGet).Name("pool_status")
	r.HandleFunc(routeComputeCommitment, h.handleComputeCommitment).
		Methods(http.MethodPost).
		Name("commitment_compute")
}

type statusResp struct {
	TotalValueLocked uint64 `json:"totalValueLocked"`
	TotalDeposits    uint64 `json:"totalDeposits"`
	AnonymitySetSize uint64 `json:"anonymitySetSize"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Status(r.Context())
	apicommon.WriteJSON(w, http.StatusOK, statusResp{
		TotalValueLocked: stats.TotalValueLocked,
		TotalDeposits:    stats.TotalDeposits,
		AnonymitySetSize: stats.AnonymitySetSize,
	})
}

type computeReq struct {
	Amount uint64 `json:"amount"`
	Secret string `json:"secret"` // 64-char hex
}

type computeResp struct {
	Commitment string `json:"commitment"`
}

// handleComputeCommitment derives Poseidon(amount, secret) without storing
// anything. Clients use it to recreate a commitment from a wallet-derived
// secret.
func (h *Handler) handleComputeCommitment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req computeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("failed to decode request body").WithCause(err))
		return
	}

	secret, err := vaultcrypto.DecodeHex32(req.Secret)
	if err != nil {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("secret must be 64 hex characters").WithCause(err))
		return
	}
	if req.Amount <= proofs.MinAmountLamports || req.Amount > proofs.MaxAmountLamports {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("amount must be between %d and %d lamports",
				uint64(proofs.MinAmountLamports), uint64(proofs.MaxAmountLamports)))
		return
	}

	commitment, err := vaultcrypto.Commitment(req.Amount, secret)
	if err != nil {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Internal("failed to compute commitment").WithCause(err))
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, computeResp{
		Commitment: hex.EncodeToString(commitment),
	})
}
