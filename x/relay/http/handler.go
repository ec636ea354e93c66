package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	apicommon "github.com/whalevault/relayd/server/api"
	"github.com/whalevault/relayd/x/relay"
	"github.com/whalevault/relayd/x/vaulterr"
)

type Handler struct {
	gate *relay.Service
	log  zerolog.Logger
}

func NewHandler(gate *relay.Service, log zerolog.Logger) *Handler {
	return &Handler{
		gate: gate,
		log:  log.With().Str("component", "relay-http").Logger(),
	}
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := h.gate.Info(r.Context())
	apicommon.WriteJSON(w, http.StatusOK, infoResp{
		Enabled:   info.Enabled,
		PublicKey: info.PublicKey,
		FeeBps:    info.FeeBps,
		Balance:   info.Balance,
	})
}

func (h *Handler) handleUnshield(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	out, err := h.gate.RelayUnshield(r.Context(), req.JobID, req.Recipient)
	if err != nil {
		apicommon.WriteErrorFrom(w, r, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, unshieldResp{
		Signature:  out.Signature,
		Fee:        out.Fee,
		AmountSent: out.AmountSent,
		Recipient:  out.Recipient,
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	out, err := h.gate.RelayTransfer(r.Context(), req.JobID, req.Recipient)
	if err != nil {
		apicommon.WriteErrorFrom(w, r, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, transferResp{
		Signature:       out.Signature,
		Fee:             out.Fee,
		RecipientSecret: out.RecipientSecret,
		NewCommitment:   out.NewCommitment,
		Amount:          out.Amount,
		Recipient:       out.Recipient,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (relayReq, bool) {
	defer r.Body.Close()

	var req relayReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("failed to decode request body").WithCause(err))
		return relayReq{}, false
	}
	req.JobID = strings.TrimSpace(req.JobID)
	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.JobID == "" {
		apicommon.WriteErrorFrom(w, r, vaulterr.Validation("job_id is required"))
		return relayReq{}, false
	}
	if n := len(req.Recipient); n < 32 || n > 44 {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("recipient must be a 32-44 character address"))
		return relayReq{}, false
	}
	return req, true
}
