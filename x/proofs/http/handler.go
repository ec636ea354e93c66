package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apicommon "github.com/whalevault/relayd/server/api"
	apimw "github.com/whalevault/relayd/server/api/middleware"
	"github.com/whalevault/relayd/x/proofs"
	"github.com/whalevault/relayd/x/vaulterr"
)

// Pipeline is the scheduler surface the handler needs.
type Pipeline interface {
	SubmitUnshield(ctx context.Context, input proofs.JobInput) (*proofs.Job, error)
	SubmitTransfer(ctx context.Context, input proofs.JobInput) (*proofs.Job, error)
	GetStatus(ctx context.Context, id string) (*proofs.Job, error)
	EstimatedSeconds() int
}

type Handler struct {
	pipeline    Pipeline
	log         zerolog.Logger
	submitLimit func(http.Handler) http.Handler
}

func NewHandler(pipeline Pipeline, log zerolog.Logger) *Handler {
	return &Handler{
		pipeline:    pipeline,
		log:         log.With().Str("component", "proofs-http").Logger(),
		submitLimit: apimw.RateLimit(submitPerMinute, submitBurst),
	}
}

// handleSubmitUnshield accepts an unshield proof job via POST.
func (h *Handler) handleSubmitUnshield(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.pipeline.SubmitUnshield)
}

// handleSubmitTransfer accepts a private transfer proof job via POST.
func (h *Handler) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, h.pipeline.SubmitTransfer)
}

func (h *Handler) submit(
	w http.ResponseWriter,
	r *http.Request,
	submitFn func(context.Context, proofs.JobInput) (*proofs.Job, error),
) {
	defer r.Body.Close()

	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("failed to decode request body").WithCause(err))
		return
	}

	job, err := submitFn(r.Context(), req.input())
	if err != nil {
		apicommon.WriteErrorFrom(w, r, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusAccepted, submitResp{
		JobID:         job.ID,
		Status:        string(job.Status),
		EstimatedTime: h.pipeline.EstimatedSeconds(),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobID := strings.TrimSpace(vars["jobID"])
	if jobID == "" {
		apicommon.WriteErrorFrom(w, r,
			vaulterr.Validation("provide /v1/proof/status/{jobID}"))
		return
	}

	job, err := h.pipeline.GetStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, proofs.ErrJobNotFound) {
			apicommon.WriteErrorFrom(w, r,
				vaulterr.NotFound("proof job not found").WithDetail("job_id", jobID))
			return
		}
		apicommon.WriteErrorFrom(w, r, err)
		return
	}

	apicommon.WriteJSON(w, http.StatusOK, statusFromJob(job))
}
