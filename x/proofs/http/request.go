package http

import (
	"time"

	"github.com/whalevault/relayd/x/proofs"
)

// submitReq is the JSON schema for the two proof submission routes.
type submitReq struct {
	Commitment   string `json:"commitment"` // 64-char hex
	Secret       string `json:"secret"`     // 64-char hex
	Amount       uint64 `json:"amount"`
	Recipient    string `json:"recipient"`
	Denomination uint64 `json:"denomination,omitempty"`
}

func (r submitReq) input() proofs.JobInput {
	return proofs.JobInput{
		Commitment:   r.Commitment,
		Secret:       r.Secret,
		Amount:       r.Amount,
		Recipient:    r.Recipient,
		Denomination: r.Denomination,
	}
}

// submitResp acknowledges an accepted job.
type submitResp struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	EstimatedTime int    `json:"estimatedTime"` // seconds
}

// statusResp projects a job for polling clients. The stored input never
// appears here; it contains the note secret.
type statusResp struct {
	JobID       string           `json:"jobId"`
	Type        string           `json:"type"`
	Status      string           `json:"status"`
	Progress    int              `json:"progress"`
	Stage       string           `json:"stage,omitempty"`
	Result      *resultResp      `json:"result,omitempty"`
	Error       *proofs.JobError `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// resultResp exposes proof material for completed jobs.
type resultResp struct {
	Proof           string `json:"proof"`
	Nullifier       string `json:"nullifier"`
	NewCommitment   string `json:"newCommitment,omitempty"`
	RecipientSecret string `json:"recipientSecret,omitempty"`
}

func statusFromJob(job *proofs.Job) statusResp {
	resp := statusResp{
		JobID:     job.ID,
		Type:      string(job.Type),
		Status:    string(job.Status),
		Progress:  job.Progress,
		Stage:     job.Stage,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
	}
	if job.Result != nil {
		resp.Result = &resultResp{
			Proof:           job.Result.Proof,
			Nullifier:       job.Result.Nullifier,
			NewCommitment:   job.Result.NewCommitment,
			RecipientSecret: job.Result.RecipientSecret,
		}
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}
