package proofs

import (
	"time"
)

// JobType discriminates the two proof circuits sharing the queue.
type JobType string

const (
	JobTypeUnshield JobType = "unshield"
	JobTypeTransfer JobType = "transfer"
)

// JobStatus tracks the job state machine:
// pending -> processing -> completed | failed. Terminal states never change.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobInput holds the caller-supplied proof parameters. Secret and commitment
// are sensitive; log job ids and amounts, never the input itself.
type JobInput struct {
	Commitment   string `json:"commitment"` // 64-char hex
	Secret       string `json:"secret"`     // 64-char hex
	Amount       uint64 `json:"amount"`
	Recipient    string `json:"recipient"`
	Denomination uint64 `json:"denomination"`
}

// Result carries the proof material produced for a completed job. All fields
// are bare hex. NewCommitment and RecipientSecret are set for transfer jobs
// only.
type Result struct {
	Proof           string `json:"proof"`
	Nullifier       string `json:"nullifier"`
	NewCommitment   string `json:"new_commitment,omitempty"`
	RecipientSecret string `json:"recipient_secret,omitempty"`
}

// JobError describes a terminal failure.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job is the central pipeline entity. Instances are owned by the Store;
// callers receive copies and mutate only through Store.Transition.
type Job struct {
	ID           string    `json:"id"`
	Type         JobType   `json:"type"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	Stage        string    `json:"stage"`
	Input        JobInput  `json:"input"`
	Result       *Result   `json:"result,omitempty"`
	Error        *JobError `json:"error,omitempty"`
	Amount       uint64    `json:"amount"`
	Denomination uint64    `json:"denomination"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
	// ConsumedAt is set by the relay gate after a successful submission so a
	// completed job cannot be relayed twice.
	ConsumedAt time.Time `json:"consumed_at,omitempty"`
}

// Consumed reports whether the job's proof was already relayed.
func (j *Job) Consumed() bool {
	return !j.ConsumedAt.IsZero()
}
