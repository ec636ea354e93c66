package proofs

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("proof job not found")

// Store is the single source of truth for proof jobs. Transitions against the
// same job are serialized; readers never observe a partially applied
// transition.
type Store interface {
	// Create inserts a new pending job and returns a copy of it.
	Create(ctx context.Context, jobType JobType, input JobInput) (*Job, error)
	// Get returns a copy of the job, or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)
	// Transition applies mutate to the job under the store's write lock and
	// persists the outcome. If mutate returns an error the job is left
	// unchanged and the error is surfaced to the caller.
	Transition(ctx context.Context, id string, mutate func(*Job) error) (*Job, error)
	// List returns a copy of every job held by the store.
	List(ctx context.Context) ([]*Job, error)
	Close() error
}
