package proofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whalevault/relayd/x/vaulterr"
)

type fakeProver struct {
	delay time.Duration
	err   error
}

func (f *fakeProver) Prove(ctx context.Context, req ProveRequest) (ProveResult, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ProveResult{}, fmt.Errorf("prove: %w", ErrProverTimeout)
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return ProveResult{}, f.err
	}
	return ProveResult{
		ProofBytes:    strings.Repeat("ab", 256),
		NullifierHash: req.NullifierHash,
		PublicInputs:  map[string]string{"root": req.Root},
	}, nil
}

type staticWitness struct{}

func (staticWitness) Witness(context.Context, []byte) (Witness, error) {
	elems := make([]string, 10)
	idx := make([]int, 10)
	for i := range elems {
		elems[i] = strings.Repeat("00", 32)
	}
	return Witness{Root: strings.Repeat("33", 32), PathElements: elems, PathIndices: idx}, nil
}

func newTestScheduler(t *testing.T, cfg Config, p Prover) *Scheduler {
	t.Helper()
	store := newTestStore(t)
	s := NewScheduler(cfg, store, p, staticWitness{}, zerolog.New(io.Discard))
	return s
}

func startScheduler(t *testing.T, s *Scheduler) {
	t.Helper()
	require.NoError(t, s.Start(t.Context()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
}

func waitTerminal(t *testing.T, s *Scheduler, id string) *Job {
	t.Helper()
	var job *Job
	require.Eventually(t, func() bool {
		var err error
		job, err = s.GetStatus(t.Context(), id)
		require.NoError(t, err)
		return job.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestSubmit_StartsPending(t *testing.T) {
	// Scheduler deliberately not started: the snapshot right after
	// submission must be pending with neither result nor error.
	s := newTestScheduler(t, Config{}, &fakeProver{})

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)
	require.Equal(t, StatusPending, job.Status)
	require.Nil(t, job.Result)
	require.Nil(t, job.Error)

	got, err := s.GetStatus(t.Context(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestUnshield_CompletesWithProofAndNullifier(t *testing.T) {
	s := newTestScheduler(t, Config{Workers: 1}, &fakeProver{})
	startScheduler(t, s)

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	require.Equal(t, StatusCompleted, done.Status)
	require.Equal(t, 100, done.Progress)
	require.NotNil(t, done.Result)
	require.NotEmpty(t, done.Result.Proof)
	require.Len(t, done.Result.Nullifier, 64)
	require.Nil(t, done.Error)
	require.Empty(t, done.Result.NewCommitment)
}

func TestTransfer_ResultCarriesRecipientNote(t *testing.T) {
	s := newTestScheduler(t, Config{Workers: 1}, &fakeProver{})
	startScheduler(t, s)

	job, err := s.SubmitTransfer(t.Context(), testInput(1_000_000_000, 1_000_000_000))
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	require.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.Result)
	require.Len(t, done.Result.NewCommitment, 64)
	require.Len(t, done.Result.RecipientSecret, 64)
}

func TestSubmit_ValidationRejectsBeforeJobCreation(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeProver{})

	cases := []struct {
		name  string
		input JobInput
		want  string
	}{
		{"bad commitment hex", JobInput{Commitment: "xyz", Secret: strings.Repeat("22", 32), Amount: 2_000_000, Recipient: strings.Repeat("R", 40)}, "commitment"},
		{"bad secret hex", JobInput{Commitment: strings.Repeat("11", 32), Secret: "22", Amount: 2_000_000, Recipient: strings.Repeat("R", 40)}, "secret"},
		{"short recipient", JobInput{Commitment: strings.Repeat("11", 32), Secret: strings.Repeat("22", 32), Amount: 2_000_000, Recipient: "short"}, "recipient"},
		{"unknown denomination", testInput(7, 7), "denomination"},
		{"fixed pool amount mismatch", testInput(500_000_000, 1_000_000_000), "must match denomination"},
		{"amount below minimum", testInput(1_000, 0), "greater than"},
		{"amount above maximum", testInput(2_000_000_000_000, 0), "at most"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SubmitUnshield(t.Context(), tc.input)
			require.Error(t, err)
			var verr *vaulterr.Error
			require.ErrorAs(t, err, &verr)
			require.Equal(t, vaulterr.CodeValidation, verr.Code)
			require.Contains(t, verr.Message, tc.want)
		})
	}

	// Nothing was enqueued or stored.
	jobs, err := s.store.List(t.Context())
	require.NoError(t, err)
	require.Empty(t, jobs)
}

func TestSubmit_FixedPoolAcceptsExactAmount(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeProver{})

	job, err := s.SubmitTransfer(t.Context(), testInput(1_000_000_000, 1_000_000_000))
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000_000), job.Denomination)
}

func TestSubmit_QueueOverflowRejected(t *testing.T) {
	// Workers not started, queue size 1: the second submission must be shed.
	s := newTestScheduler(t, Config{QueueSize: 1}, &fakeProver{})

	_, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	_, err = s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.Error(t, err)
	var verr *vaulterr.Error
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Message, "queue is full")
}

func TestSubmit_SameRequestTwiceYieldsDistinctJobs(t *testing.T) {
	s := newTestScheduler(t, Config{Workers: 1}, &fakeProver{})
	startScheduler(t, s)

	a, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)
	b, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	waitTerminal(t, s, a.ID)
	waitTerminal(t, s, b.ID)
}

func TestProverTimeout_JobFailsClassified(t *testing.T) {
	s := newTestScheduler(t, Config{Workers: 1, JobTimeout: 50 * time.Millisecond}, &fakeProver{delay: time.Minute})
	startScheduler(t, s)

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	require.Equal(t, StatusFailed, done.Status)
	require.NotNil(t, done.Error)
	require.Equal(t, "timeout", done.Error.Code)
	require.Nil(t, done.Result)
}

func TestProverFailure_JobFailsWithError(t *testing.T) {
	s := newTestScheduler(t, Config{Workers: 1}, &fakeProver{err: fmt.Errorf("circuit rejected witness: %w", ErrProverMalformed)})
	startScheduler(t, s)

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	done := waitTerminal(t, s, job.ID)
	require.Equal(t, StatusFailed, done.Status)
	require.Equal(t, "malformed_output", done.Error.Code)
}

func TestReaper_ForceFailsStuckJob(t *testing.T) {
	s := newTestScheduler(t, Config{JobTimeout: 10 * time.Millisecond, ReapInterval: 10 * time.Millisecond}, &fakeProver{})

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	// Simulate a worker that claimed the job and then hung forever.
	_, err = s.store.Transition(t.Context(), job.ID, func(j *Job) error {
		j.Status = StatusProcessing
		j.StartedAt = time.Now().Add(-time.Hour)
		return nil
	})
	require.NoError(t, err)

	s.reapStuck(t.Context())

	got, err := s.GetStatus(t.Context(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "timeout", got.Error.Code)
}

func TestClassifyProverError(t *testing.T) {
	require.Equal(t, "timeout", classifyProverError(ErrProverTimeout))
	require.Equal(t, "timeout", classifyProverError(context.DeadlineExceeded))
	require.Equal(t, "malformed_output", classifyProverError(fmt.Errorf("wrap: %w", ErrProverMalformed)))
	require.Equal(t, "prover_unavailable", classifyProverError(ErrProverUnavailable))
	require.Equal(t, "proof_failed", classifyProverError(errors.New("boom")))
}

func TestUpdate_ProgressNeverRegresses(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeProver{})

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	_, err = s.store.Transition(t.Context(), job.ID, func(j *Job) error {
		j.Status = StatusProcessing
		return nil
	})
	require.NoError(t, err)

	s.update(t.Context(), job.ID, 60, "generating proof")
	s.update(t.Context(), job.ID, 30, "computing witness")

	got, err := s.GetStatus(t.Context(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 60, got.Progress, "lower progress must not roll back")
	require.Equal(t, "computing witness", got.Stage)

	// Forward movement still applies.
	s.update(t.Context(), job.ID, 90, "encoding proof")
	got, err = s.GetStatus(t.Context(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 90, got.Progress)
}

func TestUpdate_IgnoresTerminalJobs(t *testing.T) {
	s := newTestScheduler(t, Config{}, &fakeProver{})

	job, err := s.SubmitUnshield(t.Context(), testInput(2_000_000, 0))
	require.NoError(t, err)

	_, err = s.store.Transition(t.Context(), job.ID, func(j *Job) error {
		j.Status = StatusFailed
		return nil
	})
	require.NoError(t, err)

	s.update(t.Context(), job.ID, 50, "generating proof")

	got, err := s.GetStatus(t.Context(), job.ID)
	require.NoError(t, err)
	require.Equal(t, 0, got.Progress)
	require.Empty(t, got.Stage)
}
