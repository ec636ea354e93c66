package proofs

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/whalevault/relayd/x/vaultcrypto"
	"github.com/whalevault/relayd/x/vaulterr"
)

// errStale aborts a transition whose job has already reached a terminal
// state, typically because the reaper force-failed it first.
var errStale = errors.New("job already terminal")

// Scheduler owns the proof job pipeline: it validates submissions, enqueues
// jobs on a bounded queue and runs a fixed pool of workers that drive each
// job through the prover. Submissions never block on proof completion.
type Scheduler struct {
	cfg     Config
	store   Store
	prover  Prover
	witness WitnessSource
	queue   chan string
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewScheduler wires the pipeline. Start must be called before submissions
// make progress.
func NewScheduler(cfg Config, store Store, prover Prover, witness WitnessSource, log zerolog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	if cfg.ReapInterval <= 0 {
		cfg.ReapInterval = DefaultConfig().ReapInterval
	}

	s := &Scheduler{
		cfg:     cfg,
		store:   store,
		prover:  prover,
		witness: witness,
		queue:   make(chan string, cfg.QueueSize),
		log:     log.With().Str("component", "proof-scheduler").Logger(),
		now:     time.Now,
	}
	if cfg.MetricsEnabled {
		s.metrics = NewMetrics()
	}
	return s
}

// Start launches the worker pool and the supervisory reaper.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)
	s.group = g
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			s.workerLoop(gctx)
			return nil
		})
	}
	g.Go(func() error {
		s.reaperLoop(gctx)
		return nil
	})

	s.log.Info().
		Int("workers", s.cfg.Workers).
		Int("queue_size", s.cfg.QueueSize).
		Dur("job_timeout", s.cfg.JobTimeout).
		Msg("proof scheduler started")
	return nil
}

// Stop halts the workers and waits for in-flight jobs to settle or ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitUnshield validates and enqueues an unshield proof job.
func (s *Scheduler) SubmitUnshield(ctx context.Context, input JobInput) (*Job, error) {
	return s.submit(ctx, JobTypeUnshield, input)
}

// SubmitTransfer validates and enqueues a private transfer proof job.
func (s *Scheduler) SubmitTransfer(ctx context.Context, input JobInput) (*Job, error) {
	return s.submit(ctx, JobTypeTransfer, input)
}

// GetStatus returns the job, or ErrJobNotFound.
func (s *Scheduler) GetStatus(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// EstimatedSeconds is the completion estimate reported on submission.
func (s *Scheduler) EstimatedSeconds() int {
	if s.cfg.EstimatedSeconds <= 0 {
		return DefaultConfig().EstimatedSeconds
	}
	return s.cfg.EstimatedSeconds
}

// Stats returns queue statistics for the stats endpoint.
func (s *Scheduler) Stats(ctx context.Context) map[string]interface{} {
	stats := map[string]interface{}{
		"queue_depth": len(s.queue),
		"workers":     s.cfg.Workers,
	}
	byStatus := make(map[string]int)
	jobs, err := s.store.List(ctx)
	if err == nil {
		for _, j := range jobs {
			byStatus[string(j.Status)]++
		}
	}
	stats["jobs_by_status"] = byStatus
	return stats
}

func (s *Scheduler) submit(ctx context.Context, jobType JobType, input JobInput) (*Job, error) {
	if verr := s.validate(input); verr != nil {
		s.reject(verr.Message)
		return nil, verr
	}

	job, err := s.store.Create(ctx, jobType, input)
	if err != nil {
		return nil, vaulterr.Internal("failed to create proof job").WithCause(err)
	}

	select {
	case s.queue <- job.ID:
	default:
		// Bounded queue overflow: shed load instead of growing without bound.
		_, _ = s.store.Transition(ctx, job.ID, func(j *Job) error {
			j.Status = StatusFailed
			j.Error = &JobError{Code: "queue_full", Message: "proof queue is full"}
			j.CompletedAt = s.now()
			return nil
		})
		s.reject("queue full")
		return nil, vaulterr.Overloaded("proof queue is full, retry later")
	}

	if s.metrics != nil {
		s.metrics.JobsSubmitted.WithLabelValues(string(jobType)).Inc()
		s.metrics.QueueDepth.Set(float64(len(s.queue)))
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("type", string(jobType)).
		Uint64("amount", input.Amount).
		Uint64("denomination", input.Denomination).
		Msg("proof job enqueued")

	return job, nil
}

// validate enforces the submission rules: shape first, then pool semantics.
// Rejected requests are never enqueued.
func (s *Scheduler) validate(input JobInput) *vaulterr.Error {
	if _, err := vaultcrypto.DecodeHex32(input.Commitment); err != nil {
		return vaulterr.Validation("commitment must be 64 hex characters").WithCause(err)
	}
	if _, err := vaultcrypto.DecodeHex32(input.Secret); err != nil {
		return vaulterr.Validation("secret must be 64 hex characters").WithCause(err)
	}
	if n := len(input.Recipient); n < 32 || n > 44 {
		return vaulterr.Validation("recipient must be a 32-44 character address")
	}
	if !s.cfg.DenominationValid(input.Denomination) {
		return vaulterr.Validation("invalid denomination %d, valid pools: %v",
			input.Denomination, s.cfg.Denominations)
	}
	if input.Denomination > 0 {
		if input.Amount != input.Denomination {
			return vaulterr.Validation(
				"amount (%d) must match denomination (%d) for fixed pools",
				input.Amount, input.Denomination)
		}
		return nil
	}
	if input.Amount <= MinAmountLamports {
		return vaulterr.Validation("amount must be greater than %d lamports", uint64(MinAmountLamports))
	}
	if input.Amount > MaxAmountLamports {
		return vaulterr.Validation("amount must be at most %d lamports", uint64(MaxAmountLamports))
	}
	return nil
}

func (s *Scheduler) reject(reason string) {
	if s.metrics != nil {
		s.metrics.JobsRejected.WithLabelValues(reason).Inc()
	}
}

func (s *Scheduler) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			if s.metrics != nil {
				s.metrics.QueueDepth.Set(float64(len(s.queue)))
			}
			s.process(ctx, id)
		}
	}
}

// process drives a single job to a terminal state. It never lets a panic or
// error escape the worker; every exit path leaves the job completed or
// failed.
func (s *Scheduler) process(ctx context.Context, id string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error().Str("job_id", id).Interface("panic", rec).Msg("worker panic recovered")
			s.fail(id, "internal", fmt.Sprintf("worker panic: %v", rec))
		}
	}()

	// Claim atomically: exactly one worker moves the job out of pending.
	job, err := s.store.Transition(ctx, id, func(j *Job) error {
		if j.Status != StatusPending {
			return errStale
		}
		j.Status = StatusProcessing
		j.StartedAt = s.now()
		j.Stage = "validating input"
		j.Progress = 5
		return nil
	})
	if err != nil {
		if !errors.Is(err, errStale) && !errors.Is(err, ErrJobNotFound) {
			s.log.Error().Err(err).Str("job_id", id).Msg("failed to claim job")
		}
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	started := s.now()
	result, runErr := s.run(runCtx, job)
	elapsed := s.now().Sub(started)

	if runErr != nil {
		code := classifyProverError(runErr)
		s.log.Warn().
			Str("job_id", id).
			Str("code", code).
			Dur("elapsed", elapsed).
			Err(runErr).
			Msg("proof job failed")
		s.fail(id, code, runErr.Error())
		s.finish(job.Type, StatusFailed, elapsed)
		return
	}

	_, err = s.store.Transition(ctx, id, func(j *Job) error {
		if j.Status != StatusProcessing {
			return errStale
		}
		j.Status = StatusCompleted
		j.Progress = 100
		j.Stage = "done"
		j.Result = result
		j.CompletedAt = s.now()
		return nil
	})
	if err != nil {
		s.log.Warn().Err(err).Str("job_id", id).Msg("completed proof discarded")
		return
	}

	s.log.Info().
		Str("job_id", id).
		Str("type", string(job.Type)).
		Dur("elapsed", elapsed).
		Msg("proof job completed")
	s.finish(job.Type, StatusCompleted, elapsed)
}

// run produces the job result. The input was shape-validated at submission,
// so decode failures here indicate store corruption and fail the job.
func (s *Scheduler) run(ctx context.Context, job *Job) (*Result, error) {
	commitment, err := vaultcrypto.DecodeHex32(job.Input.Commitment)
	if err != nil {
		return nil, fmt.Errorf("decode commitment: %w", err)
	}
	secret, err := vaultcrypto.DecodeHex32(job.Input.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}
	nullifier, err := vaultcrypto.Nullifier(commitment, secret)
	if err != nil {
		return nil, fmt.Errorf("derive nullifier: %w", err)
	}

	s.update(ctx, job.ID, 25, "computing witness")
	wit, err := s.witness.Witness(ctx, commitment)
	if err != nil {
		return nil, fmt.Errorf("resolve merkle witness: %w", err)
	}

	req := ProveRequest{
		Type:          job.Type,
		Root:          wit.Root,
		NullifierHash: hex.EncodeToString(nullifier),
		Recipient:     job.Input.Recipient,
		Amount:        job.Amount,
		Secret:        job.Input.Secret,
		PathElements:  wit.PathElements,
		PathIndices:   wit.PathIndices,
	}

	result := &Result{Nullifier: req.NullifierHash}

	if job.Type == JobTypeTransfer {
		// The new note belongs to the recipient: derive a fresh secret and
		// commit the same amount to it inside the pool.
		recipientSecret, err := vaultcrypto.NewSecret()
		if err != nil {
			return nil, fmt.Errorf("derive recipient secret: %w", err)
		}
		newCommitment, err := vaultcrypto.Commitment(job.Amount, recipientSecret)
		if err != nil {
			return nil, fmt.Errorf("derive new commitment: %w", err)
		}
		req.NewCommitment = hex.EncodeToString(newCommitment)
		result.NewCommitment = req.NewCommitment
		result.RecipientSecret = hex.EncodeToString(recipientSecret)
	}

	s.update(ctx, job.ID, 50, "generating proof")
	res, err := s.prover.Prove(ctx, req)
	if err != nil {
		return nil, err
	}

	s.update(ctx, job.ID, 90, "encoding proof")
	result.Proof = res.ProofBytes
	if res.NullifierHash != "" {
		result.Nullifier = res.NullifierHash
	}
	return result, nil
}

// update publishes stage/progress. Progress only moves forward and only
// while the job is still processing.
func (s *Scheduler) update(ctx context.Context, id string, progress int, stage string) {
	_, _ = s.store.Transition(ctx, id, func(j *Job) error {
		if j.Status != StatusProcessing {
			return errStale
		}
		if progress > j.Progress {
			j.Progress = progress
		}
		j.Stage = stage
		return nil
	})
}

func (s *Scheduler) fail(id, code, message string) {
	_, _ = s.store.Transition(context.Background(), id, func(j *Job) error {
		if j.Status.Terminal() {
			return errStale
		}
		j.Status = StatusFailed
		j.Error = &JobError{Code: code, Message: message}
		j.CompletedAt = s.now()
		return nil
	})
}

func (s *Scheduler) finish(jobType JobType, status JobStatus, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.JobsFinished.WithLabelValues(string(jobType), string(status)).Inc()
	s.metrics.ProofDuration.Observe(elapsed.Seconds())
}

// reaperLoop force-fails jobs stuck in processing past the ceiling, covering
// the case of a prover that ignores its context deadline.
func (s *Scheduler) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reapStuck(ctx)
		}
	}
}

func (s *Scheduler) reapStuck(ctx context.Context) {
	jobs, err := s.store.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("reaper failed to list jobs")
		return
	}

	ceiling := s.cfg.JobTimeout + s.cfg.ReapInterval
	for _, job := range jobs {
		if job.Status != StatusProcessing || job.StartedAt.IsZero() {
			continue
		}
		if s.now().Sub(job.StartedAt) <= ceiling {
			continue
		}
		s.log.Warn().
			Str("job_id", job.ID).
			Time("started_at", job.StartedAt).
			Msg("force-failing stuck proof job")
		s.fail(job.ID, "timeout", "proof generation exceeded the processing ceiling")
		s.finish(job.Type, StatusFailed, s.now().Sub(job.StartedAt))
	}
}

func classifyProverError(err error) string {
	switch {
	case errors.Is(err, ErrProverTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrProverMalformed):
		return "malformed_output"
	case errors.Is(err, ErrProverUnavailable):
		return "prover_unavailable"
	case errors.Is(err, ErrProverExit):
		return "nonzero_exit"
	default:
		return "proof_failed"
	}
}
