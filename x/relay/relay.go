// Package relay implements the relay gate: it validates that a proof job is
// complete and unconsumed, extracts its proof material, and submits the
// resulting transaction through the relayer keypair so the depositor's
// wallet never appears on-chain.
package relay

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/proofs"
	"github.com/whalevault/relayd/x/vaultcrypto"
	"github.com/whalevault/relayd/x/vaulterr"
)

const feeDenominator = 10_000

// errAlreadyRelayed aborts the consumption transition for a job whose proof
// was relayed before.
var errAlreadyRelayed = errors.New("proof job already relayed")

// UnshieldOutcome reports a successful unshield relay.
type UnshieldOutcome struct {
	Signature  string
	Fee        uint64
	AmountSent uint64
	Recipient  string
}

// TransferOutcome reports a successful transfer relay. RecipientSecret and
// NewCommitment must reach the recipient off-chain; they are required to
// later unshield the transferred note.
type TransferOutcome struct {
	Signature       string
	Fee             uint64
	RecipientSecret string
	NewCommitment   string
	Amount          uint64
	Recipient       string
}

// Info describes the relayer for client display.
type Info struct {
	Enabled   bool
	PublicKey string
	FeeBps    uint64
	Balance   uint64
}

// Service is the relay gate.
type Service struct {
	cfg       Config
	store     proofs.Store
	submitter Submitter
	log       zerolog.Logger
	metrics   *Metrics
}

// New wires the gate against the job store and the submitting keypair.
func New(cfg Config, store proofs.Store, submitter Submitter, log zerolog.Logger) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		submitter: submitter,
		log:       log.With().Str("component", "relay-gate").Logger(),
	}
	if cfg.MetricsEnabled {
		s.metrics = NewMetrics()
	}
	return s
}

// Enabled reports whether relaying is administratively on.
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Info returns relayer details. Balance is best-effort and reports zero when
// the ledger cannot be reached.
func (s *Service) Info(ctx context.Context) Info {
	var balance uint64
	if b, err := s.submitter.Balance(ctx); err == nil {
		balance = b
	} else {
		s.log.Warn().Err(err).Msg("relayer balance unavailable, reporting zero")
	}
	return Info{
		Enabled:   s.cfg.Enabled,
		PublicKey: s.submitter.PublicKey(),
		FeeBps:    s.cfg.FeeBps,
		Balance:   balance,
	}
}

// RelayUnshield submits a completed unshield proof. The recipient given here
// is authoritative over the job's original input: it lets the relayer route
// funds to a fresh identity supplied out-of-band.
func (s *Service) RelayUnshield(ctx context.Context, jobID, recipient string) (*UnshieldOutcome, error) {
	if !s.cfg.Enabled {
		return nil, vaulterr.RelayerUnavailable("relayer service is currently disabled")
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, proofs.ErrJobNotFound) {
			return nil, vaulterr.NotFound("proof job not found").WithDetail("job_id", jobID)
		}
		return nil, vaulterr.Internal("failed to read proof job").WithCause(err)
	}

	if job.Status != proofs.StatusCompleted {
		return nil, vaulterr.Validation("proof job not complete (status: %s)", job.Status)
	}
	if job.Result == nil {
		return nil, vaulterr.Internal("proof result missing")
	}
	if job.Result.Proof == "" || job.Result.Nullifier == "" {
		return nil, vaulterr.Internal("proof or nullifier missing from job result")
	}

	proofBytes, nullifierBytes, err := decodeProofMaterial(job.Result.Proof, job.Result.Nullifier)
	if err != nil {
		return nil, vaulterr.Internal("corrupt proof material in job result").WithCause(err)
	}

	if err := s.consume(ctx, jobID); err != nil {
		return nil, err
	}

	fee := job.Amount * s.cfg.FeeBps / feeDenominator
	sub := UnshieldSubmission{
		Nullifier:    nullifierBytes,
		Recipient:    recipient,
		Amount:       job.Amount,
		Fee:          fee,
		Proof:        proofBytes,
		Denomination: job.Denomination,
	}

	signature, err := s.submitter.SubmitUnshield(ctx, sub)
	if err != nil {
		s.release(ctx, jobID)
		s.count("unshield", "failed")
		return nil, relayFailure(err)
	}

	s.count("unshield", "submitted")
	s.log.Info().
		Str("job_id", jobID).
		Str("signature", signature).
		Uint64("amount", job.Amount).
		Uint64("fee", fee).
		Msg("unshield relayed")

	return &UnshieldOutcome{
		Signature:  signature,
		Fee:        fee,
		AmountSent: job.Amount - fee,
		Recipient:  recipient,
	}, nil
}

// RelayTransfer submits a completed transfer proof. The job type is checked
// before completion state: an unshield job is rejected on type alone, even
// when fully complete.
func (s *Service) RelayTransfer(ctx context.Context, jobID, recipient string) (*TransferOutcome, error) {
	if !s.cfg.Enabled {
		return nil, vaulterr.RelayerUnavailable("relayer service is currently disabled")
	}

	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, proofs.ErrJobNotFound) {
			return nil, vaulterr.NotFound("proof job not found").WithDetail("job_id", jobID)
		}
		return nil, vaulterr.Internal("failed to read proof job").WithCause(err)
	}

	if job.Type != proofs.JobTypeTransfer {
		return nil, vaulterr.Validation("invalid job type - expected transfer proof job")
	}
	if job.Status != proofs.StatusCompleted {
		return nil, vaulterr.Validation("proof job not complete (status: %s)", job.Status)
	}
	if job.Result == nil {
		return nil, vaulterr.Internal("proof result missing")
	}
	if job.Result.Proof == "" || job.Result.Nullifier == "" ||
		job.Result.NewCommitment == "" || job.Result.RecipientSecret == "" {
		return nil, vaulterr.Internal("transfer proof data incomplete")
	}

	proofBytes, nullifierBytes, err := decodeProofMaterial(job.Result.Proof, job.Result.Nullifier)
	if err != nil {
		return nil, vaulterr.Internal("corrupt proof material in job result").WithCause(err)
	}
	newCommitment, err := vaultcrypto.DecodeHex32(job.Result.NewCommitment)
	if err != nil {
		return nil, vaulterr.Internal("corrupt proof material in job result").WithCause(err)
	}

	if err := s.consume(ctx, jobID); err != nil {
		return nil, err
	}

	sub := TransferSubmission{
		Nullifier:     nullifierBytes,
		NewCommitment: newCommitment,
		Proof:         proofBytes,
		Denomination:  job.Denomination,
	}

	signature, err := s.submitter.SubmitTransfer(ctx, sub)
	if err != nil {
		s.release(ctx, jobID)
		s.count("transfer", "failed")
		return nil, relayFailure(err)
	}

	s.count("transfer", "submitted")
	s.log.Info().
		Str("job_id", jobID).
		Str("signature", signature).
		Uint64("amount", job.Amount).
		Msg("transfer relayed")

	// Value never leaves the pool on a transfer, so the fee is zero by
	// protocol, not by relayer policy.
	return &TransferOutcome{
		Signature:       signature,
		Fee:             0,
		RecipientSecret: job.Result.RecipientSecret,
		NewCommitment:   job.Result.NewCommitment,
		Amount:          job.Amount,
		Recipient:       recipient,
	}, nil
}

// consume reserves the job for this relay attempt. The reservation runs as a
// store transition, so two concurrent relays against the same job can never
// both reach the submitter.
func (s *Service) consume(ctx context.Context, jobID string) error {
	_, err := s.store.Transition(ctx, jobID, func(j *proofs.Job) error {
		if j.Consumed() {
			return errAlreadyRelayed
		}
		j.ConsumedAt = time.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyRelayed) {
			s.count("any", "replayed")
			return vaulterr.Validation("proof job already relayed").WithDetail("job_id", jobID)
		}
		return vaulterr.Internal("failed to reserve proof job").WithCause(err)
	}
	return nil
}

// release returns the reservation after a failed submission so the caller
// may retry the relay.
func (s *Service) release(ctx context.Context, jobID string) {
	_, err := s.store.Transition(ctx, jobID, func(j *proofs.Job) error {
		j.ConsumedAt = time.Time{}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("failed to release relay reservation")
	}
}

func (s *Service) count(relayType, status string) {
	if s.metrics != nil {
		s.metrics.RelaysTotal.WithLabelValues(relayType, status).Inc()
	}
}

func decodeProofMaterial(proofHex, nullifierHex string) (proofBytes, nullifierBytes []byte, err error) {
	proofBytes, err = hex.DecodeString(proofHex)
	if err != nil {
		return nil, nil, fmt.Errorf("proof: %w", err)
	}
	nullifierBytes, err = vaultcrypto.DecodeHex32(nullifierHex)
	if err != nil {
		return nil, nil, fmt.Errorf("nullifier: %w", err)
	}
	return proofBytes, nullifierBytes, nil
}

// relayFailure surfaces typed relayer errors as-is and hides everything else
// behind a generic relay failure.
func relayFailure(err error) error {
	var verr *vaulterr.Error
	if errors.As(err, &verr) {
		return verr
	}
	return vaulterr.Relayer("relay failed").WithCause(err)
}
