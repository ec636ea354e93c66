package proofs

import (
	"context"
	"errors"
)

// Prover turns a witness-complete request into Groth16 proof material. The
// concrete transport (subprocess, in-process, remote) lives behind this
// interface; implementations enforce their own wall-clock timeout.
type Prover interface {
	Prove(ctx context.Context, req ProveRequest) (ProveResult, error)
}

// Typed prover failures. Implementations wrap these so the worker can
// classify a failure without knowing the transport.
var (
	ErrProverTimeout     = errors.New("proof generation timed out")
	ErrProverMalformed   = errors.New("malformed prover output")
	ErrProverUnavailable = errors.New("prover unavailable")
	ErrProverExit        = errors.New("prover exited with non-zero status")
)

// ProveRequest is the prover input contract. All hash-sized fields are bare
// hex. NewCommitment is set for transfer proofs only.
type ProveRequest struct {
	Type          JobType  `json:"type"`
	Root          string   `json:"root"`
	NullifierHash string   `json:"nullifierHash"`
	Recipient     string   `json:"recipient"`
	Amount        uint64   `json:"amount"`
	Secret        string   `json:"secret"`
	PathElements  []string `json:"pathElements"`
	PathIndices   []int    `json:"pathIndices"`
	NewCommitment string   `json:"newCommitment,omitempty"`
}

// ProveResult is the prover output: serialized proof bytes ready for
// on-chain verification plus the public inputs the circuit exposed.
type ProveResult struct {
	ProofBytes    string            `json:"proofBytes"`
	NullifierHash string            `json:"nullifierHash"`
	PublicInputs  map[string]string `json:"publicInputs"`
}

// Witness locates a commitment inside the on-chain commitment tree.
type Witness struct {
	Root         string   `json:"root"`
	PathElements []string `json:"pathElements"`
	PathIndices  []int    `json:"pathIndices"`
}

// WitnessSource resolves the merkle witness for a deposited commitment.
type WitnessSource interface {
	Witness(ctx context.Context, commitment []byte) (Witness, error)
}
