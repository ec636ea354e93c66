// Package prover implements proofs.Prover over the snarkjs-based generator
// process. Each invocation is single-shot and stateless: the request goes in
// as JSON on stdin, the proof comes back as JSON on stdout.
package prover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/proofs"
)

var _ proofs.Prover = (*Subprocess)(nil)

const maxStderrExcerpt = 4096

// Config locates the generator process.
type Config struct {
	// Command is the interpreter binary, typically "node".
	Command string `mapstructure:"command" yaml:"command"`
	// Script is the path to the proof generator script.
	Script string `mapstructure:"script" yaml:"script"`
	// WorkDir is the working directory for the process (circuit artifacts
	// are resolved relative to it).
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
	// Timeout is the hard wall-clock ceiling per invocation.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Command: "node",
		Script:  "circuits/generate_proof.js",
		Timeout: 60 * time.Second,
	}
}

// Subprocess shells out to the generator for every proof.
type Subprocess struct {
	cfg Config
	log zerolog.Logger
}

// NewSubprocess validates the configuration and returns the adapter.
func NewSubprocess(cfg Config, log zerolog.Logger) (*Subprocess, error) {
	if strings.TrimSpace(cfg.Script) == "" {
		return nil, errors.New("prover script path is required")
	}
	if cfg.Command == "" {
		cfg.Command = DefaultConfig().Command
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	logger := log.With().Str("component", "prover").Logger()
	logger.Info().
		Str("command", cfg.Command).
		Str("script", cfg.Script).
		Dur("timeout", cfg.Timeout).
		Msg("subprocess prover initialized")

	return &Subprocess{cfg: cfg, log: logger}, nil
}

// generatorInput mirrors the generator script's stdin schema. Amount is a
// decimal string so the script never sees a float.
type generatorInput struct {
	Root          string   `json:"root"`
	NullifierHash string   `json:"nullifierHash"`
	Recipient     string   `json:"recipient"`
	Amount        string   `json:"amount"`
	Secret        string   `json:"secret"`
	PathElements  []string `json:"pathElements"`
	PathIndices   []int    `json:"pathIndices"`
	NewCommitment string   `json:"newCommitment,omitempty"`
}

type generatorOutput struct {
	ProofBytes   string            `json:"proofBytes"`
	PublicInputs map[string]string `json:"publicInputs"`
}

// Prove runs the generator once. Any output that is not well-formed JSON
// with a proof is reported as a typed failure, never as a raw parse error.
func (p *Subprocess) Prove(ctx context.Context, req proofs.ProveRequest) (proofs.ProveResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	input := generatorInput{
		Root:          req.Root,
		NullifierHash: req.NullifierHash,
		Recipient:     req.Recipient,
		Amount:        strconv.FormatUint(req.Amount, 10),
		Secret:        req.Secret,
		PathElements:  req.PathElements,
		PathIndices:   req.PathIndices,
		NewCommitment: req.NewCommitment,
	}
	body, err := json.Marshal(input)
	if err != nil {
		return proofs.ProveResult{}, fmt.Errorf("marshal generator input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, p.cfg.Command, p.cfg.Script)
	cmd.Dir = p.cfg.WorkDir
	cmd.Stdin = bytes.NewReader(body)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started)

	if runCtx.Err() == context.DeadlineExceeded {
		p.log.Warn().Dur("elapsed", elapsed).Msg("proof generation timed out")
		return proofs.ProveResult{}, fmt.Errorf("after %s: %w", elapsed.Round(time.Millisecond), proofs.ErrProverTimeout)
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return proofs.ProveResult{}, fmt.Errorf("%s not found: %w", p.cfg.Command, proofs.ErrProverUnavailable)
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			excerpt := stderrExcerpt(&stderr)
			p.log.Error().
				Int("exit_code", exitErr.ExitCode()).
				Str("stderr", excerpt).
				Msg("proof generator failed")
			return proofs.ProveResult{}, fmt.Errorf("exit %d: %s: %w", exitErr.ExitCode(), excerpt, proofs.ErrProverExit)
		}
		return proofs.ProveResult{}, fmt.Errorf("run generator: %w: %v", proofs.ErrProverUnavailable, runErr)
	}

	var out generatorOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		p.log.Error().Err(err).Msg("generator produced unparsable output")
		return proofs.ProveResult{}, fmt.Errorf("decode generator output: %w", proofs.ErrProverMalformed)
	}
	if out.ProofBytes == "" {
		return proofs.ProveResult{}, fmt.Errorf("generator output missing proofBytes: %w", proofs.ErrProverMalformed)
	}

	result := proofs.ProveResult{
		ProofBytes:    out.ProofBytes,
		NullifierHash: out.PublicInputs["nullifierHash"],
		PublicInputs:  out.PublicInputs,
	}

	p.log.Debug().
		Dur("elapsed", elapsed).
		Int("proof_bytes", len(out.ProofBytes)/2).
		Msg("proof generated")

	return result, nil
}

func stderrExcerpt(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if len(s) > maxStderrExcerpt {
		s = s[:maxStderrExcerpt]
	}
	if s == "" {
		return "no error output"
	}
	return s
}
