package prover

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/whalevault/relayd/x/proofs"
)

// writeScript drops a shell script standing in for the node generator.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "generate_proof.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newSubprocess(t *testing.T, script string, timeout time.Duration) *Subprocess {
	t.Helper()
	p, err := NewSubprocess(Config{Command: "/bin/sh", Script: script, Timeout: timeout}, zerolog.New(io.Discard))
	require.NoError(t, err)
	return p
}

func testRequest() proofs.ProveRequest {
	return proofs.ProveRequest{
		Type:          proofs.JobTypeUnshield,
		Root:          strings.Repeat("33", 32),
		NullifierHash: strings.Repeat("44", 32),
		Recipient:     strings.Repeat("R", 44),
		Amount:        2_000_000,
		Secret:        strings.Repeat("22", 32),
		PathElements:  []string{strings.Repeat("00", 32)},
		PathIndices:   []int{0},
	}
}

func TestNewSubprocess_RequiresScript(t *testing.T) {
	_, err := NewSubprocess(Config{}, zerolog.New(io.Discard))
	require.Error(t, err)
}

func TestProve_ParsesGeneratorOutput(t *testing.T) {
	script := writeScript(t,
		`cat >/dev/null; echo '{"proofBytes":"`+strings.Repeat("ab", 256)+`","publicInputs":{"nullifierHash":"`+strings.Repeat("44", 32)+`","root":"`+strings.Repeat("33", 32)+`"}}'`)
	p := newSubprocess(t, script, 10*time.Second)

	res, err := p.Prove(t.Context(), testRequest())
	require.NoError(t, err)
	require.Len(t, res.ProofBytes, 512)
	require.Equal(t, strings.Repeat("44", 32), res.NullifierHash)
	require.Equal(t, strings.Repeat("33", 32), res.PublicInputs["root"])
}

func TestProve_Timeout(t *testing.T) {
	script := writeScript(t, `sleep 30`)
	p := newSubprocess(t, script, 100*time.Millisecond)

	_, err := p.Prove(t.Context(), testRequest())
	require.ErrorIs(t, err, proofs.ErrProverTimeout)
}

func TestProve_MalformedOutput(t *testing.T) {
	script := writeScript(t, `cat >/dev/null; echo 'this is not json'`)
	p := newSubprocess(t, script, 10*time.Second)

	_, err := p.Prove(t.Context(), testRequest())
	require.ErrorIs(t, err, proofs.ErrProverMalformed)
}

func TestProve_MissingProofBytes(t *testing.T) {
	script := writeScript(t, `cat >/dev/null; echo '{"publicInputs":{}}'`)
	p := newSubprocess(t, script, 10*time.Second)

	_, err := p.Prove(t.Context(), testRequest())
	require.ErrorIs(t, err, proofs.ErrProverMalformed)
}

func TestProve_NonZeroExit(t *testing.T) {
	script := writeScript(t, `cat >/dev/null; echo 'witness mismatch' >&2; exit 3`)
	p := newSubprocess(t, script, 10*time.Second)

	_, err := p.Prove(t.Context(), testRequest())
	require.ErrorIs(t, err, proofs.ErrProverExit)
	require.Contains(t, err.Error(), "witness mismatch")
}

func TestProve_CommandUnavailable(t *testing.T) {
	p, err := NewSubprocess(Config{Command: "definitely-not-a-binary-7f3a", Script: "x.js", Timeout: time.Second}, zerolog.New(io.Discard))
	require.NoError(t, err)

	_, err = p.Prove(t.Context(), testRequest())
	require.ErrorIs(t, err, proofs.ErrProverUnavailable)
}
