package ledger

import (
	"context"
	"encoding/base64"
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/relay"
	"github.com/whalevault/relayd/x/vaulterr"
)

// Instruction tags understood by the shielded-pool program.
const (
	instructionUnshield byte = 2
	instructionTransfer byte = 3
)

// Submitter signs shielded-pool transactions with the relayer keypair and
// submits them through the RPC client.
type Submitter struct {
	client    *Client
	keypair   *Keypair
	programID string
	log       zerolog.Logger
}

var _ relay.Submitter = (*Submitter)(nil)

func NewSubmitter(client *Client, keypair *Keypair, programID string, log zerolog.Logger) *Submitter {
	return &Submitter{
		client:    client,
		keypair:   keypair,
		programID: programID,
		log:       log.With().Str("component", "ledger-submitter").Logger(),
	}
}

// SubmitUnshield implements relay.Submitter.
func (s *Submitter) SubmitUnshield(ctx context.Context, sub relay.UnshieldSubmission) (string, error) {
	data := make([]byte, 0, 1+32+8+8+8+len(sub.Recipient)+1+len(sub.Proof))
	data = append(data, instructionUnshield)
	data = append(data, sub.Nullifier...)
	data = binary.LittleEndian.AppendUint64(data, sub.Amount)
	data = binary.LittleEndian.AppendUint64(data, sub.Fee)
	data = binary.LittleEndian.AppendUint64(data, sub.Denomination)
	data = append(data, byte(len(sub.Recipient)))
	data = append(data, []byte(sub.Recipient)...)
	data = append(data, sub.Proof...)

	sig, err := s.submit(ctx, data)
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("signature", sig).
		Uint64("amount", sub.Amount).
		Uint64("fee", sub.Fee).
		Msg("unshield transaction submitted")
	return sig, nil
}

// SubmitTransfer implements relay.Submitter.
func (s *Submitter) SubmitTransfer(ctx context.Context, sub relay.TransferSubmission) (string, error) {
	data := make([]byte, 0, 1+32+32+8+len(sub.Proof))
	data = append(data, instructionTransfer)
	data = append(data, sub.Nullifier...)
	data = append(data, sub.NewCommitment...)
	data = binary.LittleEndian.AppendUint64(data, sub.Denomination)
	data = append(data, sub.Proof...)

	sig, err := s.submit(ctx, data)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("signature", sig).Msg("transfer transaction submitted")
	return sig, nil
}

// submit builds, signs and sends one transaction carrying a single program
// instruction.
func (s *Submitter) submit(ctx context.Context, instructionData []byte) (string, error) {
	blockhash, err := s.client.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}

	message := s.buildMessage(blockhash, instructionData)
	signature := s.keypair.Sign(message)

	tx := make([]byte, 0, 1+len(signature)+len(message))
	tx = append(tx, 1) // signature count
	tx = append(tx, signature...)
	tx = append(tx, message...)

	sig, err := s.client.SendTransaction(ctx, base64.StdEncoding.EncodeToString(tx))
	if err != nil {
		return "", relayRPCError(err)
	}
	return sig, nil
}

// buildMessage serializes the transaction message: fee payer, recent
// blockhash, program id and the instruction payload.
func (s *Submitter) buildMessage(blockhash string, instructionData []byte) []byte {
	payer := s.keypair.PublicKeyBytes()

	msg := make([]byte, 0, len(payer)+len(blockhash)+len(s.programID)+len(instructionData)+8)
	msg = append(msg, payer...)
	msg = append(msg, byte(len(blockhash)))
	msg = append(msg, []byte(blockhash)...)
	msg = append(msg, byte(len(s.programID)))
	msg = append(msg, []byte(s.programID)...)
	msg = binary.LittleEndian.AppendUint64(msg, uint64(len(instructionData)))
	msg = append(msg, instructionData...)
	return msg
}

// PublicKey implements relay.Submitter.
func (s *Submitter) PublicKey() string {
	return s.keypair.PublicKey()
}

// Balance implements relay.Submitter.
func (s *Submitter) Balance(ctx context.Context) (uint64, error) {
	return s.client.Balance(ctx, s.keypair.PublicKey())
}

// relayRPCError keeps typed errors intact while flagging send failures as
// relayer problems rather than generic internals.
func relayRPCError(err error) error {
	if verr, ok := err.(*vaulterr.Error); ok {
		return verr
	}
	return vaulterr.Relayer("transaction submission failed").WithCause(err)
}
