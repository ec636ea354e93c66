package relay

import "context"

// UnshieldSubmission is the payload handed to the ledger for a withdrawal.
// Fee stays with the relayer; Amount-Fee reaches the recipient.
type UnshieldSubmission struct {
	Nullifier    []byte
	Recipient    string
	Amount       uint64
	Fee          uint64
	Proof        []byte
	Denomination uint64
}

// TransferSubmission replaces one commitment with another inside the pool.
// No value leaves the pool, so there is no recipient account and no fee.
type TransferSubmission struct {
	Nullifier     []byte
	NewCommitment []byte
	Proof         []byte
	Denomination  uint64
}

// Submitter signs and submits shielded-pool transactions with the relayer's
// keypair. Implementations own their signing serialization; the gate may call
// them concurrently.
type Submitter interface {
	SubmitUnshield(ctx context.Context, sub UnshieldSubmission) (signature string, err error)
	SubmitTransfer(ctx context.Context, sub TransferSubmission) (signature string, err error)
	PublicKey() string
	Balance(ctx context.Context) (uint64, error)
}
