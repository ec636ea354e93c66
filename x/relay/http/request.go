package http

// relayReq is the JSON schema for both relay submission routes.
type relayReq struct {
	JobID     string `json:"job_id"`
	Recipient string `json:"recipient"`
}

// infoResp describes the relayer for clients picking a relay path.
type infoResp struct {
	Enabled   bool   `json:"enabled"`
	PublicKey string `json:"publicKey"`
	FeeBps    uint64 `json:"feeBps"`
	Balance   uint64 `json:"balance"`
}

type unshieldResp struct {
	Signature  string `json:"signature"`
	Fee        uint64 `json:"fee"`
	AmountSent uint64 `json:"amountSent"`
	Recipient  string `json:"recipient"`
}

type transferResp struct {
	Signature       string `json:"signature"`
	Fee             uint64 `json:"fee"`
	RecipientSecret string `json:"recipientSecret"`
	NewCommitment   string `json:"newCommitment"`
	Amount          uint64 `json:"amount"`
	Recipient       string `json:"recipient"`
}
