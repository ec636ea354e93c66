package ledger

import "time"

// Config points the ledger client at a Solana cluster and the shielded-pool
// program deployed on it.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of the cluster.
	RPCURL string `mapstructure:"rpc_url" yaml:"rpc_url"`
	// ProgramID is the base58 address of the shielded-pool program.
	ProgramID string `mapstructure:"program_id" yaml:"program_id"`
	// KeypairPath locates the relayer keypair file (JSON byte array).
	KeypairPath string `mapstructure:"keypair_path" yaml:"keypair_path"`
	// RPCTimeout bounds every individual RPC call.
	RPCTimeout time.Duration `mapstructure:"rpc_timeout" yaml:"rpc_timeout"`
}

func DefaultConfig() Config {
	return Config{
		RPCURL:      "https://api.devnet.solana.com",
		ProgramID:   "F3NLgP6kebPXSbH2GxGF39cR6uVdbzFD1V7iTgg7Htp4",
		KeypairPath: "relayer-keypair.json",
		RPCTimeout:  10 * time.Second,
	}
}
