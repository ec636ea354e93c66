// Package pool exposes shielded-pool statistics parsed from the on-chain
// pool account.
package pool

import (
	"context"
	"encoding/binary"

	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/x/ledger"
)

// poolAccountSize selects the pool state account among the program's
// accounts.
const poolAccountSize = 256

// Stats summarizes the shielded pool for public display.
type Stats struct {
	TotalValueLocked uint64
	TotalDeposits    uint64
	AnonymitySetSize uint64
}

// Service reads pool state from the cluster. Failures degrade to zeroed
// stats; the endpoint never errors on a cold or unreachable pool.
type Service struct {
	client    *ledger.Client
	programID string
	log       zerolog.Logger
}

func NewService(client *ledger.Client, programID string, log zerolog.Logger) *Service {
	return &Service{
		client:    client,
		programID: programID,
		log:       log.With().Str("component", "pool-stats").Logger(),
	}
}

// Status returns the current pool statistics.
func (s *Service) Status(ctx context.Context) Stats {
	accounts, err := s.client.ProgramAccounts(ctx, s.programID, poolAccountSize)
	if err != nil {
		s.log.Warn().Err(err).Msg("pool account unavailable, reporting zeros")
		return Stats{}
	}
	if len(accounts) == 0 {
		return Stats{}
	}
	return parsePoolAccount(accounts[0])
}

// parsePoolAccount reads the pool state layout: an 8-byte discriminator
// followed by three little-endian u64 counters.
func parsePoolAccount(data []byte) Stats {
	if len(data) < 32 {
		return Stats{}
	}
	return Stats{
		TotalValueLocked: binary.LittleEndian.Uint64(data[8:16]),
		TotalDeposits:    binary.LittleEndian.Uint64(data[16:24]),
		AnonymitySetSize: binary.LittleEndian.Uint64(data[24:32]),
	}
}
