package proofs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/gokv"
	"github.com/philippgille/gokv/encoding"
	"github.com/philippgille/gokv/file"
	"github.com/philippgille/gokv/syncmap"
	"github.com/rs/zerolog"
)

var _ Store = (*KVStore)(nil)

// KVStore implements Store over a gokv key-value backend. A single mutex
// serializes all writes, which gives Transition its no-lost-update guarantee;
// the backend only ever sees fully formed jobs, so readers cannot observe a
// torn write.
type KVStore struct {
	mu  sync.RWMutex
	kv  gokv.Store
	ids []string
	log zerolog.Logger
	now func() time.Time
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "syncmap" (default, in-memory) or "file".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Directory backs the file store.
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// NewStore builds a KVStore with the configured backend.
func NewStore(cfg StoreConfig, log zerolog.Logger) (*KVStore, error) {
	kv, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	return &KVStore{
		kv:  kv,
		log: log.With().Str("component", "job-store").Logger(),
		now: time.Now,
	}, nil
}

func openBackend(cfg StoreConfig) (gokv.Store, error) {
	switch cfg.Backend {
	case "", "syncmap":
		return syncmap.NewStore(syncmap.Options{Codec: encoding.JSON}), nil
	case "file":
		store, err := file.NewStore(file.Options{Directory: cfg.Directory, Codec: encoding.JSON})
		if err != nil {
			return nil, fmt.Errorf("file.NewStore: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported job store backend %q", cfg.Backend)
	}
}

func (s *KVStore) Create(_ context.Context, jobType JobType, input JobInput) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := Job{
		ID:           uuid.NewString(),
		Type:         jobType,
		Status:       StatusPending,
		Progress:     0,
		Stage:        "queued",
		Input:        input,
		Amount:       input.Amount,
		Denomination: input.Denomination,
		CreatedAt:    s.now(),
	}

	if err := s.kv.Set(job.ID, job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}
	s.ids = append(s.ids, job.ID)

	s.log.Debug().
		Str("job_id", job.ID).
		Str("type", string(jobType)).
		Uint64("amount", input.Amount).
		Uint64("denomination", input.Denomination).
		Msg("proof job created")

	copied := job
	return &copied, nil
}

func (s *KVStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(id)
}

func (s *KVStore) Transition(_ context.Context, id string, mutate func(*Job) error) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := mutate(job); err != nil {
		return nil, err
	}
	if err := s.kv.Set(id, *job); err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	copied := *job
	return &copied, nil
}

func (s *KVStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.ids))
	for _, id := range s.ids {
		job, err := s.load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func (s *KVStore) Close() error {
	return s.kv.Close()
}

// load fetches a job copy. Callers hold at least the read lock.
func (s *KVStore) load(id string) (*Job, error) {
	var job Job
	found, err := s.kv.Get(id, &job)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	if !found {
		return nil, ErrJobNotFound
	}
	return &job, nil
}
