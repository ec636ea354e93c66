package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/whalevault/relayd/metrics"
	"github.com/whalevault/relayd/relayd-app/config"
	apisrv "github.com/whalevault/relayd/server/api"
	apimw "github.com/whalevault/relayd/server/api/middleware"
	"github.com/whalevault/relayd/x/ledger"
	"github.com/whalevault/relayd/x/pool"
	poolhttp "github.com/whalevault/relayd/x/pool/http"
	"github.com/whalevault/relayd/x/proofs"
	proofshttp "github.com/whalevault/relayd/x/proofs/http"
	"github.com/whalevault/relayd/x/proofs/prover"
	"github.com/whalevault/relayd/x/relay"
	relayhttp "github.com/whalevault/relayd/x/relay/http"
)

// App wires the proof pipeline, the relay gate and the HTTP surface.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	store     proofs.Store
	scheduler *proofs.Scheduler
	rpcClient *ledger.Client
	gate      *relay.Service

	apiServer *apisrv.Server

	cancel context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}

	if err := app.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

// initialize sets up the application components
func (a *App) initialize() error {
	a.rpcClient = ledger.NewClient(a.cfg.Ledger, a.log)

	submitter, err := a.initializeRelayer()
	if err != nil {
		return err
	}

	if err := a.initializePipeline(); err != nil {
		return err
	}

	a.gate = relay.New(a.cfg.Relay, a.store, submitter, a.log)

	return a.initializeAPIServer()
}

// initializeRelayer loads the relayer identity and builds the transaction
// submitter. A disabled relayer still serves /v1/relay/info, so the identity
// is loaded either way when a keypair is configured.
func (a *App) initializeRelayer() (relay.Submitter, error) {
	keypair, err := ledger.LoadKeypair(a.cfg.Ledger.KeypairPath)
	if err != nil {
		if a.cfg.Relay.Enabled {
			return nil, fmt.Errorf("failed to load relayer keypair: %w", err)
		}
		a.log.Warn().Err(err).Msg("relayer keypair unavailable, generating ephemeral identity")
		keypair, err = ledger.GenerateKeypair()
		if err != nil {
			return nil, fmt.Errorf("failed to generate relayer keypair: %w", err)
		}
	}

	a.log.Info().
		Str("public_key", keypair.PublicKey()).
		Bool("enabled", a.cfg.Relay.Enabled).
		Uint64("fee_bps", a.cfg.Relay.FeeBps).
		Msg("relayer identity loaded")

	return ledger.NewSubmitter(a.rpcClient, keypair, a.cfg.Ledger.ProgramID, a.log), nil
}

// initializePipeline builds the job store, the prover and the scheduler.
func (a *App) initializePipeline() error {
	store, err := proofs.NewStore(a.cfg.Proofs.Store, a.log)
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	a.store = store

	zkProver, err := prover.NewSubprocess(a.cfg.Prover, a.log)
	if err != nil {
		return fmt.Errorf("failed to create prover: %w", err)
	}

	witness := ledger.NewWitnessSource(a.rpcClient, a.cfg.Ledger.ProgramID, a.log)

	proofsCfg := a.cfg.Proofs
	proofsCfg.MetricsEnabled = a.cfg.Metrics.Enabled
	a.scheduler = proofs.NewScheduler(proofsCfg, store, zkProver, witness, a.log)
	return nil
}

// initializeAPIServer sets up the HTTP API server with all endpoints
func (a *App) initializeAPIServer() error {
	s := apisrv.NewServer(a.cfg.API, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))
	s.EnableCORS()

	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)

	if a.cfg.Metrics.Enabled {
		path := a.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.Router.Handle(path, promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).
			Methods(http.MethodGet)
	}

	proofshttp.NewHandler(a.scheduler, a.log).RegisterMux(s.Router)
	relayhttp.NewHandler(a.gate, a.log).RegisterMux(s.Router)

	poolSvc := pool.NewService(a.rpcClient, a.cfg.Ledger.ProgramID, a.log)
	poolhttp.NewHandler(poolSvc, a.log).RegisterMux(s.Router)

	a.apiServer = s
	return nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.scheduler.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start proof scheduler: %w", err)
	}

	go func() {
		if err := a.apiServer.Start(runCtx); err != nil {
			a.log.Error().Err(err).Msg("API server error")
		}
	}()

	return a.runWithGracefulShutdown(runCtx)
}

// runWithGracefulShutdown handles shutdown signals.
func (a *App) runWithGracefulShutdown(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	a.log.Info().Msg("WhaleVault relayer started successfully")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("Context canceled, initiating shutdown")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	if a.cancel != nil {
		a.cancel()
	}

	return a.shutdown()
}

// shutdown drains the pipeline and closes the store.
func (a *App) shutdown() error {
	a.log.Info().Msg("Initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("Proof scheduler shutdown error")
	}

	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("Job store shutdown error")
	}

	a.log.Info().Msg("Graceful shutdown complete")
	return nil
}

// handleHealth probes cluster connectivity and reports API liveness either
// way: a broken RPC degrades the status, it does not fail the endpoint.
func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	probeCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	connected := true
	var latencyMs float64

	latency, err := a.rpcClient.Health(probeCtx)
	if err != nil {
		status = "degraded"
		connected = false
	} else {
		latencyMs = float64(latency.Microseconds()) / 1000
	}

	apisrv.WriteJSON(w, http.StatusOK, map[string]any{
		"status":           status,
		"version":          Version,
		"solanaConnection": connected,
		"rpcLatency":       latencyMs,
		"programId":        a.cfg.Ledger.ProgramID,
	})
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := a.scheduler.Stats(r.Context())
	stats["relay_enabled"] = a.cfg.Relay.Enabled
	stats["app_version"] = Version
	stats["app_build_time"] = BuildTime
	stats["app_git_commit"] = GitCommit

	apisrv.WriteJSON(w, http.StatusOK, stats)
}
