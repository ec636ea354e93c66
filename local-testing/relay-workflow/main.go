// Command relay-workflow drives a running relayer through a YAML-scripted
// sequence of API calls. It is a local smoke-test harness, not part of the
// service itself.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL    = "http://127.0.0.1:8080"
	defaultSendTimeout  = 10 * time.Second
	defaultJobWaitLimit = 2 * time.Minute
	defaultPollInterval = 500 * time.Millisecond
)

var errMissingConfigPath = errors.New("missing required flag: -config")

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		d.Duration = 0
		return nil
	}

	switch value.Tag {
	case "!!int":
		secs, err := strconv.ParseInt(value.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = time.Duration(secs) * time.Second
	case "!!str", "":
		if value.Value == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("unsupported duration type tag %q", value.Tag)
	}
	return nil
}

type config struct {
	ServerURL string       `yaml:"server_url"`
	Actions   []actionSpec `yaml:"actions"`
}

type actionSpec struct {
	Type string `yaml:"type"`

	Amount       uint64 `yaml:"amount"`
	Secret       string `yaml:"secret"`
	Recipient    string `yaml:"recipient"`
	Denomination uint64 `yaml:"denomination"`
	JobID        string `yaml:"job_id"`

	Duration duration `yaml:"duration"`
	Timeout  duration `yaml:"timeout"`
}

// session carries state between actions: the secret and commitment from the
// last submission and the job ID it produced, so later steps can reference
// them without repeating values in the YAML.
type session struct {
	mu         sync.Mutex
	secret     string
	commitment string
	jobID      string
}

func (s *session) recordSubmission(secret, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = secret
	s.jobID = jobID
}

func (s *session) lastJobID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobID, s.jobID != ""
}

func main() {
	cfgPath := flag.String("config", "", "Path to YAML file describing the workflow")
	flag.Parse()

	if *cfgPath == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, errMissingConfigPath)
		os.Exit(2)
	}

	cfg, err := loadConfig(*cfgPath, os.ReadFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string, reader func(string) ([]byte, error)) (config, error) {
	data, err := reader(path)
	if err != nil {
		return config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if len(cfg.Actions) == 0 {
		return config{}, errors.New("config must include at least one action")
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config) error {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	api := &apiClient{
		baseURL: cfg.ServerURL,
		http:    &http.Client{Timeout: defaultSendTimeout},
	}
	sess := &session{}

	logger.Info().Str("server", cfg.ServerURL).Msg("starting relay workflow")

	for idx, action := range cfg.Actions {
		logger := logger.With().Int("step", idx+1).Str("action", action.Type).Logger()

		var err error
		switch action.Type {
		case "submit-unshield", "submit_unshield":
			err = executeSubmit(ctx, api, sess, "/v1/unshield/proof", action, logger)
		case "submit-transfer", "submit_transfer":
			err = executeSubmit(ctx, api, sess, "/v1/transfer/proof", action, logger)
		case "wait-for-job", "wait_for_job":
			err = executeWaitForJob(ctx, api, sess, action, logger)
		case "relay-unshield", "relay_unshield":
			err = executeRelay(ctx, api, sess, "/v1/relay/unshield", action, logger)
		case "relay-transfer", "relay_transfer":
			err = executeRelay(ctx, api, sess, "/v1/relay/transfer", action, logger)
		case "relay-info", "relay_info":
			err = executeGet(ctx, api, "/v1/relay/info", logger)
		case "pool-status", "pool_status":
			err = executeGet(ctx, api, "/v1/pool/status", logger)
		case "health":
			err = executeGet(ctx, api, "/health", logger)
		case "wait", "sleep":
			err = executeWait(action, logger)
		default:
			return fmt.Errorf("action %d: unsupported type %q", idx+1, action.Type)
		}
		if err != nil {
			return fmt.Errorf("action %d (%s): %w", idx+1, action.Type, err)
		}
	}

	logger.Info().Int("steps", len(cfg.Actions)).Msg("workflow complete")
	return nil
}

func executeWait(action actionSpec, logger zerolog.Logger) error {
	if action.Duration.Duration <= 0 {
		return errors.New("wait action requires a positive duration")
	}
	logger.Info().Dur("duration", action.Duration.Duration).Msg("sleeping")
	time.Sleep(action.Duration.Duration)
	return nil
}

func executeSubmit(ctx context.Context, api *apiClient, sess *session, path string, action actionSpec, logger zerolog.Logger) error {
	if action.Amount == 0 {
		return errors.New("submit action requires a positive amount")
	}
	if action.Recipient == "" {
		return errors.New("submit action requires a recipient")
	}

	secret := action.Secret
	if secret == "" {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("generate secret: %w", err)
		}
		secret = hex.EncodeToString(raw)
	}

	commitment, err := api.computeCommitment(ctx, action.Amount, secret)
	if err != nil {
		return err
	}

	body := map[string]any{
		"commitment": commitment,
		"secret":     secret,
		"amount":     action.Amount,
		"recipient":  action.Recipient,
	}
	if action.Denomination > 0 {
		body["denomination"] = action.Denomination
	}

	var resp struct {
		JobID  string `json:"jobId"`
		Status string `json:"status"`
	}
	if err := api.post(ctx, path, body, &resp); err != nil {
		return err
	}

	sess.recordSubmission(secret, resp.JobID)
	logger.Info().
		Str("job_id", resp.JobID).
		Str("status", resp.Status).
		Str("commitment", commitment).
		Msg("proof job submitted")
	return nil
}

func executeWaitForJob(ctx context.Context, api *apiClient, sess *session, action actionSpec, logger zerolog.Logger) error {
	jobID := action.JobID
	if jobID == "" {
		last, ok := sess.lastJobID()
		if !ok {
			return errors.New("wait-for-job has no job_id and no prior submission")
		}
		jobID = last
	}

	limit := action.Timeout.Duration
	if limit <= 0 {
		limit = defaultJobWaitLimit
	}
	waitCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		var status struct {
			Status   string `json:"status"`
			Progress int    `json:"progress"`
			Stage    string `json:"stage"`
		}
		if err := api.get(waitCtx, "/v1/proof/status/"+jobID, &status); err != nil {
			return err
		}

		switch status.Status {
		case "completed":
			logger.Info().Str("job_id", jobID).Msg("proof job completed")
			return nil
		case "failed":
			return fmt.Errorf("proof job %s failed", jobID)
		}

		logger.Info().
			Str("job_id", jobID).
			Str("status", status.Status).
			Int("progress", status.Progress).
			Str("stage", status.Stage).
			Msg("waiting for proof job")

		select {
		case <-waitCtx.Done():
			return fmt.Errorf("proof job %s did not complete within %s", jobID, limit)
		case <-ticker.C:
		}
	}
}

func executeRelay(ctx context.Context, api *apiClient, sess *session, path string, action actionSpec, logger zerolog.Logger) error {
	jobID := action.JobID
	if jobID == "" {
		last, ok := sess.lastJobID()
		if !ok {
			return errors.New("relay action has no job_id and no prior submission")
		}
		jobID = last
	}
	if action.Recipient == "" {
		return errors.New("relay action requires a recipient")
	}

	body := map[string]any{
		"job_id":    jobID,
		"recipient": action.Recipient,
	}

	var resp struct {
		Signature string `json:"signature"`
		Fee       uint64 `json:"fee"`
	}
	if err := api.post(ctx, path, body, &resp); err != nil {
		return err
	}

	logger.Info().
		Str("job_id", jobID).
		Str("signature", resp.Signature).
		Uint64("fee", resp.Fee).
		Msg("relay submitted")
	return nil
}

func executeGet(ctx context.Context, api *apiClient, path string, logger zerolog.Logger) error {
	var payload map[string]any
	if err := api.get(ctx, path, &payload); err != nil {
		return err
	}
	logger.Info().Interface("response", payload).Msg("query ok")
	return nil
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func (c *apiClient) computeCommitment(ctx context.Context, amount uint64, secret string) (string, error) {
	var resp struct {
		Commitment string `json:"commitment"`
	}
	body := map[string]any{"amount": amount, "secret": secret}
	if err := c.post(ctx, "/v1/commitment/compute", body, &resp); err != nil {
		return "", err
	}
	return resp.Commitment, nil
}

func (c *apiClient) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
