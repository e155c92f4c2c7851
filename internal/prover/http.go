// Package prover implements the ProofProducer port: an HTTP client
// for an external prover service guarded by a circuit breaker and
// exponential-backoff retries, grounded on the original submitter's
// HttpProofProvider.
package prover

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/certen/rollup-submitter/internal/domainerr"
	"github.com/certen/rollup-submitter/internal/metrics"
)

// Config controls HTTP prover timeouts and the circuit breaker policy.
type Config struct {
	BaseURL          string
	RequestTimeout   time.Duration
	MaxElapsedTime   time.Duration
	BreakerThreshold int
	BreakerCoolOff   time.Duration
	// MaxRetries caps the number of backoff attempts in addition to
	// MaxElapsedTime; 0 means no cap (elapsed time alone bounds retries),
	// matching resilience.max_retries being an optional override in config.rs.
	MaxRetries int
}

// DefaultConfig matches the original's threshold=5, cool-off=30s.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:          baseURL,
		RequestTimeout:   15 * time.Second,
		MaxElapsedTime:   30 * time.Second,
		BreakerThreshold: 5,
		BreakerCoolOff:   30 * time.Second,
	}
}

// HTTPProver calls an out-of-process prover service's POST /prove.
type HTTPProver struct {
	client     *http.Client
	baseURL    string
	breaker    *breaker
	elapsed    time.Duration
	maxRetries int
	logger     *log.Logger
}

// NewHTTPProver constructs a prover client from cfg.
func NewHTTPProver(cfg Config) *HTTPProver {
	return &HTTPProver{
		client:     &http.Client{Timeout: cfg.RequestTimeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		breaker:    newBreaker(cfg.BreakerThreshold, cfg.BreakerCoolOff),
		elapsed:    cfg.MaxElapsedTime,
		maxRetries: cfg.MaxRetries,
		logger:     log.New(os.Stdout, "[Prover] ", log.LstdFlags),
	}
}

type proveRequest struct {
	BatchID      string `json:"batch_id"`
	PublicInputs []int  `json:"public_inputs"`
}

type proveResponse struct {
	Proof string `json:"proof"`
}

// GetProof implements orchestrator.ProofProducer. It checks the
// breaker once up front (a single short-circuit, not per-retry), then
// retries transient failures (network errors and 5xx responses) with
// exponential backoff; a 4xx response or an unparseable body is treated
// as permanent and is not retried, matching prover_http.rs's
// backoff::Error::permanent split.
func (p *HTTPProver) GetProof(ctx context.Context, batchID uuid.UUID, publicInputs []byte) ([]byte, error) {
	if err := p.breaker.allow(); err != nil {
		return nil, err
	}

	start := time.Now()
	// public_inputs goes on the wire as a JSON array of byte values.
	inputs := make([]int, len(publicInputs))
	for i, b := range publicInputs {
		inputs[i] = int(b)
	}
	reqBody, err := json.Marshal(proveRequest{
		BatchID:      batchID.String(),
		PublicInputs: inputs,
	})
	if err != nil {
		return nil, domainerr.Internal("marshal prove request: %v", err)
	}

	var bo backoff.BackOff = backoff.WithMaxElapsedTime(backoff.NewExponentialBackOff(), p.elapsed)
	if p.maxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.maxRetries))
	}
	bo = backoff.WithContext(bo, ctx)

	var proofHex string
	operation := func() error {
		respHex, err := p.doRequest(ctx, reqBody)
		if err != nil {
			return err
		}
		proofHex = respHex
		return nil
	}

	err = backoff.Retry(operation, bo)
	metrics.ProverRequestDurationSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		p.breaker.recordFailure()
		metrics.ProverRequestsTotal.WithLabelValues("failure").Inc()
		return nil, domainerr.ProverWrap(err, "get proof for batch %s", batchID)
	}

	p.breaker.recordSuccess()
	metrics.ProverRequestsTotal.WithLabelValues("success").Inc()

	proof, err := decodeHex(proofHex)
	if err != nil {
		return nil, domainerr.ProverWrap(err, "decode proof hex for batch %s", batchID)
	}
	return proof, nil
}

func (p *HTTPProver) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/prove", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// Network-level failure: transient, retried.
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("prover returned %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return "", backoff.Permanent(fmt.Errorf("prover rejected request with %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed proveResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", backoff.Permanent(fmt.Errorf("decode prover response: %w", err))
	}
	if parsed.Proof == "" {
		return "", backoff.Permanent(fmt.Errorf("prover response missing proof field"))
	}
	return parsed.Proof, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return hex.DecodeString(s)
}
