package prover

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testConfig(baseURL string) Config {
	cfg := DefaultConfig(baseURL)
	cfg.MaxElapsedTime = time.Millisecond // fail fast in tests, no multi-second retries
	cfg.RequestTimeout = time.Second
	return cfg
}

func TestHTTPProverGetProofSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(proveResponse{Proof: "0x" + "ab"})
	}))
	defer server.Close()

	p := NewHTTPProver(testConfig(server.URL))
	proof, err := p.GetProof(t.Context(), uuid.New(), []byte{0x01})
	if err != nil {
		t.Fatalf("get proof: %v", err)
	}
	if len(proof) != 1 || proof[0] != 0xab {
		t.Fatalf("unexpected proof bytes: %x", proof)
	}
}

func TestHTTPProverGetProofPermanentOnClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad batch"))
	}))
	defer server.Close()

	p := NewHTTPProver(testConfig(server.URL))
	if _, err := p.GetProof(t.Context(), uuid.New(), []byte{0x01}); err == nil {
		t.Fatal("expected a 4xx response to surface as an error")
	}
}

func TestHTTPProverTripsBreakerAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.BreakerThreshold = 2
	p := NewHTTPProver(cfg)

	for i := 0; i < 2; i++ {
		if _, err := p.GetProof(t.Context(), uuid.New(), []byte{0x01}); err == nil {
			t.Fatal("expected a 5xx response to surface as an error")
		}
	}

	_, err := p.GetProof(t.Context(), uuid.New(), []byte{0x01})
	if err == nil {
		t.Fatal("expected the tripped breaker to reject the next call")
	}
}
