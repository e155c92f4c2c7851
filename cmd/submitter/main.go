// Command submitter runs the rollup batch submitter: it loads a YAML
// batch definition, seeds it into storage if not already present, and
// drives the orchestrator until the process receives a shutdown
// signal. Grounded on the original submitter's main.go/startup.rs
// wiring, expressed with the teacher's flag/os-signal entrypoint idiom.
package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certen/rollup-submitter/internal/chain"
	"github.com/certen/rollup-submitter/internal/config"
	"github.com/certen/rollup-submitter/internal/da"
	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
	"github.com/certen/rollup-submitter/internal/metrics"
	"github.com/certen/rollup-submitter/internal/orchestrator"
	"github.com/certen/rollup-submitter/internal/prover"
	"github.com/certen/rollup-submitter/internal/storage"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: submitter <config.yaml>")
		os.Exit(2)
	}
	configPath := flag.Arg(0)

	if err := run(configPath); err != nil {
		log.Fatalf("submitter: %v", err)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	privateKey, err := config.PrivateKey()
	if err != nil {
		return err
	}

	bridgeClient, err := chain.Dial(ctx, cfg.Network.RPCURL, cfg.Network.ChainID, cfg.Contracts.Bridge, privateKey)
	if err != nil {
		return err
	}
	defer bridgeClient.Close()

	store, err := storage.Open(ctx, config.DatabaseURL())
	if err != nil {
		return err
	}
	defer store.Close()

	proofProducer := buildProver(cfg)
	strategyResolver := buildResolver(cfg, bridgeClient)

	if err := seedInitialBatch(ctx, store, cfg); err != nil {
		return err
	}

	go serveMetrics()

	orc := orchestrator.New(store, proofProducer, strategyResolver, bridgeClient, orchestrator.DefaultConfig())
	return orc.Run(ctx)
}

func buildProver(cfg *config.Config) orchestrator.ProofProducer {
	if cfg.Prover != nil && cfg.Prover.URL != "" {
		proverCfg := prover.DefaultConfig(cfg.Prover.URL)
		if cfg.Resilience != nil {
			if cfg.Resilience.CircuitBreakerThreshold != nil {
				proverCfg.BreakerThreshold = *cfg.Resilience.CircuitBreakerThreshold
			}
			if cfg.Resilience.MaxRetries != nil {
				proverCfg.MaxRetries = *cfg.Resilience.MaxRetries
			}
		}
		return prover.NewHTTPProver(proverCfg)
	}
	return prover.NewMockProver()
}

func buildResolver(cfg *config.Config, bridgeClient *chain.Client) *da.Resolver {
	calldata := da.NewCalldataStrategy(bridgeClient, true)

	var defaultBlobHash common.Hash
	if cfg.Batch.BlobVersionedHash != "" {
		defaultBlobHash = common.HexToHash(cfg.Batch.BlobVersionedHash)
	}
	var blobIndex uint8
	if cfg.Da.BlobIndex != nil {
		blobIndex = *cfg.Da.BlobIndex
	}
	blob := da.NewBlobStrategy(bridgeClient, defaultBlobHash, blobIndex, cfg.Da.ArchiverURL)

	return da.NewResolver(map[domain.DaMode]orchestrator.DaStrategy{
		domain.DaModeCalldata: calldata,
		domain.DaModeBlob:     blob,
	})
}

// seedInitialBatch inserts the batch described by cfg.Batch when
// storage has no pending work, matching startup.rs's seed-from-config
// behavior for a fresh database.
func seedInitialBatch(ctx context.Context, store storage.BackendStore, cfg *config.Config) error {
	pending, err := store.ListPending(ctx)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		return nil
	}

	payload, err := os.ReadFile(cfg.Batch.DataFile)
	if err != nil {
		return fmt.Errorf("read batch data file %s: %w", cfg.Batch.DataFile, err)
	}
	sum := sha1.Sum(payload)
	payloadDigest := hex.EncodeToString(sum[:])

	mode := cfg.Da.Mode.ToDomain()
	batch := domain.NewBatch(cfg.Network.ChainID, cfg.Contracts.Bridge, cfg.Batch.DataFile, payloadDigest, cfg.Batch.NewRoot, mode)
	if cfg.Batch.BlobVersionedHash != "" {
		batch.BlobVersionedHash = &cfg.Batch.BlobVersionedHash
	}

	// A row with this id may already exist in a terminal state; leave it
	// untouched instead of upserting it back to Discovered.
	if _, err := store.GetBatch(ctx, batch.ID); err == nil {
		log.Printf("batch %s already stored, not re-seeding", batch.ID)
		return nil
	} else if !errors.Is(err, domainerr.ErrBatchNotFound) {
		return err
	}

	log.Printf("seeding batch %s from %s", batch.ID, cfg.Batch.DataFile)
	return store.SaveBatch(ctx, batch)
}

func serveMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	addr := config.MetricsAddr()
	log.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}
