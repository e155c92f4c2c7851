// Package orchestrator implements the durable batch lifecycle engine:
// a polling loop that advances each pending batch by exactly one state
// transition per tick, grounded on the teacher's pkg/batch processor
// and scheduler run-loop idioms.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
	"github.com/certen/rollup-submitter/internal/metrics"
)

// Config controls orchestrator timing and retry behavior.
type Config struct {
	TickInterval time.Duration
	MaxAttempts  int
}

// DefaultConfig mirrors the spec's ~5s cadence and a 5-attempt budget.
func DefaultConfig() Config {
	return Config{
		TickInterval: 5 * time.Second,
		MaxAttempts:  5,
	}
}

// Orchestrator is the sole mutator of batch state. It holds no
// batch-scoped locks: ownership of a batch for the duration of a tick
// is implicit in being the only caller that invokes TransitionTo.
type Orchestrator struct {
	storage      Storage
	prover       ProofProducer
	strategies   StrategyResolver
	bridgeReader BridgeReader
	cfg          Config
	logger       *log.Logger
}

// New constructs an Orchestrator. cfg.MaxAttempts defaults to 5 and
// cfg.TickInterval to 5s if left zero.
func New(storage Storage, prover ProofProducer, strategies StrategyResolver, bridgeReader BridgeReader, cfg Config) *Orchestrator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Orchestrator{
		storage:      storage,
		prover:       prover,
		strategies:   strategies,
		bridgeReader: bridgeReader,
		cfg:          cfg,
		logger:       log.New(os.Stdout, "[Orchestrator] ", log.LstdFlags),
	}
}

// Run drives the endless polling loop until ctx is cancelled. It
// terminates only after the in-flight tick completes.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Println("started")
	ticker := time.NewTicker(o.cfg.TickInterval)
	defer ticker.Stop()

	if err := o.ProcessPending(ctx); err != nil {
		o.logger.Printf("error processing batches: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Println("stopped")
			return nil
		case <-ticker.C:
			if err := o.ProcessPending(ctx); err != nil {
				o.logger.Printf("error processing batches: %v", err)
			}
		}
	}
}

// ProcessPending runs exactly one tick: fetch every non-terminal batch
// and advance each by one state.
func (o *Orchestrator) ProcessPending(ctx context.Context) error {
	batches, err := o.storage.ListPending(ctx)
	if err != nil {
		return domainerr.StorageWrap(err, "list pending batches")
	}

	for _, batch := range batches {
		if err := o.processBatch(ctx, batch); err != nil {
			o.logger.Printf("batch %s: unrecoverable tick error: %v", batch.ID, err)
		}
	}
	return nil
}

func (o *Orchestrator) handleFailure(ctx context.Context, batch *domain.Batch, cause error) error {
	batch.Attempts++
	metrics.BatchFailuresTotal.WithLabelValues(batch.ID.String()).Inc()

	if batch.Attempts >= o.cfg.MaxAttempts {
		o.logger.Printf("batch %s FAILED permanently after %d attempts: %v", batch.ID, batch.Attempts, cause)
		batch.TransitionTo(domain.StatusFailed)
		metrics.BatchesFailedPermanentTotal.Inc()
	} else {
		o.logger.Printf("batch %s failed (attempt %d/%d): %v. retrying", batch.ID, batch.Attempts, o.cfg.MaxAttempts, cause)
	}
	return o.storage.SaveBatch(ctx, batch)
}

// failFast moves a batch straight to Failed without consuming the
// retry budget, for hard preconditions that retrying cannot fix.
func (o *Orchestrator) failFast(ctx context.Context, batch *domain.Batch, reason string) error {
	o.logger.Printf("batch %s FAILED (precondition): %s", batch.ID, reason)
	batch.TransitionTo(domain.StatusFailed)
	metrics.BatchesFailedPermanentTotal.Inc()
	return o.storage.SaveBatch(ctx, batch)
}

func (o *Orchestrator) processBatch(ctx context.Context, batch *domain.Batch) error {
	start := time.Now()
	fromStatus := batch.Status

	switch batch.Status {
	case domain.StatusDiscovered:
		batch.TransitionTo(domain.StatusProving)
		if err := o.storage.SaveBatch(ctx, batch); err != nil {
			return domainerr.StorageWrap(err, "save batch %s", batch.ID)
		}
		metrics.RecordTransition(string(fromStatus), string(batch.Status))

	case domain.StatusProving:
		return o.advanceProving(ctx, batch, start)

	case domain.StatusProved:
		batch.TransitionTo(domain.StatusSubmitting)
		if err := o.storage.SaveBatch(ctx, batch); err != nil {
			return domainerr.StorageWrap(err, "save batch %s", batch.ID)
		}
		metrics.RecordTransition(string(fromStatus), string(batch.Status))

	case domain.StatusSubmitting:
		return o.advanceSubmitting(ctx, batch, start)

	case domain.StatusSubmitted:
		return o.advanceSubmitted(ctx, batch, start)

	case domain.StatusConfirmed, domain.StatusFailed:
		// Terminal no-op.
	}
	return nil
}

func (o *Orchestrator) advanceProving(ctx context.Context, batch *domain.Batch, start time.Time) error {
	strategy, err := o.strategies.Resolve(batch.DaMode)
	if err != nil {
		return o.failFast(ctx, batch, fmt.Sprintf("no DA strategy for mode %s: %v", batch.DaMode, err))
	}

	oldRoot, rootErr := o.bridgeReader.StateRoot(ctx)
	commitment, commitErr := strategy.ComputeCommitment(ctx, batch)

	switch {
	case rootErr != nil:
		return o.handleFailure(ctx, batch, fmt.Errorf("fetch state root: %w", rootErr))
	case commitErr != nil:
		return o.handleFailure(ctx, batch, fmt.Errorf("compute commitment: %w", commitErr))
	}

	newRootHash, err := parseHash(batch.NewRoot)
	if err != nil {
		return o.handleFailure(ctx, batch, fmt.Errorf("invalid new_root: %w", err))
	}

	publicInputs := buildPublicInputs(commitment, oldRoot, newRootHash)

	proof, err := o.prover.GetProof(ctx, batch.ID, publicInputs)
	if err != nil {
		return o.handleFailure(ctx, batch, err)
	}

	proofHex := fmt.Sprintf("0x%x", proof)
	batch.Proof = &proofHex
	batch.TransitionTo(domain.StatusProved)
	batch.Attempts = 0
	if err := o.storage.SaveBatch(ctx, batch); err != nil {
		return domainerr.StorageWrap(err, "save batch %s", batch.ID)
	}
	metrics.RecordTransition("Proving", "Proved")
	metrics.ProveDurationSeconds.Observe(time.Since(start).Seconds())
	return nil
}

func (o *Orchestrator) advanceSubmitting(ctx context.Context, batch *domain.Batch, start time.Time) error {
	if batch.Proof == nil {
		return o.failFast(ctx, batch, "missing proof at submission time")
	}

	strategy, err := o.strategies.Resolve(batch.DaMode)
	if err != nil {
		return o.failFast(ctx, batch, fmt.Sprintf("no DA strategy for mode %s: %v", batch.DaMode, err))
	}

	proofBytes, err := decodeHexProof(*batch.Proof)
	if err != nil {
		return o.failFast(ctx, batch, fmt.Sprintf("stored proof is malformed: %v", err))
	}

	txHash, err := strategy.Submit(ctx, batch, proofBytes)
	if err != nil {
		return o.handleFailure(ctx, batch, err)
	}

	batch.TxHash = &txHash
	batch.TransitionTo(domain.StatusSubmitted)
	batch.Attempts = 0
	if err := o.storage.SaveBatch(ctx, batch); err != nil {
		return domainerr.StorageWrap(err, "save batch %s", batch.ID)
	}
	metrics.RecordTransition("Submitting", "Submitted")
	metrics.SubmitTxDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.TxSubmittedTotal.WithLabelValues(string(batch.DaMode)).Inc()
	return nil
}

func (o *Orchestrator) advanceSubmitted(ctx context.Context, batch *domain.Batch, start time.Time) error {
	if batch.TxHash == nil {
		// Recovery edge: a row observed in Submitted with no tx_hash
		// (crash between "submit returned" and "persist tx_hash")
		// regresses so the next tick resubmits.
		batch.TransitionTo(domain.StatusSubmitting)
		if err := o.storage.SaveBatch(ctx, batch); err != nil {
			return domainerr.StorageWrap(err, "save batch %s", batch.ID)
		}
		metrics.BatchRevertedToSubmittingTotal.Inc()
		return nil
	}

	strategy, err := o.strategies.Resolve(batch.DaMode)
	if err != nil {
		return o.failFast(ctx, batch, fmt.Sprintf("no DA strategy for mode %s: %v", batch.DaMode, err))
	}

	confirmed, err := strategy.CheckConfirmation(ctx, *batch.TxHash)
	if err != nil {
		if errors.Is(err, domainerr.ErrReverted) {
			return o.handleFailure(ctx, batch, err)
		}
		o.logger.Printf("batch %s: error checking confirmation: %v", batch.ID, err)
		return o.handleFailure(ctx, batch, err)
	}

	if !confirmed {
		o.logger.Printf("batch %s still pending confirmation", batch.ID)
		return nil
	}

	batch.TransitionTo(domain.StatusConfirmed)
	if err := o.storage.SaveBatch(ctx, batch); err != nil {
		return domainerr.StorageWrap(err, "save batch %s", batch.ID)
	}
	o.logger.Printf("batch %s CONFIRMED", batch.ID)
	metrics.RecordTransition("Submitted", "Confirmed")
	metrics.BatchesCompletedTotal.Inc()
	metrics.BatchE2EDurationSeconds.Observe(time.Since(batch.CreatedAt).Seconds())
	return nil
}
