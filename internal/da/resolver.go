package da

import (
	"github.com/certen/rollup-submitter/internal/domain"
	"github.com/certen/rollup-submitter/internal/domainerr"
	"github.com/certen/rollup-submitter/internal/orchestrator"
)

// Resolver maps a batch's DaMode to its registered strategy and
// implements orchestrator.StrategyResolver.
type Resolver struct {
	strategies map[domain.DaMode]orchestrator.DaStrategy
}

// NewResolver builds a resolver from an explicit mode->strategy map,
// typically {DaModeCalldata: calldataStrategy, DaModeBlob: blobStrategy}.
func NewResolver(strategies map[domain.DaMode]orchestrator.DaStrategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func (r *Resolver) Resolve(mode domain.DaMode) (orchestrator.DaStrategy, error) {
	s, ok := r.strategies[mode]
	if !ok {
		return nil, domainerr.Da("no DA strategy registered for mode %q", mode)
	}
	return s, nil
}
