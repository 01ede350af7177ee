// Package selector derives a juror subset from an oracle-supplied entropy
// seed. Selection must be exactly reproducible for a fixed (seed, pool) so
// that anyone can re-run the draw and audit it.
package selector

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrSelectionFailed     = errors.New("juror selection failed after max attempts")
	ErrNotEnoughCandidates = errors.New("candidate pool smaller than requested juror count")
)

// Strategy is a deterministic juror sampling algorithm. Implementations must
// never mutate the pool and must return the same jurors for the same inputs.
type Strategy interface {
	Name() string
	Select(seed [32]byte, pool []common.Address, count int) ([]common.Address, error)
}
