package selector

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

// DefaultMaxAttempts caps rejection sampling. The cap is unreachable under
// honest parameters (a 2^32 draw space is effectively uniform modulo any
// realistic pool size) but makes the procedure always terminating.
const DefaultMaxAttempts = 1000

// RejectionSampling is the canonical strategy: 4-byte little-endian windows of
// the entropy pool are consumed cyclically, the pool is re-hashed once its
// windows are exhausted, and indices already chosen are rejected so the
// resulting juror set never contains duplicates.
type RejectionSampling struct {
	MaxAttempts int
}

func NewRejectionSampling() *RejectionSampling {
	return &RejectionSampling{MaxAttempts: DefaultMaxAttempts}
}

func (s *RejectionSampling) Name() string { return "rejection-sampling" }

func (s *RejectionSampling) Select(seed [32]byte, pool []common.Address, count int) ([]common.Address, error) {
	if count <= 0 || count > len(pool) {
		return nil, ErrNotEnoughCandidates
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	entropy := seed
	offset := 0
	chosen := make(map[uint32]struct{}, count)
	selected := make([]common.Address, 0, count)

	for attempts := 0; len(selected) < count; attempts++ {
		if attempts >= maxAttempts {
			return nil, ErrSelectionFailed
		}
		if offset+4 > len(entropy) {
			entropy = crypto.RehashPool(entropy)
			offset = 0
		}
		idx := binary.LittleEndian.Uint32(entropy[offset:offset+4]) % uint32(len(pool))
		offset += 4
		if _, dup := chosen[idx]; dup {
			continue
		}
		chosen[idx] = struct{}{}
		selected = append(selected, pool[idx])
	}
	return selected, nil
}
