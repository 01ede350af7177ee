package selector

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// HashChain derives the i-th candidate index from SHA-256(seed || counter),
// rejecting duplicates. A second historical variant kept for verification of
// old draws; RejectionSampling is canonical.
type HashChain struct {
	MaxAttempts int
}

func (s HashChain) Name() string { return "hash-chain" }

func (s HashChain) Select(seed [32]byte, pool []common.Address, count int) ([]common.Address, error) {
	if count <= 0 || count > len(pool) {
		return nil, ErrNotEnoughCandidates
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	chosen := make(map[uint32]struct{}, count)
	selected := make([]common.Address, 0, count)
	for counter := 0; len(selected) < count; counter++ {
		if counter >= maxAttempts {
			return nil, ErrSelectionFailed
		}
		var ctr [8]byte
		binary.LittleEndian.PutUint64(ctr[:], uint64(counter))
		h := sha256.New()
		h.Write(seed[:])
		h.Write(ctr[:])
		digest := h.Sum(nil)
		idx := binary.LittleEndian.Uint32(digest[:4]) % uint32(len(pool))
		if _, dup := chosen[idx]; dup {
			continue
		}
		chosen[idx] = struct{}{}
		selected = append(selected, pool[idx])
	}
	return selected, nil
}
