package selector

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// WindowedModulo reproduces the oldest deployed draw: the i-th juror comes
// from the 4 bytes starting at position 4*i mod 32, wrapping byte-wise around
// the seed. It performs no duplicate rejection, so the same validator can be
// drawn twice. Kept only so historical selections remain verifiable; new
// cases must use RejectionSampling.
type WindowedModulo struct{}

func (WindowedModulo) Name() string { return "windowed-modulo" }

func (WindowedModulo) Select(seed [32]byte, pool []common.Address, count int) ([]common.Address, error) {
	if count <= 0 || count > len(pool) {
		return nil, ErrNotEnoughCandidates
	}
	selected := make([]common.Address, 0, count)
	for i := 0; i < count; i++ {
		offset := i * 4
		var window [4]byte
		for k := 0; k < 4; k++ {
			window[k] = seed[(offset+k)%len(seed)]
		}
		idx := binary.LittleEndian.Uint32(window[:]) % uint32(len(pool))
		selected = append(selected, pool[idx])
	}
	return selected, nil
}
