// Package randomness normalizes entropy published by an external oracle into
// the 32-byte seed juror selection consumes. The oracle reveals asynchronously:
// callers request first, then retry extraction until the account carries
// enough bytes.
package randomness

import (
	"context"
	"errors"
)

const (
	// DiscriminatorLen is the opaque header prefix oracle accounts carry.
	DiscriminatorLen = 8
	// SeedLen is the entropy the protocol requires after the header.
	SeedLen = 32
	// MinAccountLen is the smallest oracle payload a seed can be extracted from.
	MinAccountLen = DiscriminatorLen + SeedLen
)

var ErrVrfNotReady = errors.New("vrf randomness not ready")

// Oracle supplies the raw bytes of a randomness account. The reference is an
// opaque handle stored on the case when randomness was requested.
type Oracle interface {
	Randomness(ctx context.Context, ref string) ([]byte, error)
}

// ExtractSeed parses a revealed oracle account: an 8-byte discriminator
// followed by at least 32 bytes of entropy. Anything shorter means the oracle
// has not revealed yet.
func ExtractSeed(raw []byte) ([32]byte, error) {
	var seed [32]byte
	if len(raw) < MinAccountLen {
		return seed, ErrVrfNotReady
	}
	copy(seed[:], raw[DiscriminatorLen:MinAccountLen])
	return seed, nil
}
