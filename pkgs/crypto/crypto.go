package crypto

import (
	"crypto/sha256"
	"encoding/binary"

	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

// mpcDomain separates MPC computation ids from every other hash in the system
var mpcDomain = []byte("tribunal_mpc")

// VoteCommitment computes the hash commitment for a hidden vote: SHA-256(voteByte || salt).
// The salt must be sampled by the juror and kept secret until reveal.
func VoteCommitment(vote bool, salt [32]byte) [32]byte {
	voteByte := byte(0)
	if vote {
		voteByte = 1
	}
	h := sha256.New()
	h.Write([]byte{voteByte})
	h.Write(salt[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Nullifier derives the one-time-use tag for a commitment: SHA-256(caseID_le || commitment).
// A juror producing two commitments for the same case produces two colliding nullifiers
// only if the commitments collide, so per-case nullifier uniqueness rules out replay.
func Nullifier(caseID uint64, commitment [32]byte) [32]byte {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], caseID)
	h := sha256.New()
	h.Write(id[:])
	h.Write(commitment[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ComputationID derives a unique identifier for an MPC session.
func ComputationID(caseID uint64, unixTime int64) [32]byte {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], caseID)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(unixTime))
	var out [32]byte
	copy(out[:], eth_crypto.Keccak256(mpcDomain, id[:], ts[:]))
	return out
}

// EvidenceCommitment hashes an evidence hash once more to produce the stored commitment.
func EvidenceCommitment(evidenceHash [32]byte) [32]byte {
	return sha256.Sum256(evidenceHash[:])
}

// ShareCommitment binds a public MPC key share to its submission.
func ShareCommitment(publicShare []byte) [32]byte {
	return sha256.Sum256(publicShare)
}

// RehashPool advances the entropy pool used by juror selection once its
// 4-byte windows are exhausted.
func RehashPool(pool [32]byte) [32]byte {
	return sha256.Sum256(pool[:])
}
