package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVoteCommitmentDistinguishesVotes(t *testing.T) {
	var salt [32]byte
	copy(salt[:], []byte("some-random-salt-value-32-bytes!"))
	approve := VoteCommitment(true, salt)
	reject := VoteCommitment(false, salt)
	require.NotEqual(t, approve, reject)

	// same inputs, same commitment
	require.Equal(t, approve, VoteCommitment(true, salt))
}

func TestNullifierDerivation(t *testing.T) {
	var salt [32]byte
	commitment := VoteCommitment(true, salt)
	nullifier := Nullifier(42, commitment)

	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], 42)
	expected := sha256.Sum256(append(id[:], commitment[:]...))
	require.Equal(t, expected, nullifier)

	// different case, different nullifier
	require.NotEqual(t, nullifier, Nullifier(43, commitment))
}

func TestComputationIDUnique(t *testing.T) {
	a := ComputationID(1, 1000)
	b := ComputationID(1, 1001)
	c := ComputationID(2, 1000)
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, a, ComputationID(1, 1000))
}

func TestRehashPoolChangesPool(t *testing.T) {
	var pool [32]byte
	next := RehashPool(pool)
	require.NotEqual(t, pool, next)
	require.Equal(t, next, RehashPool(pool))
}
