package evidence

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

func TestNewCommitmentValidation(t *testing.T) {
	hash := common.HexToHash("0xabcdef")

	_, err := NewCommitment(1, hash, make([]byte, MaxEncryptedEvidenceSize+1), 2)
	require.ErrorIs(t, err, ErrEvidenceTooLarge)

	_, err = NewCommitment(1, hash, []byte("cipher"), 0)
	require.ErrorIs(t, err, ErrInvalidThreshold)

	c, err := NewCommitment(1, hash, []byte("cipher"), 2)
	require.NoError(t, err)
	require.Equal(t, common.Hash(crypto.EvidenceCommitment(hash)), c.Commitment)
	require.True(t, c.VerifyHash(hash))
	require.False(t, c.VerifyHash(common.Hash{}))
}

func TestThresholdGating(t *testing.T) {
	c, err := NewCommitment(1, common.HexToHash("0x01"), []byte("cipher"), 2)
	require.NoError(t, err)

	require.ErrorIs(t, c.RequireReconstructable(), ErrInsufficientShares)

	c.VerifiedShares = 1
	require.ErrorIs(t, c.RequireReconstructable(), ErrInsufficientShares)

	c.VerifiedShares = 2
	require.NoError(t, c.RequireReconstructable())
	require.True(t, c.ThresholdMet())
}

func TestCommitmentClone(t *testing.T) {
	c, err := NewCommitment(1, common.HexToHash("0x01"), []byte{1, 2, 3}, 1)
	require.NoError(t, err)

	clone := c.Clone()
	clone.EncryptedEvidence[0] = 9
	clone.VerifiedShares = 5
	require.True(t, bytes.Equal([]byte{1, 2, 3}, c.EncryptedEvidence))
	require.EqualValues(t, 0, c.VerifiedShares)
}
