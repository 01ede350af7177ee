package mpc

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func juror(i byte) common.Address {
	return common.BytesToAddress([]byte{i})
}

func TestNewSessionValidation(t *testing.T) {
	tests := []struct {
		name      string
		threshold uint64
		total     uint64
		err       error
	}{
		{"zero threshold", 0, 5, ErrInvalidThreshold},
		{"threshold above total", 6, 5, ErrInvalidThreshold},
		{"too many jurors", 10, MaxJurors + 1, ErrTooManyJurors},
		{"valid", 3, 5, nil},
		{"valid at cap", 20, 20, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSession(1, tc.threshold, tc.total, nil, 1000)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, StateInitialized, s.State)
			require.NotEqual(t, common.Hash{}, s.ComputationID)
		})
	}
}

func TestNewSessionTallyBound(t *testing.T) {
	_, err := NewSession(1, 2, 3, make([]byte, MaxEncryptedTallySize+1), 1000)
	require.ErrorIs(t, err, ErrTallyTooLarge)

	_, err = NewSession(1, 2, 3, make([]byte, MaxEncryptedTallySize), 1000)
	require.NoError(t, err)
}

func TestAddShareTransitions(t *testing.T) {
	s, err := NewSession(1, 2, 3, nil, 1000)
	require.NoError(t, err)

	require.NoError(t, s.AddShare())
	require.Equal(t, StateCollectingShares, s.State)
	require.EqualValues(t, 1, s.SharesReceived)

	require.NoError(t, s.AddShare())
	require.Equal(t, StateThresholdReached, s.State)

	require.NoError(t, s.AddShare())
	require.Equal(t, StateThresholdReached, s.State)

	require.ErrorIs(t, s.AddShare(), ErrAllSharesSubmitted)
	require.EqualValues(t, 3, s.SharesReceived)
}

func TestAddPartialGating(t *testing.T) {
	s, err := NewSession(1, 2, 3, nil, 1000)
	require.NoError(t, err)

	_, err = s.AddPartial(PartialDecryption{Juror: juror(1)})
	require.ErrorIs(t, err, ErrThresholdNotReached)

	require.NoError(t, s.AddShare())
	require.NoError(t, s.AddShare())

	ready, err := s.AddPartial(PartialDecryption{Juror: juror(1)})
	require.NoError(t, err)
	require.False(t, ready)

	_, err = s.AddPartial(PartialDecryption{Juror: juror(1)})
	require.ErrorIs(t, err, ErrDuplicatePartial)

	ready, err = s.AddPartial(PartialDecryption{Juror: juror(2)})
	require.NoError(t, err)
	require.True(t, ready)
}

func TestSetResultWriteOnce(t *testing.T) {
	s, err := NewSession(1, 1, 2, nil, 1000)
	require.NoError(t, err)
	require.NoError(t, s.AddShare())

	err = s.SetResult(&VoteResult{VotesFor: 1})
	require.ErrorIs(t, err, ErrInsufficientShares)

	_, err = s.AddPartial(PartialDecryption{Juror: juror(1)})
	require.NoError(t, err)

	require.NoError(t, s.SetResult(&VoteResult{VotesFor: 1, Verified: true}))
	require.Equal(t, StateComplete, s.State)

	err = s.SetResult(&VoteResult{VotesFor: 2})
	require.ErrorIs(t, err, ErrComputationComplete)
	require.EqualValues(t, 1, s.FinalResult.VotesFor)

	_, err = s.AddPartial(PartialDecryption{Juror: juror(2)})
	require.ErrorIs(t, err, ErrComputationComplete)
	require.ErrorIs(t, s.AddShare(), ErrComputationComplete)
}

func TestSessionClone(t *testing.T) {
	s, err := NewSession(1, 1, 1, []byte{1, 2, 3}, 1000)
	require.NoError(t, err)
	require.NoError(t, s.AddShare())
	_, err = s.AddPartial(PartialDecryption{Juror: juror(1)})
	require.NoError(t, err)

	clone := s.Clone()
	clone.EncryptedTally[0] = 9
	clone.Partials[0].Juror = juror(2)
	require.EqualValues(t, 1, s.EncryptedTally[0])
	require.Equal(t, juror(1), s.Partials[0].Juror)
}
