package randomness

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSeed(t *testing.T) {
	raw := make([]byte, MinAccountLen+16)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	seed, err := ExtractSeed(raw)
	require.NoError(t, err)
	require.Equal(t, raw[DiscriminatorLen:MinAccountLen], seed[:])
}

func TestExtractSeedNotReady(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		make([]byte, DiscriminatorLen),
		make([]byte, MinAccountLen-1),
	}
	for _, raw := range cases {
		_, err := ExtractSeed(raw)
		require.ErrorIs(t, err, ErrVrfNotReady)
	}

	_, err := ExtractSeed(make([]byte, MinAccountLen))
	require.NoError(t, err)
}

func TestStaticOracle(t *testing.T) {
	oracle := NewStaticOracle()

	_, err := oracle.Randomness(context.Background(), "vrf-1")
	require.ErrorIs(t, err, ErrVrfNotReady)

	raw := make([]byte, MinAccountLen)
	_, err = rand.Read(raw)
	require.NoError(t, err)
	oracle.Post("vrf-1", raw)

	got, err := oracle.Randomness(context.Background(), "vrf-1")
	require.NoError(t, err)
	require.Equal(t, raw, got)

	// returned slice is a copy
	got[0] ^= 0xff
	again, err := oracle.Randomness(context.Background(), "vrf-1")
	require.NoError(t, err)
	require.Equal(t, raw, again)
}
