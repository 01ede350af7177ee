package registry

import (
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	stranger = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func addrs(n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.HexToAddress(fmt.Sprintf("0x%040x", i+1))
	}
	return out
}

func TestNewValidatesParameters(t *testing.T) {
	_, err := New(admin, 0, 3)
	require.ErrorIs(t, err, ErrZeroQuorum)

	_, err = New(admin, 2, 0)
	require.ErrorIs(t, err, ErrZeroMinJurors)

	r, err := New(admin, 2, 3)
	require.NoError(t, err)
	require.Empty(t, r.Validators)
}

func TestSetValidatorsAuthorization(t *testing.T) {
	r, err := New(admin, 2, 3)
	require.NoError(t, err)

	err = r.SetValidators(stranger, addrs(5))
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Empty(t, r.Validators)

	require.NoError(t, r.SetValidators(admin, addrs(5)))
	require.Len(t, r.Validators, 5)
}

func TestSetValidatorsFullReplacement(t *testing.T) {
	r, err := New(admin, 2, 3)
	require.NoError(t, err)
	require.NoError(t, r.SetValidators(admin, addrs(5)))

	// shrinking below min jurors is allowed at registry level
	require.NoError(t, r.SetValidators(admin, addrs(1)))
	require.Len(t, r.Validators, 1)
}

func TestSetValidatorsRejectsDuplicates(t *testing.T) {
	r, err := New(admin, 2, 3)
	require.NoError(t, err)

	list := addrs(3)
	list = append(list, list[0])
	err = r.SetValidators(admin, list)
	require.ErrorIs(t, err, ErrDuplicateValidator)
}

func TestSetValidatorsBound(t *testing.T) {
	r, err := New(admin, 2, 3)
	require.NoError(t, err)

	err = r.SetValidators(admin, addrs(MaxValidators+1))
	require.ErrorIs(t, err, ErrTooManyValidators)

	require.NoError(t, r.SetValidators(admin, addrs(MaxValidators)))
}

func TestSnapshotIsCopy(t *testing.T) {
	r, err := New(admin, 2, 3)
	require.NoError(t, err)
	require.NoError(t, r.SetValidators(admin, addrs(3)))

	snap := r.Snapshot()
	snap[0] = stranger
	require.NotEqual(t, snap[0], r.Validators[0])
	require.True(t, r.Contains(r.Validators[0]))
	require.False(t, r.Contains(stranger))
}
