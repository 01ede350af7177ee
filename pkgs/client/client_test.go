package client

import (
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/ballot"
	"github.com/solsafe/tribunal/pkgs/crypto"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/randomness"
	"github.com/solsafe/tribunal/pkgs/server"
	"github.com/solsafe/tribunal/pkgs/store"
	"github.com/solsafe/tribunal/pkgs/tribunal"
)

func newClientFixture(t *testing.T) (*Client, *randomness.StaticOracle, common.Address) {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	oracle := randomness.NewStaticOracle()
	engine := tribunal.New(zap.NewNop(), db, tribunal.Config{Oracle: oracle})
	admin := common.BytesToAddress([]byte{0xad})
	_, err = engine.Bootstrap(admin, 2, 3)
	require.NoError(t, err)

	srv := server.New(engine, zap.NewNop())
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return New(ts.URL, zap.NewNop()), oracle, admin
}

func selectPanel(t *testing.T, c *Client, oracle *randomness.StaticOracle, admin common.Address) *tribunal.Case {
	t.Helper()
	validators := make([]common.Address, 5)
	for i := range validators {
		validators[i] = common.BytesToAddress([]byte{byte(i + 1)})
	}
	_, err := c.SetValidators(admin, validators)
	require.NoError(t, err)

	submitted, err := c.SubmitCase(common.BytesToAddress([]byte{0xaa}), common.BytesToAddress([]byte{0xbb}), []byte("trace"))
	require.NoError(t, err)

	oracle.Post("acct", make([]byte, randomness.MinAccountLen))
	_, err = c.RequestRandomness(submitted.ID, "acct")
	require.NoError(t, err)
	selected, err := c.SelectJurors(submitted.ID)
	require.NoError(t, err)
	require.Len(t, selected.Jurors, 3)
	return selected
}

func TestClientHealthCheck(t *testing.T) {
	c, _, _ := newClientFixture(t)
	health, err := c.HealthCheck()
	require.NoError(t, err)
	require.Equal(t, "ok", health.Status)
}

func TestClientErrorSurface(t *testing.T) {
	c, _, _ := newClientFixture(t)
	_, err := c.GetCase(42)
	require.ErrorContains(t, err, "404")
	require.ErrorContains(t, err, "case not found")
}

func TestClientVotingRoundTrip(t *testing.T) {
	c, oracle, admin := newClientFixture(t)
	panel := selectPanel(t, c, oracle, admin)

	res, err := c.Vote(panel.ID, panel.Jurors[0], true)
	require.NoError(t, err)
	require.Equal(t, "in_progress", res.Outcome)

	// commit-reveal for the second juror
	var salt [32]byte
	salt[0] = 0x55
	commitment := common.Hash(crypto.VoteCommitment(true, salt))
	nullifier := common.Hash(crypto.Nullifier(panel.ID, commitment))
	record, err := c.CommitVote(panel.ID, panel.Jurors[1], commitment, nullifier, ballot.BuildProof(panel.ID, commitment))
	require.NoError(t, err)
	require.Equal(t, nullifier, record.Nullifier)

	reveal, err := c.RevealVote(panel.ID, panel.Jurors[1], true, salt)
	require.NoError(t, err)
	require.Equal(t, "quorum", reveal.Outcome)
	require.Equal(t, tribunal.StatusFrozen, reveal.Case.Status)
}

func TestClientMPCAndEvidenceRoundTrip(t *testing.T) {
	c, oracle, admin := newClientFixture(t)
	panel := selectPanel(t, c, oracle, admin)

	keys, err := mpc.DealTallyKeys(2, len(panel.Jurors))
	require.NoError(t, err)
	encrypted, err := mpc.EncryptTally(keys.GroupKey, 1, 2)
	require.NoError(t, err)

	session, err := c.InitMPC(panel.ID, 2, encrypted)
	require.NoError(t, err)
	require.Equal(t, mpc.StateInitialized, session.State)

	for i, juror := range panel.Jurors {
		share, err := c.SubmitMPCShare(panel.ID, juror, keys.PublicShares[i], tribunal.ShareCommitmentFor(keys.PublicShares[i]))
		require.NoError(t, err)
		require.True(t, share.Verified)
	}

	decShare, proof, err := mpc.PartialDecrypt(keys.PriShares[0], encrypted)
	require.NoError(t, err)
	res, err := c.SubmitPartialDecryption(panel.ID, panel.Jurors[0], decShare, proof)
	require.NoError(t, err)
	require.Nil(t, res.Result)

	decShare, proof, err = mpc.PartialDecrypt(keys.PriShares[1], encrypted)
	require.NoError(t, err)
	res, err = c.SubmitPartialDecryption(panel.ID, panel.Jurors[1], decShare, proof)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	require.EqualValues(t, 1, res.Result.VotesFor)
	require.EqualValues(t, 2, res.Result.VotesAgainst)

	// evidence path
	hash := common.HexToHash("0x0102")
	commitment, err := c.InitEvidence(panel.ID, hash, []byte("ciphertext"), 2)
	require.NoError(t, err)
	require.False(t, commitment.ThresholdMet())
	_, err = c.VerifyEvidenceShare(panel.ID, panel.Jurors[0], common.Hash{1})
	require.NoError(t, err)
	commitment, err = c.VerifyEvidenceShare(panel.ID, panel.Jurors[1], common.Hash{2})
	require.NoError(t, err)
	require.True(t, commitment.ThresholdMet())
}
