package tribunal

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/ballot"
	"github.com/solsafe/tribunal/pkgs/crypto"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/randomness"
	"github.com/solsafe/tribunal/pkgs/registry"
	"github.com/solsafe/tribunal/pkgs/store"
)

type recordingFreezer struct {
	frozen []common.Address
	fail   error
}

func (f *recordingFreezer) Freeze(_ context.Context, _ uint64, reported common.Address) error {
	if f.fail != nil {
		return f.fail
	}
	f.frozen = append(f.frozen, reported)
	return nil
}

type engineFixture struct {
	engine  *Engine
	oracle  *randomness.StaticOracle
	freezer *recordingFreezer
	admin   common.Address
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	oracle := randomness.NewStaticOracle()
	freezer := &recordingFreezer{}
	engine := New(zap.NewNop(), db, Config{
		Oracle:  oracle,
		Freezer: freezer,
		Now:     func() int64 { return 1_700_000_000 },
	})
	return &engineFixture{
		engine:  engine,
		oracle:  oracle,
		freezer: freezer,
		admin:   addr(0xad),
	}
}

// bootstrapped sets up a registry with five validators, quorum 2, min jurors 3.
func (f *engineFixture) bootstrapped(t *testing.T) []common.Address {
	t.Helper()
	_, err := f.engine.Bootstrap(f.admin, 2, 3)
	require.NoError(t, err)
	validators := []common.Address{addr(1), addr(2), addr(3), addr(4), addr(5)}
	_, err = f.engine.SetValidators(f.admin, validators)
	require.NoError(t, err)
	return validators
}

// votingCase drives a fresh case to the Voting phase and returns it.
func (f *engineFixture) votingCase(t *testing.T) *Case {
	t.Helper()
	c, err := f.engine.SubmitCase(addr(0xaa), addr(0xbb), []byte("tx trace"))
	require.NoError(t, err)

	payload := make([]byte, randomness.MinAccountLen)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	f.oracle.Post("vrf-acct", payload)
	_, err = f.engine.RequestRandomness(c.ID, "vrf-acct")
	require.NoError(t, err)

	c, err = f.engine.SelectJurors(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, PhaseVoting, c.Phase)
	require.Len(t, c.Jurors, 3)
	return c
}

func TestBootstrapOnce(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Bootstrap(f.admin, 2, 3)
	require.NoError(t, err)
	_, err = f.engine.Bootstrap(f.admin, 2, 3)
	require.ErrorIs(t, err, ErrRegistryExists)
}

func TestSetValidatorsAuthorization(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.SetValidators(f.admin, nil)
	require.ErrorIs(t, err, ErrRegistryNotFound)

	f.bootstrapped(t)
	_, err = f.engine.SetValidators(addr(0x99), []common.Address{addr(1)})
	require.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestSubmitCaseSequence(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.SubmitCase(addr(1), addr(2), nil)
	require.ErrorIs(t, err, ErrRegistryNotFound)

	validators := f.bootstrapped(t)
	first, err := f.engine.SubmitCase(addr(1), addr(2), []byte("e"))
	require.NoError(t, err)
	second, err := f.engine.SubmitCase(addr(1), addr(3), []byte("e"))
	require.NoError(t, err)
	require.EqualValues(t, 1, first.ID)
	require.EqualValues(t, 2, second.ID)
	require.Equal(t, validators, first.JurorCandidates)
}

func TestSelectJurorsGuards(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	ctx := context.Background()

	c, err := f.engine.SubmitCase(addr(1), addr(2), nil)
	require.NoError(t, err)

	// no randomness requested yet
	_, err = f.engine.SelectJurors(ctx, c.ID)
	require.ErrorIs(t, err, randomness.ErrVrfNotReady)

	// requested but the oracle has not revealed
	_, err = f.engine.RequestRandomness(c.ID, "pending")
	require.NoError(t, err)
	_, err = f.engine.SelectJurors(ctx, c.ID)
	require.ErrorIs(t, err, randomness.ErrVrfNotReady)

	// revealed with too few bytes
	f.oracle.Post("pending", make([]byte, randomness.MinAccountLen-1))
	_, err = f.engine.SelectJurors(ctx, c.ID)
	require.ErrorIs(t, err, randomness.ErrVrfNotReady)

	// full reveal succeeds and selection is one-shot
	f.oracle.Post("pending", make([]byte, randomness.MinAccountLen))
	selected, err := f.engine.SelectJurors(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, selected.Jurors, 3)
	_, err = f.engine.SelectJurors(ctx, c.ID)
	require.ErrorIs(t, err, ErrInvalidCase)
}

func TestSelectJurorsLazyCandidateCheck(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Bootstrap(f.admin, 2, 3)
	require.NoError(t, err)
	_, err = f.engine.SetValidators(f.admin, []common.Address{addr(1), addr(2)})
	require.NoError(t, err)

	c, err := f.engine.SubmitCase(addr(1), addr(2), nil)
	require.NoError(t, err)
	_, err = f.engine.RequestRandomness(c.ID, "r")
	require.NoError(t, err)
	f.oracle.Post("r", make([]byte, randomness.MinAccountLen))

	_, err = f.engine.SelectJurors(context.Background(), c.ID)
	require.ErrorIs(t, err, ErrNotEnoughValidators)
}

func TestSelectJurorsFromCurrentValidators(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)

	c, err := f.engine.SubmitCase(addr(0xaa), addr(0xbb), nil)
	require.NoError(t, err)

	// the registry is replaced after submission; the panel must come from
	// the replacement, not the submission-time list
	replacement := []common.Address{addr(0x0b), addr(0x0c), addr(0x0d), addr(0x0e), addr(0x0f)}
	_, err = f.engine.SetValidators(f.admin, replacement)
	require.NoError(t, err)

	_, err = f.engine.RequestRandomness(c.ID, "acct")
	require.NoError(t, err)
	f.oracle.Post("acct", make([]byte, randomness.MinAccountLen))

	selected, err := f.engine.SelectJurors(context.Background(), c.ID)
	require.NoError(t, err)
	require.Equal(t, replacement, selected.JurorCandidates)
	for _, juror := range selected.Jurors {
		require.Contains(t, replacement, juror)
	}

	stored, err := f.engine.GetCase(c.ID)
	require.NoError(t, err)
	require.Equal(t, replacement, stored.JurorCandidates)
}

func TestPublicVotingQuorumFreezes(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	_, outcome, err := f.engine.Vote(ctx, c.ID, c.Jurors[0], true)
	require.NoError(t, err)
	require.Equal(t, OutcomeInProgress, outcome)
	require.Empty(t, f.freezer.frozen)

	updated, outcome, err := f.engine.Vote(ctx, c.ID, c.Jurors[1], true)
	require.NoError(t, err)
	require.Equal(t, OutcomeQuorum, outcome)
	require.Equal(t, StatusFrozen, updated.Status)
	require.Equal(t, PhaseApproved, updated.Phase)
	require.Equal(t, []common.Address{c.ReportedAddress}, f.freezer.frozen)

	// terminal: the third juror can no longer vote
	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[2], true)
	require.ErrorIs(t, err, ErrCaseNotVoting)
}

func TestPublicVotingMajorityRejects(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Bootstrap(f.admin, 99, 3)
	require.NoError(t, err)
	_, err = f.engine.SetValidators(f.admin, []common.Address{addr(1), addr(2), addr(3), addr(4), addr(5)})
	require.NoError(t, err)
	c := f.votingCase(t)
	ctx := context.Background()

	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[0], false)
	require.NoError(t, err)
	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[1], true)
	require.NoError(t, err)
	updated, outcome, err := f.engine.Vote(ctx, c.ID, c.Jurors[2], false)
	require.NoError(t, err)
	require.Equal(t, OutcomeMajorityRejected, outcome)
	require.Equal(t, StatusClosed, updated.Status)
	require.Equal(t, PhaseRejected, updated.Phase)
	require.Empty(t, f.freezer.frozen)
}

func TestFreezeFailureAbortsVote(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	_, _, err := f.engine.Vote(ctx, c.ID, c.Jurors[0], true)
	require.NoError(t, err)

	f.freezer.fail = errors.New("freeze service unavailable")
	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[1], true)
	require.Error(t, err)

	// the failed vote left no trace; the same juror can retry
	stored, err := f.engine.GetCase(c.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, stored.VotesFor)
	require.Equal(t, StatusOpen, stored.Status)
	require.Equal(t, PhaseVoting, stored.Phase)

	f.freezer.fail = nil
	updated, outcome, err := f.engine.Vote(ctx, c.ID, c.Jurors[1], true)
	require.NoError(t, err)
	require.Equal(t, OutcomeQuorum, outcome)
	require.Equal(t, StatusFrozen, updated.Status)
}

func TestVoteGuards(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	_, _, err := f.engine.Vote(ctx, 999, c.Jurors[0], true)
	require.ErrorIs(t, err, ErrCaseNotFound)

	_, _, err = f.engine.Vote(ctx, c.ID, addr(0x99), true)
	require.ErrorIs(t, err, ErrNotJuror)

	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[0], true)
	require.NoError(t, err)
	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[0], false)
	require.ErrorIs(t, err, ErrAlreadyVoted)
}

func commitArgs(caseID uint64, vote bool, saltByte byte) (common.Hash, common.Hash, ballot.Proof, [32]byte) {
	var salt [32]byte
	salt[0] = saltByte
	commitment := common.Hash(crypto.VoteCommitment(vote, salt))
	nullifier := common.Hash(crypto.Nullifier(caseID, commitment))
	return commitment, nullifier, ballot.BuildProof(caseID, commitment), salt
}

func TestCommitRevealFlow(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	commitment, nullifier, proof, salt := commitArgs(c.ID, true, 0x42)

	_, err := f.engine.CommitVote(c.ID, addr(0x99), commitment, nullifier, proof)
	require.ErrorIs(t, err, ErrNotJuror)

	record, err := f.engine.CommitVote(c.ID, c.Jurors[0], commitment, nullifier, proof)
	require.NoError(t, err)
	require.False(t, record.Revealed)

	// the nullifier is spent even for another juror
	_, err = f.engine.CommitVote(c.ID, c.Jurors[1], commitment, nullifier, proof)
	require.ErrorIs(t, err, ErrNullifierUsed)

	// one live commitment per juror
	c2, n2, p2, _ := commitArgs(c.ID, false, 0x43)
	_, err = f.engine.CommitVote(c.ID, c.Jurors[0], c2, n2, p2)
	require.ErrorIs(t, err, ErrAlreadyVoted)

	// reveal must match the committed vote and salt
	_, _, err = f.engine.RevealVote(ctx, c.ID, c.Jurors[0], false, salt)
	require.ErrorIs(t, err, ErrInvalidReveal)
	var wrongSalt [32]byte
	_, _, err = f.engine.RevealVote(ctx, c.ID, c.Jurors[0], true, wrongSalt)
	require.ErrorIs(t, err, ErrInvalidReveal)
	_, _, err = f.engine.RevealVote(ctx, c.ID, c.Jurors[1], true, salt)
	require.ErrorIs(t, err, ErrNoCommitment)

	updated, outcome, err := f.engine.RevealVote(ctx, c.ID, c.Jurors[0], true, salt)
	require.NoError(t, err)
	require.Equal(t, OutcomeInProgress, outcome)
	require.EqualValues(t, 1, updated.VotesFor)
	require.True(t, updated.HasVoted(c.Jurors[0]))

	_, _, err = f.engine.RevealVote(ctx, c.ID, c.Jurors[0], true, salt)
	require.ErrorIs(t, err, ErrAlreadyRevealed)

	stored, err := f.engine.GetBallot(c.ID, c.Jurors[0])
	require.NoError(t, err)
	require.True(t, stored.Revealed)
}

func TestCommitRejectsBadProof(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)

	commitment, nullifier, proof, _ := commitArgs(c.ID, true, 1)
	proof.PublicInputs[0] ^= 0xff
	_, err := f.engine.CommitVote(c.ID, c.Jurors[0], commitment, nullifier, proof)
	require.ErrorIs(t, err, ballot.ErrInvalidZkProof)
}

func TestMixedPathsCannotDoubleCount(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	_, _, err := f.engine.Vote(ctx, c.ID, c.Jurors[0], true)
	require.NoError(t, err)

	// a juror who voted publicly cannot commit
	commitment, nullifier, proof, salt := commitArgs(c.ID, true, 7)
	_, err = f.engine.CommitVote(c.ID, c.Jurors[0], commitment, nullifier, proof)
	require.ErrorIs(t, err, ErrAlreadyVoted)

	// a committed juror who reveals cannot then vote publicly
	_, err = f.engine.CommitVote(c.ID, c.Jurors[2], commitment, nullifier, proof)
	require.NoError(t, err)
	_, _, err = f.engine.RevealVote(ctx, c.ID, c.Jurors[2], true, salt)
	require.NoError(t, err)
	stored, err := f.engine.GetCase(c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFrozen, stored.Status)
}

func TestMPCSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)

	keys, err := mpc.DealTallyKeys(2, len(c.Jurors))
	require.NoError(t, err)
	encrypted, err := mpc.EncryptTally(keys.GroupKey, 2, 1)
	require.NoError(t, err)

	session, err := f.engine.InitMPC(c.ID, 2, encrypted)
	require.NoError(t, err)
	require.Equal(t, mpc.StateInitialized, session.State)
	require.EqualValues(t, len(c.Jurors), session.TotalJurors)

	_, err = f.engine.InitMPC(c.ID, 2, encrypted)
	require.ErrorIs(t, err, mpc.ErrSessionExists)

	// shares: non-juror rejected, duplicates rejected, bad commitment rejected
	_, err = f.engine.SubmitMPCShare(c.ID, addr(0x99), keys.PublicShares[0], ShareCommitmentFor(keys.PublicShares[0]))
	require.ErrorIs(t, err, ErrNotJuror)
	_, err = f.engine.SubmitMPCShare(c.ID, c.Jurors[0], keys.PublicShares[0], common.Hash{})
	require.Error(t, err)

	for i, juror := range c.Jurors {
		share, err := f.engine.SubmitMPCShare(c.ID, juror, keys.PublicShares[i], ShareCommitmentFor(keys.PublicShares[i]))
		require.NoError(t, err)
		require.True(t, share.Verified)
		require.EqualValues(t, i, share.Index)
	}
	_, err = f.engine.SubmitMPCShare(c.ID, c.Jurors[0], keys.PublicShares[0], ShareCommitmentFor(keys.PublicShares[0]))
	require.ErrorIs(t, err, mpc.ErrDuplicateShare)

	session, err = f.engine.GetSession(c.ID)
	require.NoError(t, err)
	require.Equal(t, mpc.StateThresholdReached, session.State)

	// partials: the threshold-th submission combines and freezes the result
	decShare, proofBytes, err := mpc.PartialDecrypt(keys.PriShares[0], encrypted)
	require.NoError(t, err)
	_, result, err := f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[0], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.NoError(t, err)
	require.Nil(t, result)

	decShare, proofBytes, err = mpc.PartialDecrypt(keys.PriShares[1], encrypted)
	require.NoError(t, err)
	session, result, err = f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[1], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.EqualValues(t, 2, result.VotesFor)
	require.EqualValues(t, 1, result.VotesAgainst)
	require.Equal(t, mpc.StateComplete, session.State)

	decShare, proofBytes, err = mpc.PartialDecrypt(keys.PriShares[2], encrypted)
	require.NoError(t, err)
	_, _, err = f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[2], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.ErrorIs(t, err, mpc.ErrComputationComplete)
}

func TestPartialDecryptionRequiresVerifiedShare(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)

	keys, err := mpc.DealTallyKeys(2, len(c.Jurors))
	require.NoError(t, err)
	encrypted, err := mpc.EncryptTally(keys.GroupKey, 1, 1)
	require.NoError(t, err)
	_, err = f.engine.InitMPC(c.ID, 2, encrypted)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = f.engine.SubmitMPCShare(c.ID, c.Jurors[i], keys.PublicShares[i], ShareCommitmentFor(keys.PublicShares[i]))
		require.NoError(t, err)
	}

	// the third juror never registered a key share, so its partial is
	// rejected at submission rather than at combination
	decShare, proofBytes, err := mpc.PartialDecrypt(keys.PriShares[2], encrypted)
	require.NoError(t, err)
	_, _, err = f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[2], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.ErrorIs(t, err, mpc.ErrShareNotVerified)

	session, err := f.engine.GetSession(c.ID)
	require.NoError(t, err)
	require.Empty(t, session.Partials)

	// the session is not wedged: the share holders still decrypt the tally
	decShare, proofBytes, err = mpc.PartialDecrypt(keys.PriShares[0], encrypted)
	require.NoError(t, err)
	_, result, err := f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[0], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.NoError(t, err)
	require.Nil(t, result)

	decShare, proofBytes, err = mpc.PartialDecrypt(keys.PriShares[1], encrypted)
	require.NoError(t, err)
	_, result, err = f.engine.SubmitPartialDecryption(c.ID, mpc.PartialDecryption{
		Juror: c.Jurors[1], DecryptionShare: decShare, Proof: proofBytes,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.EqualValues(t, 1, result.VotesFor)
	require.EqualValues(t, 1, result.VotesAgainst)
}

func TestClosedCaseGates(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)
	ctx := context.Background()

	// still open but past juror selection: invalid state, not closed
	_, err := f.engine.RequestRandomness(c.ID, "again")
	require.ErrorIs(t, err, ErrInvalidCase)

	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[0], true)
	require.NoError(t, err)
	_, _, err = f.engine.Vote(ctx, c.ID, c.Jurors[1], true)
	require.NoError(t, err)

	stored, err := f.engine.GetCase(c.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFrozen, stored.Status)

	_, err = f.engine.RequestRandomness(c.ID, "late")
	require.ErrorIs(t, err, ErrCaseNotOpen)
	_, err = f.engine.SelectJurors(ctx, c.ID)
	require.ErrorIs(t, err, ErrCaseNotOpen)
	commitment, nullifier, proof, _ := commitArgs(c.ID, true, 9)
	_, err = f.engine.CommitVote(c.ID, c.Jurors[2], commitment, nullifier, proof)
	require.ErrorIs(t, err, ErrCaseNotOpen)
	_, err = f.engine.InitMPC(c.ID, 2, nil)
	require.ErrorIs(t, err, ErrCaseNotOpen)
}

func TestMPCRequiresVotingPhase(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c, err := f.engine.SubmitCase(addr(1), addr(2), nil)
	require.NoError(t, err)

	_, err = f.engine.InitMPC(c.ID, 2, nil)
	require.ErrorIs(t, err, ErrCaseNotVoting)
}

func TestEvidenceLifecycle(t *testing.T) {
	f := newFixture(t)
	f.bootstrapped(t)
	c := f.votingCase(t)

	hash := common.HexToHash("0xfeed")
	commitment, err := f.engine.InitEvidence(c.ID, hash, []byte("ciphertext"), 2)
	require.NoError(t, err)
	require.False(t, commitment.ThresholdMet())

	_, err = f.engine.InitEvidence(c.ID, hash, []byte("ciphertext"), 2)
	require.Error(t, err)

	_, err = f.engine.VerifyEvidenceShare(c.ID, addr(0x99), common.Hash{0x01})
	require.ErrorIs(t, err, ErrNotJuror)

	commitment, err = f.engine.VerifyEvidenceShare(c.ID, c.Jurors[0], common.Hash{0x01})
	require.NoError(t, err)
	require.EqualValues(t, 1, commitment.VerifiedShares)

	_, err = f.engine.VerifyEvidenceShare(c.ID, c.Jurors[0], common.Hash{0x01})
	require.Error(t, err)

	commitment, err = f.engine.VerifyEvidenceShare(c.ID, c.Jurors[1], common.Hash{0x02})
	require.NoError(t, err)
	require.True(t, commitment.ThresholdMet())
	require.NoError(t, commitment.RequireReconstructable())
}
