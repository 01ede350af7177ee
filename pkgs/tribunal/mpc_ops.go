package tribunal

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/crypto"
	"github.com/solsafe/tribunal/pkgs/evidence"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/store"
)

// MPC and private-evidence operations. Each case has at most one MPC session
// and one evidence commitment; both are keyed by case id.

// InitMPC opens the threshold aggregation session over an encrypted tally.
// The juror panel must already be selected: the session size is the panel.
func (e *Engine) InitMPC(caseID, threshold uint64, encryptedTally []byte) (*mpc.Session, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCaseNotOpen
	}
	if c.Phase != PhaseVoting {
		return nil, ErrCaseNotVoting
	}
	exists, err := e.db.Has(store.SessionKey(caseID))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, mpc.ErrSessionExists
	}

	session, err := mpc.NewSession(caseID, threshold, uint64(len(c.Jurors)), encryptedTally, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.putJSON(store.SessionKey(caseID), session); err != nil {
		return nil, err
	}
	e.logger.Info("mpc session initialized",
		zap.Uint64("case_id", caseID),
		zap.Uint64("threshold", threshold),
		zap.Uint64("jurors", session.TotalJurors),
		zap.String("computation_id", session.ComputationID.Hex()))
	return session, nil
}

// SubmitMPCShare registers a juror's public key share. The share is verified
// against its commitment before it counts toward the threshold.
func (e *Engine) SubmitMPCShare(caseID uint64, juror common.Address, publicShare []byte, commitment common.Hash) (*mpc.KeyShare, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsJuror(juror) {
		return nil, ErrNotJuror
	}
	session, err := e.loadSession(caseID)
	if err != nil {
		return nil, err
	}
	exists, err := e.db.Has(store.KeyShareKey(caseID, juror))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, mpc.ErrDuplicateShare
	}
	if err := e.shareVerifier.VerifyShare(publicShare, commitment); err != nil {
		return nil, errors.Wrap(err, "verify key share")
	}

	clone := session.Clone()
	share := &mpc.KeyShare{
		Juror:       juror,
		CaseID:      caseID,
		Index:       clone.SharesReceived,
		PublicShare: publicShare,
		Commitment:  commitment,
		Verified:    true,
		Timestamp:   e.now(),
	}
	if err := clone.AddShare(); err != nil {
		return nil, err
	}

	batch := e.db.NewBatch()
	defer batch.Close()
	if err := batchPutJSON(batch, store.KeyShareKey(caseID, juror), share); err != nil {
		return nil, err
	}
	if err := batchPutJSON(batch, store.SessionKey(caseID), clone); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	e.logger.Info("mpc key share accepted",
		zap.Uint64("case_id", caseID),
		zap.String("juror", juror.Hex()),
		zap.Uint64("shares_received", clone.SharesReceived),
		zap.String("state", clone.State.String()))
	return share, nil
}

// SubmitPartialDecryption appends a juror's decryption share. When the
// threshold-th partial arrives the tally is combined and frozen into the
// session; the returned result is nil until then.
func (e *Engine) SubmitPartialDecryption(caseID uint64, partial mpc.PartialDecryption) (*mpc.Session, *mpc.VoteResult, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, nil, err
	}
	if !c.IsJuror(partial.Juror) {
		return nil, nil, ErrNotJuror
	}
	session, err := e.loadSession(caseID)
	if err != nil {
		return nil, nil, err
	}

	// only jurors holding a verified key share may decrypt
	keyShare := &mpc.KeyShare{}
	ok, err := e.getJSON(store.KeyShareKey(caseID, partial.Juror), keyShare)
	if err != nil {
		return nil, nil, err
	}
	if !ok || !keyShare.Verified {
		return nil, nil, mpc.ErrShareNotVerified
	}

	clone := session.Clone()
	ready, err := clone.AddPartial(partial)
	if err != nil {
		return nil, nil, err
	}

	var result *mpc.VoteResult
	if ready {
		shares, err := e.loadKeyShares(caseID)
		if err != nil {
			return nil, nil, err
		}
		result, err = e.combiner.Combine(clone, shares)
		if err != nil {
			return nil, nil, errors.Wrap(err, "combine partial decryptions")
		}
		if err := clone.SetResult(result); err != nil {
			return nil, nil, err
		}
	}

	if err := e.putJSON(store.SessionKey(caseID), clone); err != nil {
		return nil, nil, err
	}
	if result != nil {
		e.logger.Info("mpc tally decrypted",
			zap.Uint64("case_id", caseID),
			zap.Uint64("votes_for", result.VotesFor),
			zap.Uint64("votes_against", result.VotesAgainst))
	} else {
		e.logger.Debug("partial decryption stored",
			zap.Uint64("case_id", caseID),
			zap.String("juror", partial.Juror.Hex()),
			zap.Int("partials", len(clone.Partials)))
	}
	return clone, result, nil
}

// GetSession returns the MPC session for a case.
func (e *Engine) GetSession(caseID uint64) (*mpc.Session, error) {
	return e.loadSession(caseID)
}

// InitEvidence stores a threshold-encrypted evidence commitment for a case.
func (e *Engine) InitEvidence(caseID uint64, evidenceHash common.Hash, encrypted []byte, threshold uint64) (*evidence.Commitment, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.loadCase(caseID); err != nil {
		return nil, err
	}
	exists, err := e.db.Has(store.EvidenceKey(caseID))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, evidence.ErrCommitmentExists
	}

	commitment, err := evidence.NewCommitment(caseID, evidenceHash, encrypted, threshold)
	if err != nil {
		return nil, err
	}
	if err := e.putJSON(store.EvidenceKey(caseID), commitment); err != nil {
		return nil, err
	}
	e.logger.Info("evidence commitment stored",
		zap.Uint64("case_id", caseID),
		zap.Uint64("threshold", threshold),
		zap.Int("ciphertext_len", len(encrypted)))
	return commitment, nil
}

// VerifyEvidenceShare counts one juror's verified evidence share. Decryption
// happens juror-side once the verified count reaches the threshold.
func (e *Engine) VerifyEvidenceShare(caseID uint64, juror common.Address, shareCommitment common.Hash) (*evidence.Commitment, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if !c.IsJuror(juror) {
		return nil, ErrNotJuror
	}
	commitment, err := e.loadEvidence(caseID)
	if err != nil {
		return nil, err
	}

	existing := &evidence.JurorShare{}
	ok, err := e.getJSON(store.EvidenceShareKey(caseID, juror), existing)
	if err != nil {
		return nil, err
	}
	if ok && existing.Verified {
		return nil, evidence.ErrAlreadyVerified
	}

	share := &evidence.JurorShare{
		Juror:           juror,
		CaseID:          caseID,
		ShareCommitment: shareCommitment,
		Verified:        true,
		Timestamp:       e.now(),
	}
	clone := commitment.Clone()
	clone.VerifiedShares, err = checkedAdd(clone.VerifiedShares, 1)
	if err != nil {
		return nil, err
	}

	batch := e.db.NewBatch()
	defer batch.Close()
	if err := batchPutJSON(batch, store.EvidenceShareKey(caseID, juror), share); err != nil {
		return nil, err
	}
	if err := batchPutJSON(batch, store.EvidenceKey(caseID), clone); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	e.logger.Info("evidence share verified",
		zap.Uint64("case_id", caseID),
		zap.String("juror", juror.Hex()),
		zap.Uint64("verified_shares", clone.VerifiedShares),
		zap.Bool("threshold_met", clone.ThresholdMet()))
	return clone, nil
}

// GetEvidence returns the evidence commitment for a case.
func (e *Engine) GetEvidence(caseID uint64) (*evidence.Commitment, error) {
	return e.loadEvidence(caseID)
}

func (e *Engine) loadSession(caseID uint64) (*mpc.Session, error) {
	session := &mpc.Session{}
	ok, err := e.getJSON(store.SessionKey(caseID), session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, mpc.ErrSessionNotFound
	}
	return session, nil
}

func (e *Engine) loadEvidence(caseID uint64) (*evidence.Commitment, error) {
	commitment := &evidence.Commitment{}
	ok, err := e.getJSON(store.EvidenceKey(caseID), commitment)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, evidence.ErrCommitmentNotFound
	}
	return commitment, nil
}

func (e *Engine) loadKeyShares(caseID uint64) ([]*mpc.KeyShare, error) {
	var shares []*mpc.KeyShare
	err := e.db.Scan(store.KeySharePrefix(caseID), func(_, value []byte) error {
		share := &mpc.KeyShare{}
		if err := json.Unmarshal(value, share); err != nil {
			return errors.Wrap(err, "decode key share")
		}
		shares = append(shares, share)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// ShareCommitmentFor derives the commitment a juror should submit with a
// public share. Exposed for clients so derivation stays in one place.
func ShareCommitmentFor(publicShare []byte) common.Hash {
	return common.Hash(crypto.ShareCommitment(publicShare))
}
