// Package evidence holds threshold-encrypted evidence commitments. The
// reporter encrypts evidence under the jurors' MPC group key; jurors register
// share commitments, and decryption is only possible once the threshold of
// them verified. The decryption itself happens juror-side; the core only
// gates and audits it.
package evidence

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

// MaxEncryptedEvidenceSize bounds the stored ciphertext.
const MaxEncryptedEvidenceSize = 1024

var (
	ErrEvidenceTooLarge   = errors.New("encrypted evidence too large")
	ErrInvalidThreshold   = errors.New("invalid evidence threshold")
	ErrAlreadyVerified    = errors.New("juror already verified an evidence share")
	ErrInsufficientShares = errors.New("insufficient verified shares")
	ErrCommitmentExists   = errors.New("evidence commitment already exists")
	ErrCommitmentNotFound = errors.New("evidence commitment not found")
)

// Commitment is the per-case private evidence record.
type Commitment struct {
	CaseID            uint64      `json:"case_id"`
	EvidenceHash      common.Hash `json:"evidence_hash"`
	EncryptedEvidence []byte      `json:"encrypted_evidence"`
	Commitment        common.Hash `json:"commitment"`
	VerifiedShares    uint64      `json:"verified_shares"`
	Threshold         uint64      `json:"threshold"`
}

// JurorShare records one juror's participation in evidence verification.
type JurorShare struct {
	Juror           common.Address `json:"juror"`
	CaseID          uint64         `json:"case_id"`
	ShareCommitment common.Hash    `json:"share_commitment"`
	Verified        bool           `json:"verified"`
	Timestamp       int64          `json:"timestamp"`
}

// NewCommitment validates bounds and derives the stored commitment from the
// evidence hash.
func NewCommitment(caseID uint64, evidenceHash common.Hash, encrypted []byte, threshold uint64) (*Commitment, error) {
	if len(encrypted) > MaxEncryptedEvidenceSize {
		return nil, ErrEvidenceTooLarge
	}
	if threshold == 0 {
		return nil, ErrInvalidThreshold
	}
	return &Commitment{
		CaseID:            caseID,
		EvidenceHash:      evidenceHash,
		EncryptedEvidence: append([]byte{}, encrypted...),
		Commitment:        common.Hash(crypto.EvidenceCommitment(evidenceHash)),
		Threshold:         threshold,
	}, nil
}

// VerifyHash reports whether a claimed evidence hash matches the commitment.
func (c *Commitment) VerifyHash(claimed common.Hash) bool {
	return c.EvidenceHash == claimed
}

// ThresholdMet reports whether enough jurors verified their shares for the
// evidence to be reconstructable.
func (c *Commitment) ThresholdMet() bool {
	return c.VerifiedShares >= c.Threshold
}

// RequireReconstructable gates juror-side reconstruction.
func (c *Commitment) RequireReconstructable() error {
	if !c.ThresholdMet() {
		return ErrInsufficientShares
	}
	return nil
}

// Clone returns a deep copy for abort-safe mutation.
func (c *Commitment) Clone() *Commitment {
	out := *c
	out.EncryptedEvidence = append([]byte{}, c.EncryptedEvidence...)
	return &out
}
