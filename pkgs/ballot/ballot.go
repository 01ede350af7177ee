// Package ballot implements the commit-reveal private voting path: jurors
// first publish a hash commitment bound to a replay-proof nullifier, then
// disclose the underlying vote, which is only counted if it matches the
// commitment.
package ballot

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

var (
	ErrInvalidProofType = errors.New("invalid proof type")
	ErrInvalidZkProof   = errors.New("invalid zk proof")
)

// ProofType tags the circuit a proof claims to satisfy.
type ProofType uint8

const (
	ProofVoteCommitment ProofType = iota
	ProofEvidenceHash
	ProofJurorEligibility
	ProofTallyVerification
)

// Proof is an opaque zero-knowledge proof plus its public inputs. The core
// never interprets proof data beyond handing it to the Verifier.
type Proof struct {
	Type         ProofType `json:"type"`
	ProofData    []byte    `json:"proof_data"`
	PublicInputs []byte    `json:"public_inputs"`
}

// Commitment is one juror's hidden vote for one case. Created on commit,
// mutated exactly once on reveal, never deleted.
type Commitment struct {
	Juror      common.Address `json:"juror"`
	CaseID     uint64         `json:"case_id"`
	Commitment common.Hash    `json:"commitment"`
	Nullifier  common.Hash    `json:"nullifier"`
	Revealed   bool           `json:"revealed"`
	Timestamp  int64          `json:"timestamp"`
}

// VerifyReveal recomputes the commitment from the disclosed vote and salt.
func (c *Commitment) VerifyReveal(vote bool, salt [32]byte) bool {
	return crypto.VoteCommitment(vote, salt) == [32]byte(c.Commitment)
}

// Verifier checks that a proof validates the claimed commitment structure and
// a correctly derived nullifier. Injected so the consensus core can run
// against stub or production proof systems alike.
type Verifier interface {
	VerifyVoteCommitment(proof Proof, caseID uint64, commitment, nullifier common.Hash) error
}

// StructuralVerifier validates the proof envelope without a proving system:
// the proof must carry the nullifier, the public inputs must restate the case
// id and commitment, and the nullifier must be the correct derivation. This is
// the check the on-chain predecessor performed; deployments with a real
// circuit substitute their own Verifier.
type StructuralVerifier struct{}

func (StructuralVerifier) VerifyVoteCommitment(proof Proof, caseID uint64, commitment, nullifier common.Hash) error {
	if proof.Type != ProofVoteCommitment {
		return ErrInvalidProofType
	}
	if len(proof.ProofData) < 32 || len(proof.PublicInputs) < 40 {
		return ErrInvalidZkProof
	}
	if commitment == (common.Hash{}) {
		return ErrInvalidZkProof
	}

	// public inputs restate case id (8 bytes LE) and commitment
	inputID := uint64(0)
	for i := 7; i >= 0; i-- {
		inputID = inputID<<8 | uint64(proof.PublicInputs[i])
	}
	if inputID != caseID {
		return ErrInvalidZkProof
	}
	var inputCommitment common.Hash
	copy(inputCommitment[:], proof.PublicInputs[8:40])
	if inputCommitment != commitment {
		return ErrInvalidZkProof
	}

	expected := crypto.Nullifier(caseID, commitment)
	if nullifier != common.Hash(expected) {
		return ErrInvalidZkProof
	}
	var provided common.Hash
	copy(provided[:], proof.ProofData[:32])
	if provided != nullifier {
		return ErrInvalidZkProof
	}
	return nil
}

// BuildProof assembles a structurally valid proof for a commitment. Jurors use
// it client-side; it is also what tests feed the StructuralVerifier.
func BuildProof(caseID uint64, commitment common.Hash) Proof {
	nullifier := crypto.Nullifier(caseID, commitment)
	inputs := make([]byte, 40)
	id := caseID
	for i := 0; i < 8; i++ {
		inputs[i] = byte(id)
		id >>= 8
	}
	copy(inputs[8:], commitment[:])
	return Proof{
		Type:         ProofVoteCommitment,
		ProofData:    nullifier[:],
		PublicInputs: inputs,
	}
}
