// Package wire defines the JSON bodies of the tribunal HTTP API. Addresses
// travel as hex strings and binary blobs as 0x-prefixed hex.
package wire

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/solsafe/tribunal/pkgs/ballot"
)

type BootstrapRequest struct {
	Admin     string `json:"admin"`
	Quorum    uint64 `json:"quorum"`
	MinJurors uint64 `json:"min_jurors"`
}

type SetValidatorsRequest struct {
	Caller     string   `json:"caller"`
	Validators []string `json:"validators"`
}

type SubmitCaseRequest struct {
	Reporter        string        `json:"reporter"`
	ReportedAddress string        `json:"reported_address"`
	Evidence        hexutil.Bytes `json:"evidence"`
}

type RandomnessRequest struct {
	Handle string `json:"handle"`
}

type VoteRequest struct {
	Juror   string `json:"juror"`
	Approve bool   `json:"approve"`
}

type CommitVoteRequest struct {
	Juror      string       `json:"juror"`
	Commitment common.Hash  `json:"commitment"`
	Nullifier  common.Hash  `json:"nullifier"`
	Proof      ballot.Proof `json:"proof"`
}

type RevealVoteRequest struct {
	Juror string        `json:"juror"`
	Vote  bool          `json:"vote"`
	Salt  hexutil.Bytes `json:"salt"`
}

type InitMPCRequest struct {
	Threshold      uint64        `json:"threshold"`
	EncryptedTally hexutil.Bytes `json:"encrypted_tally"`
}

type MPCShareRequest struct {
	Juror       string        `json:"juror"`
	PublicShare hexutil.Bytes `json:"public_share"`
	Commitment  common.Hash   `json:"commitment"`
}

type PartialDecryptionRequest struct {
	Juror           string        `json:"juror"`
	DecryptionShare hexutil.Bytes `json:"decryption_share"`
	Proof           hexutil.Bytes `json:"proof"`
}

type InitEvidenceRequest struct {
	EvidenceHash      common.Hash   `json:"evidence_hash"`
	EncryptedEvidence hexutil.Bytes `json:"encrypted_evidence"`
	Threshold         uint64        `json:"threshold"`
}

type EvidenceShareRequest struct {
	Juror           string      `json:"juror"`
	ShareCommitment common.Hash `json:"share_commitment"`
}
