// Package mpc gates threshold decryption of an encrypted vote tally. The
// aggregator decides when combination is permitted and makes the result
// write-once; the cryptographic combination itself sits behind the Combiner
// boundary, with a kyber-based implementation shipped alongside.
package mpc

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/solsafe/tribunal/pkgs/crypto"
)

const (
	// MaxJurors is a hard cap bounding share storage and recombination cost.
	MaxJurors = 20
	// MaxEncryptedTallySize bounds the homomorphic tally blob.
	MaxEncryptedTallySize = 256
)

var (
	ErrInvalidThreshold    = errors.New("invalid threshold")
	ErrTooManyJurors       = fmt.Errorf("total jurors exceeds maximum of %d", MaxJurors)
	ErrTallyTooLarge       = fmt.Errorf("encrypted tally exceeds %d bytes", MaxEncryptedTallySize)
	ErrAllSharesSubmitted  = errors.New("all shares submitted")
	ErrDuplicateShare      = errors.New("juror already submitted a share")
	ErrShareNotVerified    = errors.New("share not verified")
	ErrThresholdNotReached = errors.New("threshold not reached")
	ErrDuplicatePartial    = errors.New("juror already submitted a partial decryption")
	ErrComputationComplete = errors.New("computation already complete")
	ErrInsufficientShares  = errors.New("insufficient shares")
	ErrSessionExists       = errors.New("mpc session already exists")
	ErrSessionNotFound     = errors.New("mpc session not found")
)

// State of an MPC session. Advances monotonically.
type State uint8

const (
	StateInitialized State = iota
	StateCollectingShares
	StateThresholdReached
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCollectingShares:
		return "collecting_shares"
	case StateThresholdReached:
		return "threshold_reached"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// KeyShare is one juror's public contribution to the threshold group. The
// secret counterpart never leaves the juror.
type KeyShare struct {
	Juror       common.Address `json:"juror"`
	CaseID      uint64         `json:"case_id"`
	Index       uint64         `json:"share_index"`
	PublicShare []byte         `json:"public_share"`
	Commitment  common.Hash    `json:"commitment"`
	Verified    bool           `json:"verified"`
	Timestamp   int64          `json:"timestamp"`
}

// PartialDecryption is one juror's share of the decrypted tally plus a proof
// of correct decryption.
type PartialDecryption struct {
	Juror           common.Address `json:"juror"`
	DecryptionShare []byte         `json:"decryption_share"`
	Proof           []byte         `json:"proof"`
}

// VoteResult is the decrypted tally. Once set on a session it never changes.
type VoteResult struct {
	VotesFor     uint64 `json:"votes_for"`
	VotesAgainst uint64 `json:"votes_against"`
	TotalVotes   uint64 `json:"total_votes"`
	Verified     bool   `json:"verified"`
}

// Session owns the aggregation state for one case (1:1).
type Session struct {
	CaseID         uint64              `json:"case_id"`
	Threshold      uint64              `json:"threshold"`
	TotalJurors    uint64              `json:"total_jurors"`
	SharesReceived uint64              `json:"shares_received"`
	ComputationID  common.Hash         `json:"computation_id"`
	State          State               `json:"state"`
	EncryptedTally []byte              `json:"encrypted_tally"`
	Partials       []PartialDecryption `json:"partial_decryptions"`
	FinalResult    *VoteResult         `json:"final_result,omitempty"`
}

// NewSession validates the threshold parameters and derives the computation id.
func NewSession(caseID, threshold, totalJurors uint64, encryptedTally []byte, unixTime int64) (*Session, error) {
	if threshold == 0 || threshold > totalJurors {
		return nil, ErrInvalidThreshold
	}
	if totalJurors > MaxJurors {
		return nil, ErrTooManyJurors
	}
	if len(encryptedTally) > MaxEncryptedTallySize {
		return nil, ErrTallyTooLarge
	}
	return &Session{
		CaseID:         caseID,
		Threshold:      threshold,
		TotalJurors:    totalJurors,
		ComputationID:  common.Hash(crypto.ComputationID(caseID, unixTime)),
		State:          StateInitialized,
		EncryptedTally: append([]byte{}, encryptedTally...),
	}, nil
}

// AddShare counts one key share submission and advances the session state.
func (s *Session) AddShare() error {
	if s.State == StateComplete {
		return ErrComputationComplete
	}
	if s.SharesReceived == s.TotalJurors {
		return ErrAllSharesSubmitted
	}
	s.SharesReceived++
	if s.SharesReceived >= s.Threshold {
		s.State = StateThresholdReached
	} else {
		s.State = StateCollectingShares
	}
	return nil
}

// AddPartial appends a partial decryption. It reports whether enough partials
// accumulated for combination.
func (s *Session) AddPartial(p PartialDecryption) (bool, error) {
	if s.State == StateComplete {
		return false, ErrComputationComplete
	}
	if s.State != StateThresholdReached {
		return false, ErrThresholdNotReached
	}
	for _, existing := range s.Partials {
		if existing.Juror == p.Juror {
			return false, ErrDuplicatePartial
		}
	}
	s.Partials = append(s.Partials, p)
	return uint64(len(s.Partials)) >= s.Threshold, nil
}

// SetResult freezes the final tally. Write-once.
func (s *Session) SetResult(result *VoteResult) error {
	if s.FinalResult != nil || s.State == StateComplete {
		return ErrComputationComplete
	}
	if uint64(len(s.Partials)) < s.Threshold {
		return ErrInsufficientShares
	}
	s.FinalResult = result
	s.State = StateComplete
	return nil
}

// Clone returns a deep copy for abort-safe mutation.
func (s *Session) Clone() *Session {
	out := *s
	out.EncryptedTally = append([]byte{}, s.EncryptedTally...)
	out.Partials = append([]PartialDecryption{}, s.Partials...)
	if s.FinalResult != nil {
		result := *s.FinalResult
		out.FinalResult = &result
	}
	return &out
}

// ShareVerifier validates a submitted public key share against its commitment.
type ShareVerifier interface {
	VerifyShare(publicShare []byte, commitment common.Hash) error
}

// Combiner turns accumulated partial decryptions into the final tally. The
// key shares of all submitting jurors are supplied for proof verification.
type Combiner interface {
	Combine(session *Session, shares []*KeyShare) (*VoteResult, error)
}
