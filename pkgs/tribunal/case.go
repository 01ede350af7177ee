package tribunal

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// MaxEvidenceSize bounds the opaque evidence reference stored on a case.
const MaxEvidenceSize = 1024

// Status is the coarse lifecycle of a case. Closed and Frozen are terminal.
type Status uint8

const (
	StatusOpen Status = iota
	StatusClosed
	StatusFrozen
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Phase tracks progress through the juror-consensus pipeline. It only ever
// advances: PendingJurors -> Voting -> Approved|Rejected.
type Phase uint8

const (
	PhasePendingJurors Phase = iota
	PhaseVoting
	PhaseApproved
	PhaseRejected
	// PhaseExecuted exists for record compatibility with older deployments;
	// no transition in this engine produces it.
	PhaseExecuted
)

func (p Phase) String() string {
	switch p {
	case PhasePendingJurors:
		return "pending_jurors"
	case PhaseVoting:
		return "voting"
	case PhaseApproved:
		return "approved"
	case PhaseRejected:
		return "rejected"
	case PhaseExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// Outcome of applying a single vote to a case.
type Outcome uint8

const (
	// OutcomeInProgress means more votes are needed.
	OutcomeInProgress Outcome = iota
	// OutcomeQuorum means votes_for reached quorum; the freeze path fires.
	OutcomeQuorum
	// OutcomeMajorityApproved means all jurors voted and approvals won.
	OutcomeMajorityApproved
	// OutcomeMajorityRejected means all jurors voted without an approval majority.
	OutcomeMajorityRejected
)

// Case is one fraud report moving from Open through juror voting to a binding
// decision. Once Status leaves Open the record is immutable.
type Case struct {
	ID               uint64           `json:"case_id"`
	Reporter         common.Address   `json:"reporter"`
	ReportedAddress  common.Address   `json:"reported_address"`
	Evidence         []byte           `json:"evidence"`
	Status           Status           `json:"status"`
	Phase            Phase            `json:"phase"`
	JurorCandidates  []common.Address `json:"juror_candidates"`
	Jurors           []common.Address `json:"jurors"`
	Voted            []common.Address `json:"voted"`
	VotesFor         uint64           `json:"votes_for"`
	VotesAgainst     uint64           `json:"votes_against"`
	RandomnessHandle string           `json:"randomness_handle"`
}

// NewCase creates an Open case for a fraud report.
func NewCase(id uint64, reporter, reported common.Address, evidence []byte) (*Case, error) {
	if len(evidence) > MaxEvidenceSize {
		return nil, ErrEvidenceTooLarge
	}
	return &Case{
		ID:              id,
		Reporter:        reporter,
		ReportedAddress: reported,
		Evidence:        append([]byte{}, evidence...),
		Status:          StatusOpen,
		Phase:           PhasePendingJurors,
	}, nil
}

// IsJuror reports whether addr was selected for this case.
func (c *Case) IsJuror(addr common.Address) bool {
	for _, j := range c.Jurors {
		if j == addr {
			return true
		}
	}
	return false
}

// HasVoted reports whether addr's vote was already counted.
func (c *Case) HasVoted(addr common.Address) bool {
	for _, v := range c.Voted {
		if v == addr {
			return true
		}
	}
	return false
}

// RecordVote counts one juror's vote and evaluates quorum. Both the public
// path and the commit-reveal path converge here, so an address can never be
// counted twice across paths. Quorum evaluation order: approvals reaching
// quorum decide first; otherwise the case closes by simple majority once
// every juror voted, with exact ties rejecting.
func (c *Case) RecordVote(juror common.Address, approve bool, quorum uint64) (Outcome, error) {
	if c.Phase != PhaseVoting || c.Status != StatusOpen {
		return OutcomeInProgress, ErrCaseNotVoting
	}
	if !c.IsJuror(juror) {
		return OutcomeInProgress, ErrNotJuror
	}
	if c.HasVoted(juror) {
		return OutcomeInProgress, ErrAlreadyVoted
	}

	var err error
	if approve {
		c.VotesFor, err = checkedAdd(c.VotesFor, 1)
	} else {
		c.VotesAgainst, err = checkedAdd(c.VotesAgainst, 1)
	}
	if err != nil {
		return OutcomeInProgress, err
	}
	c.Voted = append(c.Voted, juror)

	total, err := checkedAdd(c.VotesFor, c.VotesAgainst)
	if err != nil {
		return OutcomeInProgress, err
	}

	switch {
	case c.VotesFor >= quorum:
		c.Phase = PhaseApproved
		// status is set by the caller once the freeze action succeeded
		return OutcomeQuorum, nil
	case total >= uint64(len(c.Jurors)):
		if c.VotesFor > c.VotesAgainst {
			c.Phase = PhaseApproved
			c.Status = StatusClosed
			return OutcomeMajorityApproved, nil
		}
		c.Phase = PhaseRejected
		c.Status = StatusClosed
		return OutcomeMajorityRejected, nil
	default:
		return OutcomeInProgress, nil
	}
}

// Clone returns a deep copy, so a failed operation can be abandoned without
// touching the stored snapshot.
func (c *Case) Clone() *Case {
	out := *c
	out.Evidence = append([]byte{}, c.Evidence...)
	out.JurorCandidates = append([]common.Address{}, c.JurorCandidates...)
	out.Jurors = append([]common.Address{}, c.Jurors...)
	out.Voted = append([]common.Address{}, c.Voted...)
	return &out
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrArithmeticOverflow
	}
	return a + b, nil
}
