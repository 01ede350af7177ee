package tribunal

import "errors"

var (
	ErrCaseNotFound        = errors.New("case not found")
	ErrCaseAlreadyExists   = errors.New("case already exists")
	ErrCaseNotOpen         = errors.New("case not open")
	ErrCaseNotVoting       = errors.New("case not in voting state")
	ErrInvalidCase         = errors.New("invalid case state")
	ErrNotJuror            = errors.New("not a juror")
	ErrAlreadyVoted        = errors.New("already voted")
	ErrNotEnoughValidators = errors.New("not enough validators")
	ErrEvidenceTooLarge    = errors.New("evidence too large")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow detected")
	ErrRegistryExists      = errors.New("registry already initialized")
	ErrRegistryNotFound    = errors.New("registry not initialized")
	ErrNullifierUsed       = errors.New("nullifier already used")
	ErrInvalidReveal       = errors.New("invalid reveal")
	ErrAlreadyRevealed     = errors.New("commitment already revealed")
	ErrNoCommitment        = errors.New("no commitment for juror")
)
