package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// MaxValidators bounds the registry record size at write time.
const MaxValidators = 100

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTooManyValidators  = fmt.Errorf("validator list exceeds maximum of %d", MaxValidators)
	ErrDuplicateValidator = errors.New("duplicate validator address")
	ErrZeroQuorum         = errors.New("quorum must be positive")
	ErrZeroMinJurors      = errors.New("minimum juror count must be positive")
)

// Registry is the admin-curated list of addresses eligible to serve as jurors.
// One registry exists per deployment. Index order of Validators is stable and
// is what makes juror selection reproducible.
type Registry struct {
	Admin      common.Address   `json:"admin"`
	Validators []common.Address `json:"validators"`
	Quorum     uint64           `json:"quorum"`
	MinJurors  uint64           `json:"min_jurors"`
}

// New creates an empty registry owned by admin.
func New(admin common.Address, quorum, minJurors uint64) (*Registry, error) {
	if quorum == 0 {
		return nil, ErrZeroQuorum
	}
	if minJurors == 0 {
		return nil, ErrZeroMinJurors
	}
	return &Registry{
		Admin:      admin,
		Validators: []common.Address{},
		Quorum:     quorum,
		MinJurors:  minJurors,
	}, nil
}

// SetValidators replaces the whole validator list. Replacement is atomic and
// intentionally carries no diff semantics: the admin may shrink the list below
// an in-flight case's juror requirement, which is only checked lazily at
// selection time.
func (r *Registry) SetValidators(caller common.Address, validators []common.Address) error {
	if caller != r.Admin {
		return ErrUnauthorized
	}
	if len(validators) > MaxValidators {
		return ErrTooManyValidators
	}
	seen := make(map[common.Address]struct{}, len(validators))
	for _, v := range validators {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateValidator, v.Hex())
		}
		seen[v] = struct{}{}
	}
	r.Validators = append([]common.Address{}, validators...)
	return nil
}

// Contains reports whether addr is currently registered.
func (r *Registry) Contains(addr common.Address) bool {
	for _, v := range r.Validators {
		if v == addr {
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the validator list in its stable index order.
func (r *Registry) Snapshot() []common.Address {
	return append([]common.Address{}, r.Validators...)
}
