package wire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/tribunal"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ParseAsError extracts the error message from a JSON error body.
func ParseAsError(raw []byte) (string, error) {
	resp := &ErrorResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		return "", errors.Wrap(err, "response is not an error body")
	}
	if resp.Error == "" {
		return "", errors.New("empty error body")
	}
	return resp.Error, nil
}

// VoteResponse pairs the updated case with the tally outcome of this vote.
type VoteResponse struct {
	Case    *tribunal.Case `json:"case"`
	Outcome string         `json:"outcome"`
}

// DecryptionResponse carries the session and, once the threshold-th partial
// landed, the decrypted tally.
type DecryptionResponse struct {
	Session *mpc.Session    `json:"session"`
	Result  *mpc.VoteResult `json:"result,omitempty"`
}

type HealthCheckResponse struct {
	Status string `json:"status"`
}

// OutcomeString renders a tally outcome for the wire.
func OutcomeString(o tribunal.Outcome) string {
	switch o {
	case tribunal.OutcomeQuorum:
		return "quorum"
	case tribunal.OutcomeMajorityApproved:
		return "majority_approved"
	case tribunal.OutcomeMajorityRejected:
		return "majority_rejected"
	default:
		return "in_progress"
	}
}
