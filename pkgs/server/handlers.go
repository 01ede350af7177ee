package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/evidence"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/randomness"
	"github.com/solsafe/tribunal/pkgs/registry"
	"github.com/solsafe/tribunal/pkgs/tribunal"
	"github.com/solsafe/tribunal/pkgs/utils"
	"github.com/solsafe/tribunal/pkgs/wire"
)

func (s *Server) setValidatorsHandler(writer http.ResponseWriter, request *http.Request) {
	req := &wire.SetValidatorsRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	caller, err := utils.HexToAddress(req.Caller)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	validators := make([]common.Address, 0, len(req.Validators))
	for _, v := range req.Validators {
		addr, err := utils.HexToAddress(v)
		if err != nil {
			utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
			return
		}
		validators = append(validators, addr)
	}
	reg, err := s.Engine.SetValidators(caller, validators)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, reg, http.StatusOK)
}

func (s *Server) submitCaseHandler(writer http.ResponseWriter, request *http.Request) {
	req := &wire.SubmitCaseRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	reporter, err := utils.HexToAddress(req.Reporter)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	reported, err := utils.HexToAddress(req.ReportedAddress)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	c, err := s.Engine.SubmitCase(reporter, reported, req.Evidence)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, c, http.StatusCreated)
}

func (s *Server) getCaseHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	c, err := s.Engine.GetCase(caseID)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, c, http.StatusOK)
}

func (s *Server) randomnessHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.RandomnessRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	c, err := s.Engine.RequestRandomness(caseID, req.Handle)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, c, http.StatusOK)
}

func (s *Server) selectJurorsHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	c, err := s.Engine.SelectJurors(request.Context(), caseID)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	s.Logger.Info("juror panel drawn",
		zap.Uint64("case_id", caseID), zap.Int("jurors", len(c.Jurors)))
	utils.WriteJSONResponse(s.Logger, writer, c, http.StatusOK)
}

func (s *Server) voteHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.VoteRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	c, outcome, err := s.Engine.Vote(request.Context(), caseID, juror, req.Approve)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, &wire.VoteResponse{
		Case:    c,
		Outcome: wire.OutcomeString(outcome),
	}, http.StatusOK)
}

func (s *Server) commitHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.CommitVoteRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	record, err := s.Engine.CommitVote(caseID, juror, req.Commitment, req.Nullifier, req.Proof)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, record, http.StatusCreated)
}

func (s *Server) revealHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.RevealVoteRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	if len(req.Salt) != 32 {
		utils.WriteErrorResponse(s.Logger, writer, errors.New("salt must be 32 bytes"), http.StatusBadRequest)
		return
	}
	var salt [32]byte
	copy(salt[:], req.Salt)
	c, outcome, err := s.Engine.RevealVote(request.Context(), caseID, juror, req.Vote, salt)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, &wire.VoteResponse{
		Case:    c,
		Outcome: wire.OutcomeString(outcome),
	}, http.StatusOK)
}

func (s *Server) initMPCHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.InitMPCRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	session, err := s.Engine.InitMPC(caseID, req.Threshold, req.EncryptedTally)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, session, http.StatusCreated)
}

func (s *Server) mpcShareHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.MPCShareRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	share, err := s.Engine.SubmitMPCShare(caseID, juror, req.PublicShare, req.Commitment)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, share, http.StatusCreated)
}

func (s *Server) mpcDecryptHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.PartialDecryptionRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	session, result, err := s.Engine.SubmitPartialDecryption(caseID, mpc.PartialDecryption{
		Juror:           juror,
		DecryptionShare: req.DecryptionShare,
		Proof:           req.Proof,
	})
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, &wire.DecryptionResponse{
		Session: session,
		Result:  result,
	}, http.StatusOK)
}

func (s *Server) initEvidenceHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.InitEvidenceRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	commitment, err := s.Engine.InitEvidence(caseID, req.EvidenceHash, req.EncryptedEvidence, req.Threshold)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, commitment, http.StatusCreated)
}

func (s *Server) evidenceShareHandler(writer http.ResponseWriter, request *http.Request) {
	caseID, err := casePathID(request)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	req := &wire.EvidenceShareRequest{}
	if err := decodeBody(request, req); err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	juror, err := utils.HexToAddress(req.Juror)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, http.StatusBadRequest)
		return
	}
	commitment, err := s.Engine.VerifyEvidenceShare(caseID, juror, req.ShareCommitment)
	if err != nil {
		utils.WriteErrorResponse(s.Logger, writer, err, statusFor(err))
		return
	}
	utils.WriteJSONResponse(s.Logger, writer, commitment, http.StatusOK)
}

func (s *Server) healthHandler(writer http.ResponseWriter, request *http.Request) {
	utils.WriteJSONResponse(s.Logger, writer, &wire.HealthCheckResponse{Status: "ok"}, http.StatusOK)
}

func decodeBody(request *http.Request, out any) error {
	defer request.Body.Close()
	return json.NewDecoder(request.Body).Decode(out)
}

func casePathID(request *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(request, "id"), 10, 64)
}

// statusFor maps engine sentinel errors onto HTTP statuses. Unknown errors are
// client errors: the engine wraps internal failures as SensitiveError before
// they reach here.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, tribunal.ErrCaseNotFound),
		errors.Is(err, tribunal.ErrRegistryNotFound),
		errors.Is(err, tribunal.ErrNoCommitment),
		errors.Is(err, mpc.ErrSessionNotFound),
		errors.Is(err, evidence.ErrCommitmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, tribunal.ErrCaseNotOpen),
		errors.Is(err, tribunal.ErrRegistryExists),
		errors.Is(err, tribunal.ErrCaseAlreadyExists),
		errors.Is(err, tribunal.ErrNullifierUsed),
		errors.Is(err, tribunal.ErrAlreadyVoted),
		errors.Is(err, tribunal.ErrAlreadyRevealed),
		errors.Is(err, randomness.ErrVrfNotReady),
		errors.Is(err, mpc.ErrSessionExists),
		errors.Is(err, mpc.ErrDuplicateShare),
		errors.Is(err, mpc.ErrDuplicatePartial),
		errors.Is(err, mpc.ErrComputationComplete),
		errors.Is(err, evidence.ErrCommitmentExists),
		errors.Is(err, evidence.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, tribunal.ErrNotJuror),
		errors.Is(err, mpc.ErrShareNotVerified):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}
