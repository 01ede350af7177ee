// Package client is the Go API for a tribunal server. It mirrors the HTTP
// surface one call per route.
package client

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/imroc/req/v3"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/ballot"
	"github.com/solsafe/tribunal/pkgs/evidence"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/registry"
	"github.com/solsafe/tribunal/pkgs/tribunal"
	"github.com/solsafe/tribunal/pkgs/wire"
)

type Client struct {
	Logger *zap.Logger
	Client *req.Client
	Addr   string
}

func New(addr string, logger *zap.Logger) *Client {
	return &Client{
		Logger: logger,
		Client: req.C(),
		Addr:   addr,
	}
}

// SendAndCollect posts a JSON body to a route and reads the response.
func (c *Client) SendAndCollect(method string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	r := c.Client.R()
	r.SetBodyBytes(data)
	r.SetContentType("application/json")
	res, err := r.Post(fmt.Sprintf("%v/%v", c.Addr, method))
	if err != nil {
		return nil, err
	}
	resdata, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("server responded", zap.String("method", method), zap.Int("status", res.StatusCode))
	return collect(res.StatusCode, resdata)
}

// GetAndCollect requests Get at a route.
func (c *Client) GetAndCollect(method string) ([]byte, error) {
	r := c.Client.R()
	res, err := r.Get(fmt.Sprintf("%v/%v", c.Addr, method))
	if err != nil {
		return nil, err
	}
	resdata, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("server responded", zap.String("method", method), zap.Int("status", res.StatusCode))
	return collect(res.StatusCode, resdata)
}

func collect(statusCode int, resdata []byte) ([]byte, error) {
	if statusCode < 200 || statusCode >= 300 {
		errmsg, parseErr := wire.ParseAsError(resdata)
		if parseErr == nil {
			return nil, fmt.Errorf("server returned %d: %v", statusCode, errmsg)
		}
		return nil, fmt.Errorf("server returned %d: %s", statusCode, string(resdata))
	}
	return resdata, nil
}

func (c *Client) HealthCheck() (*wire.HealthCheckResponse, error) {
	return request[wire.HealthCheckResponse](c.GetAndCollect("health_check"))
}

func (c *Client) SetValidators(caller common.Address, validators []common.Address) (*registry.Registry, error) {
	hexes := make([]string, len(validators))
	for i, v := range validators {
		hexes[i] = v.Hex()
	}
	return request[registry.Registry](c.SendAndCollect("validators", wire.SetValidatorsRequest{
		Caller:     caller.Hex(),
		Validators: hexes,
	}))
}

func (c *Client) SubmitCase(reporter, reported common.Address, evidenceRef []byte) (*tribunal.Case, error) {
	return request[tribunal.Case](c.SendAndCollect("cases", wire.SubmitCaseRequest{
		Reporter:        reporter.Hex(),
		ReportedAddress: reported.Hex(),
		Evidence:        evidenceRef,
	}))
}

func (c *Client) GetCase(caseID uint64) (*tribunal.Case, error) {
	return request[tribunal.Case](c.GetAndCollect(fmt.Sprintf("cases/%d", caseID)))
}

func (c *Client) RequestRandomness(caseID uint64, handle string) (*tribunal.Case, error) {
	return request[tribunal.Case](c.SendAndCollect(
		fmt.Sprintf("cases/%d/randomness", caseID), wire.RandomnessRequest{Handle: handle}))
}

func (c *Client) SelectJurors(caseID uint64) (*tribunal.Case, error) {
	return request[tribunal.Case](c.SendAndCollect(fmt.Sprintf("cases/%d/select", caseID), struct{}{}))
}

func (c *Client) Vote(caseID uint64, juror common.Address, approve bool) (*wire.VoteResponse, error) {
	return request[wire.VoteResponse](c.SendAndCollect(
		fmt.Sprintf("cases/%d/vote", caseID), wire.VoteRequest{Juror: juror.Hex(), Approve: approve}))
}

func (c *Client) CommitVote(caseID uint64, juror common.Address, commitment, nullifier common.Hash, proof ballot.Proof) (*ballot.Commitment, error) {
	return request[ballot.Commitment](c.SendAndCollect(
		fmt.Sprintf("cases/%d/commit", caseID), wire.CommitVoteRequest{
			Juror:      juror.Hex(),
			Commitment: commitment,
			Nullifier:  nullifier,
			Proof:      proof,
		}))
}

func (c *Client) RevealVote(caseID uint64, juror common.Address, vote bool, salt [32]byte) (*wire.VoteResponse, error) {
	return request[wire.VoteResponse](c.SendAndCollect(
		fmt.Sprintf("cases/%d/reveal", caseID), wire.RevealVoteRequest{
			Juror: juror.Hex(),
			Vote:  vote,
			Salt:  hexutil.Bytes(salt[:]),
		}))
}

func (c *Client) InitMPC(caseID, threshold uint64, encryptedTally []byte) (*mpc.Session, error) {
	return request[mpc.Session](c.SendAndCollect(
		fmt.Sprintf("cases/%d/mpc/init", caseID), wire.InitMPCRequest{
			Threshold:      threshold,
			EncryptedTally: encryptedTally,
		}))
}

func (c *Client) SubmitMPCShare(caseID uint64, juror common.Address, publicShare []byte, commitment common.Hash) (*mpc.KeyShare, error) {
	return request[mpc.KeyShare](c.SendAndCollect(
		fmt.Sprintf("cases/%d/mpc/share", caseID), wire.MPCShareRequest{
			Juror:       juror.Hex(),
			PublicShare: publicShare,
			Commitment:  commitment,
		}))
}

func (c *Client) SubmitPartialDecryption(caseID uint64, juror common.Address, decryptionShare, proof []byte) (*wire.DecryptionResponse, error) {
	return request[wire.DecryptionResponse](c.SendAndCollect(
		fmt.Sprintf("cases/%d/mpc/decrypt", caseID), wire.PartialDecryptionRequest{
			Juror:           juror.Hex(),
			DecryptionShare: decryptionShare,
			Proof:           proof,
		}))
}

func (c *Client) InitEvidence(caseID uint64, evidenceHash common.Hash, encrypted []byte, threshold uint64) (*evidence.Commitment, error) {
	return request[evidence.Commitment](c.SendAndCollect(
		fmt.Sprintf("evidence/%d", caseID), wire.InitEvidenceRequest{
			EvidenceHash:      evidenceHash,
			EncryptedEvidence: encrypted,
			Threshold:         threshold,
		}))
}

func (c *Client) VerifyEvidenceShare(caseID uint64, juror common.Address, shareCommitment common.Hash) (*evidence.Commitment, error) {
	return request[evidence.Commitment](c.SendAndCollect(
		fmt.Sprintf("evidence/%d/verify", caseID), wire.EvidenceShareRequest{
			Juror:           juror.Hex(),
			ShareCommitment: shareCommitment,
		}))
}

func request[T any](raw []byte, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
