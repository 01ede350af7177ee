package tribunal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/solsafe/tribunal/pkgs/ballot"
	"github.com/solsafe/tribunal/pkgs/mpc"
	"github.com/solsafe/tribunal/pkgs/randomness"
	"github.com/solsafe/tribunal/pkgs/registry"
	"github.com/solsafe/tribunal/pkgs/selector"
	"github.com/solsafe/tribunal/pkgs/store"
)

// Engine drives fraud cases through the full pipeline: registry management,
// randomness-seeded juror selection, public and commit-reveal voting, and the
// freeze action on quorum. Persistence is write-through: every operation
// validates against a clone of the stored records and commits a batch only
// when the whole operation succeeded.
type Engine struct {
	logger        *zap.Logger
	db            *store.Store
	selector      selector.Strategy
	oracle        randomness.Oracle
	verifier      ballot.Verifier
	freezer       Freezer
	shareVerifier mpc.ShareVerifier
	combiner      mpc.Combiner
	now           func() int64

	regMu sync.Mutex

	mu    sync.Mutex
	locks map[uint64]*sync.Mutex
}

// Config carries the injected strategies. Zero fields get conservative
// defaults; the store and logger are mandatory.
type Config struct {
	Selector      selector.Strategy
	Oracle        randomness.Oracle
	Verifier      ballot.Verifier
	Freezer       Freezer
	ShareVerifier mpc.ShareVerifier
	Combiner      mpc.Combiner
	Now           func() int64
}

func New(logger *zap.Logger, db *store.Store, cfg Config) *Engine {
	if cfg.Selector == nil {
		cfg.Selector = selector.NewRejectionSampling()
	}
	if cfg.Oracle == nil {
		cfg.Oracle = randomness.NewStaticOracle()
	}
	if cfg.Verifier == nil {
		cfg.Verifier = ballot.StructuralVerifier{}
	}
	if cfg.Freezer == nil {
		cfg.Freezer = &LogFreezer{Logger: logger}
	}
	if cfg.ShareVerifier == nil {
		cfg.ShareVerifier = mpc.NewKyberShareVerifier()
	}
	if cfg.Combiner == nil {
		cfg.Combiner = mpc.NewKyberCombiner()
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().Unix() }
	}
	return &Engine{
		logger:        logger,
		db:            db,
		selector:      cfg.Selector,
		oracle:        cfg.Oracle,
		verifier:      cfg.Verifier,
		freezer:       cfg.Freezer,
		shareVerifier: cfg.ShareVerifier,
		combiner:      cfg.Combiner,
		now:           cfg.Now,
		locks:         make(map[uint64]*sync.Mutex),
	}
}

// caseLock returns the mutex serializing operations on one case.
func (e *Engine) caseLock(id uint64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// Bootstrap creates the singleton validator registry. It fails if one exists.
func (e *Engine) Bootstrap(admin common.Address, quorum, minJurors uint64) (*registry.Registry, error) {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	ok, err := e.db.Has(store.RegistryKey())
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrRegistryExists
	}
	reg, err := registry.New(admin, quorum, minJurors)
	if err != nil {
		return nil, err
	}
	if err := e.putJSON(store.RegistryKey(), reg); err != nil {
		return nil, err
	}
	e.logger.Info("registry initialized",
		zap.String("admin", admin.Hex()),
		zap.Uint64("quorum", quorum),
		zap.Uint64("min_jurors", minJurors))
	return reg, nil
}

// SetValidators replaces the registry validator list. Admin only.
func (e *Engine) SetValidators(caller common.Address, validators []common.Address) (*registry.Registry, error) {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	if err := reg.SetValidators(caller, validators); err != nil {
		return nil, err
	}
	if err := e.putJSON(store.RegistryKey(), reg); err != nil {
		return nil, err
	}
	e.logger.Info("validator list replaced", zap.Int("count", len(validators)))
	return reg, nil
}

// Registry returns the current registry record.
func (e *Engine) Registry() (*registry.Registry, error) {
	e.regMu.Lock()
	defer e.regMu.Unlock()
	return e.loadRegistry()
}

// SubmitCase opens a new case for a fraud report. The validator list at
// submission is recorded for reference; selection re-reads the registry, so
// the pool and its sufficiency are evaluated at selection time.
func (e *Engine) SubmitCase(reporter, reported common.Address, evidence []byte) (*Case, error) {
	e.regMu.Lock()
	defer e.regMu.Unlock()

	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	id, err := e.nextCaseID()
	if err != nil {
		return nil, err
	}
	c, err := NewCase(id, reporter, reported, evidence)
	if err != nil {
		return nil, err
	}
	c.JurorCandidates = reg.Snapshot()

	exists, err := e.db.Has(store.CaseKey(id))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrCaseAlreadyExists
	}

	batch := e.db.NewBatch()
	defer batch.Close()
	if err := batchPutJSON(batch, store.CaseKey(id), c); err != nil {
		return nil, err
	}
	if err := batch.Put(store.CaseSeqKey(), encodeUint64(id)); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	e.logger.Info("case submitted",
		zap.Uint64("case_id", id),
		zap.String("reporter", reporter.Hex()),
		zap.String("reported", reported.Hex()),
		zap.Int("candidates", len(c.JurorCandidates)))
	return c, nil
}

// RequestRandomness records the oracle handle future selection will read from.
func (e *Engine) RequestRandomness(caseID uint64, handle string) (*Case, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCaseNotOpen
	}
	if c.Phase != PhasePendingJurors {
		return nil, ErrInvalidCase
	}
	c.RandomnessHandle = handle
	if err := e.putJSON(store.CaseKey(caseID), c); err != nil {
		return nil, err
	}
	e.logger.Debug("randomness requested",
		zap.Uint64("case_id", caseID), zap.String("handle", handle))
	return c, nil
}

// SelectJurors reads the revealed oracle entropy and derives the juror panel.
// One-shot: a case that already left PendingJurors rejects re-selection.
func (e *Engine) SelectJurors(ctx context.Context, caseID uint64) (*Case, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCaseNotOpen
	}
	if c.Phase != PhasePendingJurors {
		return nil, ErrInvalidCase
	}
	if c.RandomnessHandle == "" {
		return nil, randomness.ErrVrfNotReady
	}
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}

	// the panel is drawn from the validator set as of selection, not as of
	// submission; the refreshed pool persists with the panel
	clone := c.Clone()
	clone.JurorCandidates = reg.Snapshot()
	if uint64(len(clone.JurorCandidates)) < reg.MinJurors {
		return nil, ErrNotEnoughValidators
	}

	raw, err := e.oracle.Randomness(ctx, c.RandomnessHandle)
	if err != nil {
		return nil, errors.Wrap(err, "fetch oracle randomness")
	}
	seed, err := randomness.ExtractSeed(raw)
	if err != nil {
		return nil, err
	}

	jurors, err := e.selector.Select(seed, clone.JurorCandidates, int(reg.MinJurors))
	if err != nil {
		return nil, err
	}
	clone.Jurors = jurors
	clone.Phase = PhaseVoting
	if err := e.putJSON(store.CaseKey(caseID), clone); err != nil {
		return nil, err
	}
	e.logger.Info("jurors selected",
		zap.Uint64("case_id", caseID),
		zap.String("strategy", e.selector.Name()),
		zap.Int("jurors", len(jurors)))
	return clone, nil
}

// Vote records a public juror vote. A quorum of approvals triggers the freeze
// action; if freezing fails the vote is not persisted.
func (e *Engine) Vote(ctx context.Context, caseID uint64, juror common.Address, approve bool) (*Case, Outcome, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, OutcomeInProgress, err
	}
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, OutcomeInProgress, err
	}

	clone := c.Clone()
	outcome, err := e.applyVote(ctx, clone, juror, approve, reg.Quorum)
	if err != nil {
		return nil, OutcomeInProgress, err
	}
	if err := e.putJSON(store.CaseKey(caseID), clone); err != nil {
		return nil, OutcomeInProgress, err
	}
	e.logger.Info("vote recorded",
		zap.Uint64("case_id", caseID),
		zap.String("juror", juror.Hex()),
		zap.Bool("approve", approve),
		zap.Uint64("votes_for", clone.VotesFor),
		zap.Uint64("votes_against", clone.VotesAgainst))
	return clone, outcome, nil
}

// applyVote mutates the clone and runs the freeze action on quorum. Callers
// persist the clone only on nil error.
func (e *Engine) applyVote(ctx context.Context, c *Case, juror common.Address, approve bool, quorum uint64) (Outcome, error) {
	outcome, err := c.RecordVote(juror, approve, quorum)
	if err != nil {
		return outcome, err
	}
	if outcome == OutcomeQuorum {
		if err := e.freezer.Freeze(ctx, c.ID, c.ReportedAddress); err != nil {
			return outcome, errors.Wrap(err, "freeze reported address")
		}
		c.Status = StatusFrozen
		e.logger.Warn("quorum reached, reported address frozen",
			zap.Uint64("case_id", c.ID),
			zap.String("reported", c.ReportedAddress.Hex()))
	}
	return outcome, nil
}

// CommitVote stores a hidden vote commitment for a juror. The nullifier must
// be fresh and the proof must bind it to the commitment.
func (e *Engine) CommitVote(caseID uint64, juror common.Address, commitment, nullifier common.Hash, proof ballot.Proof) (*ballot.Commitment, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusOpen {
		return nil, ErrCaseNotOpen
	}
	if c.Phase != PhaseVoting {
		return nil, ErrCaseNotVoting
	}
	if !c.IsJuror(juror) {
		return nil, ErrNotJuror
	}
	if c.HasVoted(juror) {
		return nil, ErrAlreadyVoted
	}

	used, err := e.db.Has(store.NullifierKey(caseID, nullifier))
	if err != nil {
		return nil, err
	}
	if used {
		return nil, ErrNullifierUsed
	}

	// one live commitment per juror per case
	existing, ok, err := e.loadBallot(caseID, juror)
	if err != nil {
		return nil, err
	}
	if ok && !existing.Revealed {
		return nil, ErrAlreadyVoted
	}

	if err := e.verifier.VerifyVoteCommitment(proof, caseID, commitment, nullifier); err != nil {
		return nil, err
	}

	record := &ballot.Commitment{
		Juror:      juror,
		CaseID:     caseID,
		Commitment: commitment,
		Nullifier:  nullifier,
		Timestamp:  e.now(),
	}
	batch := e.db.NewBatch()
	defer batch.Close()
	if err := batchPutJSON(batch, store.BallotKey(caseID, juror), record); err != nil {
		return nil, err
	}
	if err := batch.Put(store.NullifierKey(caseID, nullifier), []byte{1}); err != nil {
		return nil, err
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	e.logger.Info("vote commitment stored",
		zap.Uint64("case_id", caseID),
		zap.String("juror", juror.Hex()),
		zap.String("nullifier", nullifier.Hex()))
	return record, nil
}

// RevealVote discloses a committed vote. A matching reveal is counted through
// the same tally as public votes, so double counting across paths cannot
// happen.
func (e *Engine) RevealVote(ctx context.Context, caseID uint64, juror common.Address, vote bool, salt [32]byte) (*Case, Outcome, error) {
	lock := e.caseLock(caseID)
	lock.Lock()
	defer lock.Unlock()

	record, ok, err := e.loadBallot(caseID, juror)
	if err != nil {
		return nil, OutcomeInProgress, err
	}
	if !ok {
		return nil, OutcomeInProgress, ErrNoCommitment
	}
	if record.Revealed {
		return nil, OutcomeInProgress, ErrAlreadyRevealed
	}
	if !record.VerifyReveal(vote, salt) {
		return nil, OutcomeInProgress, ErrInvalidReveal
	}

	c, err := e.loadCase(caseID)
	if err != nil {
		return nil, OutcomeInProgress, err
	}
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, OutcomeInProgress, err
	}

	clone := c.Clone()
	outcome, err := e.applyVote(ctx, clone, juror, vote, reg.Quorum)
	if err != nil {
		return nil, OutcomeInProgress, err
	}
	record.Revealed = true

	batch := e.db.NewBatch()
	defer batch.Close()
	if err := batchPutJSON(batch, store.CaseKey(caseID), clone); err != nil {
		return nil, OutcomeInProgress, err
	}
	if err := batchPutJSON(batch, store.BallotKey(caseID, juror), record); err != nil {
		return nil, OutcomeInProgress, err
	}
	if err := batch.Commit(); err != nil {
		return nil, OutcomeInProgress, err
	}
	e.logger.Info("vote revealed",
		zap.Uint64("case_id", caseID),
		zap.String("juror", juror.Hex()),
		zap.Bool("approve", vote))
	return clone, outcome, nil
}

// GetCase returns the stored case record.
func (e *Engine) GetCase(caseID uint64) (*Case, error) {
	return e.loadCase(caseID)
}

// GetBallot returns a juror's commitment for a case, if any.
func (e *Engine) GetBallot(caseID uint64, juror common.Address) (*ballot.Commitment, error) {
	record, ok, err := e.loadBallot(caseID, juror)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoCommitment
	}
	return record, nil
}

func (e *Engine) loadRegistry() (*registry.Registry, error) {
	reg := &registry.Registry{}
	ok, err := e.getJSON(store.RegistryKey(), reg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRegistryNotFound
	}
	return reg, nil
}

func (e *Engine) loadCase(caseID uint64) (*Case, error) {
	c := &Case{}
	ok, err := e.getJSON(store.CaseKey(caseID), c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCaseNotFound
	}
	return c, nil
}

func (e *Engine) loadBallot(caseID uint64, juror common.Address) (*ballot.Commitment, bool, error) {
	record := &ballot.Commitment{}
	ok, err := e.getJSON(store.BallotKey(caseID, juror), record)
	if err != nil {
		return nil, false, err
	}
	return record, ok, nil
}

func (e *Engine) nextCaseID() (uint64, error) {
	raw, ok, err := e.db.Get(store.CaseSeqKey())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	last := decodeUint64(raw)
	return checkedAdd(last, 1)
}

func (e *Engine) getJSON(key []byte, out any) (bool, error) {
	raw, ok, err := e.db.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.Wrap(err, "decode stored record")
	}
	return true, nil
}

func (e *Engine) putJSON(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return e.db.Put(key, raw)
}

func batchPutJSON(batch *store.Batch, key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	return batch.Put(key, raw)
}

func encodeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeUint64(raw []byte) uint64 {
	if len(raw) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(raw)
}
