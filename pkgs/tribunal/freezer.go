package tribunal

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Freezer is the external authority-transfer service invoked exactly once when
// a case reaches quorum approval. The handoff contract is the case id, the
// reported address, and the Approved decision; custody of the frozen assets is
// entirely out of scope here. A Freeze error aborts the triggering vote, so no
// partial state is persisted.
type Freezer interface {
	Freeze(ctx context.Context, caseID uint64, reported common.Address) error
}

// NopFreezer accepts every freeze request without side effects.
type NopFreezer struct{}

func (NopFreezer) Freeze(context.Context, uint64, common.Address) error { return nil }

// LogFreezer records the handoff for deployments where the freeze service is
// driven off the log stream.
type LogFreezer struct {
	Logger *zap.Logger
}

func (f LogFreezer) Freeze(_ context.Context, caseID uint64, reported common.Address) error {
	f.Logger.Info("freeze decision reached",
		zap.Uint64("case", caseID),
		zap.String("reported_address", reported.Hex()),
		zap.String("decision", "approved"))
	return nil
}
