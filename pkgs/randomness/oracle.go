package randomness

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/imroc/req/v3"
	"go.uber.org/zap"
)

// StaticOracle serves randomness from memory. Used in tests and single-node
// deployments where the operator posts oracle reveals out of band.
type StaticOracle struct {
	mtx  sync.RWMutex
	data map[string][]byte
}

func NewStaticOracle() *StaticOracle {
	return &StaticOracle{data: make(map[string][]byte)}
}

// Post stores the raw account bytes for ref, simulating an oracle reveal.
func (o *StaticOracle) Post(ref string, raw []byte) {
	o.mtx.Lock()
	defer o.mtx.Unlock()
	o.data[ref] = append([]byte{}, raw...)
}

func (o *StaticOracle) Randomness(_ context.Context, ref string) ([]byte, error) {
	o.mtx.RLock()
	defer o.mtx.RUnlock()
	raw, ok := o.data[ref]
	if !ok {
		return nil, ErrVrfNotReady
	}
	return append([]byte{}, raw...), nil
}

// HTTPOracle fetches randomness account bytes from an oracle gateway. The
// reference is used as a path component under the gateway base URL.
type HTTPOracle struct {
	logger *zap.Logger
	client *req.Client
	base   string
}

func NewHTTPOracle(baseURL string, logger *zap.Logger) *HTTPOracle {
	return &HTTPOracle{
		logger: logger,
		client: req.C(),
		base:   baseURL,
	}
}

func (o *HTTPOracle) Randomness(ctx context.Context, ref string) ([]byte, error) {
	res, err := o.client.R().SetContext(ctx).Get(fmt.Sprintf("%s/randomness/%s", o.base, ref))
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("oracle responded", zap.String("ref", ref), zap.Int("bytes", len(raw)), zap.Int("status", res.StatusCode))
	if res.StatusCode == 404 {
		return nil, ErrVrfNotReady
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("oracle returned status %d", res.StatusCode)
	}
	return raw, nil
}
