package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/platform/dbctx"
)

type TxStats struct {
	Begins    int
	Commits   int
	Rollbacks int
}

// FaultyTxRunner injects failures at the transaction boundaries of a write.
// CommitFaults are consumed one per transaction, so a test can refuse the first
// commits and let later ones through. With Inner set the body runs inside
// Inner's real transaction, and a refused commit rolls it back.
type FaultyTxRunner struct {
	Inner        aggregates.TxRunner
	BeginErr     error
	CommitFaults []error

	mu    sync.Mutex
	stats TxStats
}

var _ aggregates.TxRunner = (*FaultyTxRunner)(nil)

func (r *FaultyTxRunner) Stats() TxStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *FaultyTxRunner) begin() (beginErr, commitErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.Begins++
	if r.BeginErr != nil {
		return r.BeginErr, nil
	}
	if len(r.CommitFaults) > 0 {
		commitErr, r.CommitFaults = r.CommitFaults[0], r.CommitFaults[1:]
	}
	return nil, commitErr
}

func (r *FaultyTxRunner) end(err error) error {
	r.mu.Lock()
	if err != nil {
		r.stats.Rollbacks++
	} else {
		r.stats.Commits++
	}
	r.mu.Unlock()
	return err
}

func (r *FaultyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	beginErr, commitErr := r.begin()
	if beginErr != nil {
		return beginErr
	}
	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return commitErr
	}
	if r.Inner != nil {
		return r.end(r.Inner.InTx(ctx, body))
	}
	return r.end(body(dbctx.Context{Ctx: ctx}))
}
