// Copyright 2024 Terminos Network
// This file is part of the gtos library.
//
// The gtos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gtos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gtos library. If not, see <http://www.gnu.org/licenses/>.

// Package batchexec implements the batch executor: it drives a
// strictly-sequential pass over a batch's transaction list with a
// shared group-level state cache, promoting or discarding each
// transaction's effects and synthesizing the ordered return-sets the
// caller observes.
//
// Execution stays single-threaded at any one time, but each transaction
// still runs on its own goroutine via golang.org/x/sync/errgroup so an
// external cancellation can interrupt a transaction mid-VM-step rather
// than only being checked between transactions.
package batchexec

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/txexec"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/log"
)

var logger = log.New("module", "batchexec")

// ResultStore persists synthesized results once a batch completes.
type ResultStore interface {
	AddTransactionResults(results []Result, header types.BlockHeader) error
}

// stateSource adapts a plain map to statecache.Source for seeding the
// group cache from BatchRequest.PartialBlockStateSet.
type stateSource map[string][]byte

func (s stateSource) Get(key []byte) ([]byte, bool) {
	v, ok := s[string(key)]
	return v, ok
}

// Executor drives one batch at a time over a shared single-transaction
// Executor and an optional ResultStore.
type Executor struct {
	singleTx     *txexec.Executor
	resultStore  ResultStore
	throwOnError bool
}

// New returns a batch Executor. throwOnError gates verbose per-transaction
// error logging; it does not affect whether unexpected exceptions
// propagate out of Execute (they always do).
func New(singleTx *txexec.Executor, store ResultStore, throwOnError bool) *Executor {
	return &Executor{singleTx: singleTx, resultStore: store, throwOnError: throwOnError}
}

// Execute runs req and returns the ordered return-sets for every
// transaction that was neither skipped (per-tx cancellation) nor excluded
// by full-batch cancellation.
func (e *Executor) Execute(ctx context.Context, req *types.BatchRequest) ([]ReturnSet, error) {
	runID := uuid.New()
	logger.Info("batch started", "runId", runID, "height", req.BlockHeader.Height, "txs", len(req.Transactions))
	defer logger.Info("batch finished", "runId", runID)

	var source statecache.Source
	if len(req.PartialBlockStateSet) > 0 {
		source = stateSource(req.PartialBlockStateSet)
	}
	groupCache := statecache.New(source)

	groupCC := chainctx.Context{
		PreviousBlockHash:   req.BlockHeader.PreviousBlockHash,
		PreviousBlockHeight: req.BlockHeader.Height - 1,
		Cache:               groupCache,
	}

	returnSets := make([]ReturnSet, 0, len(req.Transactions))
	results := make([]Result, 0, len(req.Transactions))

	for i, tx := range req.Transactions {
		if ctx.Err() != nil {
			logger.Warn("batch canceled, stopping", "remaining", len(req.Transactions)-i)
			break
		}

		t, err := e.executeOne(ctx, groupCC, tx, req.BlockHeader.Time)
		if err != nil {
			logger.Error("transaction execution failed, aborting batch", "runId", runID, "tx", tx.Hash().Hex(), "error", err)
			return nil, err
		}
		if t == nil {
			// Per-transaction cancellation observed mid-VM, not a
			// full-batch cancellation: skip and continue.
			canceledMeter.Mark(1)
			continue
		}

		if !tryPromote(groupCache, t) {
			discardedMeter.Mark(1)
			break
		}
		promotedMeter.Mark(1)

		if t.Error != "" {
			logger.Info("trace completed with error", "tx", t.TransactionID.Hex(), "error", t.Error)
		}

		res, rs := synthesize(t)
		if e.throwOnError && res.Kind == Failed {
			logger.Error("transaction failed", "tx", t.TransactionID.Hex(), "error", t.Error)
		}
		results = append(results, res)
		returnSets = append(returnSets, rs)
	}

	if e.resultStore != nil {
		if err := e.resultStore.AddTransactionResults(results, req.BlockHeader); err != nil {
			return nil, err
		}
	}

	return returnSets, nil
}

// executeOne runs tx at depth 0 on its own goroutine so a cancellation
// mid-execution is observed promptly. A nil, nil return means the
// transaction produced no trace to promote: either it alone came back
// Canceled while the batch-wide context is still live, or it returned an
// error after the batch-wide context was canceled (the caller's loop then
// stops at its next cancellation check).
func (e *Executor) executeOne(ctx context.Context, cc chainctx.Context, tx *types.Transaction, blockTime int64) (*trace.Trace, error) {
	g, gCtx := errgroup.WithContext(ctx)
	var t *trace.Trace
	g.Go(func() error {
		var err error
		t, err = e.singleTx.Execute(gCtx, txexec.Input{
			Depth:            0,
			ChainContext:     cc,
			Transaction:      tx,
			CurrentBlockTime: blockTime,
			IsCancellable:    true,
		})
		return err
	})

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, err
	}

	if t != nil && t.ExecutionStatus == trace.Canceled && ctx.Err() == nil {
		return nil, nil
	}

	return t, nil
}

// tryPromote decides whether, and how much of, t's effects the group
// cache absorbs: a fully successful trace promotes in full, a canceled
// one promotes nothing, and anything else promotes only its successful
// pre/post sub-traces while surfacing the deepest error onto t.
func tryPromote(groupCache *statecache.Cache, t *trace.Trace) bool {
	if t == nil {
		return false
	}

	if t.IsFullySuccessful() {
		groupCache.Update(flatten(t)...)
		return true
	}

	if t.IsCanceled() {
		return false
	}

	promotable := make([]*statecache.StateSet, 0)
	for _, p := range t.PreTraces {
		if p.IsFullySuccessful() {
			promotable = append(promotable, flatten(p)...)
		}
	}
	for _, p := range t.PostTraces {
		if p.IsFullySuccessful() {
			promotable = append(promotable, flatten(p)...)
		}
	}
	groupCache.Update(promotable...)

	surfaceUpError(t)
	return true
}

// flatten returns every StateSet in t's subtree, t's own first.
func flatten(t *trace.Trace) []*statecache.StateSet {
	sets := []*statecache.StateSet{t.StateSet}
	for _, c := range t.PreTraces {
		sets = append(sets, flatten(c)...)
	}
	for _, c := range t.InlineTraces {
		sets = append(sets, flatten(c)...)
	}
	for _, c := range t.PostTraces {
		sets = append(sets, flatten(c)...)
	}
	return sets
}

// surfaceUpError lifts the deepest non-empty error message onto t.Error.
func surfaceUpError(t *trace.Trace) {
	deepest := deepestError(t)
	if deepest != "" && t.Error == "" {
		t.Error = deepest
	}
}

func deepestError(t *trace.Trace) string {
	for _, groups := range [][]*trace.Trace{t.PostTraces, t.InlineTraces, t.PreTraces} {
		for i := len(groups) - 1; i >= 0; i-- {
			if e := deepestError(groups[i]); e != "" {
				return e
			}
		}
	}
	return t.Error
}
