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

// Package txexec implements the single-transaction executor: the
// recursive core that runs one transaction (and, below it, its inline
// sub-transactions) through the VM, with pre/post-plugin orchestration
// happening only at the top of the recursion (depth 0).
package txexec

import (
	"context"
	"errors"
	"fmt"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/plugin"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/core/vmexec"
	"github.com/tos-network/txexec/log"
	"github.com/tos-network/txexec/params"
)

var logger = log.New("module", "txexec")

// EventSink receives a TransactionExecuted notification for debug-only
// observers. The executor publishes one for every transaction it runs
// past validation, at any depth: top-level, inline and plugin-generated
// sub-transactions alike.
type EventSink interface {
	Publish(t *trace.Trace)
}

// Input is the per-call argument bundle for Executor.Execute.
type Input struct {
	Depth            int
	ChainContext     chainctx.Context
	Transaction      *types.Transaction
	CurrentBlockTime int64
	Origin           *common.Address
	IsCancellable    bool
}

// Executor runs single transactions, recursing into inline
// sub-transactions and, at depth 0, bracketing the VM call with
// pre/post-plugin orchestration.
type Executor struct {
	vm           vmexec.VM
	orchestrator *plugin.Orchestrator
	events       EventSink
}

// New returns an Executor bound to vm, with pre and post plugin lists
// (deduplicated by the orchestrator, one instance per concrete type).
// events may be nil.
func New(vm vmexec.VM, pre, post []plugin.Plugin, events EventSink) *Executor {
	e := &Executor{vm: vm, events: events}
	e.orchestrator = plugin.NewOrchestrator(pre, post, e.runSubTransaction)
	return e
}

// runSubTransaction adapts applyOnly to plugin.TxRunner: a pre/post
// synthetic transaction runs its VM body and inline recursion at depth
// 0, inheriting the parent trace context's origin and block time, but
// never goes through plugin orchestration itself. Without this, a
// synthetic ChargeTransactionFees transaction would re-enter the fee
// plugin's pre-stage and spawn another ChargeTransactionFees
// transaction for itself, forever.
func (e *Executor) runSubTransaction(ctx context.Context, cc chainctx.Context, tx *types.Transaction, parent *trace.Context) (*trace.Trace, error) {
	origin := parent.Origin
	return e.applyOnly(ctx, Input{
		Depth:            0,
		ChainContext:     cc,
		Transaction:      tx,
		CurrentBlockTime: parent.CurrentBlockTime,
		Origin:           &origin,
		IsCancellable:    false,
	})
}

// Execute runs in.Transaction as a user-facing top-level or inline step:
// a depth-0 call is bracketed by plugin orchestration, anything deeper
// is not.
func (e *Executor) Execute(ctx context.Context, in Input) (*trace.Trace, error) {
	return e.run(ctx, in, in.Depth == 0)
}

// applyOnly runs in.Transaction's VM body and inline recursion without
// ever invoking plugin orchestration, regardless of depth. It is the
// execution path for the orchestrator's own synthetic pre/post
// transactions.
func (e *Executor) applyOnly(ctx context.Context, in Input) (*trace.Trace, error) {
	return e.run(ctx, in, false)
}

// run is the shared body behind Execute and applyOnly. A malformed
// transaction propagates as a bare error before any trace exists;
// unexpected errors from the VM body, inline recursion or plugins are
// returned alongside a ContractError-classified trace so the caller can
// decide whether to log-and-continue or abort the batch. An executive
// lookup error other than ErrContractNotFound is returned with a trace
// still in Undefined status.
func (e *Executor) run(ctx context.Context, in Input, withPlugins bool) (*trace.Trace, error) {
	if in.IsCancellable && ctx.Err() != nil {
		t := trace.New(in.Transaction)
		t.ExecutionStatus = trace.Canceled
		return t, nil
	}

	if err := in.Transaction.Validate(); err != nil {
		return nil, err
	}

	origin := in.Transaction.From
	if in.Origin != nil {
		origin = *in.Origin
	}

	internalCache := in.ChainContext.Cache.Child()
	internalCC := in.ChainContext.WithCache(internalCache)

	tctx := &trace.Context{
		PreviousBlockHash: in.ChainContext.PreviousBlockHash,
		BlockHeight:       in.ChainContext.PreviousBlockHeight + 1,
		CurrentBlockTime:  in.CurrentBlockTime,
		CallDepth:         in.Depth,
		Origin:            origin,
		Transaction:       in.Transaction,
		ChainContext:      internalCC,
		Trace:             trace.New(in.Transaction),
	}

	if e.events != nil {
		defer e.events.Publish(tctx.Trace)
	}

	executive, err := e.vm.GetExecutive(in.Transaction.To)
	if err != nil {
		if errors.Is(err, vmexec.ErrContractNotFound) {
			tctx.Trace.ExecutionStatus = trace.ContractError
			tctx.Trace.AppendError("Invalid contract address.\n")
			return tctx.Trace, nil
		}
		return tctx.Trace, err
	}
	defer e.vm.PutExecutive(in.Transaction.To, executive)

	if withPlugins {
		ok, err := e.orchestrator.Pre(ctx, tctx.ChainContext, tctx, in.ChainContext.Cache)
		if err != nil {
			tctx.Trace.ExecutionStatus = trace.ContractError
			tctx.Trace.AppendError(err.Error())
			return tctx.Trace, err
		}
		if !ok {
			tctx.Trace.ExecutionStatus = trace.Prefailed
			return tctx.Trace, nil
		}
	}

	returnValue, err := executive.Apply(ctx, tctx.ChainContext, in.Transaction, tctx)
	if err != nil {
		tctx.Trace.ExecutionStatus = trace.ContractError
		tctx.Trace.AppendError(err.Error())
		return tctx.Trace, err
	}
	tctx.Trace.ReturnValue = returnValue
	tctx.Trace.ExecutionStatus = trace.Executed

	if tctx.Trace.ExecutionStatus.IsSuccessful() {
		tctx.ChainContext.Cache.Update(tctx.Trace.StateSet)
		if err := e.runInline(ctx, tctx, in); err != nil {
			tctx.Trace.ExecutionStatus = trace.ContractError
			tctx.Trace.AppendError(err.Error())
			return tctx.Trace, err
		}
	}

	if withPlugins {
		newCC, ok, err := e.orchestrator.Post(ctx, tctx.ChainContext, tctx, in.ChainContext.Cache)
		tctx.ChainContext = newCC
		if err != nil {
			tctx.Trace.ExecutionStatus = trace.ContractError
			tctx.Trace.AppendError(err.Error())
			return tctx.Trace, err
		}
		if !ok {
			tctx.Trace.ExecutionStatus = trace.Postfailed
			return tctx.Trace, nil
		}
	}

	return tctx.Trace, nil
}

// runInline recurses into each of tctx.Trace's inline transactions at
// depth+1, inheriting origin from the root rather than the immediate
// caller, stopping at the first failed (or missing) inline trace.
func (e *Executor) runInline(ctx context.Context, tctx *trace.Context, in Input) error {
	if len(tctx.Trace.InlineTransactions) == 0 {
		return nil
	}
	if uint64(in.Depth+1) > params.CallCreateDepth {
		logger.Warn("inline recursion depth exceeded", "depth", in.Depth+1, "limit", params.CallCreateDepth)
		return fmt.Errorf("txexec: inline recursion depth %d exceeds limit %d", in.Depth+1, params.CallCreateDepth)
	}

	for _, inlineTx := range tctx.Trace.InlineTransactions {
		inlineDepthMeter.Mark(int64(in.Depth + 1))
		origin := tctx.Origin
		inlineTrace, err := e.Execute(ctx, Input{
			Depth:            in.Depth + 1,
			ChainContext:     tctx.ChainContext,
			Transaction:      inlineTx,
			CurrentBlockTime: in.CurrentBlockTime,
			Origin:           &origin,
			IsCancellable:    true,
		})
		if err != nil {
			return err
		}
		if inlineTrace == nil {
			break
		}
		tctx.Trace.InlineTraces = append(tctx.Trace.InlineTraces, inlineTrace)
		if !inlineTrace.ExecutionStatus.IsSuccessful() {
			logger.Warn("inline transaction failed", "method", inlineTx.MethodName, "error", inlineTrace.Error)
			break
		}
		tctx.ChainContext.Cache.Update(inlineTrace.StateSet)
	}
	return nil
}
