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

// Package plugin implements the pre/post plugin orchestration around a
// top-level transaction: fee charging and resource-token accounting
// materialized as synthetic sub-transactions, run with proper cache
// layering.
package plugin

import (
	"context"
	"reflect"

	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/log"
	"github.com/tos-network/txexec/params"
)

// Plugin produces synthetic transactions to run immediately before and
// after a top-level transaction's VM body. A plugin that has nothing to
// contribute at a given stage returns an empty slice, not nil-with-error.
type Plugin interface {
	PreTransactions(descriptors interface{}, tctx *trace.Context) []*types.Transaction
	PostTransactions(descriptors interface{}, tctx *trace.Context) []*types.Transaction
}

// Dedup filters plugins down to at most one instance per concrete type,
// keeping the first occurrence of each type and its relative order.
func Dedup(plugins []Plugin) []Plugin {
	seen := make(map[reflect.Type]struct{}, len(plugins))
	out := make([]Plugin, 0, len(plugins))
	for _, p := range plugins {
		t := reflect.TypeOf(p)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, p)
	}
	return out
}

// TxRunner executes tx as a depth-0 single transaction against cc,
// inheriting parent's origin and current block time, and returns
// its completed trace. The plugin orchestrator never runs transactions
// itself; it is handed this hook by the single-transaction executor to
// avoid plugin importing its caller.
type TxRunner func(ctx context.Context, cc chainctx.Context, tx *types.Transaction, parent *trace.Context) (*trace.Trace, error)

// Orchestrator runs the deduplicated pre- and post-plugin lists around a
// transaction's VM body.
type Orchestrator struct {
	pre  []Plugin
	post []Plugin
	run  TxRunner
}

// NewOrchestrator returns an Orchestrator with pre and post deduplicated
// independently per Dedup.
func NewOrchestrator(pre, post []Plugin, run TxRunner) *Orchestrator {
	return &Orchestrator{pre: Dedup(pre), post: Dedup(post), run: run}
}

// Pre runs the pre-stage: for every pre-plugin, every synthetic pre-transaction
// it emits is executed depth-0 against tctx's internal chain context and
// layered into it. If callerCache is itself tiered (has a parent), the
// same update is additionally propagated into it directly, so the
// caller's cache sees fee-charge effects even if this transaction's VM
// body later fails. It returns false (pre-stage failed) the first time a
// pre-transaction does not succeed or a fee charge reports
// isFailedToCharge.
func (o *Orchestrator) Pre(ctx context.Context, cc chainctx.Context, tctx *trace.Context, callerCache *statecache.Cache) (bool, error) {
	for _, p := range o.pre {
		preTxs := p.PreTransactions(nil, tctx)
		for _, preTx := range preTxs {
			preTrace, err := o.run(ctx, cc, preTx, tctx)
			if err != nil {
				return false, err
			}

			tctx.Trace.PreTransactions = append(tctx.Trace.PreTransactions, preTx)
			tctx.Trace.PreTraces = append(tctx.Trace.PreTraces, preTrace)

			if preTx.MethodName == params.ChargeTransactionFeesMethod {
				if fee, ok := trace.DecodeTransactionFee(preTrace.ReturnValue); ok {
					tctx.Trace.TransactionFee = fee
				}
			}

			if !preTrace.ExecutionStatus.IsSuccessful() {
				logger.Warn("pre-transaction failed", "method", preTx.MethodName, "error", preTrace.Error)
				return false, nil
			}

			cc.Cache.Update(preTrace.StateSet)
			if callerCache.HasParent() {
				callerCache.Update(preTrace.StateSet)
			}

			if tctx.Trace.TransactionFee != nil && tctx.Trace.TransactionFee.IsFailedToCharge {
				preTrace.ExecutionStatus = trace.Executed
				return false, nil
			}
		}
	}
	return true, nil
}

// Post runs the post-stage. When the top-level trace is not yet successful,
// callerCache's contents plus only the *successful* pre-traces are
// re-layered into a freshly built internal cache, and cc is rebound to
// it, so post-plugins never observe the failed VM body's writes.
// It returns a possibly-rebound chainctx.Context for the caller to keep
// using, and whether the post-stage succeeded.
func (o *Orchestrator) Post(ctx context.Context, cc chainctx.Context, tctx *trace.Context, callerCache *statecache.Cache) (chainctx.Context, bool, error) {
	if !tctx.Trace.IsFullySuccessful() {
		rebuilt := callerCache.Child()
		for _, preTrace := range tctx.Trace.PreTraces {
			if preTrace.ExecutionStatus.IsSuccessful() {
				rebuilt.Update(preTrace.StateSet)
			}
		}
		cc = cc.WithCache(rebuilt)
		tctx.ChainContext = cc
	}

	for _, p := range o.post {
		postTxs := p.PostTransactions(nil, tctx)
		for _, postTx := range postTxs {
			postTrace, err := o.run(ctx, cc, postTx, tctx)
			if err != nil {
				return cc, false, err
			}

			tctx.Trace.PostTransactions = append(tctx.Trace.PostTransactions, postTx)
			tctx.Trace.PostTraces = append(tctx.Trace.PostTraces, postTrace)

			if postTx.MethodName == params.ChargeResourceTokenMethod {
				if tokens, ok := trace.DecodeConsumedResourceTokens(postTrace.ReturnValue); ok {
					tctx.Trace.ConsumedResourceTokens = tokens
				}
			}

			if !postTrace.ExecutionStatus.IsSuccessful() {
				logger.Warn("post-transaction failed", "method", postTx.MethodName, "error", postTrace.Error)
				return cc, false, nil
			}

			cc.Cache.Update(postTrace.StateSet)
		}
	}
	return cc, true, nil
}

var logger = log.New("module", "plugin")
