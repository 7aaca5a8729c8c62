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

package batchexec

import (
	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
)

// ResultKind classifies a terminal trace into one of four receipt shapes.
type ResultKind int

const (
	Unexecutable ResultKind = iota
	PreFailed
	Mined
	Failed
)

func (k ResultKind) String() string {
	switch k {
	case Unexecutable:
		return "Unexecutable"
	case PreFailed:
		return "PreFailed"
	case Mined:
		return "Mined"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Result is the typed receipt body synthesized from a completed trace.
type Result struct {
	Kind                   ResultKind
	TransactionID          common.Hash
	ReturnValue            []byte
	Bloom                  types.Bloom
	TransactionFee         *trace.TransactionFee
	ConsumedResourceTokens *trace.ConsumedResourceTokens
}

// ReturnSet is the observable outcome of one transaction's execution.
type ReturnSet struct {
	TransactionID common.Hash
	Status        trace.Status
	Bloom         types.Bloom
	ReturnValue   []byte
	StateChanges  map[string][]byte
	StateDeletes  map[string]struct{}
	StateAccesses map[string][]byte
}

// classify picks the first matching ResultKind for t.
func classify(t *trace.Trace) ResultKind {
	switch {
	case t.ExecutionStatus == trace.Undefined:
		return Unexecutable
	case t.ExecutionStatus == trace.Prefailed:
		return PreFailed
	case t.IsFullySuccessful():
		return Mined
	default:
		return Failed
	}
}

// synthesize builds the (Result, ReturnSet) pair from a completed trace.
// The Mined path folds state sets from the whole trace; every other
// non-terminal-failure path folds only from successful pre/post-traces,
// discarding the failed VM body's own writes.
func synthesize(t *trace.Trace) (Result, ReturnSet) {
	kind := classify(t)

	res := Result{
		Kind:                   kind,
		TransactionID:          t.TransactionID,
		TransactionFee:         t.TransactionFee,
		ConsumedResourceTokens: t.ConsumedResourceTokens,
	}

	rs := ReturnSet{
		TransactionID: t.TransactionID,
		Status:        t.ExecutionStatus,
		StateChanges:  make(map[string][]byte),
		StateDeletes:  make(map[string]struct{}),
		StateAccesses: make(map[string][]byte),
	}

	if kind == Unexecutable || kind == PreFailed {
		return res, rs
	}

	if kind == Mined {
		res.ReturnValue = t.ReturnValue
		rs.ReturnValue = t.ReturnValue
		foldAll(t, rs.StateChanges, rs.StateDeletes, rs.StateAccesses)
	} else {
		foldSuccessfulOnly(t, rs.StateChanges, rs.StateDeletes, rs.StateAccesses)
	}

	bloomKeys := make([][]byte, 0, len(rs.StateChanges))
	for k := range rs.StateChanges {
		bloomKeys = append(bloomKeys, []byte(k))
	}
	rs.Bloom = types.CreateBloom(bloomKeys...)
	res.Bloom = rs.Bloom

	return res, rs
}

func applyFold(set *statecache.StateSet, changes map[string][]byte, deletes map[string]struct{}, accesses map[string][]byte) {
	if set == nil {
		return
	}
	for k, v := range set.Writes {
		delete(deletes, k)
		changes[k] = v
	}
	for k := range set.Deletes {
		delete(changes, k)
		deletes[k] = struct{}{}
	}
	for k, v := range set.Reads {
		accesses[k] = v
	}
}

// foldAll folds the entire trace tree's state sets unconditionally, used
// for the Mined path where every node succeeded.
func foldAll(t *trace.Trace, changes map[string][]byte, deletes map[string]struct{}, accesses map[string][]byte) {
	applyFold(t.StateSet, changes, deletes, accesses)
	for _, c := range t.PreTraces {
		foldAll(c, changes, deletes, accesses)
	}
	for _, c := range t.InlineTraces {
		foldAll(c, changes, deletes, accesses)
	}
	for _, c := range t.PostTraces {
		foldAll(c, changes, deletes, accesses)
	}
}

// foldSuccessfulOnly folds only successful pre/post-traces (recursively)
// and records reads from the full flattened trace, discarding a failed
// VM body's own writes. Reads are still recorded from every node,
// successful or not.
func foldSuccessfulOnly(t *trace.Trace, changes map[string][]byte, deletes map[string]struct{}, accesses map[string][]byte) {
	recordReads(t, accesses)
	for _, c := range t.PreTraces {
		if c.IsFullySuccessful() {
			foldAll(c, changes, deletes, accesses)
		} else {
			recordReads(c, accesses)
		}
	}
	for _, c := range t.PostTraces {
		if c.IsFullySuccessful() {
			foldAll(c, changes, deletes, accesses)
		} else {
			recordReads(c, accesses)
		}
	}
}

func recordReads(t *trace.Trace, accesses map[string][]byte) {
	if t.StateSet != nil {
		for k, v := range t.StateSet.Reads {
			accesses[k] = v
		}
	}
	for _, c := range t.PreTraces {
		recordReads(c, accesses)
	}
	for _, c := range t.InlineTraces {
		recordReads(c, accesses)
	}
	for _, c := range t.PostTraces {
		recordReads(c, accesses)
	}
}
