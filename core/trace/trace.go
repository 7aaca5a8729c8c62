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

// Package trace holds the per-transaction execution record: the owned
// tree of pre/inline/post sub-traces that the single-transaction executor
// builds up, and the transaction context it executes under.
//
// The tree is a value type with owned child slices, never back-references:
// each pre/post/inline plugin stage produces its own nested trace rather
// than annotating a single flat result.
package trace

import (
	"encoding/json"
	"math/big"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/types"
)

// Status is the terminal classification of a transaction (or sub-
// transaction)'s execution.
type Status int

const (
	Undefined Status = iota
	Prefailed
	Executed
	Postfailed
	Canceled
	ContractError
	SystemError
)

func (s Status) String() string {
	switch s {
	case Undefined:
		return "Undefined"
	case Prefailed:
		return "Prefailed"
	case Executed:
		return "Executed"
	case Postfailed:
		return "Postfailed"
	case Canceled:
		return "Canceled"
	case ContractError:
		return "ContractError"
	case SystemError:
		return "SystemError"
	default:
		return "Unknown"
	}
}

// IsSuccessful reports whether this status alone is a success: only
// Executed is. It says nothing about sub-traces; callers (e.g.
// IsFullySuccessful) combine it with the subtree check.
func (s Status) IsSuccessful() bool { return s == Executed }

// TransactionFee is the fee-plugin's opaque result, attached to a trace
// when its pre-transaction's method name is
// params.ChargeTransactionFeesMethod.
type TransactionFee struct {
	Symbol           string
	Amount           *big.Int
	IsFailedToCharge bool
}

// ConsumedResourceTokens is the resource-token-plugin's opaque result,
// attached to a trace when its post-transaction's method name is
// params.ChargeResourceTokenMethod.
type ConsumedResourceTokens struct {
	Tokens map[string]uint64
}

// EncodeTransactionFee is the inverse of DecodeTransactionFee, used by
// the fee plugin to populate a pre-transaction's return value.
func EncodeTransactionFee(f *TransactionFee) []byte {
	b, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return b
}

// DecodeTransactionFee decodes a TransactionFee from a trace's
// returnValue, as produced by EncodeTransactionFee. ok is false if b is
// not a valid encoding.
func DecodeTransactionFee(b []byte) (*TransactionFee, bool) {
	if len(b) == 0 {
		return nil, false
	}
	var f TransactionFee
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, false
	}
	return &f, true
}

// EncodeConsumedResourceTokens is the inverse of
// DecodeConsumedResourceTokens.
func EncodeConsumedResourceTokens(c *ConsumedResourceTokens) []byte {
	b, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	return b
}

// DecodeConsumedResourceTokens decodes a ConsumedResourceTokens from a
// trace's returnValue.
func DecodeConsumedResourceTokens(b []byte) (*ConsumedResourceTokens, bool) {
	if len(b) == 0 {
		return nil, false
	}
	var c ConsumedResourceTokens
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, false
	}
	return &c, true
}

// Trace is the complete record of one transaction's execution, including
// its pre/inline/post sub-activity. It is constructed empty at the start
// of single-transaction execution and mutated only by the executor for
// that transaction; once returned to the caller it is frozen.
type Trace struct {
	TransactionID common.Hash

	ExecutionStatus Status
	ReturnValue     []byte
	Error           string

	StateSet *statecache.StateSet

	PreTransactions    []*types.Transaction
	PreTraces          []*Trace
	InlineTransactions []*types.Transaction
	InlineTraces       []*Trace
	PostTransactions   []*types.Transaction
	PostTraces         []*Trace

	TransactionFee         *TransactionFee
	ConsumedResourceTokens *ConsumedResourceTokens
}

// New returns an empty Trace for tx, with TransactionID = hash(tx).
func New(tx *types.Transaction) *Trace {
	return &Trace{
		TransactionID: tx.Hash(),
		StateSet:      statecache.NewStateSet(),
	}
}

// AppendError accumulates msg onto t.Error, appending rather than
// replacing as error text surfaces from deeper in the call tree.
func (t *Trace) AppendError(msg string) {
	if msg == "" {
		return
	}
	if t.Error == "" {
		t.Error = msg
		return
	}
	t.Error += msg
}

// IsFullySuccessful reports whether t and every node in its pre/inline/post
// subtree is Executed, the test the batch executor uses to decide whether
// to promote the whole trace as a unit.
func (t *Trace) IsFullySuccessful() bool {
	if t == nil || !t.ExecutionStatus.IsSuccessful() {
		return false
	}
	for _, children := range [][]*Trace{t.PreTraces, t.InlineTraces, t.PostTraces} {
		for _, c := range children {
			if !c.IsFullySuccessful() {
				return false
			}
		}
	}
	return true
}

// IsCanceled reports whether t or any node in its pre/inline/post subtree
// has ExecutionStatus == Canceled.
func (t *Trace) IsCanceled() bool {
	if t == nil {
		return false
	}
	if t.ExecutionStatus == Canceled {
		return true
	}
	for _, children := range [][]*Trace{t.PreTraces, t.InlineTraces, t.PostTraces} {
		for _, c := range children {
			if c.IsCanceled() {
				return true
			}
		}
	}
	return false
}

// Context is the per-transaction environment built by the single-tx
// executor: the caller-supplied state cache, the chain snapshot it was
// built from, and the trace being assembled.
type Context struct {
	PreviousBlockHash common.Hash
	BlockHeight       int64
	CurrentBlockTime  int64
	CallDepth         int
	Origin            common.Address
	Transaction       *types.Transaction
	ChainContext      chainctx.Context
	Trace             *Trace
}
