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
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/plugin"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/txexec"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/core/vmexec"
	"github.com/tos-network/txexec/params"
)

// writeExecutive is shared scaffolding for batchexec's scenario tests: it
// writes a fixed key/value pair into the trace's state set, or fails if
// insufficientBalance is set, mirroring a contract call that reads a
// precondition out of the cache before mutating state.
type writeExecutive struct {
	key, value          []byte
	insufficientBalance bool
}

func (w writeExecutive) Apply(_ context.Context, cc chainctx.Context, _ *types.Transaction, tctx *trace.Context) ([]byte, error) {
	if w.insufficientBalance {
		tctx.Trace.AppendError("insufficient balance")
		return nil, errInsufficientBalance
	}
	if w.key != nil {
		tctx.Trace.StateSet.Writes[string(w.key)] = w.value
	}
	return []byte("ok"), nil
}

var errInsufficientBalance = &balanceError{}

type balanceError struct{}

func (*balanceError) Error() string { return "insufficient balance" }

func newBatch(t *testing.T, vm vmexec.VM) *Executor {
	t.Helper()
	singleTx := txexec.New(vm, nil, nil, nil)
	return New(singleTx, nil, false)
}

func tx(from, to string) *types.Transaction {
	return &types.Transaction{From: common.HexToAddress(from), To: common.HexToAddress(to)}
}

// S1: a batch of independently-successful transactions all promote and the
// group cache reflects every one of their writes in order.
func TestBatchHappyPathAllTransactionsPromote(t *testing.T) {
	vm := vmexec.NewStaticVM()
	t1 := tx("0xA", "0x01")
	t2 := tx("0xB", "0x02")
	vm.Register(t1.To, writeExecutive{key: []byte("k1"), value: []byte("v1")})
	vm.Register(t2.To, writeExecutive{key: []byte("k2"), value: []byte("v2")})

	e := newBatch(t, vm)
	req := &types.BatchRequest{Transactions: []*types.Transaction{t1, t2}}

	rs, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("expected two return sets, got %d", len(rs))
	}
	for i, r := range rs {
		if r.Status != trace.Executed {
			t.Fatalf("transaction %d: expected Executed, got %v", i, r.Status)
		}
	}
	if string(rs[0].StateChanges["k1"]) != "v1" || string(rs[1].StateChanges["k2"]) != "v2" {
		t.Fatalf("unexpected state changes: %+v %+v", rs[0].StateChanges, rs[1].StateChanges)
	}
}

// An Executive.Apply that returns a Go error is treated as an unexpected
// exception: it propagates all the way out of the batch rather than
// being folded into a Failed result.
func TestBatchVmExecutionErrorPropagates(t *testing.T) {
	vm := vmexec.NewStaticVM()
	failing := tx("0xA", "0x01")
	ok := tx("0xB", "0x02")
	vm.Register(failing.To, writeExecutive{insufficientBalance: true})
	vm.Register(ok.To, writeExecutive{key: []byte("k2"), value: []byte("v2")})

	e := newBatch(t, vm)
	req := &types.BatchRequest{Transactions: []*types.Transaction{failing, ok}}

	if _, err := e.Execute(context.Background(), req); err == nil {
		t.Fatal("expected the VM execution error to propagate out of the batch")
	}
}

// ContractNotFound is the non-exceptional analog of the above: looking up
// an unregistered address yields a ContractError trace with a nil error,
// which the batch classifies as Failed and keeps going.
func TestBatchContractNotFoundIsFailedNotPropagated(t *testing.T) {
	vm := vmexec.NewStaticVM()
	missing := tx("0xA", "0xDEAD")
	ok := tx("0xB", "0x02")
	vm.Register(ok.To, writeExecutive{key: []byte("k2"), value: []byte("v2")})

	e := newBatch(t, vm)
	req := &types.BatchRequest{Transactions: []*types.Transaction{missing, ok}}

	rs, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("expected two return sets, got %d", len(rs))
	}
	if rs[0].Status != trace.ContractError {
		t.Fatalf("expected ContractError, got %v", rs[0].Status)
	}
	if rs[1].Status != trace.Executed {
		t.Fatalf("expected second transaction to still run, got %v", rs[1].Status)
	}
	if string(rs[1].StateChanges["k2"]) != "v2" {
		t.Fatal("second transaction's write must still be visible")
	}
}

// S6-shaped: a PartialBlockStateSet seeds the group cache, and a later
// transaction's read observes it.
func TestBatchSeedsGroupCacheFromPartialBlockStateSet(t *testing.T) {
	var observed []byte
	vm := vmexec.NewStaticVM()
	reader := tx("0xA", "0x01")
	vm.Register(reader.To, readExecutive{key: []byte("seed"), out: &observed})

	e := newBatch(t, vm)
	req := &types.BatchRequest{
		PartialBlockStateSet: map[string][]byte{"seed": []byte("preexisting")},
		Transactions:         []*types.Transaction{reader},
	}

	if _, err := e.Execute(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(observed) != "preexisting" {
		t.Fatalf("expected the seeded value to be visible, got %q", observed)
	}
}

type readExecutive struct {
	key []byte
	out *[]byte
}

func (r readExecutive) Apply(_ context.Context, cc chainctx.Context, _ *types.Transaction, tctx *trace.Context) ([]byte, error) {
	v, _ := cc.Cache.Get(r.key)
	*r.out = v
	return nil, nil
}

// Cancellation of the batch-wide context before any transaction executes
// stops the loop: no return sets are produced.
func TestBatchWideCancellationBeforeStartYieldsNoResults(t *testing.T) {
	vm := vmexec.NewStaticVM()
	t1 := tx("0xA", "0x01")
	vm.Register(t1.To, writeExecutive{key: []byte("k1"), value: []byte("v1")})

	e := newBatch(t, vm)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := &types.BatchRequest{Transactions: []*types.Transaction{t1}}
	rs, err := e.Execute(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 0 {
		t.Fatalf("expected no return sets once the batch is canceled up front, got %d", len(rs))
	}
}

func TestTryPromoteNullTraceDoesNotPromote(t *testing.T) {
	cache := statecache.New(nil)
	if tryPromote(cache, nil) {
		t.Fatal("a nil trace must never promote")
	}
}

func TestTryPromoteCanceledSubtreeDoesNotPromote(t *testing.T) {
	cache := statecache.New(nil)
	tr := trace.New(tx("0xA", "0x01"))
	tr.ExecutionStatus = trace.Canceled
	if tryPromote(cache, tr) {
		t.Fatal("a canceled trace must never promote")
	}
}

func TestTryPromoteMergesOnlySuccessfulPreAndPostTraces(t *testing.T) {
	cache := statecache.New(nil)
	root := trace.New(tx("0xA", "0x01"))
	root.ExecutionStatus = trace.ContractError // main body unsuccessful

	goodPre := trace.New(tx("0xA", "0xFE"))
	goodPre.ExecutionStatus = trace.Executed
	goodPre.StateSet.Writes["fee"] = []byte("charged")
	root.PreTraces = append(root.PreTraces, goodPre)

	badPost := trace.New(tx("0xA", "0xFF"))
	badPost.ExecutionStatus = trace.ContractError
	badPost.StateSet.Writes["resource"] = []byte("should-not-land")
	root.PostTraces = append(root.PostTraces, badPost)

	if !tryPromote(cache, root) {
		t.Fatal("a non-fully-successful, non-canceled trace must still promote partially")
	}
	if v, ok := cache.Get([]byte("fee")); !ok || string(v) != "charged" {
		t.Fatalf("expected the successful pre-trace's write to be promoted, got %v ok=%v", v, ok)
	}
	if _, ok := cache.Get([]byte("resource")); ok {
		t.Fatal("the failed post-trace's write must not be promoted")
	}
}

func balanceKey(symbol string, addr common.Address) []byte {
	return []byte(fmt.Sprintf("balance/%s/%s", symbol, addr.Hex()))
}

// S2/S3-shaped: a batch running with real fee and resource-token plugins
// wired in, the production configuration cmd/txexecd uses. Each
// transaction's synthetic fee/resource-token sub-transactions must run
// without re-entering plugin orchestration, and the batch as a whole
// still promotes and classifies normally.
func TestBatchWithFeeAndResourceTokenPluginsPromotesNormally(t *testing.T) {
	vm := vmexec.NewStaticVM()
	t1 := tx("0xA", "0x01")
	vm.Register(t1.To, writeExecutive{key: []byte("k1"), value: []byte("v1")})
	vm.Register(params.SystemActionAddress, plugin.SystemExecutive{})

	fee := &plugin.FeePlugin{Symbol: "TOS", Amount: big.NewInt(5)}
	resourceToken := &plugin.ResourceTokenPlugin{Tokens: map[string]uint64{"compute": 1}}
	singleTx := txexec.New(vm, []plugin.Plugin{fee}, []plugin.Plugin{resourceToken}, nil)
	e := New(singleTx, nil, false)

	req := &types.BatchRequest{
		PartialBlockStateSet: map[string][]byte{
			string(balanceKey("TOS", common.HexToAddress("0xA"))): big.NewInt(50).Bytes(),
		},
		Transactions: []*types.Transaction{t1},
	}

	rs, err := e.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("expected one return set, got %d", len(rs))
	}
	if rs[0].Status != trace.Executed {
		t.Fatalf("expected Executed, got %v", rs[0].Status)
	}
	if string(rs[0].StateChanges["k1"]) != "v1" {
		t.Fatalf("expected the VM body's write to be promoted, got %+v", rs[0].StateChanges)
	}
}
