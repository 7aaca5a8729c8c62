package trace

import (
	"math/big"
	"testing"

	"github.com/tos-network/txexec/core/types"
)

func newTrace(status Status) *Trace {
	t := &Trace{ExecutionStatus: status}
	return t
}

func TestIsFullySuccessfulRequiresWholeSubtree(t *testing.T) {
	root := newTrace(Executed)
	root.PreTraces = []*Trace{newTrace(Executed)}
	root.PostTraces = []*Trace{newTrace(Executed)}
	if !root.IsFullySuccessful() {
		t.Fatal("expected fully successful trace")
	}

	root.InlineTraces = []*Trace{newTrace(ContractError)}
	if root.IsFullySuccessful() {
		t.Fatal("a failed inline trace must make the parent unsuccessful")
	}
}

func TestIsCanceledWalksSubtree(t *testing.T) {
	root := newTrace(Executed)
	root.PostTraces = []*Trace{newTrace(Canceled)}
	if !root.IsCanceled() {
		t.Fatal("expected cancellation in post-subtree to be detected")
	}

	root2 := newTrace(Executed)
	if root2.IsCanceled() {
		t.Fatal("did not expect cancellation")
	}
}

func TestAppendErrorAccumulates(t *testing.T) {
	tr := newTrace(Undefined)
	tr.AppendError("a")
	tr.AppendError("b")
	if tr.Error != "ab" {
		t.Fatalf("expected accumulated error %q, got %q", "ab", tr.Error)
	}
	tr.AppendError("")
	if tr.Error != "ab" {
		t.Fatal("appending empty string must not change error")
	}
}

func TestTransactionFeeRoundTrip(t *testing.T) {
	fee := &TransactionFee{Symbol: "TOS", Amount: big.NewInt(42), IsFailedToCharge: false}
	b := EncodeTransactionFee(fee)
	got, ok := DecodeTransactionFee(b)
	if !ok {
		t.Fatal("expected successful decode")
	}
	if got.Symbol != fee.Symbol || got.Amount.Cmp(fee.Amount) != 0 {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestDecodeTransactionFeeEmptyIsNotOK(t *testing.T) {
	if _, ok := DecodeTransactionFee(nil); ok {
		t.Fatal("expected decode of empty bytes to fail")
	}
}

func TestNewSetsTransactionID(t *testing.T) {
	tx := &types.Transaction{MethodName: "M"}
	tr := New(tx)
	if tr.TransactionID != tx.Hash() {
		t.Fatal("expected TransactionID to equal tx.Hash()")
	}
	if tr.StateSet == nil {
		t.Fatal("expected an initialized StateSet")
	}
}
