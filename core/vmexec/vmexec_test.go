package vmexec

import (
	"context"
	"errors"
	"testing"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
)

type stubExecutive struct{}

func (stubExecutive) Apply(context.Context, chainctx.Context, *types.Transaction, *trace.Context) ([]byte, error) {
	return []byte("ok"), nil
}

func TestStaticVMGetExecutiveMissingIsNotFound(t *testing.T) {
	vm := NewStaticVM()
	_, err := vm.GetExecutive(common.HexToAddress("0x01"))
	if !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("expected ErrContractNotFound, got %v", err)
	}
}

func TestStaticVMRegisterAndGet(t *testing.T) {
	vm := NewStaticVM()
	addr := common.HexToAddress("0x02")
	vm.Register(addr, stubExecutive{})

	e, err := vm.GetExecutive(addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rv, err := e.Apply(context.Background(), chainctx.Context{}, &types.Transaction{}, &trace.Context{})
	if err != nil || string(rv) != "ok" {
		t.Fatalf("unexpected apply result: %v %v", rv, err)
	}
}

type namedExecutive string

func (n namedExecutive) Apply(context.Context, chainctx.Context, *types.Transaction, *trace.Context) ([]byte, error) {
	return []byte(n), nil
}

func TestStaticVMRegisterReplaces(t *testing.T) {
	vm := NewStaticVM()
	addr := common.HexToAddress("0x03")
	vm.Register(addr, namedExecutive("first"))
	vm.Register(addr, namedExecutive("second"))
	e, err := vm.GetExecutive(addr)
	if err != nil {
		t.Fatalf("unexpected error after re-register: %v", err)
	}
	if rv, _ := e.Apply(context.Background(), chainctx.Context{}, &types.Transaction{}, &trace.Context{}); string(rv) != "second" {
		t.Fatalf("expected the later registration to replace the earlier one, got %q", rv)
	}
}
