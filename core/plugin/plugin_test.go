package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/statecache"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/params"
)

type fakePlugin struct {
	name string
	pre  []*types.Transaction
	post []*types.Transaction
}

func (f *fakePlugin) PreTransactions(interface{}, *trace.Context) []*types.Transaction  { return f.pre }
func (f *fakePlugin) PostTransactions(interface{}, *trace.Context) []*types.Transaction { return f.post }

func TestDedupKeepsFirstSeenPerConcreteType(t *testing.T) {
	a := &fakePlugin{name: "a"}
	b := &FeePlugin{}
	c := &fakePlugin{name: "c"}

	got := Dedup([]Plugin{a, b, c})
	require.Len(t, got, 2, "expected two distinct types to survive dedup")
	require.True(t, got[0] == Plugin(a), "first-seen instance of the duplicated type must be kept")
	require.True(t, got[1] == Plugin(b))
}

func newTestContext(tx *types.Transaction) *trace.Context {
	cache := statecache.New(nil)
	cc := chainctx.Context{Cache: cache}
	return &trace.Context{
		Transaction:  tx,
		Origin:       tx.From,
		ChainContext: cc,
		Trace:        trace.New(tx),
	}
}

func TestPreStageMergesSuccessfulPreTraceIntoInternalCache(t *testing.T) {
	tx := &types.Transaction{From: common.HexToAddress("0x01"), To: common.HexToAddress("0x02")}
	tctx := newTestContext(tx)

	preTx := &types.Transaction{From: tx.From, To: params.SystemActionAddress, MethodName: "Noop"}
	p := &fakePlugin{pre: []*types.Transaction{preTx}}

	run := func(_ context.Context, cc chainctx.Context, t *types.Transaction, _ *trace.Context) (*trace.Trace, error) {
		pt := trace.New(t)
		pt.ExecutionStatus = trace.Executed
		pt.StateSet.Writes["k1"] = []byte("v1")
		return pt, nil
	}

	o := NewOrchestrator([]Plugin{p}, nil, run)
	ok, err := o.Pre(context.Background(), tctx.ChainContext, tctx, tctx.ChainContext.Cache)
	require.NoError(t, err)
	require.True(t, ok)

	v, found := tctx.ChainContext.Cache.Get([]byte("k1"))
	require.True(t, found)
	require.Equal(t, "v1", string(v))
	require.Len(t, tctx.Trace.PreTraces, 1)
}

func TestPreStageStopsOnFirstFailure(t *testing.T) {
	tx := &types.Transaction{From: common.HexToAddress("0x01"), To: common.HexToAddress("0x02")}
	tctx := newTestContext(tx)

	preTx1 := &types.Transaction{From: tx.From, To: params.SystemActionAddress, MethodName: "A"}
	preTx2 := &types.Transaction{From: tx.From, To: params.SystemActionAddress, MethodName: "B"}
	p := &fakePlugin{pre: []*types.Transaction{preTx1, preTx2}}

	calls := 0
	run := func(_ context.Context, cc chainctx.Context, t *types.Transaction, _ *trace.Context) (*trace.Trace, error) {
		calls++
		pt := trace.New(t)
		if t.MethodName == "A" {
			pt.ExecutionStatus = trace.ContractError
		} else {
			pt.ExecutionStatus = trace.Executed
		}
		return pt, nil
	}

	o := NewOrchestrator([]Plugin{p}, nil, run)
	ok, err := o.Pre(context.Background(), tctx.ChainContext, tctx, tctx.ChainContext.Cache)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, calls, "second pre-transaction must not run after the first fails")
}

func TestPostStageRebuildsFromCallerWhenUnsuccessful(t *testing.T) {
	tx := &types.Transaction{From: common.HexToAddress("0x01"), To: common.HexToAddress("0x02")}
	callerCache := statecache.New(nil)
	callerSet := statecache.NewStateSet()
	callerSet.Writes["caller"] = []byte("c")
	callerCache.Update(callerSet)

	internal := callerCache.Child()
	bodySet := statecache.NewStateSet()
	bodySet.Writes["missing-vm-write"] = []byte("body")
	internal.Update(bodySet)
	cc := chainctx.Context{Cache: internal}
	tctx := &trace.Context{Transaction: tx, Origin: tx.From, ChainContext: cc, Trace: trace.New(tx)}
	tctx.Trace.ExecutionStatus = trace.ContractError // unsuccessful VM body

	succeededPre := trace.New(tx)
	succeededPre.ExecutionStatus = trace.Executed
	succeededPre.StateSet.Writes["fee"] = []byte("10")
	tctx.Trace.PreTraces = append(tctx.Trace.PreTraces, succeededPre)

	run := func(_ context.Context, cc chainctx.Context, t *types.Transaction, _ *trace.Context) (*trace.Trace, error) {
		pt := trace.New(t)
		pt.ExecutionStatus = trace.Executed
		return pt, nil
	}

	o := NewOrchestrator(nil, nil, run)
	newCC, ok, err := o.Post(context.Background(), tctx.ChainContext, tctx, callerCache)
	require.NoError(t, err)
	require.True(t, ok)

	_, hasFailedBodyWrite := newCC.Cache.Get([]byte("missing-vm-write"))
	require.False(t, hasFailedBodyWrite)

	v, ok2 := newCC.Cache.Get([]byte("fee"))
	require.True(t, ok2)
	require.Equal(t, "10", string(v))

	v, ok3 := newCC.Cache.Get([]byte("caller"))
	require.True(t, ok3)
	require.Equal(t, "c", string(v))
}
