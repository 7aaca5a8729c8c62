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

// Package vmexec declares the boundary to the contract-execution engine:
// this module never interprets bytecode itself, only dispatches a
// transaction to whatever Executive is registered for its target address
// and records the outcome.
package vmexec

import (
	"context"
	"errors"
	"sync"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
)

// ErrContractNotFound is returned by VM.GetExecutive when no executive is
// registered for a transaction's To address, driving the executor's
// ContractError branch.
var ErrContractNotFound = errors.New("vmexec: no executive registered for address")

// Executive applies a single transaction's inline logic against the
// chain context's state cache, producing the transaction's return value
// or an error. Implementations must not retain ctx or tx beyond the call.
type Executive interface {
	Apply(ctx context.Context, cc chainctx.Context, tx *types.Transaction, tctx *trace.Context) ([]byte, error)
}

// VM is the out-of-scope execution engine this module calls through,
// never implements. GetExecutive resolves a transaction's target address
// to the Executive that should run it; PutExecutive returns it to the
// pool once the call completes, mirroring an acquire/release discipline
// a real VM implementation (interpreter pool, contract cache) would need.
type VM interface {
	GetExecutive(addr common.Address) (Executive, error)
	PutExecutive(addr common.Address, e Executive)
}

// StaticVM is a reference VM backed by a fixed address-keyed registry. It
// never blocks in GetExecutive/PutExecutive, so pooling is a no-op; it
// exists so the executor and its tests have a concrete, in-memory VM to
// run against.
type StaticVM struct {
	mu         sync.RWMutex
	executives map[common.Address]Executive
}

// NewStaticVM returns an empty StaticVM.
func NewStaticVM() *StaticVM {
	return &StaticVM{executives: make(map[common.Address]Executive)}
}

// Register binds addr to e. A later call for the same address replaces
// the earlier binding.
func (v *StaticVM) Register(addr common.Address, e Executive) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.executives[addr] = e
}

// GetExecutive implements VM.
func (v *StaticVM) GetExecutive(addr common.Address) (Executive, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	e, ok := v.executives[addr]
	if !ok {
		return nil, ErrContractNotFound
	}
	return e, nil
}

// PutExecutive implements VM; StaticVM has nothing to release.
func (v *StaticVM) PutExecutive(common.Address, Executive) {}
