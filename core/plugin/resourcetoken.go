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

package plugin

import (
	"context"
	"encoding/json"

	"github.com/holiman/uint256"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/params"
)

// resourceTokenChargeRequest is the wire payload a ResourceTokenPlugin's
// synthetic transaction carries.
type resourceTokenChargeRequest struct {
	Account common.Address
	Tokens  map[string]uint64
}

func resourceTokenKey(resource string, addr common.Address) []byte {
	return []byte("resource/" + resource + "/" + addr.Hex())
}

// ResourceTokenPlugin is the post-plugin that debits per-resource token
// counters after a transaction's body has run, expressed as its own
// synthetic post-transaction so it gets an independent trace.
type ResourceTokenPlugin struct {
	Tokens map[string]uint64
}

var _ Plugin = (*ResourceTokenPlugin)(nil)

// PreTransactions implements Plugin; ResourceTokenPlugin has nothing to
// do before the body runs.
func (r *ResourceTokenPlugin) PreTransactions(_ interface{}, _ *trace.Context) []*types.Transaction {
	return nil
}

// PostTransactions implements Plugin.
func (r *ResourceTokenPlugin) PostTransactions(_ interface{}, tctx *trace.Context) []*types.Transaction {
	req := resourceTokenChargeRequest{Account: tctx.Transaction.From, Tokens: r.Tokens}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	return []*types.Transaction{{
		From:       tctx.Transaction.From,
		To:         params.SystemActionAddress,
		MethodName: params.ChargeResourceTokenMethod,
		Payload:    payload,
	}}
}

// ResourceTokenExecutive is the executive bound to
// params.SystemActionAddress that records consumed resource tokens
// against the account's running counters.
type ResourceTokenExecutive struct{}

func (ResourceTokenExecutive) Apply(_ context.Context, cc chainctx.Context, tx *types.Transaction, tctx *trace.Context) ([]byte, error) {
	var req resourceTokenChargeRequest
	if err := json.Unmarshal(tx.Payload, &req); err != nil {
		return nil, err
	}

	consumed := &trace.ConsumedResourceTokens{Tokens: make(map[string]uint64, len(req.Tokens))}
	for resource, amount := range req.Tokens {
		key := resourceTokenKey(resource, req.Account)
		total := new(uint256.Int)
		if v, ok := cc.Cache.Get(key); ok {
			total.SetBytes(v)
		}
		total.Add(total, uint256.NewInt(amount))
		tctx.Trace.StateSet.Writes[string(key)] = total.Bytes()
		consumed.Tokens[resource] = amount
	}
	return trace.EncodeConsumedResourceTokens(consumed), nil
}
