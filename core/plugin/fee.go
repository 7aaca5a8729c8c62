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
	"fmt"
	"math/big"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/params"
)

// feeChargeRequest is the wire payload a FeePlugin's synthetic
// transaction carries, decoded by FeeExecutive on the other side.
type feeChargeRequest struct {
	Account common.Address
	Symbol  string
	Amount  *big.Int
}

func balanceKey(symbol string, addr common.Address) []byte {
	return []byte(fmt.Sprintf("balance/%s/%s", symbol, addr.Hex()))
}

// FeePlugin is the pre-plugin that charges a fixed fee in Symbol from the
// transaction's sender. Charging it as a synthetic pre-transaction rather
// than inline gives the deduction its own trace, so it can be promoted
// independently of whatever the main VM body does afterward.
type FeePlugin struct {
	Symbol string
	Amount *big.Int
}

var _ Plugin = (*FeePlugin)(nil)

// PreTransactions implements Plugin.
func (f *FeePlugin) PreTransactions(_ interface{}, tctx *trace.Context) []*types.Transaction {
	req := feeChargeRequest{Account: tctx.Transaction.From, Symbol: f.Symbol, Amount: f.Amount}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil
	}
	return []*types.Transaction{{
		From:       tctx.Transaction.From,
		To:         params.SystemActionAddress,
		MethodName: params.ChargeTransactionFeesMethod,
		Payload:    payload,
	}}
}

// PostTransactions implements Plugin; FeePlugin has nothing to do
// post-apply.
func (f *FeePlugin) PostTransactions(_ interface{}, _ *trace.Context) []*types.Transaction {
	return nil
}

// FeeExecutive is the executive bound to params.SystemActionAddress that
// actually performs the balance deduction a FeePlugin's synthetic
// transaction requests. Insufficient balance is reported through
// TransactionFee.IsFailedToCharge rather than an error: it is an expected
// outcome, not an exception.
type FeeExecutive struct{}

func (FeeExecutive) Apply(_ context.Context, cc chainctx.Context, tx *types.Transaction, tctx *trace.Context) ([]byte, error) {
	var req feeChargeRequest
	if err := json.Unmarshal(tx.Payload, &req); err != nil {
		return nil, err
	}

	key := balanceKey(req.Symbol, req.Account)
	bal := new(big.Int)
	if v, ok := cc.Cache.Get(key); ok {
		bal.SetBytes(v)
	}

	fee := &trace.TransactionFee{Symbol: req.Symbol, Amount: req.Amount}
	if bal.Cmp(req.Amount) < 0 {
		fee.IsFailedToCharge = true
		return trace.EncodeTransactionFee(fee), nil
	}

	bal.Sub(bal, req.Amount)
	tctx.Trace.StateSet.Writes[string(key)] = bal.Bytes()
	return trace.EncodeTransactionFee(fee), nil
}
