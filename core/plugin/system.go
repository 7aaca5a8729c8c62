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
	"fmt"

	"github.com/tos-network/txexec/core/chainctx"
	"github.com/tos-network/txexec/core/trace"
	"github.com/tos-network/txexec/core/types"
	"github.com/tos-network/txexec/params"
)

// SystemExecutive is the single vmexec.Executive a caller registers at
// params.SystemActionAddress: it dispatches on method name to the fee or
// resource-token accounting logic, covering both synthetic transaction
// kinds this module emits.
type SystemExecutive struct {
	Fee           FeeExecutive
	ResourceToken ResourceTokenExecutive
}

func (s SystemExecutive) Apply(ctx context.Context, cc chainctx.Context, tx *types.Transaction, tctx *trace.Context) ([]byte, error) {
	switch tx.MethodName {
	case params.ChargeTransactionFeesMethod:
		return s.Fee.Apply(ctx, cc, tx, tctx)
	case params.ChargeResourceTokenMethod:
		return s.ResourceToken.Apply(ctx, cc, tx, tctx)
	default:
		return nil, fmt.Errorf("plugin: unrecognized system action method %q", tx.MethodName)
	}
}
