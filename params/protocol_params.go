// Copyright 2015 The go-ehtereum Authors
// Copyright 2023 Terminos Network
// This file is part of the tos library.
//
// The tos library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The tos library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the tos library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/tos-network/txexec/common"

// CallCreateDepth bounds inline-transaction recursion. A contract that
// keeps emitting inline transactions at increasing depth is stopped here
// rather than overflowing the host call stack.
const CallCreateDepth uint64 = 1024

// SystemActionAddress is the well-known recipient of synthetic
// pre/post-plugin transactions (fee charging, resource-token accounting)
// that do not target a user contract.
var SystemActionAddress = common.HexToAddress("0x000000000000000000000000000000000000fffe")

// ChargeTransactionFeesMethod is the well-known method name a pre-plugin's
// synthetic transaction carries when it performs fee charging; the
// plugin orchestrator recognizes it to populate Trace.TransactionFee.
const ChargeTransactionFeesMethod = "ChargeTransactionFees"

// ChargeResourceTokenMethod is the well-known method name a post-plugin's
// synthetic transaction carries when it performs resource-token
// accounting; the plugin orchestrator recognizes it to populate
// Trace.ConsumedResourceTokens.
const ChargeResourceTokenMethod = "ChargeResourceToken"
