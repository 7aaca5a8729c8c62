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

// Package types holds the data shapes threaded through the executor:
// transactions, block headers and batch requests.
package types

import (
	"encoding/binary"
	"errors"

	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/crypto"
)

// ErrMalformedTransaction is returned when a transaction is missing a
// sender or recipient; the executor will not build a context for it.
var ErrMalformedTransaction = errors.New("malformed transaction: missing from or to")

// Transaction is the opaque unit of work the executor consumes. The
// executor only ever inspects From, To, MethodName and Payload; everything
// else about the transaction (signature, fee schedule, nonce...) is a
// collaborator concern handled before the executor sees it.
type Transaction struct {
	From       common.Address
	To         common.Address
	MethodName string
	Payload    []byte
}

// Validate reports ErrMalformedTransaction if From or To is unset.
func (tx *Transaction) Validate() error {
	if tx == nil || tx.From.IsZero() || tx.To.IsZero() {
		return ErrMalformedTransaction
	}
	return nil
}

// Hash returns the transaction's content-addressed identifier, derived
// from its From/To/MethodName/Payload fields. It is deterministic and
// cheap to recompute; callers needing it repeatedly should cache it.
func (tx *Transaction) Hash() common.Hash {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(tx.Payload)))
	return crypto.Keccak256Hash(
		tx.From.Bytes(),
		tx.To.Bytes(),
		[]byte(tx.MethodName),
		lenBuf[:],
		tx.Payload,
	)
}

// BlockHeader carries the minimal chain-tip information a batch is
// executed on top of.
type BlockHeader struct {
	PreviousBlockHash common.Hash
	Height            int64
	Time              int64
}

// BatchRequest is the executor's single entry-point input: a chain tip, an
// optional partial state overlay to seed the group cache with, and the
// ordered list of transactions to execute.
type BatchRequest struct {
	BlockHeader          BlockHeader
	PartialBlockStateSet map[string][]byte
	Transactions         []*Transaction
}
