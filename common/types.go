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

// Package common holds the fixed-width identifiers shared across the
// executor: 20-byte addresses and 32-byte hashes.
package common

import (
	"encoding/hex"
	"fmt"
)

const (
	AddressLength = 20
	HashLength    = 32
)

// Address is a fixed-width account/contract identifier.
type Address [AddressLength]byte

// Hash is a fixed-width content identifier, typically a Keccak256 digest.
type Hash [HashLength]byte

// BytesToAddress sets the last 20 bytes of b (right-aligned) into an Address.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// HexToAddress parses a hex string (with or without 0x prefix) into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(FromHex(s))
}

func (a Address) Bytes() []byte { return a[:] }

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// BytesToHash sets the last 32 bytes of b (right-aligned) into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func HexToHash(s string) Hash {
	return BytesToHash(FromHex(s))
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) IsZero() bool { return h == Hash{} }

// FromHex decodes a 0x-prefixed or bare hex string. It does not report
// decode errors: any input that is not valid hex yields nil, a permissive
// parse suited to well-known constant addresses.
func FromHex(s string) []byte {
	if len(s) >= 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

// CopyBytes returns an independent copy of b.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// ErrInvalidHexLength is returned by strict hex parsers (unused by the
// permissive helpers above, kept for callers that want strictness).
var ErrInvalidHexLength = fmt.Errorf("hex string has odd length")
