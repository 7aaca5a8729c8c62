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

package types

import "github.com/tos-network/txexec/crypto"

// BloomByteLength is the width of a Bloom filter.
const BloomByteLength = 256

// Bloom is a 2048-bit filter over a mined transaction's touched keys, meant
// for downstream receipt/log indexing to narrow a search before scanning
// full return-sets.
type Bloom [BloomByteLength]byte

// Add sets the three bits derived from Keccak256(data) in the filter.
func (b *Bloom) Add(data []byte) {
	h := crypto.Keccak256(data)
	for i := 0; i < 3; i++ {
		bitIdx := (uint(h[2*i])<<8 | uint(h[2*i+1])) & 2047
		byteIdx := BloomByteLength - 1 - bitIdx/8
		b[byteIdx] |= 1 << (bitIdx % 8)
	}
}

// CreateBloom builds a Bloom over the given keys, e.g. the keys touched by
// a transaction's state changes.
func CreateBloom(keys ...[]byte) Bloom {
	var b Bloom
	for _, k := range keys {
		b.Add(k)
	}
	return b
}
