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

// Package chainctx carries the immutable-apart-from-its-cache snapshot
// threaded through execution: built once, passed by value, with its one
// mutable collaborator (the associated state cache) swapped via a method
// that returns a new value rather than mutating in place.
package chainctx

import (
	"github.com/tos-network/txexec/common"
	"github.com/tos-network/txexec/core/statecache"
)

// Context is the chain-tip snapshot passed into single-transaction
// execution: the previous block's identity plus the state cache this
// execution should read through and write into.
type Context struct {
	PreviousBlockHash   common.Hash
	PreviousBlockHeight int64
	Cache               *statecache.Cache
}

// WithCache returns a logically new Context bound to a different cache,
// leaving c untouched. The executor relies on this to rebind the internal
// chain context during post-stage rollback.
func (c Context) WithCache(cache *statecache.Cache) Context {
	c.Cache = cache
	return c
}
