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

// Package log is a small structured, leveled logger in the shape the rest
// of the gtos lineage expects: key/value context pairs rather than
// formatted strings, a caller frame on every record, and TTY-aware color
// when writing to a terminal.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "CRIT"
	case LvlError:
		return "ERROR"
	case LvlWarn:
		return "WARN"
	case LvlInfo:
		return "INFO"
	case LvlDebug:
		return "DEBUG"
	case LvlTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Logger emits leveled, key/value-annotated records. New returns a child
// logger that prepends ctx to every record it emits.
type Logger interface {
	New(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	ctx []interface{}
	h   *handler
}

type handler struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	minLvl Lvl
}

// root is the default logger used by the package-level Trace/Debug/... helpers.
var root = &logger{h: defaultHandler()}

func defaultHandler() *handler {
	w := colorable.NewColorable(os.Stderr)
	color := isatty.IsTerminal(os.Stderr.Fd())
	return &handler{w: w, color: color, minLvl: LvlInfo}
}

// SetLevel adjusts the minimum level the root logger emits.
func SetLevel(l Lvl) { root.h.mu.Lock(); root.h.minLvl = l; root.h.mu.Unlock() }

// New returns a new logger rooted at the package root, annotated with ctx.
func New(ctx ...interface{}) Logger { return root.New(ctx...) }

func (l *logger) New(ctx ...interface{}) Logger {
	nctx := make([]interface{}, 0, len(l.ctx)+len(ctx))
	nctx = append(nctx, l.ctx...)
	nctx = append(nctx, ctx...)
	return &logger{ctx: nctx, h: l.h}
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	l.h.mu.Lock()
	defer l.h.mu.Unlock()
	if lvl > l.h.minLvl {
		return
	}
	call := stack.Caller(2)
	ts := time.Now().Format("2006-01-02T15:04:05.000")
	fmt.Fprintf(l.h.w, "%s [%-5s] %-40s", ts, lvl, msg)
	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(l.h.w, " %v=%v", all[i], all[i+1])
	}
	fmt.Fprintf(l.h.w, " caller=%+v\n", call)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

// Package-level helpers delegating to the root logger, for callers that
// don't need their own context.
func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
func Crit(msg string, ctx ...interface{})  { root.Crit(msg, ctx...) }
