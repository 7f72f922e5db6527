// Package xlog is a small structured logger in the style of go-probeum's
// log package: leveled, key/value, with the calling frame captured via
// go-stack/stack for terse one-line records.
package xlog

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-stack/stack"
)

// Level is a logging severity, ordered from most to least verbose.
type Level int

const (
	LvlTrace Level = iota
	LvlDebug
	LvlInfo
	LvlWarn
	LvlError
)

func (l Level) String() string {
	switch l {
	case LvlTrace:
		return "TRACE"
	case LvlDebug:
		return "DEBUG"
	case LvlInfo:
		return "INFO"
	case LvlWarn:
		return "WARN"
	case LvlError:
		return "ERROR"
	default:
		return "?????"
	}
}

var (
	mu       sync.Mutex
	minLevel = LvlDebug
	out      = os.Stderr
)

// SetLevel adjusts the package-wide verbosity floor. Tests typically raise
// this to LvlError to keep output quiet.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLevel = l
}

// Logger is a context carrying a fixed set of key/value pairs, mirroring
// log.New("peer", id) in the teacher's handler code.
type Logger struct {
	ctx []interface{}
}

// New creates a Logger with the given static context fields.
func New(ctx ...interface{}) Logger {
	return Logger{ctx: ctx}
}

// New returns a child logger with additional context appended.
func (l Logger) New(ctx ...interface{}) Logger {
	merged := make([]interface{}, 0, len(l.ctx)+len(ctx))
	merged = append(merged, l.ctx...)
	merged = append(merged, ctx...)
	return Logger{ctx: merged}
}

func (l Logger) log(lvl Level, msg string, ctx []interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if lvl < minLevel {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(lvl.String())
	b.WriteByte(' ')
	b.WriteString(msg)
	all := make([]interface{}, 0, len(l.ctx)+len(ctx))
	all = append(all, l.ctx...)
	all = append(all, ctx...)
	for i := 0; i+1 < len(all); i += 2 {
		fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
	}
	if lvl >= LvlWarn {
		call := stack.Caller(2)
		fmt.Fprintf(&b, " caller=%+v", call)
	}
	fmt.Fprintln(out, b.String())
}

func (l Logger) Trace(msg string, ctx ...interface{}) { l.log(LvlTrace, msg, ctx) }
func (l Logger) Debug(msg string, ctx ...interface{}) { l.log(LvlDebug, msg, ctx) }
func (l Logger) Info(msg string, ctx ...interface{})  { l.log(LvlInfo, msg, ctx) }
func (l Logger) Warn(msg string, ctx ...interface{})  { l.log(LvlWarn, msg, ctx) }
func (l Logger) Error(msg string, ctx ...interface{}) { l.log(LvlError, msg, ctx) }

var root = New()

func Trace(msg string, ctx ...interface{}) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...interface{})  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...interface{}) { root.Error(msg, ctx...) }
