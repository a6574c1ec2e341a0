// Package logging builds the process-wide log backend: leveled, subsystem
// tagged output to stdout, an in-memory ring of recent lines for the debug
// control plane, and an optional rotating file sink.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// TimeSource reports the current game time in milliseconds. The engine
// implements it; the backend stamps game time onto every line while a source
// is attached so log output can be correlated with ticks.
type TimeSource interface {
	GameTime() int64
}

// RingSize is the number of recent log lines kept in memory.
const RingSize = 500

// Ring is a fixed-capacity buffer of the most recent log lines.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func newRing() *Ring {
	return &Ring{lines: make([]string, RingSize)}
}

func (r *Ring) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % RingSize
	if r.next == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]string, r.next)
		copy(out, r.lines[:r.next])
		return out
	}
	out := make([]string, 0, RingSize)
	out = append(out, r.lines[r.next:]...)
	out = append(out, r.lines[:r.next]...)
	return out
}

// Backend owns the slog backend and its sinks.
type Backend struct {
	backend *slog.Backend
	ring    *Ring
	rot     *rotator.Rotator
	level   slog.Level

	mu      sync.Mutex
	ts      TimeSource
	loggers []slog.Logger
}

// Options configures NewBackend.
type Options struct {
	Level   string // "trace".."critical", default "info"
	LogDir  string // when non-empty, also write to LogDir/server.log with rotation
	Console io.Writer
}

// NewBackend creates the backend and its sinks.
func NewBackend(opts Options) (*Backend, error) {
	b := &Backend{ring: newRing(), level: slog.LevelInfo}
	if lvl, ok := slog.LevelFromString(opts.Level); ok {
		b.level = lvl
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	writers := []io.Writer{console, writerFunc(b.ringWrite)}

	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		r, err := rotator.New(filepath.Join(opts.LogDir, "server.log"), 10*1024, false, 3)
		if err != nil {
			return nil, fmt.Errorf("open log rotator: %w", err)
		}
		b.rot = r
		writers = append(writers, r)
	}

	b.backend = slog.NewBackend(&stampWriter{b: b, dst: io.MultiWriter(writers...)})
	return b, nil
}

// Logger returns a leveled logger tagged with the given subsystem.
func (b *Backend) Logger(subsystem string) slog.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	b.loggers = append(b.loggers, l)
	return l
}

// SetTimeSource attaches (or detaches, with nil) the game clock used to
// stamp lines.
func (b *Backend) SetTimeSource(ts TimeSource) {
	b.mu.Lock()
	b.ts = ts
	b.mu.Unlock()
}

// Ring exposes the in-memory line buffer.
func (b *Backend) Ring() *Ring { return b.ring }

// Close flushes the file sink, if any.
func (b *Backend) Close() error {
	if b.rot != nil {
		return b.rot.Close()
	}
	return nil
}

func (b *Backend) ringWrite(p []byte) (int, error) {
	b.ring.add(string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}

// stampWriter appends the current game time to each line when a time source
// is attached.
type stampWriter struct {
	b   *Backend
	dst io.Writer
}

func (w *stampWriter) Write(p []byte) (int, error) {
	w.b.mu.Lock()
	ts := w.b.ts
	w.b.mu.Unlock()
	if ts == nil {
		return w.dst.Write(p)
	}
	line := bytes.TrimRight(p, "\n")
	stamped := fmt.Sprintf("%s gt=%dms\n", line, ts.GameTime())
	if _, err := w.dst.Write([]byte(stamped)); err != nil {
		return 0, err
	}
	return len(p), nil
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
