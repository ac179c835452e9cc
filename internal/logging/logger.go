// Package logging is the severity-levelled log sink the configuration core
// talks to. A Logger has a current level and any number of destinations;
// records below the current level are dropped, everything else is fanned
// out to every destination.
package logging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type registered struct {
	id   uuid.UUID
	key  string
	dest Destination
}

// Logger is safe for concurrent use.
type Logger struct {
	identifier string

	mu    sync.RWMutex
	level Level
	dests []registered
	now   func() time.Time
}

// New returns a Logger at DefaultLevel with no destinations. identifier
// names the program in destinations that support it, such as the journal.
func New(identifier string) *Logger {
	return &Logger{
		identifier: identifier,
		level:      DefaultLevel,
		now:        time.Now,
	}
}

// Level returns the current level.
func (l *Logger) Level() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetLevel changes the current level. Invalid levels are rejected.
func (l *Logger) SetLevel(level Level) error {
	if !level.Valid() {
		return InvalidLevelError{Value: level.String()}
	}
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
	return nil
}

// DebugLevel returns the level that counts as debugging.
func (l *Logger) DebugLevel() Level {
	return Debug
}

// AddDestination registers a new destination and returns its handle.
// v may be a Destination, an io.Writer, "console", "journal" (or its
// alias "syslog") or an absolute file path. Adding a named destination
// that is already registered returns the existing handle.
func (l *Logger) AddDestination(v any) (uuid.UUID, error) {
	key := destinationKey(v)

	l.mu.Lock()
	defer l.mu.Unlock()
	if key != "" {
		for _, r := range l.dests {
			if r.key == key {
				return r.id, nil
			}
		}
	}

	dest, err := destinationFor(l.identifier, v)
	if err != nil {
		return uuid.Nil, err
	}
	r := registered{id: uuid.New(), key: key, dest: dest}
	l.dests = append(l.dests, r)
	return r.id, nil
}

// RemoveDestination closes and forgets the destination with the given
// handle. Unknown handles are ignored.
func (l *Logger) RemoveDestination(id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.dests {
		if r.id == id {
			l.dests = append(l.dests[:i], l.dests[i+1:]...)
			return r.dest.Close()
		}
	}
	return nil
}

// Destinations returns the number of registered destinations.
func (l *Logger) Destinations() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dests)
}

// Close closes every destination.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, r := range l.dests {
		errs = append(errs, r.dest.Close())
	}
	l.dests = nil
	return errors.Join(errs...)
}

// Enabled reports whether a record at level would be emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// Emit sends msg at level to every destination.
func (l *Logger) Emit(level Level, msg string, attrs ...slog.Attr) error {
	if !l.Enabled(level) {
		return nil
	}
	return l.write(Record{Time: l.now(), Level: level, Message: msg, Attrs: attrs})
}

func (l *Logger) write(r Record) error {
	l.mu.RLock()
	dests := make([]Destination, len(l.dests))
	for i, reg := range l.dests {
		dests[i] = reg.dest
	}
	l.mu.RUnlock()

	var errs []error
	for _, d := range dests {
		if err := d.Write(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns an slog.Handler that forwards to l, so code can log
// with the standard slog API and still honour the current level and
// destinations.
func (l *Logger) Handler() slog.Handler {
	return &handler{logger: l}
}

type handler struct {
	logger *Logger
	attrs  []slog.Attr
	group  string
}

func (h *handler) Enabled(_ context.Context, sl slog.Level) bool {
	return h.logger.Enabled(FromSlog(sl))
}

func (h *handler) Handle(_ context.Context, rec slog.Record) error {
	attrs := make([]slog.Attr, 0, len(h.attrs)+rec.NumAttrs())
	attrs = append(attrs, h.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})
	return h.logger.write(Record{
		Time:    rec.Time,
		Level:   FromSlog(rec.Level),
		Message: rec.Message,
		Attrs:   attrs,
	})
}

func (h *handler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	a.Key = h.group + "." + a.Key
	return a
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := &handler{logger: h.logger, group: h.group}
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		nh.attrs = append(nh.attrs, h.qualify(a))
	}
	return nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	group := name
	if h.group != "" {
		group = strings.Join([]string{h.group, name}, ".")
	}
	return &handler{logger: h.logger, attrs: h.attrs, group: group}
}
