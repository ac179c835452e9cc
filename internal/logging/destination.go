package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// Record is a single log entry handed to every Destination.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Attrs   []slog.Attr
}

// Destination receives records from a Logger.
type Destination interface {
	Write(r Record) error
	Close() error
}

// InvalidDestinationError is returned by AddDestination for values it
// cannot turn into a Destination.
type InvalidDestinationError struct {
	Value any
}

// Error implements the error interface.
func (e InvalidDestinationError) Error() string {
	return fmt.Sprintf("invalid log destination %v (%T)", e.Value, e.Value)
}

// JournalUnavailableError is returned when the journal destination is
// requested but the systemd journal socket is not reachable.
type JournalUnavailableError struct{}

// Error implements the error interface.
func (JournalUnavailableError) Error() string {
	return "systemd journal is not available"
}

// writerDestination renders records as logfmt text through slog.
type writerDestination struct {
	handler slog.Handler
	closer  io.Closer
}

func newWriterDestination(w io.Writer, c io.Closer) *writerDestination {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceLevelAttr,
	})
	return &writerDestination{handler: h, closer: c}
}

func replaceLevelAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	sl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	return slog.String(slog.LevelKey, FromSlog(sl).String())
}

func (d *writerDestination) Write(r Record) error {
	rec := slog.NewRecord(r.Time, r.Level.Slog(), r.Message, 0)
	rec.AddAttrs(r.Attrs...)
	return d.handler.Handle(context.Background(), rec)
}

func (d *writerDestination) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// openFileDestination appends to path, creating it if needed.
func openFileDestination(path string) (*writerDestination, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}
	return newWriterDestination(f, f), nil
}

var journalPriorities = [...]journal.Priority{
	Debug:   journal.PriDebug,
	Info:    journal.PriInfo,
	Notice:  journal.PriNotice,
	Warning: journal.PriWarning,
	Err:     journal.PriErr,
	Alert:   journal.PriAlert,
	Emerg:   journal.PriEmerg,
	Crit:    journal.PriCrit,
}

// journalDestination sends records to the systemd journal. Attributes
// become upper-cased journal fields.
type journalDestination struct {
	identifier string
	send       func(string, journal.Priority, map[string]string) error
}

func newJournalDestination(identifier string) (*journalDestination, error) {
	if !journal.Enabled() {
		return nil, JournalUnavailableError{}
	}
	return &journalDestination{identifier: identifier, send: journal.Send}, nil
}

func (d *journalDestination) Write(r Record) error {
	vars := map[string]string{
		"SYSLOG_IDENTIFIER": d.identifier,
	}
	for _, a := range r.Attrs {
		vars[journalField(a.Key)] = a.Value.String()
	}
	priority := journal.PriNotice
	if r.Level.Valid() {
		priority = journalPriorities[r.Level]
	}
	return d.send(r.Message, priority, vars)
}

func (d *journalDestination) Close() error { return nil }

// journalField converts an attribute key into a valid journal field
// name: upper case letters, digits and underscores, not starting with
// an underscore.
func journalField(key string) string {
	field := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	field = strings.TrimLeft(field, "_")
	if field == "" {
		return "ATTR"
	}
	return field
}

// CheckDestination reports whether v names a kind of destination
// AddDestination accepts. It does not open files or contact the journal.
func CheckDestination(v any) error {
	switch x := v.(type) {
	case Destination, io.Writer:
		return nil
	case string:
		if x == "console" || x == "journal" || x == "syslog" || filepath.IsAbs(x) {
			return nil
		}
	}
	return InvalidDestinationError{Value: v}
}

// destinationKey identifies named destinations so that adding the same
// one twice is detected. Writers and Destination values have no key and
// are never deduplicated.
func destinationKey(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	switch {
	case s == "console":
		return s
	case s == "journal" || s == "syslog":
		return "journal"
	case filepath.IsAbs(s):
		return filepath.Clean(s)
	}
	return ""
}

// destinationFor turns the value given to AddDestination into a
// Destination.
func destinationFor(identifier string, v any) (Destination, error) {
	if err := CheckDestination(v); err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case Destination:
		return x, nil
	case io.Writer:
		return newWriterDestination(x, nil), nil
	case string:
		if x == "console" {
			return newWriterDestination(os.Stderr, nil), nil
		}
		if x == "journal" || x == "syslog" {
			d, err := newJournalDestination(identifier)
			if err != nil {
				return nil, err
			}
			return d, nil
		}
		d, err := openFileDestination(x)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, InvalidDestinationError{Value: v}
}
