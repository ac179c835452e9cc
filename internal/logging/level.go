package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is a log severity. Levels are ordered from least to most severe,
// except that Crit sorts after Emerg for compatibility with existing
// configuration files.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Err
	Alert
	Emerg
	Crit
)

// DefaultLevel is the level a Logger starts at and the level restored
// when debugging is switched off.
const DefaultLevel = Notice

var levelNames = [...]string{
	Debug:   "debug",
	Info:    "info",
	Notice:  "notice",
	Warning: "warning",
	Err:     "err",
	Alert:   "alert",
	Emerg:   "emerg",
	Crit:    "crit",
}

// slog has no notion of notice, alert, emerg or crit, so those are
// placed between the stock slog levels.
var slogLevels = [...]slog.Level{
	Debug:   slog.LevelDebug,
	Info:    slog.LevelInfo,
	Notice:  slog.LevelInfo + 2,
	Warning: slog.LevelWarn,
	Err:     slog.LevelError,
	Alert:   slog.LevelError + 1,
	Emerg:   slog.LevelError + 2,
	Crit:    slog.LevelError + 3,
}

// Levels returns every level, least severe first.
func Levels() []Level {
	levels := make([]Level, 0, len(levelNames))
	for l := range levelNames {
		levels = append(levels, Level(l))
	}
	return levels
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= Debug && l <= Crit
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// Slog returns the slog.Level l is rendered as.
func (l Level) Slog() slog.Level {
	if !l.Valid() {
		return slog.LevelInfo
	}
	return slogLevels[l]
}

// FromSlog maps an slog.Level onto the most severe Level that does not
// exceed it. Anything below slog.LevelDebug maps to Debug.
func FromSlog(sl slog.Level) Level {
	level := Debug
	for l, v := range slogLevels {
		if v <= sl && slogLevels[level] <= v {
			level = Level(l)
		}
	}
	return level
}

// InvalidLevelError is returned when a string does not name a Level.
type InvalidLevelError struct {
	Value string
}

// Error implements the error interface.
func (e InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q", e.Value)
}

// ParseLevel parses a level name. Matching is case-insensitive and the
// common aliases "warn", "error" and "critical" are accepted.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "warn":
		return Warning, nil
	case "error":
		return Err, nil
	case "critical":
		return Crit, nil
	}
	for l, n := range levelNames {
		if n == name {
			return Level(l), nil
		}
	}
	return 0, InvalidLevelError{Value: s}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
