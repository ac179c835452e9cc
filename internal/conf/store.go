package conf

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/stagehand-project/stagehand/internal/logging"
)

// Reserved parameter names. They are not stored; reading and writing
// them goes to the Logger instead.
const (
	Debug    Name = "debug"
	LogLevel Name = "loglevel"
	LogDest  Name = "logdest"
)

// Logger is the part of the logging subsystem the Store drives.
type Logger interface {
	Level() logging.Level
	SetLevel(logging.Level) error
	DebugLevel() logging.Level
	AddDestination(any) (uuid.UUID, error)
	Emit(logging.Level, string, ...slog.Attr) error
}

type reservedParam struct {
	get   func() (any, error)
	set   func(any) error
	check func(any) error
}

// Store resolves parameters. Explicitly set values take precedence over
// defaults; defaults are resolved on every read. A Store is safe for
// concurrent use.
type Store struct {
	log      Logger
	reserved map[Name]reservedParam

	mu       sync.Mutex
	overlay  map[Name]any
	defaults Defaults
}

// NewStore returns a Store backed by a copy of defaults. If log is nil a
// logging.Logger with no destinations is used.
func NewStore(defaults Defaults, log Logger) *Store {
	if log == nil {
		log = logging.New("stagehand")
	}
	s := &Store{
		log:      log,
		overlay:  make(map[Name]any),
		defaults: make(Defaults, len(defaults)),
	}
	for k, v := range defaults {
		s.defaults[k] = v
	}
	s.reserved = map[Name]reservedParam{
		Debug: {
			get: func() (any, error) {
				return log.Level() == log.DebugLevel(), nil
			},
			set: func(v any) error {
				if truthy(v) {
					return log.SetLevel(log.DebugLevel())
				}
				return log.SetLevel(logging.DefaultLevel)
			},
		},
		LogLevel: {
			get: func() (any, error) {
				return log.Level(), nil
			},
			set: func(v any) error {
				level, err := toLevel(v)
				if err != nil {
					return err
				}
				return log.SetLevel(level)
			},
			check: func(v any) error {
				_, err := toLevel(v)
				return err
			},
		},
		LogDest: {
			set: func(v any) error {
				_, err := log.AddDestination(v)
				return err
			},
			check: logging.CheckDestination,
		},
	}
	return s
}

// Get returns the value of the parameter named by key, which must be a
// string or a Name.
func (s *Store) Get(key any) (any, error) {
	name, err := normalize(key)
	if err != nil {
		return nil, err
	}
	return s.resolve(name, nil)
}

func (s *Store) resolve(name Name, visiting []Name) (any, error) {
	if r, ok := s.reserved[name]; ok && r.get != nil {
		return r.get()
	}

	s.mu.Lock()
	v, overlaid := s.overlay[name]
	d, defaulted := s.defaults[name]
	s.mu.Unlock()

	if overlaid {
		return v, nil
	}
	if !defaulted {
		return nil, UnknownParameterError{Name: name}
	}

	switch d := d.(type) {
	case Literal:
		return d.Value, nil
	case Computed:
		return d(), nil
	case Reference:
		if slices.Contains(visiting, name) {
			return nil, CyclicDefaultError{Chain: append(visiting, name)}
		}
		base, err := s.resolve(d.Base, append(visiting, name))
		if err != nil {
			return nil, err
		}
		dir, ok := base.(string)
		if !ok {
			return nil, TypeMismatchError{Name: d.Base, Want: "string", Value: base}
		}
		return filepath.Join(dir, d.Suffix), nil
	default:
		return nil, InvalidDefaultError{Name: name, Value: d}
	}
}

// Set assigns value to the parameter named by key. The reserved names
// change the Logger instead: debug toggles the debug level, loglevel sets
// the level and logdest adds a destination.
func (s *Store) Set(key any, value any) error {
	name, err := normalize(key)
	if err != nil {
		return err
	}
	if r, ok := s.reserved[name]; ok && r.set != nil {
		return r.set(value)
	}

	s.mu.Lock()
	s.overlay[name] = value
	s.mu.Unlock()
	return nil
}

// Check reports whether Set would reject value for key without changing
// anything. Ordinary parameters accept any value. A log destination that
// passes the check can still fail to open when it is set.
func (s *Store) Check(key any, value any) error {
	name, err := normalize(key)
	if err != nil {
		return err
	}
	if r, ok := s.reserved[name]; ok && r.check != nil {
		return r.check(value)
	}
	return nil
}

// Reset forgets every explicitly set value. Defaults and the Logger are
// left alone.
func (s *Store) Reset() {
	s.mu.Lock()
	s.overlay = make(map[Name]any)
	s.mu.Unlock()
	slog.Debug("parameter overrides cleared")
}

// RegisterDefault adds or replaces the default of a parameter. A
// two-element slice, or a Reference, declares a reference default; its
// base must already have a default and its suffix must be a string. A
// func() any is registered as a Computed default. Anything else is a
// Literal. On error the defaults are unchanged.
func (s *Store) RegisterDefault(key any, value any) error {
	name, err := normalize(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var d Default
	switch v := value.(type) {
	case Reference:
		d, err = s.reference(name, []any{v.Base, v.Suffix})
	case []any:
		d, err = s.reference(name, v)
	case []string:
		elems := make([]any, len(v))
		for i := range v {
			elems[i] = v[i]
		}
		d, err = s.reference(name, elems)
	case Literal:
		d = v
	case Computed:
		d = v
	case func() any:
		d = Computed(v)
	default:
		d = Literal{Value: v}
	}
	if err != nil {
		return err
	}

	s.defaults[name] = d
	slog.Debug("registered parameter default", "name", string(name))
	return nil
}

// reference validates a reference default. The caller holds s.mu.
func (s *Store) reference(name Name, elems []any) (Reference, error) {
	invalid := InvalidDefaultError{Name: name, Value: elems}
	if len(elems) == 0 {
		return Reference{}, invalid
	}
	base, err := normalize(elems[0])
	if err != nil {
		return Reference{}, invalid
	}
	if _, ok := s.defaults[base]; !ok {
		return Reference{}, UnknownBaseParameterError{Name: name, Base: base}
	}
	if len(elems) != 2 {
		return Reference{}, invalid
	}
	suffix, ok := elems[1].(string)
	if !ok {
		return Reference{}, invalid
	}
	return Reference{Base: base, Suffix: suffix}, nil
}

// Known reports whether key names a reserved parameter, a parameter with
// a default or an explicitly set one.
func (s *Store) Known(key any) bool {
	name, err := normalize(key)
	if err != nil {
		return false
	}
	if _, ok := s.reserved[name]; ok {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, overlaid := s.overlay[name]
	_, defaulted := s.defaults[name]
	return overlaid || defaulted
}

// Names returns the names of all stored parameters, sorted. Reserved
// names are not included.
func (s *Store) Names() []Name {
	s.mu.Lock()
	seen := make(map[Name]struct{}, len(s.defaults)+len(s.overlay))
	for n := range s.defaults {
		seen[n] = struct{}{}
	}
	for n := range s.overlay {
		seen[n] = struct{}{}
	}
	s.mu.Unlock()

	names := make([]Name, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// String returns a parameter that must hold a string.
func (s *Store) String(key any) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	str, ok := v.(string)
	if !ok {
		name, _ := normalize(key)
		return "", TypeMismatchError{Name: name, Want: "string", Value: v}
	}
	return str, nil
}

// Bool returns a parameter that must hold a bool.
func (s *Store) Bool(key any) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		name, _ := normalize(key)
		return false, TypeMismatchError{Name: name, Want: "bool", Value: v}
	}
	return b, nil
}

// Int returns a parameter that must hold an integer.
func (s *Store) Int(key any) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	default:
		name, _ := normalize(key)
		return 0, TypeMismatchError{Name: name, Want: "int", Value: v}
	}
}

// Log emits a message at level. Arguments are joined with spaces.
func (s *Store) Log(level logging.Level, args ...any) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return s.log.Emit(level, strings.Join(parts, " "))
}

// truthy treats nil, false and strings that parse as false as false;
// everything else is true.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return true
		}
		return b
	default:
		return true
	}
}

func toLevel(v any) (logging.Level, error) {
	switch x := v.(type) {
	case logging.Level:
		return x, nil
	case string:
		return logging.ParseLevel(x)
	default:
		return 0, TypeMismatchError{Name: LogLevel, Want: "log level", Value: v}
	}
}
