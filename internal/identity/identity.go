// Package identity runs work under another user's effective uid.
//
// The effective uid is process-wide. All switches made through this
// package are serialized by a single lock, so a second switch cannot
// interleave with the restoration of the first. Switching from code that
// does not go through this package is not guarded against.
//
// The lock is held while work runs, including when no switch is needed,
// and it is not reentrant: work must not call Run or AsUser itself, or it
// deadlocks.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// Identity is the operating system's view of users and the process's
// effective uid.
type Identity interface {
	LookupUID(username string) (int, error)
	Geteuid() int
	Seteuid(uid int) error
}

type osIdentity struct{}

func (osIdentity) LookupUID(username string) (int, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(u.Uid)
}

func (osIdentity) Geteuid() int { return unix.Geteuid() }

// Seteuid changes the effective uid of every thread in the process.
func (osIdentity) Seteuid(uid int) error { return unix.Setresuid(-1, uid, -1) }

// OS is the Identity backed by the operating system.
var OS Identity = osIdentity{}

// UnknownUserError is returned when the target user cannot be resolved.
type UnknownUserError struct {
	Username string
}

// Error implements the error interface.
func (e UnknownUserError) Error() string {
	return fmt.Sprintf("user %s not found", e.Username)
}

// SwitchError is returned when the effective uid cannot be changed to
// the target user's. The work has not been run.
type SwitchError struct {
	UID   int
	Cause error
}

// Error implements the error interface.
func (e SwitchError) Error() string {
	return fmt.Sprintf("cannot switch effective uid to %d: %s", e.UID, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e SwitchError) Unwrap() error {
	return e.Cause
}

// RestoreError is returned when the previous effective uid could not be
// restored after the work ran. The process is still running as UID.
type RestoreError struct {
	UID   int
	Cause error
}

// Error implements the error interface.
func (e RestoreError) Error() string {
	return fmt.Sprintf("cannot restore effective uid %d: %s", e.UID, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e RestoreError) Unwrap() error {
	return e.Cause
}

// switchMu guards the process-wide effective uid.
var switchMu sync.Mutex

// Switcher runs work as other users.
type Switcher struct {
	id Identity
}

// NewSwitcher returns a Switcher using id. A nil id means OS.
func NewSwitcher(id Identity) *Switcher {
	if id == nil {
		id = OS
	}
	return &Switcher{id: id}
}

// Run runs work with the effective uid of username and then restores the
// previous effective uid, even if work fails or panics. If the process
// already has that effective uid, work is run without switching.
func (s *Switcher) Run(username string, work func() error) error {
	_, err := AsUser(s, username, func() (struct{}, error) {
		return struct{}{}, work()
	})
	return err
}

// AsUser is Run for work that produces a value. Like Run, it must not be
// called from inside work.
func AsUser[T any](s *Switcher, username string, work func() (T, error)) (result T, err error) {
	uid, lookupErr := s.id.LookupUID(username)
	if lookupErr != nil {
		slog.Debug("user lookup failed", "user", username, "error", lookupErr)
		return result, UnknownUserError{Username: username}
	}

	switchMu.Lock()
	defer switchMu.Unlock()

	previous := s.id.Geteuid()
	if previous == uid {
		return work()
	}

	if err := s.id.Seteuid(uid); err != nil {
		return result, SwitchError{UID: uid, Cause: err}
	}
	slog.Debug("switched effective uid", "user", username, "uid", uid, "previous", previous)

	defer func() {
		if restoreErr := s.id.Seteuid(previous); restoreErr != nil {
			slog.Error("failed to restore effective uid", "uid", previous, "error", restoreErr)
			err = errors.Join(err, RestoreError{UID: previous, Cause: restoreErr})
		}
	}()

	return work()
}
