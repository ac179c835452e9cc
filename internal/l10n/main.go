// Package l10n translates the messages the stagehand command shows to
// users. Messages are looked up in the "stagehand" gettext domain; a
// message with no translation is used as is.
package l10n

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/snapcore/go-gettext"
)

// LocaleDirEnv overrides where message catalogs are read from.
const LocaleDirEnv = "STAGEHAND_LOCALEDIR"

var (
	mu      sync.RWMutex
	catalog gettext.Catalog
)

func init() {
	Load(os.Getenv(LocaleDirEnv))
}

// Load selects the catalog for the user's locale from dir. An empty dir
// means the system default location.
func Load(dir string) {
	domain := gettext.TextDomain{Name: "stagehand", LocaleDir: dir}
	c := domain.UserLocale()
	mu.Lock()
	catalog = c
	mu.Unlock()
}

func current() gettext.Catalog {
	mu.RLock()
	defer mu.RUnlock()
	return catalog
}

// T localizes str and formats it with vars, if any.
func T(str string, vars ...any) string {
	return format(current().Gettext(str), vars)
}

// TN localizes a message that has a plural form chosen by n.
func TN(singular, plural string, n uint32, vars ...any) string {
	return format(current().NGettext(singular, plural, n), vars)
}

// Errorf returns an error carrying the localized message. Like
// fmt.Errorf, a %w verb wraps its operand.
func Errorf(str string, vars ...any) error {
	msg := current().Gettext(str)
	if len(vars) == 0 {
		return errors.New(msg)
	}
	return fmt.Errorf(msg, vars...)
}

func format(msg string, vars []any) string {
	if len(vars) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, vars...)
}
