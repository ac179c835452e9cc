package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Name is the canonical form of a parameter key. A plain string and the
// Name with the same text refer to the same parameter.
type Name string

// normalize turns a parameter key into a Name.
func normalize(key any) (Name, error) {
	switch k := key.(type) {
	case Name:
		return k, nil
	case string:
		return Name(k), nil
	default:
		return "", InvalidArgumentError{Type: fmt.Sprintf("%T", key)}
	}
}

// Default is the fallback value of a parameter. It is one of Literal,
// Computed or Reference.
type Default interface {
	isDefault()
}

// Literal is a default returned as is.
type Literal struct {
	Value any
}

// Computed is a default evaluated on every read. Results are not cached.
type Computed func() any

// Reference is a default derived from another parameter: the resolved
// value of Base joined with Suffix as a path element.
type Reference struct {
	Base   Name
	Suffix string
}

func (Literal) isDefault()   {}
func (Computed) isDefault()  {}
func (Reference) isDefault() {}

// Defaults maps parameter names to their defaults.
type Defaults map[Name]Default

// Environment is what the built-in defaults are derived from.
type Environment struct {
	// Privileged selects the system-wide directories. Unprivileged
	// processes keep their state under Home.
	Privileged bool
	Home       string
	Program    string
}

// DetectEnvironment inspects the running process. A process whose
// effective uid is 0 is privileged. If an unprivileged process has no
// resolvable home directory the system-wide directories are used.
func DetectEnvironment() Environment {
	env := Environment{
		Privileged: os.Geteuid() == 0,
		Program:    filepath.Base(os.Args[0]),
	}
	if !env.Privileged {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			env.Privileged = true
		}
		env.Home = home
	}
	return env
}

// NewDefaults builds the built-in default tree for env.
func NewDefaults(env Environment) Defaults {
	d := Defaults{
		"name": Literal{env.Program},

		"rrddir":    Reference{"vardir", "rrd"},
		"logdir":    Reference{"vardir", "log"},
		"bucketdir": Reference{"vardir", "bucket"},
		"statedir":  Reference{"vardir", "state"},
		"rundir":    Reference{"vardir", "run"},

		"manifestdir":   Reference{"confdir", "manifests"},
		"manifest":      Reference{"manifestdir", "site.pp"},
		"localconfig":   Reference{"confdir", "localconfig.yaml"},
		"logfile":       Reference{"logdir", "stagehand.log"},
		"httplogfile":   Reference{"logdir", "http.log"},
		"masterlog":     Reference{"logdir", "master.log"},
		"masterhttplog": Reference{"logdir", "masterhttp.log"},
		"checksumfile":  Reference{"statedir", "checksums"},
		"ssldir":        Reference{"confdir", "ssl"},

		"server":     Literal{"stagehand"},
		"user":       Literal{"stagehand"},
		"group":      Literal{"stagehand"},
		"rrdgraph":   Literal{false},
		"noop":       Literal{false},
		"parseonly":  Literal{false},
		"agentport":  Literal{8139},
		"masterport": Literal{8140},

		"hostname": Computed(func() any {
			h, err := os.Hostname()
			if err != nil {
				return "localhost"
			}
			return h
		}),
	}

	if env.Privileged {
		d["confdir"] = Literal{"/etc/stagehand"}
		d["vardir"] = Literal{"/var/lib/stagehand"}
	} else {
		d["confdir"] = Literal{filepath.Join(env.Home, ".stagehand")}
		d["vardir"] = Literal{filepath.Join(env.Home, ".stagehand", "var")}
	}
	return d
}

// IsDirectory reports whether a parameter holds a directory path, which
// by convention means its name ends in "dir".
func IsDirectory(name Name) bool {
	return strings.HasSuffix(string(name), "dir")
}
