package conf

// Package conf resolves stagehand's configuration parameters.
//
// # Usage
//
// A Store is built once from the built-in defaults and passed to whatever
// needs configuration:
//
//	log := logging.New("stagehand")
//	store := conf.NewStore(conf.NewDefaults(conf.DetectEnvironment()), log)
//	logfile, err := store.String("logfile")
//
// Values from configuration files are applied with a ConfigSource:
//
//	cs := conf.NewConfigSource("/etc/stagehand")
//	if err := cs.Apply(store); err != nil {
//	    return err
//	}
//
// # Resolution
//
// A parameter is resolved in two layers:
//
//  1. Explicitly set values (Store.Set, configuration files), returned as is
//  2. Defaults (Store.RegisterDefault, NewDefaults)
//
// A default is a Literal, a Computed function called on every read, or a
// Reference to another parameter with a path element appended. References
// are followed through Store.Get, so setting a base parameter changes
// every parameter derived from it on the next read.
//
// # Reserved Parameters
//
// debug, loglevel and logdest are not stored. They read and change the
// Logger the Store was created with.
//
// # Load Order
//
// Configuration files are applied in three layers:
//
//  1. Legacy INI file: /etc/stagehand/stagehand.conf
//  2. Main config file: /etc/stagehand/config.toml
//  3. Drop-in files: /etc/stagehand/config.toml.d/*.toml, in lexicographic order
