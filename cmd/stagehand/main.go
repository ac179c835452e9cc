package main

import (
	"fmt"
	"log/slog"
	"os"

	log "git.sr.ht/~spc/go-log"
	"github.com/urfave/cli/v2"

	"github.com/stagehand-project/stagehand/internal/conf"
	"github.com/stagehand-project/stagehand/internal/l10n"
	"github.com/stagehand-project/stagehand/internal/logging"
	"github.com/stagehand-project/stagehand/internal/types"
)

// Version is set at build time.
var Version = "0.1.0"

// application holds what the commands share. It is filled in by setup.
type application struct {
	logger *logging.Logger
	store  *conf.Store
	types  *types.Registry
}

func main() {
	a := &application{}

	app := &cli.App{
		Name:    "stagehand",
		Version: Version,
		Usage:   l10n.T("inspect and prepare stagehand configuration"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: l10n.T("read main configuration from `FILE`"),
			},
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: l10n.T("read drop-in configuration files from `DIR`"),
			},
			&cli.StringFlag{
				Name:  "legacy-config",
				Usage: l10n.T("read legacy INI configuration from `FILE`"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "error",
				Usage:   l10n.T("set the command's own diagnostic `LEVEL`"),
				EnvVars: []string{"STAGEHAND_CLI_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: l10n.T("log at debug level"),
			},
			&cli.StringSliceFlag{
				Name:  "logdest",
				Usage: l10n.T("send log records to `DEST` (console, journal or an absolute path)"),
			},
			&cli.StringSliceFlag{
				Name:    "set",
				Aliases: []string{"s"},
				Usage:   l10n.T("set parameter `NAME=VALUE`"),
			},
		},
		Before: a.setup,
		After: func(c *cli.Context) error {
			if a.logger != nil {
				return a.logger.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     l10n.T("print the value of parameters"),
				ArgsUsage: "NAME...",
				Action:    a.get,
			},
			{
				Name:  "print",
				Usage: l10n.T("print every parameter"),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Value: "text",
						Usage: l10n.T("output `FORMAT` (text, json, yaml or toml)"),
					},
				},
				Action: a.print,
			},
			{
				Name:      "mkdirs",
				Usage:     l10n.T("create the directories named by parameters"),
				ArgsUsage: "[NAME...]",
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "mode",
						Value: 0755,
						Usage: l10n.T("permission `MODE` for new directories"),
					},
				},
				Action: a.mkdirs,
			},
			{
				Name:      "as-user",
				Usage:     l10n.T("run a command with another user's effective uid"),
				ArgsUsage: "COMMAND [ARG...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: l10n.T("run as `USER` instead of the user parameter"),
					},
				},
				Action: a.asUser,
			},
			{
				Name:      "types",
				Usage:     l10n.T("list resource types"),
				ArgsUsage: "[NAME]",
				Action:    a.listTypes,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup builds the parameter store and applies configuration files and
// command line overrides to it.
func (a *application) setup(c *cli.Context) error {
	level, err := log.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	log.SetLevel(level)

	a.logger = logging.New(c.App.Name)
	slog.SetDefault(slog.New(a.logger.Handler()))

	env := conf.DetectEnvironment()
	a.store = conf.NewStore(conf.NewDefaults(env), a.logger)
	log.Debugf("privileged: %v", env.Privileged)

	confdir, err := a.store.String("confdir")
	if err != nil {
		return err
	}
	source := conf.NewConfigSource(confdir)
	if c.IsSet("config") {
		source.Path = c.String("config")
	}
	if c.IsSet("config-dir") {
		source.DropInDir = c.String("config-dir")
	}
	if c.IsSet("legacy-config") {
		source.LegacyPath = c.String("legacy-config")
	}
	log.Debugf("loading configuration: %+v", *source)
	if err := source.Apply(a.store); err != nil {
		return cli.Exit(l10n.T("cannot load configuration: %v", err), 1)
	}

	for _, dest := range c.StringSlice("logdest") {
		if err := a.store.Set(conf.LogDest, dest); err != nil {
			return cli.Exit(l10n.T("invalid log destination %s: %v", dest, err), 1)
		}
	}
	if a.logger.Destinations() == 0 {
		if _, err := a.logger.AddDestination("console"); err != nil {
			return err
		}
	}

	for _, assignment := range c.StringSlice("set") {
		name, value, err := parseAssignment(assignment)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if err := a.store.Set(name, value); err != nil {
			return cli.Exit(l10n.T("cannot set %s: %v", name, err), 1)
		}
		log.Debugf("set %s = %v", name, value)
	}
	if c.Bool("debug") {
		if err := a.store.Set(conf.Debug, true); err != nil {
			return err
		}
	}

	a.types = &types.Registry{}
	types.RegisterBuiltins(a.types)
	return nil
}
