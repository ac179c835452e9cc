package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	log "git.sr.ht/~spc/go-log"
	"github.com/BurntSushi/toml"
	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/stagehand-project/stagehand/internal/conf"
	"github.com/stagehand-project/stagehand/internal/fsutil"
	"github.com/stagehand-project/stagehand/internal/identity"
	"github.com/stagehand-project/stagehand/internal/l10n"
	"github.com/stagehand-project/stagehand/internal/logging"
)

func (a *application) get(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit(l10n.T("at least one parameter name is required"), 1)
	}
	for _, name := range c.Args().Slice() {
		v, err := a.store.Get(name)
		if err != nil {
			return cli.Exit(err, 1)
		}
		if c.NArg() == 1 {
			fmt.Println(formatValue(v))
		} else {
			fmt.Printf("%s = %s\n", name, formatValue(v))
		}
	}
	return nil
}

func (a *application) print(c *cli.Context) error {
	values, err := collectValues(a.store)
	if err != nil {
		return cli.Exit(err, 1)
	}
	return writeValues(os.Stdout, c.String("format"), values)
}

// collectValues resolves every parameter, plus the readable reserved
// ones, into plain values suitable for encoding.
func collectValues(store *conf.Store) (map[string]any, error) {
	names := append(store.Names(), conf.Debug, conf.LogLevel)
	values := make(map[string]any, len(names))
	for _, name := range names {
		v, err := store.Get(name)
		if err != nil {
			return nil, err
		}
		if l, ok := v.(logging.Level); ok {
			v = l.String()
		}
		values[string(name)] = v
	}
	return values, nil
}

func writeValues(w io.Writer, format string, values map[string]any) error {
	switch format {
	case "text":
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, "%s = %s\n", k, formatValue(values[k])); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(values)
	case "toml":
		return toml.NewEncoder(w).Encode(values)
	default:
		return cli.Exit(l10n.T("unsupported format %s", format), 1)
	}
}

func (a *application) mkdirs(c *cli.Context) error {
	names := c.Args().Slice()
	if len(names) == 0 {
		for _, n := range a.store.Names() {
			if conf.IsDirectory(n) {
				names = append(names, string(n))
			}
		}
	}

	var s *spinner.Spinner
	if term.IsTerminal(int(os.Stdout.Fd())) {
		s = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
		s.Suffix = " " + l10n.T("creating directories")
		s.Start()
	}

	results, err := fsutil.EnsureDirectories(a.store, fs.FileMode(c.Uint("mode")), names...)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	created := reportResults(a.store, names, results)
	fmt.Println(l10n.TN("created %d directory", "created %d directories", uint32(created), created))
	return nil
}

// reportResults logs what happened to each directory through the store's
// logger and returns how many were created. New directories are logged at
// notice, existing ones at info.
func reportResults(store *conf.Store, names []string, results map[string]fsutil.Result) int {
	created := 0
	for _, name := range names {
		level := logging.Info
		if results[name] == fsutil.Created {
			created++
			level = logging.Notice
		}
		if err := store.Log(level, name+":", results[name]); err != nil {
			log.Debugf("cannot log result for %s: %v", name, err)
		}
	}
	return created
}

func (a *application) asUser(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit(l10n.T("a command is required"), 1)
	}
	username := c.String("user")
	if username == "" {
		u, err := a.store.String("user")
		if err != nil {
			return cli.Exit(err, 1)
		}
		username = u
	}

	args := c.Args().Slice()
	err := identity.NewSwitcher(nil).Run(username, func() error {
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		log.Debugf("running %s as %s", strings.Join(args, " "), username)
		return cmd.Run()
	})
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return cli.Exit("", exitErr.ExitCode())
	}
	if err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func (a *application) listTypes(c *cli.Context) error {
	if name := c.Args().First(); name != "" {
		t, ok := a.types.Lookup(name)
		if !ok {
			return cli.Exit(l10n.T("unknown type %s", name), 1)
		}
		fmt.Printf("%s\n", t.Name())
		if t.Doc() != "" {
			fmt.Printf("  %s\n", t.Doc())
		}
		fmt.Printf("  parent:     %s\n", t.Parent().Name())
		fmt.Printf("  namevar:    %s\n", t.Namevar())
		fmt.Printf("  parameters: %s\n", strings.Join(t.Parameters(), ", "))
		fmt.Printf("  properties: %s\n", strings.Join(t.Properties(), ", "))
		return nil
	}

	for _, n := range a.types.Names() {
		t, _ := a.types.Lookup(string(n))
		fmt.Printf("%-12s %s\n", n, t.Doc())
	}
	return nil
}
