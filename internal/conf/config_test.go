package conf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stagehand-project/stagehand/internal/logging"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		expected    map[string]any
	}{
		{
			name: "valid TOML string",
			input: `
server = "master.example.com"
masterport = 9140
noop = true
`,
			expectError: false,
			expected: map[string]any{
				"server":     "master.example.com",
				"masterport": 9140,
				"noop":       true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: false,
			expected:    map[string]any{},
		},
		{
			name:        "invalid TOML",
			input:       "not valid toml ===",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseConfig(tt.input)

			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError {
				if diff := cmp.Diff(tt.expected, result); diff != "" {
					t.Errorf("parseConfig() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestConfigSource_ReadFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		fileContent string
		setupFile   bool
		expectError bool
		expected    map[Name]any
	}{
		{
			name: "valid config file",
			fileContent: `server = "master.example.com"
vardir = "/srv/stagehand"
agentport = 9139
`,
			setupFile:   true,
			expectError: false,
			expected: map[Name]any{
				"server":    "master.example.com",
				"agentport": 9139,
				"statedir":  "/srv/stagehand/state",
			},
		},
		{
			name:        "missing file uses defaults",
			setupFile:   false,
			expectError: false,
			expected: map[Name]any{
				"server":    "stagehand",
				"agentport": 8139,
				"statedir":  "/var/lib/stagehand/state",
			},
		},
		{
			name:        "unknown parameter",
			fileContent: `sever = "typo.example.com"`,
			setupFile:   true,
			expectError: true,
		},
		{
			name: "tables are rejected",
			fileContent: `[agent]
server = "master.example.com"
`,
			setupFile:   true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testFile := filepath.Join(tmpDir, "test-"+tt.name+".toml")

			if tt.setupFile {
				if err := os.WriteFile(testFile, []byte(tt.fileContent), 0644); err != nil {
					t.Fatalf("failed to write test file: %v", err)
				}
			}

			store, _ := newTestStore(t)
			source := &ConfigSource{Path: testFile, DropInDir: filepath.Join(tmpDir, "nonexistent")}
			err := source.Apply(store)

			if tt.expectError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError {
				got := make(map[Name]any)
				for name := range tt.expected {
					got[name], _ = store.Get(name)
				}
				if diff := cmp.Diff(tt.expected, got); diff != "" {
					t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestConfigSource_UnknownParameterLeavesStoreUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `server = "master.example.com"
bogus = 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	store, _ := newTestStore(t)
	err := (&ConfigSource{Path: path}).Apply(store)

	var uerr UnknownParameterError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UnknownParameterError, got %v", err)
	}
	if uerr.Name != "bogus" {
		t.Errorf("expected bogus to be reported, got %s", uerr.Name)
	}
	if got, _ := store.Get("server"); got != "stagehand" {
		t.Errorf("expected server untouched, got %v", got)
	}
}

func TestConfigSource_InvalidReservedValueLeavesStoreUntouched(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(err error) bool
	}{
		{
			name: "bad log level",
			content: `agentport = 1
loglevel = "bogus"
`,
			check: func(err error) bool {
				var lerr logging.InvalidLevelError
				return errors.As(err, &lerr)
			},
		},
		{
			name: "relative log destination",
			content: `agentport = 1
logdest = "relative.log"
`,
			check: func(err error) bool {
				var derr logging.InvalidDestinationError
				return errors.As(err, &derr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			store, log := newTestStore(t)
			err := (&ConfigSource{Path: path}).Apply(store)
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if got, _ := store.Get("agentport"); got != 8139 {
				t.Errorf("expected agentport untouched, got %v", got)
			}
			if log.Level() != logging.DefaultLevel || log.Destinations() != 0 {
				t.Errorf("expected logger untouched, got level %v with %d destinations", log.Level(), log.Destinations())
			}
		})
	}
}

func TestConfigSource_ReservedParameters(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	logPath := filepath.Join(tmpDir, "stagehand.log")
	content := `loglevel = "info"
logdest = "` + logPath + `"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	store, log := newTestStore(t)
	if err := (&ConfigSource{Path: path}).Apply(store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer log.Close()

	if log.Level() != logging.Info {
		t.Errorf("expected level info, got %v", log.Level())
	}
	if log.Destinations() != 1 {
		t.Errorf("expected a file destination, got %d", log.Destinations())
	}
}

func TestConfigSource_FullStack(t *testing.T) {
	tmpDir := t.TempDir()
	legacyPath := filepath.Join(tmpDir, "stagehand.conf")
	mainConfigPath := filepath.Join(tmpDir, "config.toml")
	dropinDir := filepath.Join(tmpDir, "config.toml.d")

	if err := os.Mkdir(dropinDir, 0755); err != nil {
		t.Fatalf("failed to create drop-in directory: %v", err)
	}

	t.Run("full configuration stack", func(t *testing.T) {
		legacy := `server = legacy.example.com
user = legacyuser
masterport = 18140
`
		if err := os.WriteFile(legacyPath, []byte(legacy), 0644); err != nil {
			t.Fatalf("failed to write legacy config: %v", err)
		}

		mainConfig := `
server = "main.example.com"
ssldir = "/etc/pki/stagehand"
`
		if err := os.WriteFile(mainConfigPath, []byte(mainConfig), 0644); err != nil {
			t.Fatalf("failed to write main config: %v", err)
		}

		// Drop-ins are applied in lexicographic order.
		dropinFiles := map[string]string{
			"10-vardir.toml": `vardir = "/srv/stagehand"`,
			"20-server.toml": `server = "dropin.example.com"`,
			"30-ssl.toml":    `ssldir = "/custom/ssl"`,
		}

		for filename, content := range dropinFiles {
			path := filepath.Join(dropinDir, filename)
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write drop-in file %s: %v", filename, err)
			}
		}

		store, _ := newTestStore(t)
		cs := &ConfigSource{Path: mainConfigPath, DropInDir: dropinDir, LegacyPath: legacyPath}
		if err := cs.Apply(store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Defaults < Legacy < Main < Drop-ins (in order)
		want := map[Name]any{
			"server":     "dropin.example.com",
			"user":       "legacyuser",
			"masterport": 18140,
			"ssldir":     "/custom/ssl",
			"logdir":     "/srv/stagehand/log",
		}
		for name, expected := range want {
			got, err := store.Get(name)
			if err != nil {
				t.Fatalf("Get(%s): unexpected error: %v", name, err)
			}
			if diff := cmp.Diff(expected, got); diff != "" {
				t.Errorf("Get(%s) mismatch (-want +got):\n%s", name, diff)
			}
		}
	})

	t.Run("drop-in shadowing", func(t *testing.T) {
		tmpDir2 := t.TempDir()
		mainPath2 := filepath.Join(tmpDir2, "config.toml")
		dropinDir2 := filepath.Join(tmpDir2, "config.toml.d")
		os.Mkdir(dropinDir2, 0755)

		os.WriteFile(mainPath2, []byte(`loglevel = "info"`), 0644)
		os.WriteFile(filepath.Join(dropinDir2, "10-first.toml"), []byte(`loglevel = "warning"`), 0644)
		os.WriteFile(filepath.Join(dropinDir2, "20-second.toml"), []byte(`loglevel = "debug"`), 0644)
		os.WriteFile(filepath.Join(dropinDir2, "30-ignored.conf"), []byte(`loglevel = "err"`), 0644)

		store, log := newTestStore(t)
		cs := &ConfigSource{Path: mainPath2, DropInDir: dropinDir2}
		if err := cs.Apply(store); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The last drop-in (20-second.toml) should win
		if log.Level() != logging.Debug {
			t.Errorf("expected level debug, got %v", log.Level())
		}
		if debug, _ := store.Bool("debug"); !debug {
			t.Error("expected debug to report true")
		}
	})
}

func TestConfigSource_MissingDropinDir(t *testing.T) {
	tmpDir := t.TempDir()
	mainConfigPath := filepath.Join(tmpDir, "config.toml")
	dropinDir := filepath.Join(tmpDir, "config.toml.d") // doesn't exist

	if err := os.WriteFile(mainConfigPath, []byte(`noop = true`), 0644); err != nil {
		t.Fatalf("failed to write main config: %v", err)
	}

	store, _ := newTestStore(t)
	cs := &ConfigSource{Path: mainConfigPath, DropInDir: dropinDir}
	if err := cs.Apply(store); err != nil {
		t.Fatalf("unexpected error when drop-in dir missing: %v", err)
	}

	if noop, _ := store.Bool("noop"); !noop {
		t.Error("expected noop=true")
	}
}

func TestNewConfigSource(t *testing.T) {
	got := NewConfigSource("/etc/stagehand")
	want := &ConfigSource{
		Path:       "/etc/stagehand/config.toml",
		DropInDir:  "/etc/stagehand/config.toml.d",
		LegacyPath: "/etc/stagehand/stagehand.conf",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NewConfigSource() mismatch (-want +got):\n%s", diff)
	}
}
