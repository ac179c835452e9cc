package types

import (
	"fmt"
	"path/filepath"
)

// RegisterBuiltins adds the types stagehand ships with to r.
func RegisterBuiltins(r *Registry) {
	r.Register("file", nil, Definition{
		Doc:        "Manages files and directories.",
		Namevar:    "path",
		Parameters: []string{"path", "backup", "checksum"},
		Properties: []string{"ensure", "owner", "group", "mode", "content"},
		Validate: func(attrs map[string]any) error {
			if p, ok := attrs["path"].(string); ok && !filepath.IsAbs(p) {
				return fmt.Errorf("path %q is not absolute", p)
			}
			return nil
		},
	})
	r.Register("exec", nil, Definition{
		Doc:        "Runs commands.",
		Namevar:    "command",
		Parameters: []string{"command", "cwd", "user", "path"},
		Properties: []string{"returns"},
	})
	r.Register("service", nil, Definition{
		Doc:        "Manages system services.",
		Properties: []string{"ensure", "enable"},
	})
	pkg := r.Register("package", nil, Definition{
		Doc:        "Manages installed software.",
		Parameters: []string{"source"},
		Properties: []string{"ensure"},
	})
	r.Register("aptpackage", pkg, Definition{
		Doc:        "Manages packages installed with apt.",
		Parameters: []string{"responsefile"},
	})
	r.Register("user", nil, Definition{
		Doc:        "Manages local users.",
		Properties: []string{"uid", "gid", "home", "shell", "comment"},
	})
	r.Register("group", nil, Definition{
		Doc:        "Manages local groups.",
		Properties: []string{"gid"},
	})
}
