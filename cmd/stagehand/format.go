package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stagehand-project/stagehand/internal/l10n"
)

// parseAssignment splits NAME=VALUE. Values that look like integers or
// booleans are converted; everything else stays a string.
func parseAssignment(s string) (string, any, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", nil, l10n.Errorf("invalid assignment %q, expected NAME=VALUE", s)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return name, n, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return name, b, nil
	}
	return name, raw, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
