package conf

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"git.sr.ht/~spc/go-ini"
)

// legacyDTO holds the keys understood in the INI-style stagehand.conf
// that predates config.toml. Empty fields were not set in the file.
type legacyDTO struct {
	Server     string `ini:"server"`
	AgentPort  string `ini:"agentport"`
	MasterPort string `ini:"masterport"`
	User       string `ini:"user"`
	Group      string `ini:"group"`
	LogLevel   string `ini:"loglevel"`
	LogDest    string `ini:"logdest"`
	Debug      string `ini:"debug"`
	Noop       string `ini:"noop"`
}

func parseLegacyDTO(data []byte) (legacyDTO, error) {
	var dto legacyDTO
	opts := ini.Options{AllowNumberSignComments: true}
	if err := ini.UnmarshalWithOptions(normalizeLegacy(data), &dto, opts); err != nil {
		return dto, fmt.Errorf("failed to parse INI: %w", err)
	}
	return dto, nil
}

// normalizeLegacy rewrites "key = value" lines as "key=value". The INI
// decoder keeps surrounding blanks as part of the key otherwise.
func normalizeLegacy(data []byte) []byte {
	lines := bytes.Split(data, []byte("\n"))
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 || trimmed[0] == '#' || trimmed[0] == ';' || trimmed[0] == '[' {
			lines[i] = trimmed
			continue
		}
		key, value, ok := bytes.Cut(trimmed, []byte("="))
		if !ok {
			lines[i] = trimmed
			continue
		}
		lines[i] = bytes.Join([][]byte{bytes.TrimSpace(key), bytes.TrimSpace(value)}, []byte("="))
	}
	return bytes.Join(lines, []byte("\n"))
}

// values converts the DTO into parameter values, parsing numbers and
// booleans.
func (dto legacyDTO) values() (map[string]any, error) {
	values := make(map[string]any)
	str := map[string]string{
		"server":   dto.Server,
		"user":     dto.User,
		"group":    dto.Group,
		"loglevel": dto.LogLevel,
		"logdest":  dto.LogDest,
	}
	for k, v := range str {
		if v != "" {
			values[k] = v
		}
	}

	for k, v := range map[string]string{"agentport": dto.AgentPort, "masterport": dto.MasterPort} {
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", k, v, err)
		}
		values[k] = n
	}

	for k, v := range map[string]string{"debug": dto.Debug, "noop": dto.Noop} {
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", k, v, err)
		}
		values[k] = b
	}
	return values, nil
}

func applyLegacyFile(store *Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	dto, err := parseLegacyDTO(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	values, err := dto.values()
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return applyValues(store, path, values)
}
