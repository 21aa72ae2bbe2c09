package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// DotEnvFile is the name of the settings file in the data directory.
const DotEnvFile = ".env"

// LoadDotEnv reads dataDir/.env. A missing file yields an empty map.
// Values may be double quoted; single quotes are rejected.
func LoadDotEnv(dataDir string) (map[string]string, error) {
	env := map[string]string{}
	b, err := os.ReadFile(filepath.Join(dataDir, DotEnvFile)) //nolint:gosec // G304: path is constructed from the data-dir flag
	if errors.Is(err, os.ErrNotExist) {
		return env, nil
	}
	if err != nil {
		return nil, err
	}
	for line := range strings.SplitSeq(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", key)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", key)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// SaveDotEnv writes env to dataDir/.env with sorted keys, skipping empty
// values. Values with spaces or quotes are quoted.
func SaveDotEnv(dataDir string, env map[string]string) error {
	keys := make([]string, 0, len(env))
	for k, v := range env {
		if v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	var b strings.Builder
	for _, k := range keys {
		v := env[k]
		if strings.ContainsAny(v, " \t#'\"") {
			v = strconv.Quote(v)
		}
		fmt.Fprintf(&b, "%s=%s\n", k, v)
	}
	return os.WriteFile(filepath.Join(dataDir, DotEnvFile), []byte(b.String()), 0o600)
}

// Override sets *dst from env[key] unless the flag name was set on the
// command line or the value is empty.
func Override(set map[string]bool, env map[string]string, name, key string, dst *string) {
	if set[name] {
		return
	}
	if v := env[key]; v != "" {
		*dst = v
	}
}
