// Package config loads the chatty server's line-oriented configuration
// file (`key = value`, `#` and blank lines ignored) and binds it onto a
// typed, validated Config struct using github.com/caarlos0/env/v11:
// parsed key/value pairs are exported into the process environment and
// then bound with env.ParseWithOptions against exactly those pairs, so
// `env:",required"` tags are what actually enforce "missing any
// required key → fatal", and a variable already set in the process
// environment cannot stand in for a key missing from the file.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds every key the server's config file must supply.
type Config struct {
	UnixPath       string `env:"UnixPath,required"`
	MaxConnections int    `env:"MaxConnections,required"`
	ThreadsInPool  int    `env:"ThreadsInPool,required"`
	MaxMsgSize     int    `env:"MaxMsgSize,required"`
	MaxFileSize    int    `env:"MaxFileSize,required"`
	MaxHistMsgs    int    `env:"MaxHistMsgs,required"`
	DirName        string `env:"DirName,required"`
	StatFileName   string `env:"StatFileName,required"`

	// MetricsAddr is optional: empty disables the Prometheus /metrics
	// HTTP listener entirely rather than binding a default address.
	MetricsAddr string `env:"MetricsAddr"`
}

// ParseFile reads and validates the chatty config file at path.
func ParseFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads key=value pairs from r and binds them onto a Config:
// '#' and blank lines are skipped, whitespace around '=' is trimmed,
// and any non-blank line with no '=' is a fatal parse error.
func Parse(r io.Reader) (Config, error) {
	values := make(map[string]string)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.IndexByte(line, '=')
		if idx < 0 {
			return Config{}, fmt.Errorf("config: line %d: missing '=' in %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			return Config{}, fmt.Errorf("config: line %d: empty key", lineNo)
		}
		values[key] = val
	}
	if err := scanner.Err(); err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}

	for k, v := range values {
		if err := os.Setenv(k, v); err != nil {
			return Config{}, fmt.Errorf("config: export %s: %w", k, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: values}); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
