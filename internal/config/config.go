// Package config holds run configuration defaults and the optional YAML
// configuration file that layers under the CLI flags.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	DefaultInputFile  = "ssm_automations_to_update.txt"
	DefaultOutputFile = "ssm_automations_filtered.txt"
	DefaultLogLevel   = "INFO"
)

// DefaultOldRuntimes is the stock denylist of legacy Python runtime tags.
var DefaultOldRuntimes = []string{"python3.9", "python3.8", "python3.7", "python3.6", "python2.7"}

// File is the optional YAML run configuration. Flags always take precedence
// over file values; zero values fall through to the defaults above.
type File struct {
	InputFile   string   `yaml:"input-file"`
	OutputFile  string   `yaml:"output-file"`
	OldRuntimes []string `yaml:"old-runtimes"`
	LogLevel    string   `yaml:"log-level"`
}

// Load reads and decodes a YAML configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &file, nil
}

// ParseRuntimes splits a comma-separated runtime list, trimming whitespace
// and dropping empty entries.
func ParseRuntimes(s string) []string {
	var runtimes []string
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		runtimes = append(runtimes, entry)
	}
	return runtimes
}

// ParseLogLevel maps the CLI level names onto zerolog levels.
func ParseLogLevel(s string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zerolog.DebugLevel, nil
	case "INFO":
		return zerolog.InfoLevel, nil
	case "WARNING":
		return zerolog.WarnLevel, nil
	case "ERROR":
		return zerolog.ErrorLevel, nil
	case "CRITICAL":
		return zerolog.FatalLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("invalid log level: %s", s)
}
