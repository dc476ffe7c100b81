// Package config loads harp's configuration file and exposes the
// toolchain definitions it declares to the parser.
//
// The file is YAML named harp.yaml, looked up in the current directory
// and then in the user's configuration directory ($XDG_CONFIG_HOME or
// the platform equivalent). A toolchain is either a single spec string
// or a list of conditional entries:
//
//	toolchains:
//	  default_gcc: "%gcc@12"
//	  llvm_mixed:
//	    - spec: "%llvm@17"
//	      when: "platform=linux"
//	    - spec: "%apple-clang"
//	      when: "platform=darwin"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/harp-pm/harp/parser"
)

const (
	// AppName is the application name.
	AppName = "harp"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "harp"
)

// Config is the parsed configuration file.
type Config struct {
	// Toolchains maps toolchain names to their definitions.
	Toolchains parser.Toolchains
	// Path is the file the configuration was loaded from, empty when
	// no file was found.
	Path string
}

// Load reads the configuration from path, or from the default search
// locations when path is empty. A missing configuration file is not an
// error: the result has no toolchains.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return &Config{Toolchains: parser.Toolchains{}}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	toolchains, err := parseToolchains(v.Get("toolchains"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", v.ConfigFileUsed(), err)
	}

	return &Config{Toolchains: toolchains, Path: v.ConfigFileUsed()}, nil
}

// parseToolchains normalizes the raw toolchains section. Values may be
// a bare spec string, a list of spec strings, or a list of mappings
// with "spec" and optional "when" keys.
func parseToolchains(raw any) (parser.Toolchains, error) {
	toolchains := parser.Toolchains{}
	if raw == nil {
		return toolchains, nil
	}

	section, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("toolchains: expected a mapping, got %T", raw)
	}

	for name, value := range section {
		entries, err := parseToolchainEntries(value)
		if err != nil {
			return nil, fmt.Errorf("toolchain %q: %w", name, err)
		}
		toolchains[name] = entries
	}
	return toolchains, nil
}

func parseToolchainEntries(value any) ([]parser.ToolchainEntry, error) {
	switch v := value.(type) {
	case string:
		return []parser.ToolchainEntry{{Spec: v}}, nil
	case []any:
		entries := make([]parser.ToolchainEntry, 0, len(v))
		for _, item := range v {
			entry, err := parseToolchainEntry(item)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("expected a spec string or a list of entries, got %T", value)
	}
}

func parseToolchainEntry(item any) (parser.ToolchainEntry, error) {
	switch v := item.(type) {
	case string:
		return parser.ToolchainEntry{Spec: v}, nil
	case map[string]any:
		entry := parser.ToolchainEntry{}
		if s, ok := v["spec"].(string); ok {
			entry.Spec = s
		}
		if w, ok := v["when"].(string); ok {
			entry.When = w
		}
		if entry.Spec == "" {
			return entry, fmt.Errorf(`entry is missing the "spec" key`)
		}
		return entry, nil
	default:
		return parser.ToolchainEntry{}, fmt.Errorf("expected a spec string or a mapping, got %T", item)
	}
}
