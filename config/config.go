// Package config loads the optional .taut.yaml defaults file named in
// spec.md §6: a YAML file of defaults layered under the explicit CLI
// flags, so a flag the user actually typed always wins.
//
// Grounded on mrz1836-mage-x/pkg/mage/config.go's Config struct (one
// field per tunable, yaml tags, a Load method that reads the file if
// present and is silent if it is absent) and its GetConfig/getConfigFilePath
// convention of checking a short list of candidate filenames before
// falling back to a default.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config mirrors the flag surface of spec.md §6 one-to-one, so every
// field here has a matching pflag in runner.Flags. Pointer fields for
// the tri-state toggles (--[no-]color etc.) distinguish "not set in
// the file" from "set to false", the same distinction pflag.Changed
// gives the CLI layer.
type Config struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
	Generate []string `yaml:"generate"`

	Color    *bool `yaml:"color"`
	Unicode  *bool `yaml:"unicode"`
	Progress *bool `yaml:"progress"`
	Break    *bool `yaml:"break"`
	Catch    *bool `yaml:"catch"`
}

// candidateFiles are tried in order when Path is empty, the same
// multi-name-then-default convention as the teacher's getConfigFilePath.
var candidateFiles = []string{".taut.yaml", ".taut.yml"}

// Load reads path, or the first of candidateFiles that exists when
// path is empty. A missing file is not an error: it simply means no
// defaults override the flags' own zero values. A present-but-invalid
// file is an error, since the user clearly meant to configure
// something and got it wrong.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return &Config{}, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &c, nil
}

func findConfigFile() string {
	for _, name := range candidateFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// MergeBool returns the flag value when changed is true (the user
// typed the flag), otherwise the config file's value when set,
// otherwise fallback.
func MergeBool(flagValue bool, changed bool, fromFile *bool, fallback bool) bool {
	if changed {
		return flagValue
	}
	if fromFile != nil {
		return *fromFile
	}
	return fallback
}

// MergeStrings appends the config file's list ahead of the flag-provided
// list: file entries behave like defaults that earlier, lower-priority
// --include/--exclude/--generate occurrences would have supplied, and
// the command line can still add more.
func MergeStrings(flagValues []string, fromFile []string) []string {
	if len(fromFile) == 0 {
		return flagValues
	}
	if len(flagValues) == 0 {
		return fromFile
	}
	out := make([]string, 0, len(fromFile)+len(flagValues))
	out = append(out, fromFile...)
	out = append(out, flagValues...)
	return out
}
