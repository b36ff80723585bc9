// Package config loads the obmm command configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/obmm/pkgs/engine"
)

// DefaultPath is read when no --config flag is given. A missing file there is
// not an error.
const DefaultPath = "~/.obmm.yaml"

// Config holds settings that flags may override. Paths may start with "~".
type Config struct {
	Warnings bool   `yaml:"warnings"`
	Debug    string `yaml:"debug"`    // off, paths or detailed
	History  string `yaml:"history"`  // run history database, "" disables recording
	Answers  string `yaml:"answers"`  // default answers file
	DataDir  string `yaml:"data_dir"` // default extracted archive directory
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Warnings: true,
		Debug:    "off",
		History:  "~/.obmm/history.db",
		DataDir:  ".",
	}
}

// Load reads the file at path over the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	full, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("config path %s: %w", path, err)
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg.expand()
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := decode(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", full, err)
	}
	return cfg.expand()
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if _, err := DebugLevel(cfg.Debug); err != nil {
		return err
	}
	return nil
}

// expand resolves "~" in every path setting
func (c Config) expand() (Config, error) {
	for _, p := range []*string{&c.History, &c.Answers, &c.DataDir} {
		if *p == "" {
			continue
		}
		full, err := homedir.Expand(*p)
		if err != nil {
			return c, fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = full
	}
	return c, nil
}

// DebugLevel maps a debug setting to the engine's debug level
func DebugLevel(s string) (engine.DebugLevel, error) {
	switch s {
	case "", "off":
		return engine.DebugOff, nil
	case "paths":
		return engine.DebugPaths, nil
	case "detailed":
		return engine.DebugDetailed, nil
	default:
		return engine.DebugOff, fmt.Errorf("debug must be off, paths or detailed, got %q", s)
	}
}
