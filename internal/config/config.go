// Package config loads runloop.yml into a validated target graph. A
// RUNLOOP_CONFIG_FILE environment variable overrides the default file
// location; the file is read through Viper and then decoded strictly
// with yaml.v3.
package config

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/runloop/internal/graph"
	"github.com/conneroisu/runloop/internal/rlerror"
)

// FileName is the configuration file Load looks for in the working
// directory when no explicit path is given.
const FileName = "runloop.yml"

// StateDirName is the hidden directory, adjacent to the configuration
// file, that holds the fingerprint store.
const StateDirName = ".runloop"

// targetDef is the on-disk shape of one entry in runloop.yml.
// Decoding with KnownFields(true) below rejects unknown keys rather
// than silently ignoring them.
type targetDef struct {
	Dependencies []string `yaml:"dependencies"`
	InputPaths   []string `yaml:"input_paths"`
	Build        []string `yaml:"build"`
	Service      string   `yaml:"service"`
}

// Loaded is a successfully parsed and validated configuration: a
// target graph plus the directory its relative paths resolve against.
type Loaded struct {
	Graph *graph.Graph
	Dir   string
}

// Load reads the configuration file (path, or $RUNLOOP_CONFIG_FILE if
// path is empty, or FileName in the current directory if both are
// unset) and builds a validated target graph.
func Load(path string) (*Loaded, error) {
	if path == "" {
		path = os.Getenv("RUNLOOP_CONFIG_FILE")
	}
	if path == "" {
		path = FileName
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, rlerror.Wrap(rlerror.KindConfig, "", "resolve config path", err)
	}
	dir := filepath.Dir(abs)

	v := viper.New()
	v.SetConfigFile(abs)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, rlerror.Wrap(rlerror.KindConfig, "", "read "+abs, err)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, rlerror.Wrap(rlerror.KindConfig, "", "read "+abs, err)
	}

	defs := make(map[string]targetDef)
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&defs); err != nil {
		return nil, rlerror.Wrap(rlerror.KindConfig, "", "parse "+abs, err)
	}

	targets := make([]graph.Target, 0, len(defs))
	for name, def := range defs {
		if name == "" {
			return nil, rlerror.New(rlerror.KindConfig, "", "target name must not be empty")
		}
		targets = append(targets, graph.Target{
			Name:           name,
			Dir:            dir,
			Dependencies:   def.Dependencies,
			InputPaths:     def.InputPaths,
			BuildCommands:  def.Build,
			ServiceCommand: def.Service,
		})
	}

	g, err := graph.New(targets)
	if err != nil {
		return nil, err
	}

	return &Loaded{Graph: g, Dir: dir}, nil
}

// StateDir returns the fingerprint-store directory for a loaded
// configuration.
func (l *Loaded) StateDir() string {
	return filepath.Join(l.Dir, StateDirName)
}
