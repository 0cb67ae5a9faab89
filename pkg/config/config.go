// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"

	"github.com/lassandro/gosynacor/pkg/machine"
	"github.com/lassandro/gosynacor/pkg/trace"
)

//go:embed schema.cue
var schema string

type Config struct {
	Machine Machine `toml:"machine" json:"machine"`
	Input   Input   `toml:"input" json:"input"`
	Trace   Trace   `toml:"trace" json:"trace"`
	Log     Log     `toml:"log" json:"log"`
	Debug   Debug   `toml:"debug" json:"debug"`
}

type Machine struct {
	StackCapacity int `toml:"stack-capacity" json:"stack-capacity"`
}

// Files whose bytes are fed to the in instruction before standard input
type Input struct {
	Scripts []string `toml:"scripts" json:"scripts"`
	Echo    bool     `toml:"echo" json:"echo"`
}

type Trace struct {
	Database  string `toml:"database" json:"database"`
	BatchSize int    `toml:"batch-size" json:"batch-size"`
}

type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

type Debug struct {
	Breakpoints []int `toml:"breakpoints" json:"breakpoints"`
}

func Default() *Config {
	return &Config{
		Machine: Machine{StackCapacity: machine.STACK_CAPACITY},
		Input:   Input{Scripts: []string{}},
		Trace:   Trace{BatchSize: trace.DefaultBatchSize},
		Debug:   Debug{Breakpoints: []int{}},
	}
}

// Parses TOML source on top of the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Loads a TOML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Checks the configuration against the embedded CUE schema
func (cfg *Config) Validate() error {
	if cfg.Input.Scripts == nil {
		cfg.Input.Scripts = []string{}
	}

	if cfg.Debug.Breakpoints == nil {
		cfg.Debug.Breakpoints = []int{}
	}

	ctx := cuecontext.New()

	def := ctx.CompileString(schema).LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.Encode(cfg)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
