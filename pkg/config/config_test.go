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

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lassandro/gosynacor/pkg/config"
	"github.com/lassandro/gosynacor/pkg/machine"
)

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[machine]
stack-capacity = 64

[input]
scripts = ["walkthrough.txt"]
echo = true

[trace]
database = "trace.db"

[log]
verbosity = 2

[debug]
breakpoints = [0x0010, 1234]
`))

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Machine.StackCapacity != 64 {
		t.Errorf("StackCapacity\nwant:64\nhave:%d", cfg.Machine.StackCapacity)
	}

	if len(cfg.Input.Scripts) != 1 || cfg.Input.Scripts[0] != "walkthrough.txt" || !cfg.Input.Echo {
		t.Errorf("Input mismatch\nhave:%+v", cfg.Input)
	}

	if cfg.Trace.Database != "trace.db" || cfg.Trace.BatchSize != 256 {
		t.Errorf("Trace mismatch\nhave:%+v", cfg.Trace)
	}

	if cfg.Log.Verbosity != 2 {
		t.Errorf("Verbosity\nwant:2\nhave:%d", cfg.Log.Verbosity)
	}

	if len(cfg.Debug.Breakpoints) != 2 || cfg.Debug.Breakpoints[0] != 16 {
		t.Errorf("Breakpoints mismatch\nhave:%v", cfg.Debug.Breakpoints)
	}
}

func TestDefault(t *testing.T) {
	cfg, err := config.Parse(nil)

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Machine.StackCapacity != machine.STACK_CAPACITY {
		t.Errorf(
			"StackCapacity\nwant:%d\nhave:%d",
			machine.STACK_CAPACITY,
			cfg.Machine.StackCapacity,
		)
	}
}

func TestParseFail(t *testing.T) {
	tests := []struct {
		Name  string
		Input string
	}{
		{"Zero Stack", "[machine]\nstack-capacity = 0"},
		{"Huge Batch", "[trace]\nbatch-size = 100000"},
		{"Verbosity", "[log]\nverbosity = 9"},
		{"Silenced Logging", "[log]\nverbosity = -4"},
		{"Breakpoint Range", "[debug]\nbreakpoints = [32768]"},
		{"Wrong Type", "[input]\necho = \"yes\""},
		{"Malformed", "[machine"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			if _, err := config.Parse([]byte(test.Input)); err == nil {
				t.Fatal("Expected configuration to be rejected")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosynacor.toml")

	if err := os.WriteFile(path, []byte("[log]\nfile = \"vm.log\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Log.File != "vm.log" {
		t.Errorf("Log file\nwant:vm.log\nhave:%s", cfg.Log.File)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Loading a missing file should fail")
	}
}
