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

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"github.com/lassandro/gosynacor/pkg/assembler"
	"github.com/lassandro/gosynacor/pkg/config"
	"github.com/lassandro/gosynacor/pkg/disassembler"
	"github.com/lassandro/gosynacor/pkg/machine"
	"github.com/lassandro/gosynacor/pkg/trace"
)

var log = commonlog.GetLogger("gosynacor")

var helpvar bool
var debugvar bool
var configvar string
var tracevar string
var restorevar string
var verbosityvar int

const usage = "gosynacor [-config file] [-debug] [-trace db] [-restore snapshot] [-v n] [run|disassemble] filename"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.StringVar(&configvar, "config", "", "Reads settings from a TOML file")
	flag.StringVar(
		&tracevar, "trace", "",
		"Records every executed instruction into an SQLite database",
	)
	flag.StringVar(
		&restorevar, "restore", "",
		"Resumes from a snapshot saved by the debugger instead of the "+
			"image's initial state",
	)
	flag.IntVar(&verbosityvar, "v", 0, "Log verbosity (-3 to 2)")
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	if configvar != "" {
		var err error
		if cfg, err = config.Load(configvar); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "v":
			cfg.Log.Verbosity = verbosityvar
		case "trace":
			cfg.Trace.Database = tracevar
		}
	})

	return cfg, cfg.Validate()
}

func configureLogging(cfg *config.Config) {
	if cfg.Log.File != "" {
		path := cfg.Log.File
		commonlog.Configure(cfg.Log.Verbosity, &path)
	} else {
		commonlog.Configure(cfg.Log.Verbosity, nil)
	}
}

func loadSymTable(image string) *assembler.SymTable {
	file, err := os.Open(assembler.SymTablePath(image))

	if err != nil {
		log.Debugf("no symbol table: %s", err)
		return nil
	}

	defer file.Close()

	symtable, err := assembler.ReadSymTable(file)

	if err != nil {
		log.Warningf("error loading symbol table: %s", err)
		return nil
	}

	return symtable
}

func restoreSnapshot(mc *machine.Machine, path string) error {
	file, err := os.Open(path)

	if err != nil {
		return err
	}

	defer file.Close()

	snap, err := machine.ReadSnapshot(file)

	if err != nil {
		return err
	}

	return mc.Restore(snap)
}

// Chains the configured input scripts ahead of standard input
func keyboard(cfg *config.Config) (*bufio.Reader, func(), error) {
	readers := make([]io.Reader, 0, len(cfg.Input.Scripts)+1)
	files := make([]*os.File, 0, len(cfg.Input.Scripts))

	closeAll := func() {
		for _, file := range files {
			file.Close()
		}
	}

	for _, script := range cfg.Input.Scripts {
		file, err := os.Open(script)

		if err != nil {
			closeAll()
			return nil, nil, err
		}

		files = append(files, file)
		readers = append(readers, file)
	}

	readers = append(readers, os.Stdin)

	return bufio.NewReader(io.MultiReader(readers...)), closeAll, nil
}

func disassemble(image string) int {
	file, err := os.Open(image)

	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	defer file.Close()

	var mc machine.Machine

	if err := mc.LoadBin(file); err != nil {
		log.Errorf("%s", err)
		return 1
	}

	var labels map[uint16]string

	if symtable := loadSymTable(image); symtable != nil {
		labels = symtable.Labels
	}

	if err := disassembler.Disassemble(
		os.Stdout, &mc.State.Memory, 0, mc.State.ImageSize, labels,
	); err != nil {
		log.Errorf("%s", err)
		return 1
	}

	return 0
}

func run(cfg *config.Config, image string) int {
	var mc machine.Machine
	mc.StackCapacity = cfg.Machine.StackCapacity

	if restorevar != "" {
		if err := restoreSnapshot(&mc, restorevar); err != nil {
			log.Errorf("%s", err)
			return 1
		}
	} else {
		file, err := os.Open(image)

		if err != nil {
			log.Errorf("%s", err)
			return 1
		}

		err = mc.LoadBin(file)
		file.Close()

		if err != nil {
			log.Errorf("%s", err)
			return 1
		}
	}

	reader, closeScripts, err := keyboard(cfg)

	if err != nil {
		log.Errorf("%s", err)
		return 1
	}

	defer closeScripts()

	var dh machine.DeviceHandler
	dh.Keyboard = reader
	dh.Display = bufio.NewWriter(os.Stdout)

	if cfg.Input.Echo {
		dh.Echo = os.Stdout
	}

	mc.Devices = &dh

	var recorder *trace.Recorder

	if cfg.Trace.Database != "" {
		recorder, err = trace.Open(cfg.Trace.Database, image, cfg.Trace.BatchSize)

		if err != nil {
			log.Errorf("%s", err)
			return 1
		}

		defer func() {
			if err := recorder.Close(); err != nil {
				log.Errorf("%s", err)
			}
		}()

		mc.Tracer = recorder
	}

	if debugvar {
		s := newSession(&mc, image, recorder)
		s.dbg.SymTable = loadSymTable(image)

		if s.dbg.SymTable != nil && s.dbg.SymTable.Source != "" {
			if file, err := os.Open(s.dbg.SymTable.Source); err == nil {
				s.dbg.Source = file
				defer file.Close()
			} else {
				log.Warningf("error loading source file: %s", err)
			}
		}

		for _, addr := range cfg.Debug.Breakpoints {
			s.dbg.AddBreakpoint(uint16(addr))
		}

		interrupts := make(chan os.Signal, 1)
		signal.Notify(interrupts, os.Interrupt)
		defer signal.Stop(interrupts)

		if err := s.run(interrupts); err != nil {
			return 1
		}

		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		// A second interrupt terminates the process immediately
		<-ctx.Done()
		stop()
	}()

	if err := mc.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Notice("interrupted")
		}

		return 1
	}

	return 0
}

func gosynacor() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()
	mode := "run"

	if len(args) == 2 {
		mode = args[0]
		args = args[1:]
	}

	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	cfg, err := loadConfig()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	configureLogging(cfg)

	switch mode {
	case "run":
		return run(cfg, args[0])
	case "disassemble", "disasm":
		return disassemble(args[0])
	default:
		fmt.Fprintf(os.Stderr, "'%s' is not a valid command\n%s\n", mode, usage)
		return 1
	}
}

func main() {
	flag.Parse()

	// Flushes buffered log output before exiting
	util.Exit(gosynacor())
}
