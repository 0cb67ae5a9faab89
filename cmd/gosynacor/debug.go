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
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/lassandro/gosynacor/pkg/debugger"
	"github.com/lassandro/gosynacor/pkg/disassembler"
	"github.com/lassandro/gosynacor/pkg/encoding"
	"github.com/lassandro/gosynacor/pkg/machine"
	"github.com/lassandro/gosynacor/pkg/trace"
)

const prompt = "\033[1;30m(dbg)\033[0m "

type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *scannerReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, prompt)

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	return r.scanner.Text(), nil
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

type session struct {
	dbg      *debugger.Debugger
	mc       *machine.Machine
	recorder *trace.Recorder
	image    string

	input   lineReader
	out     io.Writer
	lastcmd []string
	quit    bool
}

func newSession(mc *machine.Machine, image string, recorder *trace.Recorder) *session {
	s := &session{
		mc:       mc,
		recorder: recorder,
		image:    image,
	}

	if stdinIsTerminal() {
		terminal := term.NewTerminal(stdio{}, prompt)
		s.input = terminal
		s.out = terminal
	} else {
		s.input = &scannerReader{bufio.NewScanner(os.Stdin), os.Stdout}
		s.out = os.Stdout
	}

	dbg := &debugger.Debugger{
		Break:  true,
		Output: s.out,
	}

	dbg.HandleBreak = s.handleBreak
	dbg.HandleRead = s.handleRead
	dbg.HandleWrite = s.handleWrite

	s.dbg = dbg
	mc.Debugger = dbg

	return s
}

func (s *session) println(args ...any) {
	fmt.Fprintln(s.out, args...)
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// Resolves an address given as a label, hex or decimal number
func (s *session) address(arg string) (uint16, error) {
	if addr, ok := s.dbg.LookupLabel(arg); ok {
		return addr, nil
	}

	return encoding.DecodeNumber(arg)
}

func (s *session) debugBreak(args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x####|label]"

		if len(args) != 1 {
			s.println(usage)
			return
		}

		addr, err := s.address(args[0])

		if err != nil {
			s.println(err)
			return
		}

		if s.dbg.AddBreakpoint(addr) {
			s.printf("Breakpoint added [%#04x]\n", addr)
		}

	case "l", "ls", "list":
		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(s.dbg.Breakpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: %%#x\n", int64(digits)+1)
		}

		for i, breakpoint := range s.dbg.Breakpoints {
			s.printf(fmtstring, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			s.println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			s.println(err)
			return
		}

		if !s.dbg.RemoveBreakpoint(i) {
			s.println("Invalid breakpoint number")
			return
		}

		s.printf("Breakpoint removed [%d]\n", i)

	case "clear":
		s.dbg.Breakpoints = s.dbg.Breakpoints[:0]
		s.println("Breakpoints reset")

	default:
		s.printf("break: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func (s *session) debugWatch(args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x####|label] [read|write|readwrite]"

		if len(args) != 2 {
			s.println(usage)
			return
		}

		addr, err := s.address(args[0])

		if err != nil {
			s.println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "rwrite", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			s.println(usage)
			return
		}

		if s.dbg.AddWatchpoint(addr, wtype) {
			s.printf("Watchpoint added [%#04x] (%s)\n", addr, watchName(wtype))
		}

	case "l", "ls", "list":
		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(s.dbg.Watchpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: %%#x %%s\n", int64(digits)+1)
		}

		for i, watchpoint := range s.dbg.Watchpoints {
			s.printf(fmtstring, i, watchpoint.Addr, watchName(watchpoint.Type))
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			s.println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			s.println(err)
			return
		}

		if !s.dbg.RemoveWatchpoint(i) {
			s.println("Invalid watchpoint number")
			return
		}

		s.printf("Watchpoint removed [%d]\n", i)

	case "clear":
		s.dbg.Watchpoints = s.dbg.Watchpoints[:0]
		s.println("Watchpoints reset")

	default:
		s.printf("watch: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func watchName(wtype debugger.WatchpointType) string {
	switch wtype {
	case debugger.ReadWatch:
		return "read"
	case debugger.WriteWatch:
		return "write"
	default:
		return "readwrite"
	}
}

func (s *session) debugReg(args []string) {
	const usage = "register [r#|pc] [value]"

	state := &s.mc.State

	if len(args) == 0 {
		s.dbg.PrintRegisters(state)
		return
	}

	if len(args) != 2 {
		s.println(usage)
		return
	}

	value, err := encoding.DecodeNumber(args[1])

	if err != nil {
		s.println(err)
		return
	}

	if index, ok := encoding.DecodeRegister(args[0]); ok {
		if value >= machine.NUMERIC_LIMIT {
			s.println("Register values must be below 32768")
			return
		}

		state.Registers[index] = value
	} else if strings.EqualFold(args[0], "pc") {
		if int(value) > machine.MEMORY_SIZE {
			s.println("Program counter out of range")
			return
		}

		state.Program = value
	} else {
		s.println("Invalid register")
		return
	}

	s.printf("\033[1m%s:\033[0m %#04x\n", strings.ToUpper(args[0]), value)
}

// Parses the optional [addr] [count] arguments shared by listing commands.
// A lone decimal argument is treated as a count from the program counter.
func (s *session) span(args []string, count uint16) (uint16, uint16, bool) {
	addr := s.mc.State.Program

	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) == 1 {
		if value, err := strconv.ParseUint(args[0], 10, 16); err == nil {
			if _, isLabel := s.dbg.LookupLabel(args[0]); !isLabel {
				return addr, uint16(value), true
			}
		}
	}

	if len(args) > 0 {
		value, err := s.address(args[0])

		if err != nil {
			s.println(err)
			return 0, 0, false
		}

		addr = value
	}

	if len(args) > 1 {
		value, err := strconv.ParseUint(args[1], 10, 16)

		if err != nil {
			s.println(err)
			return 0, 0, false
		}

		count = uint16(value)
	}

	return addr, count, true
}

func (s *session) debugMemory(args []string) {
	const usage = "memory [0x####|label] [#]"

	addr, count, ok := s.span(args, 1)

	if !ok {
		s.println(usage)
		return
	}

	s.dbg.PrintMem(&s.mc.State, addr, count)
}

func (s *session) debugDisasm(args []string) {
	const usage = "disasm [0x####|label] [#]"

	addr, count, ok := s.span(args, 8)

	if !ok {
		s.println(usage)
		return
	}

	s.dbg.PrintDisassembly(&s.mc.State, addr, count)
}

func (s *session) debugSource(args []string) {
	const usage = "source [0x####|label] [#]"

	addr, count, ok := s.span(args, 3)

	if !ok {
		s.println(usage)
		return
	}

	s.dbg.PrintSource(addr, count)
}

func (s *session) debugSet(args []string) {
	const usage = "set [0x####|label] [value]"

	if len(args) != 2 {
		s.println(usage)
		return
	}

	addr, err := s.address(args[0])

	if err != nil {
		s.println(err)
		return
	}

	value, err := encoding.DecodeOperand(args[1])

	if err != nil {
		s.println(err)
		return
	}

	if err := s.mc.State.Memory.Write(addr, value); err != nil {
		s.println(err)
		return
	}

	s.dbg.PrintMem(&s.mc.State, addr, 1)
}

func (s *session) debugJump(args []string) {
	const usage = "jump [0x####|label]"

	if len(args) != 1 {
		s.println(usage)
		return
	}

	addr, err := s.address(args[0])

	if err != nil {
		s.printf("Unable to find '%s'\n", args[0])
		return
	}

	s.mc.State.Program = addr
	s.printf("\033[1mPC:\033[0m %#04x\n", addr)
}

func (s *session) debugSave(args []string) {
	const usage = "save [file]"

	if len(args) != 1 {
		s.println(usage)
		return
	}

	file, err := os.Create(args[0])

	if err != nil {
		s.println(err)
		return
	}

	defer file.Close()

	if err := machine.WriteSnapshot(file, s.mc.Snapshot()); err != nil {
		s.println(err)
		return
	}

	s.printf("Snapshot saved to %s\n", args[0])
}

func (s *session) debugLoad(args []string) {
	const usage = "load [file]"

	if len(args) != 1 {
		s.println(usage)
		return
	}

	if err := restoreSnapshot(s.mc, args[0]); err != nil {
		s.println(err)
		return
	}

	s.printf("Snapshot restored from %s\n", args[0])
	s.printf("\033[1mPC:\033[0m %#04x\n", s.mc.State.Program)
}

func (s *session) debugHistory(args []string) {
	const usage = "history [#]"

	if s.recorder == nil {
		s.println("No trace database open")
		return
	}

	count := 10

	if len(args) > 1 {
		s.println(usage)
		return
	} else if len(args) == 1 {
		value, err := strconv.Atoi(args[0])

		if err != nil || value <= 0 {
			s.println(usage)
			return
		}

		count = value
	}

	entries, err := s.recorder.Last(count)

	if err != nil {
		s.println(err)
		return
	}

	for _, entry := range entries {
		s.printf(
			"\033[1;30m%8d\033[0m \033[1m[%#04x]\033[0m %s\n",
			entry.Seq,
			entry.Instruction.Addr,
			disassembler.Format(entry.Instruction),
		)
	}
}

func (s *session) debugReset() {
	file, err := os.Open(s.image)

	if err != nil {
		s.println(err)
		return
	}

	defer file.Close()

	if err := s.mc.LoadBin(file); err != nil {
		s.println(err)
		return
	}

	s.println("Machine reset")
}

// Runs the command loop until execution should resume
func (s *session) repl() {
	if err := enterRawTerm(); err != nil {
		log.Errorf("%s", err)
	}

	defer func() {
		if err := exitRawTerm(); err != nil {
			log.Errorf("%s", err)
		}
	}()

	for {
		line, err := s.input.ReadLine()

		if err != nil {
			s.println()
			s.quit = true
			return
		}

		args := strings.Fields(line)

		if len(args) == 0 {
			if len(s.lastcmd) == 0 {
				continue
			}
			args = s.lastcmd
		} else {
			s.lastcmd = make([]string, len(args))
			copy(s.lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			s.debugBreak(args)

		case "w", "wp", "watch", "watchpoint":
			s.debugWatch(args)

		case "r", "reg", "register", "registers":
			s.debugReg(args)

		case "s", "src", "source":
			s.debugSource(args)

		case "l", "label", "labels":
			s.dbg.PrintLabels()

		case "d", "dis", "disasm":
			s.debugDisasm(args)

		case "st", "stack":
			s.dbg.PrintStack(&s.mc.State)

		case "j", "jmp", "jump":
			s.debugJump(args)

		case "m", "mem", "memory":
			s.debugMemory(args)

		case "set":
			s.debugSet(args)

		case "save":
			s.debugSave(args)

		case "load":
			s.debugLoad(args)

		case "h", "hist", "history":
			s.debugHistory(args)

		case "c", "continue":
			s.dbg.Break = false
			return

		case "n", "next":
			s.dbg.Break = true
			return

		case "q", "quit", "exit":
			s.quit = true
			return

		case "clear":
			s.printf("\033[H\033[2J")

		case "reset":
			s.debugReset()

		default:
			s.printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func (s *session) stopped() {
	s.println()
	s.println("Program stopped")
}

func (s *session) handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if !dbg.Break {
		s.stopped()
	}

	dbg.PrintDisassembly(&mc.State, mc.State.Program, 1)
	s.repl()
}

func (s *session) handleRead(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	s.stopped()
	dbg.PrintMem(&mc.State, addr, 1)
	s.repl()
}

func (s *session) handleWrite(addr uint16, dbg *debugger.Debugger, mc *machine.Machine) {
	s.stopped()
	dbg.PrintMem(&mc.State, addr, 1)
	s.repl()
}

// Drives the machine under the debugger until it halts, faults or the user
// quits. Interrupts drop back into the command loop.
func (s *session) run(interrupts <-chan os.Signal) error {
	s.dbg.PrintDisassembly(&s.mc.State, s.mc.State.Program, 1)
	s.repl()

	for !s.quit && !s.mc.State.Halted {
		select {
		case <-interrupts:
			s.dbg.Break = true
		default:
		}

		if err := s.mc.Step(); err != nil {
			s.println(err)
			s.repl()

			if !s.quit {
				// The faulting instruction stays at the program counter
				continue
			}

			return err
		}
	}

	return nil
}
