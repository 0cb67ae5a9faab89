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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lassandro/gosynacor/pkg/disassembler"
	"github.com/lassandro/gosynacor/pkg/machine"
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Output == nil {
		return os.Stdout
	}

	return dbg.Output
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break {
		dbg.HandleBreak(dbg, mc)
		return
	}

	for _, breakpoint := range dbg.Breakpoints {
		if mc.State.Program == breakpoint.Addr {
			dbg.HandleBreak(dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type&ReadWatch == 0 {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type&WriteWatch == 0 {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

// Adds a breakpoint, returning false if one already exists at addr
func (dbg *Debugger) AddBreakpoint(addr uint16) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return false
		}
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})
	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) bool {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return false
	}

	dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
	dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
	return true
}

// Adds a watchpoint, returning false if an identical one already exists
func (dbg *Debugger) AddWatchpoint(addr uint16, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})
	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) bool {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return false
	}

	dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
	dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
	return true
}

// Resolves a label from the loaded symbol table
func (dbg *Debugger) LookupLabel(name string) (uint16, bool) {
	if dbg.SymTable == nil {
		return 0, false
	}

	for addr, label := range dbg.SymTable.Labels {
		if label == name {
			return addr, true
		}
	}

	return 0, false
}

func (dbg *Debugger) labels() map[uint16]string {
	if dbg.SymTable == nil {
		return nil
	}

	return dbg.SymTable.Labels
}

func (dbg *Debugger) PrintSource(addr uint16, count uint16) {
	out := dbg.out()

	if dbg.Source == nil {
		fmt.Fprintln(out, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(out, "No symbol table loaded")
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(out, "No instruction found at %#04x\n", addr)
		return
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(out, err)
		return
	}

	lines := make(map[int64]uint16, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lines[linebyte] = lineaddr
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := uint16(0); i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, found := lines[offset]; found {
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", lineaddr)
		} else {
			fmt.Fprint(out, "\033[1;30m~~~~~~~~\033[0m ")
		}

		fmt.Fprintln(out, line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(out, err)
	}
}

func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()

	for i := 0; i < int(count); i++ {
		cur := int(addr) + i

		if cur >= machine.MEMORY_SIZE {
			break
		}

		if i == 0 {
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", cur)
		} else if i%4 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", cur)
		}

		result := mc.Memory[cur]

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30m%#04x\033[0m ", result)
		} else {
			fmt.Fprintf(out, "%#04x ", result)
		}
	}

	fmt.Fprintln(out)
}

// Prints count instructions starting at addr, marking the current one
func (dbg *Debugger) PrintDisassembly(mc *machine.MachineState, addr, count uint16) {
	out := dbg.out()
	labels := dbg.labels()

	for i := uint16(0); i < count && int(addr) < machine.MEMORY_SIZE; i++ {
		if label, exists := labels[addr]; exists {
			fmt.Fprintf(out, "\033[1;30m%s:\033[0m\n", label)
		}

		marker := "  "
		if addr == mc.Program {
			marker = "=>"
		}

		text, next := disassembler.Line(&mc.Memory, addr)
		fmt.Fprintf(out, "%s \033[1m[%#04x]\033[0m %s\n", marker, addr, text)

		addr = next
	}
}

func (dbg *Debugger) PrintRegisters(mc *machine.MachineState) {
	out := dbg.out()

	for i, register := range mc.Registers {
		fmt.Fprintf(out, "\033[1mR%d:\033[0m %#04x\t", i, register)
		if i == (len(mc.Registers)-1)/2 {
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(
		out,
		"\033[1mPC:\033[0m %#04x\t\033[1mSP:\033[0m %d\n",
		mc.Program,
		mc.Stack.Len(),
	)
}

// Prints the stack from the top down
func (dbg *Debugger) PrintStack(mc *machine.MachineState) {
	out := dbg.out()
	values := mc.Stack.Values()

	if len(values) == 0 {
		fmt.Fprintln(out, "Stack empty")
		return
	}

	for i := len(values) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "\033[1m#%d:\033[0m %#04x\n", len(values)-1-i, values[i])
	}
}

// Prints all labels in address order
func (dbg *Debugger) PrintLabels() {
	out := dbg.out()

	if dbg.SymTable == nil {
		fmt.Fprintln(out, "No symbol table loaded")
		return
	}

	keys := make([]uint16, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		fmt.Fprintf(
			out, "\033[1m[%#04x]\033[0m %s\n", addr, dbg.SymTable.Labels[addr],
		)
	}
}
