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

package machine

import (
	"bufio"
	"io"
)

type ValueKind uint8

type Opcode uint16

type OpcodeInfo struct {
	Name  string
	Arity int
}

// A decoded instruction. Operands are raw words, resolved only when the
// instruction executes.
type Instruction struct {
	Addr     uint16
	Opcode   Opcode
	Operands [3]uint16
}

type DeviceHandler struct {
	Keyboard *bufio.Reader
	Display  *bufio.Writer

	// Receives every byte consumed by `in` when set
	Echo io.Writer
}

type Memory [MEMORY_SIZE]uint16

type MachineState struct {
	Registers [REGISTER_COUNT]uint16
	Program   uint16
	Stack     Stack
	Memory    Memory

	// Number of words loaded from the image
	ImageSize uint16

	Halted bool
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr uint16, mc *Machine)
	Write(addr uint16, mc *Machine)
}

// Receives every instruction that completed without a fault
type MachineTracer interface {
	Trace(in Instruction, mc *Machine)
}

type Machine struct {
	Devices  *DeviceHandler
	State    MachineState
	Debugger MachineDebugger
	Tracer   MachineTracer

	// Initial stack allocation used by Reset, STACK_CAPACITY when zero
	StackCapacity int

	// Instruction currently executing, reported in errors
	current Instruction
}
