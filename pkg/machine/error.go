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
	"fmt"
)

// Machine faults
const (
	InvalidOperand = Errno(iota)
	InvalidDestination
	UnknownOpcode
	OutOfBounds
	StackUnderflow
	DivideByZero
	ImageTooLarge
	InputError
	OutputError
)

var strError = []string{
	"invalid operand",
	"invalid destination",
	"unknown opcode",
	"address out of bounds",
	"stack underflow",
	"division by zero",
	"image too large",
	"input error",
	"output error",
}

// Errno describes the nature of a machine fault.
type Errno int

func (e Errno) Error() string {
	return strError[e]
}

// Error describes a fault raised while executing an instruction.
type Error struct {
	Errno   Errno  // nature of the fault
	Err     error  // underlying I/O error for InputError and OutputError
	Program uint16 // address of the faulting instruction
	Opcode  Opcode // opcode of the faulting instruction
	Value   uint16 // offending operand or address
}

func (e *Error) Error() string {
	msg := e.Errno.Error()

	switch e.Errno {
	case InvalidOperand, InvalidDestination:
		msg += fmt.Sprintf(" %d", e.Value)
	case OutOfBounds:
		msg += fmt.Sprintf(" %#04x", e.Value)
	case UnknownOpcode:
		return fmt.Sprintf("%s %d at %#04x", msg, e.Value, e.Program)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return fmt.Sprintf("%s in %s at %#04x", msg, e.Opcode, e.Program)
}

func (e *Error) Is(target error) bool {
	return target == e.Errno
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (mc *Machine) fault(errno Errno, value uint16) error {
	return &Error{
		Errno:   errno,
		Program: mc.current.Addr,
		Opcode:  mc.current.Opcode,
		Value:   value,
	}
}

func (mc *Machine) ioFault(errno Errno, err error) error {
	return &Error{
		Errno:   errno,
		Err:     err,
		Program: mc.current.Addr,
		Opcode:  mc.current.Opcode,
	}
}
