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
	"context"
	"errors"
	"io"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("gosynacor.machine")

// Reset clears the machine to its power-on state: zeroed registers and
// memory, an empty stack and the program counter at address 0.
func (mc *Machine) Reset() {
	mc.State.Reset(mc.stackCapacity())
}

func (mc *Machine) halt() {
	mc.State.Halted = true
	log.Debugf("halted at %#04x", mc.current.Addr)
}

func (mc *Machine) value(v uint16) (uint16, error) {
	value, err := mc.State.ResolveRead(v)

	if err != nil {
		return 0, mc.fault(InvalidOperand, v)
	}

	return value, nil
}

func (mc *Machine) values(b, c uint16) (uint16, uint16, error) {
	x, err := mc.value(b)

	if err != nil {
		return 0, 0, err
	}

	y, err := mc.value(c)

	if err != nil {
		return 0, 0, err
	}

	return x, y, nil
}

func (mc *Machine) store(a uint16, value uint16) error {
	dest, err := mc.State.ResolveWrite(a)

	if err != nil {
		return mc.fault(InvalidDestination, a)
	}

	*dest = value
	return nil
}

func (mc *Machine) read(addr uint16) (uint16, error) {
	value, err := mc.State.Memory.Read(addr)

	if err != nil {
		return 0, mc.fault(OutOfBounds, addr)
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)
	}

	return value, nil
}

func (mc *Machine) write(addr uint16, value uint16) error {
	if err := mc.State.Memory.Write(addr, value); err != nil {
		return mc.fault(OutOfBounds, addr)
	}

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}

	return nil
}

func (mc *Machine) output(value uint16) error {
	if mc.Devices == nil || mc.Devices.Display == nil {
		return nil
	}

	if err := mc.Devices.Display.WriteByte(byte(value)); err != nil {
		return mc.ioFault(OutputError, err)
	}

	if err := mc.Devices.Display.Flush(); err != nil {
		return mc.ioFault(OutputError, err)
	}

	return nil
}

func (mc *Machine) input() (uint16, error) {
	if mc.Devices == nil || mc.Devices.Keyboard == nil {
		return 0, mc.ioFault(InputError, io.EOF)
	}

	if mc.Devices.Display != nil {
		if err := mc.Devices.Display.Flush(); err != nil {
			return 0, mc.ioFault(OutputError, err)
		}
	}

	key, err := mc.Devices.Keyboard.ReadByte()

	if err != nil {
		return 0, mc.ioFault(InputError, err)
	}

	if mc.Devices.Echo != nil {
		if _, err := mc.Devices.Echo.Write([]byte{key}); err != nil {
			return 0, mc.ioFault(OutputError, err)
		}
	}

	return uint16(key), nil
}

func boolWord(cond bool) uint16 {
	if cond {
		return 1
	}

	return 0
}

// Step executes the instruction at the program counter. Running off the end
// of memory halts the machine.
func (mc *Machine) Step() error {
	if mc.State.Halted {
		return nil
	}

	if int(mc.State.Program) >= MEMORY_SIZE {
		mc.current = Instruction{Addr: mc.State.Program}
		mc.halt()
		return nil
	}

	in, next, err := mc.State.Memory.Decode(mc.State.Program)
	mc.current = in

	if errors.Is(err, UnknownOpcode) {
		return mc.fault(UnknownOpcode, uint16(in.Opcode))
	} else if err != nil {
		return mc.fault(OutOfBounds, next)
	}

	if log.AllowLevel(commonlog.Debug) {
		log.Debugf("%#04x %s %v", in.Addr, in.Opcode, in.Args())
	}

	mc.State.Program = next

	if err := mc.execute(&in, next); err != nil {
		mc.State.Program = in.Addr
		return err
	}

	// Only completed instructions are traced
	if mc.Tracer != nil {
		mc.Tracer.Trace(in, mc)
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return nil
}

// Run steps the machine until it halts, faults, or ctx is cancelled.
func (mc *Machine) Run(ctx context.Context) error {
	for !mc.State.Halted {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := mc.Step(); err != nil {
			log.Errorf("%s", err)
			return err
		}
	}

	return nil
}

func (mc *Machine) execute(in *Instruction, next uint16) error {
	args := &in.Operands

	switch in.Opcode {
	// HALT | 0 |               | Stop execution
	case OP_HALT:
		mc.halt()

	// SET  | 1 | a | b |       | a := b
	case OP_SET:
		b, err := mc.value(args[1])

		if err != nil {
			return err
		}

		return mc.store(args[0], b)

	// PUSH | 2 | a |           | Push a onto the stack
	case OP_PUSH:
		a, err := mc.value(args[0])

		if err != nil {
			return err
		}

		mc.State.Stack.Push(a)

	// POP  | 3 | a |           | a := pop, empty stack is fatal
	case OP_POP:
		dest, err := mc.State.ResolveWrite(args[0])

		if err != nil {
			return mc.fault(InvalidDestination, args[0])
		}

		value, ok := mc.State.Stack.Pop()

		if !ok {
			return mc.fault(StackUnderflow, args[0])
		}

		*dest = value

	// EQ   | 4 | a | b | c |   | a := b == c
	case OP_EQ:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], boolWord(b == c))

	// GT   | 5 | a | b | c |   | a := b > c
	case OP_GT:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], boolWord(b > c))

	// JMP  | 6 | a |           | Jump to a
	case OP_JMP:
		a, err := mc.value(args[0])

		if err != nil {
			return err
		}

		mc.State.Program = a

	// JT   | 7 | a | b |       | Jump to b if a is nonzero
	case OP_JT:
		a, b, err := mc.values(args[0], args[1])

		if err != nil {
			return err
		}

		if a != 0 {
			mc.State.Program = b
		}

	// JF   | 8 | a | b |       | Jump to b if a is zero
	case OP_JF:
		a, b, err := mc.values(args[0], args[1])

		if err != nil {
			return err
		}

		if a == 0 {
			mc.State.Program = b
		}

	// ADD  | 9 | a | b | c |   | a := (b + c) mod 32768
	case OP_ADD:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], uint16((uint32(b)+uint32(c))%uint32(NUMERIC_LIMIT)))

	// MULT | 10 | a | b | c |  | a := (b * c) mod 32768
	case OP_MULT:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], uint16((uint32(b)*uint32(c))%uint32(NUMERIC_LIMIT)))

	// MOD  | 11 | a | b | c |  | a := b mod c
	case OP_MOD:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		if c == 0 {
			return mc.fault(DivideByZero, args[2])
		}

		return mc.store(args[0], b%c)

	// AND  | 12 | a | b | c |  | a := b & c
	case OP_AND:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], b&c)

	// OR   | 13 | a | b | c |  | a := b | c
	case OP_OR:
		b, c, err := mc.values(args[1], args[2])

		if err != nil {
			return err
		}

		return mc.store(args[0], b|c)

	// NOT  | 14 | a | b |      | a := 15-bit inverse of b
	case OP_NOT:
		b, err := mc.value(args[1])

		if err != nil {
			return err
		}

		return mc.store(args[0], ^b&VALUE_MASK)

	// RMEM | 15 | a | b |      | a := memory[b]
	case OP_RMEM:
		b, err := mc.value(args[1])

		if err != nil {
			return err
		}

		value, err := mc.read(b)

		if err != nil {
			return err
		}

		return mc.store(args[0], value)

	// WMEM | 16 | a | b |      | memory[a] := b
	case OP_WMEM:
		a, b, err := mc.values(args[0], args[1])

		if err != nil {
			return err
		}

		return mc.write(a, b)

	// CALL | 17 | a |          | Push the next address, jump to a
	case OP_CALL:
		a, err := mc.value(args[0])

		if err != nil {
			return err
		}

		mc.State.Stack.Push(next)
		mc.State.Program = a

	// RET  | 18 |              | Jump to pop, empty stack halts
	case OP_RET:
		addr, ok := mc.State.Stack.Pop()

		if !ok {
			mc.halt()
			return nil
		}

		mc.State.Program = addr

	// OUT  | 19 | a |          | Write character a
	case OP_OUT:
		a, err := mc.value(args[0])

		if err != nil {
			return err
		}

		return mc.output(a)

	// IN   | 20 | a |          | a := next input character
	case OP_IN:
		if _, err := mc.State.ResolveWrite(args[0]); err != nil {
			return mc.fault(InvalidDestination, args[0])
		}

		key, err := mc.input()

		if err != nil {
			return err
		}

		return mc.store(args[0], key)

	// NOOP | 21 |              | No operation
	case OP_NOOP:
	}

	return nil
}
