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
	"strconv"
)

func (op Opcode) Valid() bool {
	return op < OP_COUNT
}

func (op Opcode) Arity() int {
	if !op.Valid() {
		return 0
	}

	return opcodeTable[op].Arity
}

func (op Opcode) String() string {
	if !op.Valid() {
		return "op" + strconv.Itoa(int(op))
	}

	return opcodeTable[op].Name
}

// LookupOpcode maps a mnemonic back to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	for op, info := range opcodeTable {
		if info.Name == name {
			return Opcode(op), true
		}
	}

	return 0, false
}

// Args returns the operands actually present for the instruction's opcode.
func (in *Instruction) Args() []uint16 {
	return in.Operands[:in.Opcode.Arity()]
}

// Decode reads the instruction at addr and returns it together with the
// address of the following instruction. An unknown opcode is reported
// without advancing past it; an operand running off the end of memory is
// reported along with the offending address.
func (mem *Memory) Decode(addr uint16) (Instruction, uint16, error) {
	in := Instruction{Addr: addr}

	word, err := mem.Read(addr)

	if err != nil {
		return in, addr, err
	}

	in.Opcode = Opcode(word)

	if !in.Opcode.Valid() {
		return in, addr, UnknownOpcode
	}

	next := addr + 1

	for i := 0; i < in.Opcode.Arity(); i++ {
		operand, err := mem.Read(next)

		if err != nil {
			return in, next, err
		}

		in.Operands[i] = operand
		next++
	}

	return in, next, nil
}
