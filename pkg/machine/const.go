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

const (
	// Literal values occupy 0..32767 and double as the modulus for
	// arithmetic results
	NUMERIC_LIMIT uint16 = 1 << 15

	// Registers are addressed by 32768..32775, anything above is invalid
	REGISTER_BASE  uint16 = NUMERIC_LIMIT
	REGISTER_COUNT        = 8
	REGISTER_LAST  uint16 = REGISTER_BASE + REGISTER_COUNT - 1

	// 15-bit address space
	MEMORY_SIZE = 1 << 15

	// Initial stack allocation; doubles whenever it fills up
	STACK_CAPACITY = 1024

	VALUE_MASK uint16 = NUMERIC_LIMIT - 1
)

const (
	VALUE_LITERAL ValueKind = iota
	VALUE_REGISTER
	VALUE_INVALID
)

const (
	OP_HALT Opcode = iota
	OP_SET
	OP_PUSH
	OP_POP
	OP_EQ
	OP_GT
	OP_JMP
	OP_JT
	OP_JF
	OP_ADD
	OP_MULT
	OP_MOD
	OP_AND
	OP_OR
	OP_NOT
	OP_RMEM
	OP_WMEM
	OP_CALL
	OP_RET
	OP_OUT
	OP_IN
	OP_NOOP

	OP_COUNT
)

// Mnemonic and operand count for every opcode, indexed by opcode value
var opcodeTable = [OP_COUNT]OpcodeInfo{
	OP_HALT: {"halt", 0},
	OP_SET:  {"set", 2},
	OP_PUSH: {"push", 1},
	OP_POP:  {"pop", 1},
	OP_EQ:   {"eq", 3},
	OP_GT:   {"gt", 3},
	OP_JMP:  {"jmp", 1},
	OP_JT:   {"jt", 2},
	OP_JF:   {"jf", 2},
	OP_ADD:  {"add", 3},
	OP_MULT: {"mult", 3},
	OP_MOD:  {"mod", 3},
	OP_AND:  {"and", 3},
	OP_OR:   {"or", 3},
	OP_NOT:  {"not", 2},
	OP_RMEM: {"rmem", 2},
	OP_WMEM: {"wmem", 2},
	OP_CALL: {"call", 1},
	OP_RET:  {"ret", 0},
	OP_OUT:  {"out", 1},
	OP_IN:   {"in", 1},
	OP_NOOP: {"noop", 0},
}
