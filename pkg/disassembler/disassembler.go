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

package disassembler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lassandro/gosynacor/pkg/encoding"
	"github.com/lassandro/gosynacor/pkg/machine"
)

// Renders a single decoded instruction without its address
func Format(in machine.Instruction) string {
	var builder strings.Builder

	builder.WriteString(in.Opcode.String())

	for _, arg := range in.Args() {
		builder.WriteByte(' ')
		builder.WriteString(encoding.FormatOperand(arg))
	}

	if in.Opcode == machine.OP_OUT {
		if value := in.Operands[0]; value < machine.NUMERIC_LIMIT {
			builder.WriteByte(' ')
			builder.WriteString(formatChar(value))
		}
	}

	return builder.String()
}

func formatChar(value uint16) string {
	if value > 0x7F {
		return "<" + strconv.Itoa(int(value)) + ">"
	}

	return strconv.QuoteRuneToASCII(rune(value))
}

// Decodes the instruction at addr and renders it. Words that do not decode
// are rendered as a single .data word.
func Line(mem *machine.Memory, addr uint16) (string, uint16) {
	in, next, err := mem.Decode(addr)

	if err != nil {
		value, _ := mem.Read(addr)
		return ".data " + strconv.Itoa(int(value)), addr + 1
	}

	return Format(in), next
}

// Writes a linear listing of mem[start:end], one instruction per line.
// Control flow is never followed; every word is visited in address order.
func Disassemble(
	w io.Writer,
	mem *machine.Memory,
	start, end uint16,
	labels map[uint16]string,
) error {
	if end > machine.MEMORY_SIZE {
		end = machine.MEMORY_SIZE
	}

	if start > end {
		return errors.New("start address exceeds end address")
	}

	out := bufio.NewWriter(w)
	addr := start

	for addr < end {
		if label, exists := labels[addr]; exists {
			if _, err := fmt.Fprintf(out, "%s:\n", label); err != nil {
				return err
			}
		}

		text, next := Line(mem, addr)

		if _, err := fmt.Fprintf(out, "%#04x: %s\n", addr, text); err != nil {
			return err
		}

		addr = next
	}

	return out.Flush()
}
