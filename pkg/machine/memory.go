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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

func (mem *Memory) Read(addr uint16) (uint16, error) {
	if int(addr) >= MEMORY_SIZE {
		return 0, OutOfBounds
	}

	return mem[addr], nil
}

func (mem *Memory) Write(addr uint16, value uint16) error {
	if int(addr) >= MEMORY_SIZE {
		return OutOfBounds
	}

	mem[addr] = value
	return nil
}

func (mc *MachineState) Reset(capacity int) {
	for i := range mc.Registers {
		mc.Registers[i] = 0
	}

	for i := range mc.Memory {
		mc.Memory[i] = 0
	}

	mc.Program = 0
	mc.ImageSize = 0
	mc.Halted = false
	mc.Stack = NewStack(capacity)
}

func (mc *Machine) stackCapacity() int {
	if mc.StackCapacity > 0 {
		return mc.StackCapacity
	}

	return STACK_CAPACITY
}

// LoadBin resets the machine and copies a little-endian image into memory
// starting at address 0. A trailing odd byte is ignored.
func (mc *Machine) LoadBin(reader io.Reader) error {
	mc.State.Reset(mc.stackCapacity())

	input := bufio.NewReader(reader)
	scratch := make([]byte, 2)
	index := 0

	for {
		_, err := io.ReadFull(input, scratch)

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		} else if err != nil {
			return err
		}

		if index == MEMORY_SIZE {
			return fmt.Errorf("%w: more than %d words", ImageTooLarge, MEMORY_SIZE)
		}

		mc.State.Memory[index] = binary.LittleEndian.Uint16(scratch)
		index++
	}

	mc.State.ImageSize = uint16(index)

	log.Debugf("loaded %d words", index)

	return nil
}
