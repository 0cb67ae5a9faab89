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
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a serializable copy of the complete machine state.
type Snapshot struct {
	Registers [REGISTER_COUNT]uint16 `cbor:"1,keyasint"`
	Program   uint16                 `cbor:"2,keyasint"`
	Stack     []uint16               `cbor:"3,keyasint"`
	Memory    []uint16               `cbor:"4,keyasint"`
	ImageSize uint16                 `cbor:"5,keyasint"`
	Halted    bool                   `cbor:"6,keyasint,omitempty"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()

	if err != nil {
		panic(fmt.Sprintf("machine: failed to create CBOR enc mode: %v", err))
	}

	snapshotEncMode = em
}

func (mc *Machine) Snapshot() *Snapshot {
	snap := &Snapshot{
		Registers: mc.State.Registers,
		Program:   mc.State.Program,
		Stack:     mc.State.Stack.Values(),
		Memory:    make([]uint16, MEMORY_SIZE),
		ImageSize: mc.State.ImageSize,
		Halted:    mc.State.Halted,
	}

	copy(snap.Memory, mc.State.Memory[:])

	return snap
}

// Restore replaces the machine state with the contents of snap.
func (mc *Machine) Restore(snap *Snapshot) error {
	if len(snap.Memory) > MEMORY_SIZE {
		return fmt.Errorf("%w: snapshot holds %d words", ImageTooLarge, len(snap.Memory))
	}

	if int(snap.Program) > MEMORY_SIZE {
		return fmt.Errorf("%w: snapshot program counter %#04x", OutOfBounds, snap.Program)
	}

	mc.State.Reset(mc.stackCapacity())
	mc.State.Registers = snap.Registers
	mc.State.Program = snap.Program
	mc.State.ImageSize = snap.ImageSize
	mc.State.Halted = snap.Halted

	copy(mc.State.Memory[:], snap.Memory)

	for _, value := range snap.Stack {
		mc.State.Stack.Push(value)
	}

	return nil
}

func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	data, err := snapshotEncMode.Marshal(snap)

	if err != nil {
		return fmt.Errorf("machine: marshal snapshot: %w", err)
	}

	_, err = w.Write(data)
	return err
}

func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)

	if err != nil {
		return nil, err
	}

	var snap Snapshot

	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("machine: unmarshal snapshot: %w", err)
	}

	return &snap, nil
}
