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

package machine_test

import (
	"bytes"
	"testing"

	"github.com/lassandro/gosynacor/pkg/machine"
)

type recordingHooks struct {
	traced []uint16
	reads  []uint16
	writes []uint16
	steps  int
}

func (h *recordingHooks) Trace(in machine.Instruction, mc *machine.Machine) {
	h.traced = append(h.traced, in.Addr)
}

func (h *recordingHooks) Step(mc *machine.Machine) {
	h.steps++
}

func (h *recordingHooks) Read(addr uint16, mc *machine.Machine) {
	h.reads = append(h.reads, addr)
}

func (h *recordingHooks) Write(addr uint16, mc *machine.Machine) {
	h.writes = append(h.writes, addr)
}

func TestSnapshotRoundTrip(t *testing.T) {
	var mc machine.Machine

	mc.Reset()
	copy(mc.State.Memory[:], []uint16{
		1, R0, 5,
		2, R0,
		2, 77,
		16, 500, R0,
		0,
	})
	mc.State.ImageSize = 11

	for i := 0; i < 4; i++ {
		if err := mc.Step(); err != nil {
			t.Fatalf("Step %d\nhave:%s", i, err)
		}
	}

	var buffer bytes.Buffer

	if err := machine.WriteSnapshot(&buffer, mc.Snapshot()); err != nil {
		t.Fatalf("WriteSnapshot\nhave:%s", err)
	}

	snap, err := machine.ReadSnapshot(&buffer)

	if err != nil {
		t.Fatalf("ReadSnapshot\nhave:%s", err)
	}

	var restored machine.Machine

	if err := restored.Restore(snap); err != nil {
		t.Fatalf("Restore\nhave:%s", err)
	}

	if restored.State.Registers != mc.State.Registers {
		t.Errorf("Register mismatch\nwant:%v\nhave:%v", mc.State.Registers, restored.State.Registers)
	}

	if restored.State.Program != 10 {
		t.Errorf("Program counter mismatch\nwant:10\nhave:%d", restored.State.Program)
	}

	if restored.State.Memory != mc.State.Memory {
		t.Error("Memory mismatch after restore")
	}

	if restored.State.ImageSize != 11 {
		t.Errorf("Image size mismatch\nwant:11\nhave:%d", restored.State.ImageSize)
	}

	if values := restored.State.Stack.Values(); len(values) != 2 || values[0] != 5 || values[1] != 77 {
		t.Errorf("Stack mismatch\nwant:[5 77]\nhave:%v", values)
	}

	if err := restored.Step(); err != nil || !restored.State.Halted {
		t.Errorf("Restored machine should continue to halt\nhave:%v", err)
	}
}

func TestHooks(t *testing.T) {
	var mc machine.Machine
	var hooks recordingHooks

	mc.Reset()
	mc.Debugger = &hooks
	mc.Tracer = &hooks

	copy(mc.State.Memory[:], []uint16{
		16, 100, 7,
		15, R0, 100,
		0,
	})

	for !mc.State.Halted {
		if err := mc.Step(); err != nil {
			t.Fatalf("Step\nhave:%s", err)
		}
	}

	if len(hooks.traced) != 3 || hooks.traced[0] != 0 || hooks.traced[1] != 3 || hooks.traced[2] != 6 {
		t.Errorf("Trace mismatch\nwant:[0 3 6]\nhave:%v", hooks.traced)
	}

	if hooks.steps != 3 {
		t.Errorf("Step hook mismatch\nwant:3\nhave:%d", hooks.steps)
	}

	if len(hooks.writes) != 1 || hooks.writes[0] != 100 {
		t.Errorf("Write hook mismatch\nwant:[100]\nhave:%v", hooks.writes)
	}

	if len(hooks.reads) != 1 || hooks.reads[0] != 100 {
		t.Errorf("Read hook mismatch\nwant:[100]\nhave:%v", hooks.reads)
	}

	if mc.State.Registers[0] != 7 {
		t.Errorf("Register mismatch\nwant:7\nhave:%d", mc.State.Registers[0])
	}
}

func TestTraceSkipsFaults(t *testing.T) {
	var mc machine.Machine
	var hooks recordingHooks

	mc.Reset()
	mc.Tracer = &hooks

	copy(mc.State.Memory[:], []uint16{
		3, R0,
		0,
	})

	if err := mc.Step(); err == nil {
		t.Fatal("Expected stack underflow")
	}

	if len(hooks.traced) != 0 {
		t.Fatalf("Faulting instruction traced\nhave:%v", hooks.traced)
	}

	mc.State.Stack.Push(9)

	for !mc.State.Halted {
		if err := mc.Step(); err != nil {
			t.Fatalf("Step\nhave:%s", err)
		}
	}

	if len(hooks.traced) != 2 || hooks.traced[0] != 0 || hooks.traced[1] != 2 {
		t.Errorf("Trace mismatch\nwant:[0 2]\nhave:%v", hooks.traced)
	}
}
