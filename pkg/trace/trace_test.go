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

package trace_test

import (
	"path/filepath"
	"testing"

	"github.com/lassandro/gosynacor/pkg/machine"
	"github.com/lassandro/gosynacor/pkg/trace"
)

func runTraced(t *testing.T, batchSize int) (*trace.Recorder, *machine.Machine) {
	path := filepath.Join(t.TempDir(), "trace.db")

	recorder, err := trace.Open(path, "test.bin", batchSize)

	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { recorder.Close() })

	var mc machine.Machine

	mc.Reset()
	mc.Tracer = recorder

	copy(mc.State.Memory[:], []uint16{
		1, 32768, 3, // set r0 3
		2, 32768, // push r0
		9, 32768, 32768, 32767, // add r0 r0 32767
		7, 32768, 5, // jt r0 5
		0, // halt
	})

	for !mc.State.Halted {
		if err := mc.Step(); err != nil {
			t.Fatal(err)
		}
	}

	return recorder, &mc
}

func TestRecorder(t *testing.T) {
	for _, batchSize := range []int{1, 2, 0} {
		recorder, _ := runTraced(t, batchSize)

		// set, push, then add/jt until r0 wraps to zero, then halt
		if have := recorder.Count(); have != 9 {
			t.Fatalf("Count (batch %d)\nwant:9\nhave:%d", batchSize, have)
		}

		entries, err := recorder.Last(3)

		if err != nil {
			t.Fatal(err)
		}

		if len(entries) != 3 {
			t.Fatalf("Last(3)\nwant:3 entries\nhave:%d", len(entries))
		}

		want := []struct {
			Seq    int64
			Addr   uint16
			Opcode machine.Opcode
		}{
			{6, 5, machine.OP_ADD},
			{7, 9, machine.OP_JT},
			{8, 12, machine.OP_HALT},
		}

		for i, entry := range entries {
			if entry.Seq != want[i].Seq ||
				entry.Instruction.Addr != want[i].Addr ||
				entry.Instruction.Opcode != want[i].Opcode {
				t.Fatalf(
					"Entry %d mismatch\nwant:%+v\nhave:%+v",
					i, want[i], entry,
				)
			}

			if entry.Depth != 1 {
				t.Fatalf("Entry %d depth\nwant:1\nhave:%d", i, entry.Depth)
			}
		}

		if entries[0].Instruction.Operands != [3]uint16{32768, 32768, 32767} {
			t.Fatalf("Operand mismatch\nhave:%v", entries[0].Instruction.Operands)
		}
	}
}

func TestRecorderRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")

	first, err := trace.Open(path, "a.bin", 0)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	second, err := trace.Open(path, "b.bin", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()

	if first.RunID == second.RunID {
		t.Fatal("Runs should receive distinct identifiers")
	}

	entries, err := second.Last(10)

	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 0 {
		t.Fatalf("New run should be empty\nhave:%d entries", len(entries))
	}
}
