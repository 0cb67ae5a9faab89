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
	"testing"

	"github.com/lassandro/gosynacor/pkg/machine"
)

func TestStackLIFO(t *testing.T) {
	stack := machine.NewStack(4)
	values := []uint16{1, 32767, 0, 32775, 65535, 7, 7, 12}

	if !stack.Empty() {
		t.Fatal("New stack should be empty")
	}

	for _, value := range values {
		stack.Push(value)
	}

	if top, ok := stack.Peek(); !ok || top != 12 {
		t.Errorf("Peek\nwant:12\nhave:%d %v", top, ok)
	}

	for i := len(values) - 1; i >= 0; i-- {
		have, ok := stack.Pop()

		if !ok || have != values[i] {
			t.Fatalf("Pop %d\nwant:%d\nhave:%d %v", i, values[i], have, ok)
		}
	}

	if _, ok := stack.Pop(); ok {
		t.Error("Pop on an empty stack should fail")
	}

	if _, ok := stack.Peek(); ok {
		t.Error("Peek on an empty stack should fail")
	}
}

func TestStackGrowth(t *testing.T) {
	stack := machine.NewStack(2)

	stack.Push(1)
	stack.Push(2)

	if stack.Cap() != 2 {
		t.Fatalf("Capacity mismatch\nwant:2\nhave:%d", stack.Cap())
	}

	stack.Push(3)

	if stack.Cap() != 4 {
		t.Errorf("Capacity should double\nwant:4\nhave:%d", stack.Cap())
	}

	for i := 0; i < 2000; i++ {
		stack.Push(uint16(i))
	}

	if stack.Len() != 2003 {
		t.Errorf("Length mismatch\nwant:2003\nhave:%d", stack.Len())
	}

	if stack.Cap() != 2048 {
		t.Errorf("Capacity mismatch\nwant:2048\nhave:%d", stack.Cap())
	}
}

func TestStackValues(t *testing.T) {
	var stack machine.Stack

	stack.Push(5)
	stack.Push(6)

	values := stack.Values()
	values[0] = 100

	if have, _ := stack.Pop(); have != 6 {
		t.Errorf("Pop\nwant:6\nhave:%d", have)
	}

	if have, _ := stack.Pop(); have != 5 {
		t.Errorf("Values should return a copy\nwant:5\nhave:%d", have)
	}
}
