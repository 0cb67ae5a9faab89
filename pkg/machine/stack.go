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

type Stack struct {
	items []uint16
}

func NewStack(capacity int) Stack {
	if capacity < 1 {
		capacity = 1
	}

	return Stack{items: make([]uint16, 0, capacity)}
}

func (s *Stack) Push(value uint16) {
	if len(s.items) == cap(s.items) {
		size := cap(s.items) * 2
		if size == 0 {
			size = STACK_CAPACITY
		}

		grown := make([]uint16, len(s.items), size)
		copy(grown, s.items)
		s.items = grown
	}

	s.items = append(s.items, value)
}

func (s *Stack) Pop() (uint16, bool) {
	if len(s.items) == 0 {
		return 0, false
	}

	value := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return value, true
}

func (s *Stack) Peek() (uint16, bool) {
	if len(s.items) == 0 {
		return 0, false
	}

	return s.items[len(s.items)-1], true
}

func (s *Stack) Empty() bool {
	return len(s.items) == 0
}

func (s *Stack) Len() int {
	return len(s.items)
}

func (s *Stack) Cap() int {
	return cap(s.items)
}

// Values returns a copy of the stack contents, bottom first.
func (s *Stack) Values() []uint16 {
	values := make([]uint16, len(s.items))
	copy(values, s.items)
	return values
}
