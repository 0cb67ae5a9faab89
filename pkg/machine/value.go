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

// Classify reports which of the three disjoint operand ranges v falls into.
// For registers the second result is the register index, otherwise it is v.
func Classify(v uint16) (ValueKind, uint16) {
	switch {
	case v < REGISTER_BASE:
		return VALUE_LITERAL, v
	case v <= REGISTER_LAST:
		return VALUE_REGISTER, v - REGISTER_BASE
	default:
		return VALUE_INVALID, v
	}
}

// ResolveRead dereferences an operand used as a value.
func (mc *MachineState) ResolveRead(v uint16) (uint16, error) {
	switch kind, value := Classify(v); kind {
	case VALUE_LITERAL:
		return value, nil
	case VALUE_REGISTER:
		return mc.Registers[value], nil
	default:
		return 0, InvalidOperand
	}
}

// ResolveWrite returns the register cell named by a destination operand.
// Literal destinations are rejected rather than written through.
func (mc *MachineState) ResolveWrite(v uint16) (*uint16, error) {
	if kind, index := Classify(v); kind == VALUE_REGISTER {
		return &mc.Registers[index], nil
	}

	return nil, InvalidDestination
}
