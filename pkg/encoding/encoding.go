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

package encoding

import (
	"errors"
	"strconv"
	"strings"
)

const registerBase = 1 << 15

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, 0xFF, xFF
func DecodeHex(s string) (uint16, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (uint16, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	result, err := strconv.ParseUint(s, 10, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a register name in the formats: r0, R7, reg3
func DecodeRegister(s string) (uint16, bool) {
	lower := strings.ToLower(s)

	if strings.HasPrefix(lower, "reg") {
		lower = lower[3:]
	} else if strings.HasPrefix(lower, "r") {
		lower = lower[1:]
	} else {
		return 0, false
	}

	if len(lower) != 1 || lower[0] < '0' || lower[0] > '7' {
		return 0, false
	}

	return uint16(lower[0] - '0'), true
}

// Decodes a quoted character literal: 'A', '\n', '\''
func DecodeChar(s string) (uint16, error) {
	if len(s) < 3 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return 0, errors.New("Invalid character literal")
	}

	value, _, tail, err := strconv.UnquoteChar(s[1:len(s)-1], '\'')

	if err != nil {
		return 0, err
	}

	if tail != "" || value > 0x7F {
		return 0, errors.New("Invalid character literal")
	}

	return uint16(value), nil
}

// Decodes a raw operand word: registers encode as 32768+n, everything else
// as the literal value.
func DecodeOperand(s string) (uint16, error) {
	if index, ok := DecodeRegister(s); ok {
		return registerBase + index, nil
	}

	if strings.HasPrefix(s, "'") {
		return DecodeChar(s)
	}

	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	return DecodeInt(s)
}

// Decodes an address or value given as hex or decimal
func DecodeNumber(s string) (uint16, error) {
	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	return DecodeInt(s)
}

func FormatOperand(value uint16) string {
	switch {
	case value < registerBase:
		return strconv.Itoa(int(value))
	case value < registerBase+8:
		return "reg" + strconv.Itoa(int(value-registerBase))
	default:
		return "<invalid " + strconv.Itoa(int(value)) + ">"
	}
}
