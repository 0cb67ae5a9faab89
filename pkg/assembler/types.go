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

package assembler

import (
	"fmt"
	"strings"

	"github.com/lassandro/gosynacor/pkg/machine"
)

type TokenType uint
type DirectiveType uint

var tokenNames = [...]string{
	TOKEN_NONE:      "<invalid>",
	TOKEN_IDENT:     "Identifier",
	TOKEN_DIRECTIVE: "Directive",
	TOKEN_STRING:    "String",
	TOKEN_LITERAL:   "Literal",
	TOKEN_LABEL:     "Label",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}

	return tokenNames[TOKEN_NONE]
}

// Location of a token in the source. Line and Column are 1-based, Byte and
// LineByte are offsets from the start of the input.
type Cursor struct {
	Line     int
	Column   int
	Byte     int64
	Size     int64
	LineByte int64
}

func (c Cursor) String() string {
	return fmt.Sprintf("%02d:%02d", c.Line, c.Column)
}

type Token struct {
	Type     TokenType
	Position Cursor
	Value    string
}

// Debugging information emitted alongside a binary. Symbols maps each
// instruction address to the byte offset of its source line.
type SymTable struct {
	Source  string            `cbor:"1,keyasint"`
	Symbols map[uint16]int64  `cbor:"2,keyasint"`
	Labels  map[uint16]string `cbor:"3,keyasint"`
}

type TokenError interface {
	error
	GetPosition() Cursor
}

type InvalidOperandError struct {
	Position Cursor
	Required []TokenType
	Received TokenType
}

func (err *InvalidOperandError) GetPosition() Cursor { return err.Position }

func (err *InvalidOperandError) Error() string {
	names := make([]string, len(err.Required))

	for i, tokenType := range err.Required {
		names[i] = tokenType.String()
	}

	var want string

	switch len(names) {
	case 0:
	case 1:
		want = names[0]
	case 2:
		want = names[0] + " or " + names[1]
	default:
		want = strings.Join(names[:len(names)-1], ", ") + ", or " + names[len(names)-1]
	}

	return fmt.Sprintf(
		"%s: Invalid operands\n\twant:%s\n\thave:%s",
		err.Position, want, err.Received,
	)
}

type InvalidNumArgumentsError struct {
	Position Cursor
	Required int
	Received int
}

func (err *InvalidNumArgumentsError) GetPosition() Cursor { return err.Position }

func (err *InvalidNumArgumentsError) Error() string {
	return fmt.Sprintf(
		"%s: Invalid number of arguments\n\twant:%d\n\thave:%d",
		err.Position, err.Required, err.Received,
	)
}

type InvalidLiteralError struct {
	Position Cursor
}

func (err *InvalidLiteralError) GetPosition() Cursor { return err.Position }

func (err *InvalidLiteralError) Error() string {
	return err.Position.String() + ": Invalid literal"
}

type InvalidStringError struct {
	Position Cursor
}

func (err *InvalidStringError) GetPosition() Cursor { return err.Position }

func (err *InvalidStringError) Error() string {
	return err.Position.String() + ": Invalid string literal"
}

type UnexpectedCharacterError struct {
	Position Cursor
	Received rune
}

func (err *UnexpectedCharacterError) GetPosition() Cursor { return err.Position }

func (err *UnexpectedCharacterError) Error() string {
	return fmt.Sprintf("%s: Unexpected character %q", err.Position, err.Received)
}

type RedeclaredLabelError struct {
	Position Cursor
	Received string
}

func (err *RedeclaredLabelError) GetPosition() Cursor { return err.Position }

func (err *RedeclaredLabelError) Error() string {
	return fmt.Sprintf("%s: Redeclaration of label '%s'", err.Position, err.Received)
}

type UnknownLabelError struct {
	Position Cursor
	Received string
}

func (err *UnknownLabelError) GetPosition() Cursor { return err.Position }

func (err *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s: Unknown label '%s'", err.Position, err.Received)
}

// Raised for mnemonics and directives that do not exist
type UnknownIdentifierError struct {
	Position Cursor
	Received string
}

func (err *UnknownIdentifierError) GetPosition() Cursor { return err.Position }

func (err *UnknownIdentifierError) Error() string {
	return fmt.Sprintf("%s: Unknown identifier '%s'", err.Position, err.Received)
}

type OversizedBinaryError struct {
	Size int
}

func (err *OversizedBinaryError) Error() string {
	return fmt.Sprintf(
		"Binary exceeds address space\n\twant:%d words\n\thave:%d words",
		machine.MEMORY_SIZE, err.Size,
	)
}
