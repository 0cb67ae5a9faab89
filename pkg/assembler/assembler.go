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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/lassandro/gosynacor/pkg/encoding"
	"github.com/lassandro/gosynacor/pkg/machine"
)

type statement struct {
	labels   []Token
	op       *Token
	args     []Token
	addr     int
	lineByte int64
}

func parseDirective(ident string) DirectiveType {
	if strings.EqualFold(ident, ".DATA") {
		return DIRECTIVE_DATA
	} else if strings.EqualFold(ident, ".STRING") {
		return DIRECTIVE_STRING
	}

	return DIRECTIVE_INVALID
}

func isWordChar(c byte) bool {
	return c == '_' || c == '#' ||
		('a' <= c && c <= 'z') ||
		('A' <= c && c <= 'Z') ||
		('0' <= c && c <= '9')
}

// Scans a quoted run starting at text[start], honouring backslash escapes.
// Returns the index one past the closing quote, or -1 if unterminated.
func scanQuoted(text string, start int) int {
	quote := text[start]

	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}

	return -1
}

func tokenizeLine(text string, line int, lineByte int64) ([]Token, error) {
	tokens := make([]Token, 0, 4)

	for i := 0; i < len(text); {
		c := text[i]

		cursor := Cursor{
			Line:     line,
			Column:   i + 1,
			Byte:     lineByte + int64(i),
			Size:     1,
			LineByte: lineByte,
		}

		switch {
		case c == ' ' || c == '\t' || c == ',' || c == '\r':
			i++
			continue

		case c == ';':
			return tokens, nil

		case c == '"' || c == '\'':
			end := scanQuoted(text, i)

			if end == -1 {
				if c == '"' {
					return nil, &InvalidStringError{cursor}
				}
				return nil, &InvalidLiteralError{cursor}
			}

			cursor.Size = int64(end - i)
			tokenType := TOKEN_STRING

			if c == '\'' {
				tokenType = TOKEN_LITERAL
			}

			tokens = append(tokens, Token{tokenType, cursor, text[i:end]})
			i = end

		case c == '.' || isWordChar(c):
			end := i + 1

			for end < len(text) && isWordChar(text[end]) {
				end++
			}

			cursor.Size = int64(end - i)
			value := text[i:end]
			tokenType := TOKEN_IDENT

			if c == '.' {
				tokenType = TOKEN_DIRECTIVE
			} else if end < len(text) && text[end] == ':' {
				tokenType = TOKEN_LABEL
				end++
			} else if c == '#' || ('0' <= c && c <= '9') {
				tokenType = TOKEN_LITERAL
			}

			tokens = append(tokens, Token{tokenType, cursor, value})
			i = end

		default:
			return nil, &UnexpectedCharacterError{cursor, rune(c)}
		}
	}

	return tokens, nil
}

// Computes how many words a statement emits
func statementSize(stmt *statement) (int, error) {
	if stmt.op == nil {
		return 0, nil
	}

	switch stmt.op.Type {
	case TOKEN_IDENT:
		op, ok := machine.LookupOpcode(strings.ToLower(stmt.op.Value))

		if !ok {
			return 0, &UnknownIdentifierError{stmt.op.Position, stmt.op.Value}
		}

		if len(stmt.args) != op.Arity() {
			return 0, &InvalidNumArgumentsError{
				stmt.op.Position, op.Arity(), len(stmt.args),
			}
		}

		return 1 + op.Arity(), nil

	case TOKEN_DIRECTIVE:
		switch parseDirective(stmt.op.Value) {
		case DIRECTIVE_DATA:
			if len(stmt.args) == 0 {
				return 0, &InvalidNumArgumentsError{stmt.op.Position, 1, 0}
			}

			return len(stmt.args), nil

		case DIRECTIVE_STRING:
			if len(stmt.args) != 1 {
				return 0, &InvalidNumArgumentsError{
					stmt.op.Position, 1, len(stmt.args),
				}
			}

			if stmt.args[0].Type != TOKEN_STRING {
				return 0, &InvalidOperandError{
					stmt.args[0].Position,
					[]TokenType{TOKEN_STRING},
					stmt.args[0].Type,
				}
			}

			value, err := strconv.Unquote(stmt.args[0].Value)

			if err != nil {
				return 0, &InvalidStringError{stmt.args[0].Position}
			}

			return len(value), nil
		}

		return 0, &UnknownIdentifierError{stmt.op.Position, stmt.op.Value}
	}

	return 0, &InvalidOperandError{
		stmt.op.Position,
		[]TokenType{TOKEN_IDENT, TOKEN_DIRECTIVE},
		stmt.op.Type,
	}
}

// Resolves an operand token to its word. Instruction operands must be a
// literal or register word; raw data may hold any 16-bit value.
func resolveOperand(token *Token, labels map[string]int, raw bool) (uint16, error) {
	switch token.Type {
	case TOKEN_LITERAL:
		value, err := encoding.DecodeOperand(token.Value)

		if err != nil || (!raw && value > machine.REGISTER_LAST) {
			return 0, &InvalidLiteralError{token.Position}
		}

		return value, nil

	case TOKEN_IDENT:
		if index, ok := encoding.DecodeRegister(token.Value); ok {
			return machine.REGISTER_BASE + index, nil
		}

		if addr, ok := labels[token.Value]; ok {
			return uint16(addr), nil
		}

		if value, err := encoding.DecodeHex(token.Value); err == nil {
			if !raw && value > machine.REGISTER_LAST {
				return 0, &InvalidLiteralError{token.Position}
			}

			return value, nil
		}

		return 0, &UnknownLabelError{token.Position, token.Value}
	}

	return 0, &InvalidOperandError{
		token.Position,
		[]TokenType{TOKEN_IDENT, TOKEN_LITERAL},
		token.Type,
	}
}

// Assembles mnemonic source into a program image. When symtable is non-nil
// it is populated with label and line information for the debugger.
func AssembleSource(input io.Reader, symtable *SymTable) (result []uint16, errs []error) {
	scanner := bufio.NewScanner(input)
	statements := make([]statement, 0, 64)
	labels := make(map[string]int)

	// Bytes consumed by the last line, terminator included
	var consumed int

	scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := bufio.ScanLines(data, atEOF)

		if token != nil {
			consumed = advance
		}

		return advance, token, err
	})

	var lineByte int64
	addr := 0

	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		start := lineByte
		lineByte += int64(consumed)

		tokens, err := tokenizeLine(text, line, start)

		if err != nil {
			errs = append(errs, err)
			continue
		}

		stmt := statement{addr: addr, lineByte: start}

		for len(tokens) > 0 && tokens[0].Type == TOKEN_LABEL {
			stmt.labels = append(stmt.labels, tokens[0])
			tokens = tokens[1:]
		}

		if len(tokens) > 0 {
			stmt.op = &tokens[0]
			stmt.args = tokens[1:]
		}

		for _, label := range stmt.labels {
			if _, exists := labels[label.Value]; exists {
				errs = append(errs, &RedeclaredLabelError{label.Position, label.Value})
				continue
			}

			labels[label.Value] = addr
		}

		size, err := statementSize(&stmt)

		if err != nil {
			errs = append(errs, err)
			continue
		}

		if size > 0 || len(stmt.labels) > 0 {
			statements = append(statements, stmt)
		}

		addr += size
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}

	if addr > machine.MEMORY_SIZE {
		errs = append(errs, &OversizedBinaryError{addr})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	result = make([]uint16, 0, addr)

	for i := range statements {
		stmt := &statements[i]

		if symtable != nil {
			if symtable.Symbols == nil {
				symtable.Symbols = make(map[uint16]int64)
			}

			if symtable.Labels == nil {
				symtable.Labels = make(map[uint16]string)
			}

			for _, label := range stmt.labels {
				symtable.Labels[uint16(stmt.addr)] = label.Value
			}

			if stmt.op != nil {
				symtable.Symbols[uint16(stmt.addr)] = stmt.lineByte
			}
		}

		if stmt.op == nil {
			continue
		}

		if stmt.op.Type == TOKEN_DIRECTIVE &&
			parseDirective(stmt.op.Value) == DIRECTIVE_STRING {
			value, _ := strconv.Unquote(stmt.args[0].Value)

			for i := 0; i < len(value); i++ {
				result = append(result, uint16(value[i]))
			}

			continue
		}

		raw := stmt.op.Type == TOKEN_DIRECTIVE

		if !raw {
			op, _ := machine.LookupOpcode(strings.ToLower(stmt.op.Value))
			result = append(result, uint16(op))
		}

		for j := range stmt.args {
			value, err := resolveOperand(&stmt.args[j], labels, raw)

			if err != nil {
				errs = append(errs, err)
				continue
			}

			result = append(result, value)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return result, nil
}
