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

package main

import (
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var termRestore unix.Termios
var termRaw bool

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Puts stdin in raw mode for the line editor. Signals stay enabled so an
// interrupt still reaches the process.
func enterRawTerm() error {
	if termRaw || !stdinIsTerminal() {
		return nil
	}

	if err := termios.Tcgetattr(os.Stdin.Fd(), &termRestore); err != nil {
		return err
	}

	termstate := termRestore
	termios.Cfmakeraw(&termstate)

	termstate.Lflag |= unix.ISIG
	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	if err := termios.Tcsetattr(
		os.Stdin.Fd(), termios.TCSANOW, &termstate,
	); err != nil {
		return err
	}

	termRaw = true
	return nil
}

func exitRawTerm() error {
	if !termRaw {
		return nil
	}

	termRaw = false

	return termios.Tcsetattr(os.Stdin.Fd(), termios.TCSANOW, &termRestore)
}
