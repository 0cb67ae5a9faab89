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
	"bufio"
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"github.com/lassandro/gosynacor/pkg/assembler"
)

var log = commonlog.GetLogger("gosynacor.asm")

var helpvar bool
var debugvar bool
var outvar string

const usage = "gosynacor-asm [-debug] [-out outfile] filename"

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'"+assembler.SymTableExt+"'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
}

// Prints a token error with the offending source line underlined
func reportError(input io.ReadSeeker, err error) {
	tokenErr, ok := err.(assembler.TokenError)

	if !ok || input == nil {
		log.Error(err.Error())
		return
	}

	cursor := tokenErr.GetPosition()

	if _, serr := input.Seek(cursor.LineByte, io.SeekStart); serr != nil {
		log.Error(err.Error())
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	underline := strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)) +
		"^" + strings.Repeat("~", int(cursor.Size)-1)

	fmt.Fprintf(os.Stderr, "%s\n%s\n\033[31m%s\033[0m\n", err, line, underline)
}

func gosynacor_asm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	commonlog.Configure(0, nil)

	args := flag.Args()

	var infile string
	var input io.Reader
	var seeker io.ReadSeeker

	if stat, err := os.Stdin.Stat(); err == nil && len(args) == 0 && stat.Mode()&os.ModeCharDevice == 0 {
		input = os.Stdin

		if outvar == "" {
			outvar = "out.bin"
		}
	} else {
		if len(args) != 1 {
			fmt.Fprintln(os.Stderr, usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			log.Error(err.Error())
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Error(err.Error())
			return 1
		} else if stat.IsDir() {
			log.Errorf("%s is not a valid assembly file", filename)
			return 1
		}

		input = file
		seeker = file
		infile = file.Name()

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".bin"
		}
	}

	var symtable assembler.SymTable
	var symtarget *assembler.SymTable = nil

	if debugvar {
		if infile != "" {
			var err error
			if symtable.Source, err = filepath.Abs(infile); err != nil {
				log.Warning(err.Error())
				symtable.Source = ""
			}
		}
		symtarget = &symtable
	}

	result, errs := assembler.AssembleSource(input, symtarget)

	if len(errs) > 0 {
		for _, err := range errs {
			reportError(seeker, err)
		}

		return 1
	}

	{
		buffer := new(bytes.Buffer)

		if err := binary.Write(buffer, binary.LittleEndian, result); err != nil {
			log.Errorf("error writing output file: %s", err)
			return 1
		}

		if err := os.WriteFile(outvar, buffer.Bytes(), 0666); err != nil {
			log.Errorf("error writing output file: %s", err)
			return 1
		}
	}

	if debugvar {
		file, err := os.Create(assembler.SymTablePath(outvar))

		if err != nil {
			log.Errorf("error creating symbol table: %s", err)
			return 1
		}

		defer file.Close()

		if err := assembler.WriteSymTable(file, &symtable); err != nil {
			log.Errorf("error writing symbol table: %s", err)
			return 1
		}
	}

	return 0
}

func main() {
	flag.Parse()

	// Flushes buffered log output before exiting
	util.Exit(gosynacor_asm())
}
