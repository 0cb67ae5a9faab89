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

package trace

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/lassandro/gosynacor/pkg/machine"
)

var log = commonlog.GetLogger("gosynacor.trace")

const DefaultBatchSize = 256

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id      TEXT PRIMARY KEY,
	image   TEXT NOT NULL,
	started TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS steps (
	run    TEXT    NOT NULL REFERENCES runs(id),
	seq    INTEGER NOT NULL,
	addr   INTEGER NOT NULL,
	opcode INTEGER NOT NULL,
	a      INTEGER NOT NULL,
	b      INTEGER NOT NULL,
	c      INTEGER NOT NULL,
	depth  INTEGER NOT NULL,
	PRIMARY KEY (run, seq)
);
`

// One executed instruction, with the stack depth left after it ran
type Entry struct {
	Seq         int64
	Instruction machine.Instruction
	Depth       int
}

// Recorder stores every executed instruction of a run in an SQLite
// database. Rows are buffered and written in batches.
type Recorder struct {
	RunID string

	db        *sql.DB
	batchSize int
	pending   []Entry
	seq       int64
	err       error
	mu        sync.Mutex
}

// Opens (creating if needed) the trace database at path and registers a new
// run for image.
func Open(path string, image string, batchSize int) (*Recorder, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	r := &Recorder{
		RunID:     uuid.New().String(),
		db:        db,
		batchSize: batchSize,
		pending:   make([]Entry, 0, batchSize),
	}

	_, err = db.Exec(
		"INSERT INTO runs (id, image, started) VALUES (?, ?, ?)",
		r.RunID, image, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("registering run: %w", err)
	}

	log.Infof("recording run %s to %s", r.RunID, path)

	return r, nil
}

// Trace implements machine.MachineTracer
func (r *Recorder) Trace(in machine.Instruction, mc *machine.Machine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}

	r.pending = append(r.pending, Entry{
		Seq:         r.seq,
		Instruction: in,
		Depth:       mc.State.Stack.Len(),
	})
	r.seq++

	if len(r.pending) >= r.batchSize {
		if err := r.flush(); err != nil {
			r.err = err
			log.Errorf("trace disabled: %s", err)
		}
	}
}

func (r *Recorder) flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO steps (run, seq, addr, opcode, a, b, c, depth) " +
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range r.pending {
		in := entry.Instruction

		_, err := stmt.Exec(
			r.RunID, entry.Seq, in.Addr, uint16(in.Opcode),
			in.Operands[0], in.Operands[1], in.Operands[2], entry.Depth,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting step %d: %w", entry.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing steps: %w", err)
	}

	r.pending = r.pending[:0]
	return nil
}

// Writes any buffered rows
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}

	return r.flush()
}

// Number of instructions recorded for this run, buffered rows included
func (r *Recorder) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.seq
}

// Returns up to n most recent entries of this run, oldest first
func (r *Recorder) Last(n int) ([]Entry, error) {
	if err := r.Flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		"SELECT seq, addr, opcode, a, b, c, depth FROM steps "+
			"WHERE run = ? ORDER BY seq DESC LIMIT ?",
		r.RunID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying steps: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, n)

	for rows.Next() {
		var entry Entry
		var opcode uint16

		err := rows.Scan(
			&entry.Seq,
			&entry.Instruction.Addr,
			&opcode,
			&entry.Instruction.Operands[0],
			&entry.Instruction.Operands[1],
			&entry.Instruction.Operands[2],
			&entry.Depth,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}

		entry.Instruction.Opcode = machine.Opcode(opcode)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Flushes buffered rows and closes the database
func (r *Recorder) Close() error {
	err := r.Flush()

	if cerr := r.db.Close(); err == nil {
		err = cerr
	}

	return err
}
