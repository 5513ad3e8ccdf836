// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/consensys/go-smtcheck/pkg/util/termio"
)

// Reporter is a sink for diagnostics.  The "now" variants are for messages
// which should bypass any buffering, such as notices about long-running
// checks.
type Reporter interface {
	// Report a message at its own level.
	Report(msg *Message)
	// ReportAs reports a message at a given level.
	ReportAs(msg *Message, level Level)
	// ReportNow reports a message at its own level, immediately.
	ReportNow(msg *Message)
	// ReportAsNow reports a message at a given level, immediately.
	ReportAsNow(msg *Message, level Level)
}

// Console writes diagnostics to a stream, highlighting them when the stream is
// a terminal.
type Console struct {
	mux    sync.Mutex
	out    io.Writer
	colour bool
}

// NewConsole constructs a console reporter which writes to standard error.
func NewConsole() *Console {
	return &Console{out: os.Stderr, colour: termio.IsTerminal(os.Stderr)}
}

// NewWriterConsole constructs a console reporter for an arbitrary writer,
// without colour.
func NewWriterConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Report implementation for Reporter interface.
func (p *Console) Report(msg *Message) { p.ReportAs(msg, msg.Level) }

// ReportNow implementation for Reporter interface.
func (p *Console) ReportNow(msg *Message) { p.ReportAs(msg, msg.Level) }

// ReportAsNow implementation for Reporter interface.
func (p *Console) ReportAsNow(msg *Message, level Level) { p.ReportAs(msg, level) }

// ReportAs implementation for Reporter interface.
func (p *Console) ReportAs(msg *Message, level Level) {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	fmt.Fprintf(p.out, "%s\n\n", msg.Format(level, p.colour))
}

// Entry is a message recorded by a Collector, along with the level it was
// reported at.
type Entry struct {
	Message *Message
	Level   Level
	Now     bool
}

// Collector records every message reported to it.  This is safe for use from
// multiple goroutines.
type Collector struct {
	mux     sync.Mutex
	entries []Entry
}

// Report implementation for Reporter interface.
func (p *Collector) Report(msg *Message) { p.add(msg, msg.Level, false) }

// ReportAs implementation for Reporter interface.
func (p *Collector) ReportAs(msg *Message, level Level) { p.add(msg, level, false) }

// ReportNow implementation for Reporter interface.
func (p *Collector) ReportNow(msg *Message) { p.add(msg, msg.Level, true) }

// ReportAsNow implementation for Reporter interface.
func (p *Collector) ReportAsNow(msg *Message, level Level) { p.add(msg, level, true) }

// Entries returns a snapshot of everything reported so far.
func (p *Collector) Entries() []Entry {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return append([]Entry{}, p.entries...)
}

// Notes returns the text of every message reported so far, in order.
func (p *Collector) Notes() []string {
	var notes []string
	//
	for _, e := range p.Entries() {
		notes = append(notes, e.Message.Note)
	}
	//
	return notes
}

// Count returns the number of messages reported at a given level.
func (p *Collector) Count(level Level) int {
	n := 0
	//
	for _, e := range p.Entries() {
		if e.Level == level {
			n++
		}
	}
	//
	return n
}

func (p *Collector) add(msg *Message, level Level, now bool) {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	p.entries = append(p.entries, Entry{msg, level, now})
}
