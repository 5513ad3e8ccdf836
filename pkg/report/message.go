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
	"strings"

	"github.com/consensys/go-smtcheck/pkg/util/termio"
)

// Level determines how seriously a message is treated.  Verification failures
// are errors, whilst secondary diagnostics (e.g. from rechecking with
// recommends) are notes or warnings.
type Level uint8

const (
	// Note is purely informational.
	Note Level = iota
	// Warning indicates something suspicious which does not fail the run.
	Warning
	// Error indicates a failed obligation.
	Error
)

func (l Level) String() string {
	switch l {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		panic(fmt.Sprintf("unknown level %d", l))
	}
}

// Label attaches a short note to a secondary span.
type Label struct {
	Span string
	Note string
}

// Message is a structured diagnostic.  Spans are textual source locations as
// supplied by whoever generated the obligations.  Messages are immutable once
// constructed; the With methods return modified copies.
type Message struct {
	// Level at which this message is reported by default.
	Level Level
	// Primary text of the message.
	Note string
	// Primary spans.
	Spans []string
	// Secondary labelled spans.
	Labels []Label
	// Optional help text.
	Help string
	// Split is set on messages raised for an assertion produced by splitting
	// a larger failed assertion.  These are still reported when expanding
	// errors.
	Split bool
}

// NewMessage constructs a message at a given level with zero or more primary
// spans.
func NewMessage(level Level, note string, spans ...string) *Message {
	return &Message{Level: level, Note: note, Spans: spans}
}

// NewError constructs an error message.
func NewError(note string, spans ...string) *Message {
	return NewMessage(Error, note, spans...)
}

// NewNote constructs a note.
func NewNote(note string, spans ...string) *Message {
	return NewMessage(Note, note, spans...)
}

// WithLabel returns a copy of this message with an additional label.
func (m *Message) WithLabel(span string, note string) *Message {
	n := *m
	n.Labels = append(append([]Label{}, m.Labels...), Label{span, note})
	//
	return &n
}

// WithHelp returns a copy of this message with the given help text.
func (m *Message) WithHelp(help string) *Message {
	n := *m
	n.Help = help
	//
	return &n
}

// WithNote returns a copy of this message with its primary text replaced.
func (m *Message) WithNote(note string) *Message {
	n := *m
	n.Note = note
	//
	return &n
}

// Format renders this message for the terminal at a given level, optionally
// using colour.
func (m *Message) Format(level Level, colour bool) string {
	var (
		builder strings.Builder
		escape  = NewLevelEscape(level)
		bold    = termio.BoldAnsiEscape()
	)
	//
	builder.WriteString(escape.Wrap(level.String(), colour))
	builder.WriteString(bold.Wrap(": "+m.Note, colour))
	//
	for _, span := range m.Spans {
		builder.WriteString("\n  --> ")
		builder.WriteString(span)
	}
	//
	for _, label := range m.Labels {
		fmt.Fprintf(&builder, "\n  --> %s: %s", label.Span, label.Note)
	}
	//
	if m.Help != "" {
		builder.WriteString("\n   = help: ")
		builder.WriteString(m.Help)
	}
	//
	return builder.String()
}

// NewLevelEscape returns the colour used to highlight a given level.
func NewLevelEscape(level Level) termio.AnsiEscape {
	switch level {
	case Error:
		return termio.BoldAnsiEscape().FgColour(termio.TERM_RED)
	case Warning:
		return termio.BoldAnsiEscape().FgColour(termio.TERM_YELLOW)
	default:
		return termio.BoldAnsiEscape().FgColour(termio.TERM_CYAN)
	}
}
