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
package sexp

import (
	"math"
	"strings"
)

// FormattingChunk represents a chunk of a list which is to be indented at a
// given priority level.
type FormattingChunk struct {
	Priority uint
	Indent   uint
	Contents SExp
}

// FormattingRule provides a generic mechanism for writing custom formatting
// rules.  Whenever a list is encountered during formatting, the formatting
// rules will be given the opportunity to direct formatting of the list.  A
// formatting rule should return nil for the formatting chunks when it doesn't
// handle the given list.
type FormattingRule interface {
	Split(*List) ([]FormattingChunk, uint)
}

// Formatter pretty prints S-Expressions, aiming to fit its output within a
// given width.  This is what makes the solver logs readable.
type Formatter struct {
	// Maximum desired width
	maxWidth uint
	// Rules to be used for formatting
	rules []FormattingRule
}

// NewFormatter constructs a new formatter which aims to fit its output within a
// given width.
func NewFormatter(width uint, rules ...FormattingRule) *Formatter {
	return &Formatter{width, rules}
}

// Add a new formatting rule to this formatter.
func (p *Formatter) Add(rule FormattingRule) {
	p.rules = append(p.rules, rule)
}

// Format a given S-Expression using the rules embedded within this formatter.
// Priority is raised until the widest line fits, or no further splitting is
// possible.
func (p *Formatter) Format(sexp SExp) string {
	var text formattedText
	//
	for priority := uint(0); ; priority++ {
		text = formattedText{}
		formatInner(priority, p.maxWidth, false, sexp, p.rules, &text)
		//
		if text.MaxWidth() <= p.maxWidth || priority >= 10 {
			return text.String()
		}
	}
}

func formatInner(priority, maxWidth uint, newline bool, sexp SExp, rules []FormattingRule, text *formattedText) {
	switch sexp := sexp.(type) {
	case *Symbol, *Literal:
		text.WriteString(sexp.String(true))
	case *List:
		// Lists which already fit on the current line are left alone
		if text.LineWidth()+uint(len(sexp.String(true))) <= maxWidth {
			priority = 0
		}
		//
		for _, rule := range rules {
			if chunks, indent := rule.Split(sexp); chunks != nil {
				formatWith(priority, maxWidth, newline, chunks, indent, rules, text)
				return
			}
		}
		// default rule
		text.WriteString("(")
		//
		for i := 0; i < sexp.Len(); i++ {
			if i != 0 {
				text.WriteString(" ")
			}

			formatInner(priority, maxWidth, false, sexp.Get(i), rules, text)
		}
		//
		text.WriteString(")")
	default:
		panic("unreachable")
	}
}

func formatWith(priority, maxWidth uint, newline bool, chunks []FormattingChunk, indent uint,
	rules []FormattingRule, text *formattedText) {
	//
	if indent != math.MaxUint && !newline && priority > 0 {
		text.Indent(int(indent))
		text.NewLine()
	}
	//
	text.WriteString("(")
	//
	for i, chunk := range chunks {
		var nl bool
		//
		if chunk.Priority <= priority {
			text.Indent(int(chunk.Indent))
			text.NewLine()
			// Request newline
			nl = true
		} else if i != 0 {
			text.WriteString(" ")
		}
		//
		formatInner(priority, maxWidth, nl, chunk.Contents, rules, text)
		//
		if chunk.Priority <= priority {
			text.Indent(-int(chunk.Indent))
		}
	}
	//
	text.WriteString(")")
	//
	if indent != math.MaxUint && !newline && priority > 0 {
		text.Indent(-int(indent))
	}
}

// HeadFormatter splits lists headed by a given symbol so that the first keep
// elements stay on the opening line, whilst every other element is placed on
// its own line one indent deeper:
//
//	(forall ((x Int))
//	  (=> (P x) (Q x)))
type HeadFormatter struct {
	// Head symbol to match
	Head string
	// Number of leading elements (including the head) kept on the first line.
	Keep int
	// Priority at which the remaining elements are split.
	Priority uint
}

// Split a list using this formatter where the list matches.
func (p *HeadFormatter) Split(list *List) ([]FormattingChunk, uint) {
	if list.Head() != p.Head {
		return nil, 0
	}
	//
	chunks := make([]FormattingChunk, list.Len())
	//
	for i := 0; i < list.Len(); i++ {
		chunks[i].Contents = list.Get(i)
		//
		if i < p.Keep {
			chunks[i].Priority = math.MaxUint
		} else {
			chunks[i].Priority = p.Priority
			chunks[i].Indent = 1
		}
	}
	//
	return chunks, math.MaxUint
}

// formattedText is a block of formatted lines under construction.
type formattedText struct {
	// Current indent level
	indent int
	// Lines being written
	lines []string
}

func (p *formattedText) String() string {
	return strings.Join(p.lines, "\n")
}

// Indent increases or decreases the current indent level.
func (p *formattedText) Indent(delta int) {
	p.indent += delta
}

// NewLine starts a new line at the current indent.
func (p *formattedText) NewLine() {
	p.lines = append(p.lines, strings.Repeat("  ", max(p.indent, 0)))
}

// LineWidth returns the width of the current line.
func (p *formattedText) LineWidth() uint {
	if n := len(p.lines); n > 0 {
		return uint(len(p.lines[n-1]))
	}
	//
	return 0
}

// MaxWidth returns the maximum width of any line in this formatted text block.
func (p *formattedText) MaxWidth() uint {
	width := 0
	//
	for _, l := range p.lines {
		width = max(width, len(l))
	}
	//
	return uint(width)
}

// WriteString writes a string into the current line of this block.
func (p *formattedText) WriteString(str string) {
	if n := len(p.lines); n == 0 {
		p.lines = append(p.lines, str)
	} else {
		p.lines[n-1] += str
	}
}
