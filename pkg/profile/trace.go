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
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Term is a node of the solver's term graph, as described by its trace.
type Term struct {
	Id string
	// Function symbol (for applications), or quantifier name.
	Name string
	// Identifiers of argument terms.
	Args []string
	// Interpretation attached by a theory (e.g. "arith 5"), if any.
	Theory  string
	Meaning string
	// Kind of term
	Kind TermKind
}

// TermKind distinguishes the different forms of term in a trace.
type TermKind uint8

const (
	// AppTerm is a function application (including constants).
	AppTerm TermKind = iota
	// VarTerm is a bound variable.
	VarTerm
	// QuantTerm is a quantifier.
	QuantTerm
)

// Match is a quantifier instantiation found by E-matching.
type Match struct {
	// Key uniquely identifying this match.
	Key string
	// Quantifier which was instantiated.
	Quant *Term
	// Terms bound to the quantifier's variables, in the order given by the
	// trace.
	Bindings []string
}

// TraceReader reads a solver trace incrementally.  Each call to Read resumes
// from the end of the last complete line read previously, so the cost of
// reading is bounded by the growth of the trace.  Lines which cannot be
// understood are skipped.
type TraceReader struct {
	path   string
	offset int64
	terms  map[string]*Term
	seen   map[string]bool
	// Number of matches seen for each quantifier name.
	counts map[string]uint
}

// NewTraceReader constructs a reader for the trace at a given path.
func NewTraceReader(path string) *TraceReader {
	return &TraceReader{
		path:   path,
		terms:  make(map[string]*Term),
		seen:   make(map[string]bool),
		counts: make(map[string]uint),
	}
}

// Path returns the path of the trace being read.
func (p *TraceReader) Path() string {
	return p.path
}

// Term looks up a term by identifier.
func (p *TraceReader) Term(id string) (*Term, bool) {
	t, ok := p.terms[id]
	return t, ok
}

// Counts returns the number of matches observed so far for each quantifier.
func (p *TraceReader) Counts() map[string]uint {
	return p.counts
}

// Read any new matches appended to the trace since the last read.  A trace
// which does not yet exist has no matches.
func (p *TraceReader) Read() ([]*Match, error) {
	return p.read(true)
}

// Skip over anything appended to the trace since the last read.  Terms are
// still recorded, but matches are neither returned nor counted.
func (p *TraceReader) Skip() error {
	_, err := p.read(false)
	return err
}

func (p *TraceReader) read(counting bool) ([]*Match, error) {
	file, err := os.Open(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	//
	defer file.Close()
	//
	if _, err := file.Seek(p.offset, io.SeekStart); err != nil {
		return nil, err
	}
	//
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	//
	return p.process(data, counting), nil
}

// process the complete lines of a chunk of trace, leaving any trailing
// partial line to be reread next time.
func (p *TraceReader) process(chunk []byte, counting bool) []*Match {
	var matches []*Match
	//
	end := bytes.LastIndexByte(chunk, '\n')
	if end < 0 {
		return nil
	}
	//
	p.offset += int64(end + 1)
	//
	for _, line := range strings.Split(string(chunk[:end]), "\n") {
		if m := p.processLine(strings.Fields(line)); m != nil && counting {
			p.counts[m.Quant.Name]++
			matches = append(matches, m)
		}
	}
	//
	return matches
}

func (p *TraceReader) processLine(fields []string) *Match {
	if len(fields) < 2 {
		return nil
	}
	//
	switch fields[0] {
	case "[mk-app]":
		if len(fields) >= 3 {
			p.terms[fields[1]] = &Term{Id: fields[1], Name: fields[2], Args: fields[3:], Kind: AppTerm}
		}
	case "[mk-var]":
		p.terms[fields[1]] = &Term{Id: fields[1], Kind: VarTerm}
	case "[mk-quant]":
		if len(fields) >= 3 {
			p.terms[fields[1]] = &Term{Id: fields[1], Name: fields[2], Kind: QuantTerm}
		}
	case "[attach-meaning]":
		if t, ok := p.terms[fields[1]]; ok && len(fields) >= 4 {
			t.Theory = fields[2]
			t.Meaning = strings.Join(fields[3:], " ")
		}
	case "[new-match]":
		return p.processMatch(fields[1:])
	}
	//
	return nil
}

// processMatch handles a match record, which consists of a key, the
// quantifier, the pattern, the bound terms and then (after a semicolon) the
// terms which were matched.
func (p *TraceReader) processMatch(fields []string) *Match {
	if len(fields) < 3 || p.seen[fields[0]] {
		return nil
	}
	//
	quant, ok := p.terms[fields[1]]
	if !ok || quant.Kind != QuantTerm {
		return nil
	}
	//
	p.seen[fields[0]] = true
	//
	var bindings []string
	//
	for _, f := range fields[3:] {
		if f == ";" {
			break
		}
		//
		bindings = append(bindings, f)
	}
	//
	return &Match{fields[0], quant, bindings}
}

// String returns a readable rendering of a term (for diagnostics).
func (p *TraceReader) String(id string) string {
	t, ok := p.terms[id]
	//
	switch {
	case !ok:
		return id
	case t.Meaning != "":
		return t.Meaning
	case t.Kind == VarTerm:
		return fmt.Sprintf("?%s", id)
	case len(t.Args) == 0:
		return t.Name
	}
	//
	args := make([]string, len(t.Args))
	//
	for i, a := range t.Args {
		args[i] = p.String(a)
	}
	//
	return fmt.Sprintf("(%s %s)", t.Name, strings.Join(args, " "))
}
