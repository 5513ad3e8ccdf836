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
package smttest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/consensys/go-smtcheck/pkg/smt"
	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
	"github.com/consensys/go-smtcheck/pkg/vc"
)

// Goal is an enabled goal at the point of a check.
type Goal struct {
	Name string
	// Conclusion of the goal, as written to the solver.
	Conclusion string
}

// Check describes the solver state when check-sat was issued.
type Check struct {
	// Position of this check amongst all checks of the solver.
	Index  int
	Prover vc.Prover
	// Enabled goals, in order.
	Goals []Goal
	// Every other assertion in scope.
	Asserts []string
	// Names of every named assertion in scope.
	Named   []string
	Options map[string]string
}

// HasAssert determines whether some assertion in scope contains a given
// fragment.
func (p *Check) HasAssert(fragment string) bool {
	for _, a := range p.Asserts {
		if strings.Contains(a, fragment) {
			return true
		}
	}
	//
	return false
}

// Answer scripts the response to a check.
type Answer struct {
	// Either "sat", "unsat" or "unknown".
	Result string
	// For sat results, the first enabled goal whose conclusion contains this
	// is reported false (or simply the first enabled goal when empty).
	Fails string
	// Reason reported for unknown results.
	Reason string
	// Names reported by get-unsat-core.  When nil, every named assertion in
	// scope is reported.
	Core []string
	// Lines appended to the trace file (if one is configured).
	Trace []string
	// Error message, in which case the check itself is rejected.
	Error string
	// Time taken to respond.
	Delay time.Duration
}

// Oracle decides the answer to each check.
type Oracle func(check *Check) Answer

// Unsat answers every check as unsat.
func Unsat(_ *Check) Answer {
	return Answer{Result: "unsat"}
}

// FailWhen produces an oracle which finds a goal invalid when its conclusion
// contains any of the given fragments.
func FailWhen(fragments ...string) Oracle {
	return func(check *Check) Answer {
		for _, g := range check.Goals {
			for _, f := range fragments {
				if strings.Contains(g.Conclusion, f) {
					return Answer{Result: "sat", Fails: g.Conclusion}
				}
			}
		}
		//
		return Answer{Result: "unsat"}
	}
}

// Script produces an oracle which gives a fixed sequence of answers, and
// answers unsat thereafter.
func Script(answers ...Answer) Oracle {
	return func(check *Check) Answer {
		if check.Index < len(answers) {
			return answers[check.Index]
		}
		//
		return Answer{Result: "unsat"}
	}
}

// ============================================================================
// Factory
// ============================================================================

// Factory starts scripted solvers, all sharing the same oracle.
type Factory struct {
	mux     sync.Mutex
	oracle  Oracle
	version string
	started []*Solver
}

// NewFactory constructs a factory for a given oracle.
func NewFactory(oracle Oracle) *Factory {
	return &Factory{oracle: oracle, version: "4.12.2"}
}

// WithVersion sets the version reported by solvers from this factory.
func (p *Factory) WithVersion(version string) *Factory {
	p.version = version
	return p
}

// Start implementation for the smt.Factory interface.
func (p *Factory) Start(_ context.Context, prover vc.Prover) (smt.Transport, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	solver := &Solver{prover: prover, oracle: p.oracle, version: p.version, frames: []*frame{{}},
		options: make(map[string]string)}
	p.started = append(p.started, solver)
	//
	return solver, nil
}

// Started returns every solver started by this factory so far.
func (p *Factory) Started() []*Solver {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return append([]*Solver{}, p.started...)
}

// Checks returns every check made by any solver from this factory.
func (p *Factory) Checks() []*Check {
	var checks []*Check
	//
	for _, s := range p.Started() {
		checks = append(checks, s.Checks()...)
	}
	//
	return checks
}

// ============================================================================
// Solver
// ============================================================================

type frame struct {
	asserts []string
	named   []string
	goals   map[string]string
	enabled []string
}

// Solver is an in-memory transport which understands just enough SMT-LIB to
// follow a session, and answers checks according to its oracle.
type Solver struct {
	mux      sync.Mutex
	prover   vc.Prover
	oracle   Oracle
	version  string
	frames   []*frame
	options  map[string]string
	commands []string
	checks   []*Check
	pending  []string
	last     Answer
	delay    time.Duration
	closed   bool
}

// Commands returns every command written to this solver.
func (p *Solver) Commands() []string {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return append([]string{}, p.commands...)
}

// Checks returns every check made against this solver.
func (p *Solver) Checks() []*Check {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return append([]*Check{}, p.checks...)
}

// Prover returns the prover this solver was started for.
func (p *Solver) Prover() vc.Prover {
	return p.prover
}

// Closed determines whether this solver has been closed.
func (p *Solver) Closed() bool {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	return p.closed
}

// Write implementation for the smt.Transport interface.
func (p *Solver) Write(command string) error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	if p.closed {
		return fmt.Errorf("solver closed")
	}
	//
	p.commands = append(p.commands, command)
	//
	terms, err := sexp.ParseString("command", command)
	if err != nil {
		return err
	} else if len(terms) != 1 || terms[0].AsList() == nil {
		return fmt.Errorf("malformed command %s", command)
	}
	//
	p.execute(terms[0].AsList())
	//
	return nil
}

// Sync implementation for the smt.Transport interface.
func (p *Solver) Sync(_ context.Context) ([]string, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	response := p.pending
	p.pending = nil
	//
	if p.delay > 0 {
		time.Sleep(p.delay)
		p.delay = 0
	}
	//
	return response, nil
}

// Close implementation for the smt.Transport interface.
func (p *Solver) Close() error {
	p.mux.Lock()
	defer p.mux.Unlock()
	//
	p.closed = true
	//
	return nil
}

func (p *Solver) top() *frame {
	return p.frames[len(p.frames)-1]
}

func (p *Solver) execute(cmd *sexp.List) {
	switch cmd.Head() {
	case "push":
		p.frames = append(p.frames, &frame{})
	case "pop":
		if len(p.frames) == 1 {
			p.respond("(error \"pop from empty stack\")")
		} else {
			p.frames = p.frames[:len(p.frames)-1]
		}
	case "reset":
		p.frames = []*frame{{}}
		p.options = make(map[string]string)
	case "set-option":
		p.options[strings.TrimPrefix(cmd.Get(1).String(false), ":")] = cmd.Get(2).String(false)
	case "assert":
		p.assert(cmd.Get(1))
	case "check-sat":
		p.checkSat()
	case "get-value":
		p.getValue(cmd.Get(1).AsList())
	case "get-model":
		p.respond("(", "  (define-fun x () Int 0)", ")")
	case "get-unsat-core":
		p.getUnsatCore()
	case "get-info":
		switch cmd.Get(1).String(false) {
		case ":version":
			p.respond(fmt.Sprintf("(:version \"%s\")", p.version))
		case ":reason-unknown":
			p.respond(fmt.Sprintf("(:reason-unknown \"%s\")", p.last.Reason))
		}
	}
}

func (p *Solver) assert(term sexp.SExp) {
	top := p.top()
	//
	if list := term.AsList(); list != nil {
		switch {
		case list.MatchSymbols(2, "=") && strings.HasPrefix(list.Get(1).String(false), "goal!"):
			// Goal definition (= goal!N (=> cond conclusion))
			if top.goals == nil {
				top.goals = make(map[string]string)
			}
			//
			top.goals[list.Get(1).String(false)] = list.Get(2).AsList().Get(2).String(true)
			//
			return
		case list.MatchSymbols(1, "not"):
			top.enabled = goalNames(list.Get(1))
			return
		case list.MatchSymbols(1, "!"):
			for i := 2; i+1 < list.Len(); i += 2 {
				if list.Get(i).String(false) == ":named" {
					top.named = append(top.named, list.Get(i+1).String(false))
				}
			}
		}
	}
	//
	top.asserts = append(top.asserts, term.String(true))
}

func goalNames(term sexp.SExp) []string {
	if s := term.AsSymbol(); s != nil {
		return []string{s.Value}
	}
	//
	var names []string
	//
	for _, e := range term.AsList().Elements[1:] {
		names = append(names, e.String(false))
	}
	//
	return names
}

func (p *Solver) checkSat() {
	check := &Check{Index: len(p.checks), Prover: p.prover, Options: make(map[string]string)}
	goals := make(map[string]string)
	//
	for k, v := range p.options {
		check.Options[k] = v
	}
	//
	for _, f := range p.frames {
		check.Asserts = append(check.Asserts, f.asserts...)
		check.Named = append(check.Named, f.named...)
		//
		for k, v := range f.goals {
			goals[k] = v
		}
		//
		for _, name := range f.enabled {
			check.Goals = append(check.Goals, Goal{name, goals[name]})
		}
	}
	//
	p.checks = append(p.checks, check)
	p.last = p.oracle(check)
	//
	if p.last.Error != "" {
		p.respond(fmt.Sprintf("(error \"%s\")", p.last.Error))
		return
	}
	//
	p.writeTrace(p.last.Trace)
	p.respond(p.last.Result)
	p.delay = p.last.Delay
}

func (p *Solver) getValue(names *sexp.List) {
	var (
		check  = p.checks[len(p.checks)-1]
		failed = ""
		values []string
	)
	//
	for _, g := range check.Goals {
		if strings.Contains(g.Conclusion, p.last.Fails) {
			failed = g.Name
			break
		}
	}
	//
	for _, n := range names.Elements {
		name := n.String(false)
		values = append(values, fmt.Sprintf("(%s %t)", name, name != failed))
	}
	//
	p.respond("(" + strings.Join(values, "\n ") + ")")
}

func (p *Solver) getUnsatCore() {
	core := p.last.Core
	//
	if core == nil {
		core = p.checks[len(p.checks)-1].Named
	}
	//
	p.respond("(" + strings.Join(core, " ") + ")")
}

func (p *Solver) writeTrace(lines []string) {
	filename, ok := p.options["trace_file_name"]
	if !ok || len(lines) == 0 {
		return
	}
	//
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		p.respond(fmt.Sprintf("(error \"%s\")", err))
		return
	}
	//
	defer file.Close()
	//
	for _, line := range lines {
		fmt.Fprintln(file, line)
	}
}

func (p *Solver) respond(lines ...string) {
	p.pending = append(p.pending, lines...)
}
