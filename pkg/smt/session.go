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
package smt

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/consensys/go-smtcheck/pkg/util/collection/stack"
	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
	"github.com/consensys/go-smtcheck/pkg/vc"
	log "github.com/sirupsen/logrus"
)

// ProgressInterval determines how often a progress callback is invoked whilst
// a check is outstanding.
var ProgressInterval = 2 * time.Second

// Progress is invoked periodically whilst the solver is working on a check,
// with the time elapsed since the check was submitted.
type Progress func(elapsed time.Duration)

// Logs identifies where a session mirrors its traffic.  Any writer may be nil,
// in which case nothing is written for that log.
type Logs struct {
	// Commands as received, in the assertion language.
	Initial io.Writer
	// Commands after lowering into SMT-LIB.
	Final io.Writer
	// Raw text exchanged with the solver, with responses as comments.
	Smt io.Writer
}

// Session manages a single solver process.  Declarations and options are
// issued as they arrive, user scopes bracket groups of declarations, and
// queries are checked within a scope of their own which remains open until
// the query is finished.  A session is not safe for concurrent use.
type Session struct {
	factory   Factory
	transport Transport
	prover    vc.Prover
	logs      Logs
	formatter *sexp.Formatter
	// Whether push and pop are available.
	incremental bool
	// Set when a non-incremental session must be reset before its next
	// query.
	dirty bool
	// Declarations and options currently in effect outside any query.
	history []vc.Command
	// Length of the history when each user scope was opened.
	scopes *stack.Stack[int]
	// Set whilst a query scope is open.
	inQuery bool
	rlimit  bool
	goals   []goal
	// Goal which failed in the most recent check (or -1).
	failure int
	// Counter used to name goals uniquely across queries.
	counter  uint
	timeInit time.Duration
	timeRun  time.Duration
}

// Open starts a solver session for a given decision procedure.
func Open(ctx context.Context, factory Factory, prover vc.Prover, logs Logs) (*Session, error) {
	start := time.Now()
	//
	transport, err := factory.Start(ctx, prover)
	if err != nil {
		return nil, err
	}
	//
	session := &Session{
		factory:     factory,
		transport:   transport,
		prover:      prover,
		logs:        logs,
		formatter:   vc.NewLogFormatter(),
		incremental: true,
		scopes:      stack.NewStack[int](),
		failure:     -1,
	}
	session.timeInit = time.Since(start)
	//
	return session, nil
}

// Prover returns the decision procedure this session was opened for.
func (p *Session) Prover() vc.Prover {
	return p.prover
}

// Idle determines whether this session has no open scopes.
func (p *Session) Idle() bool {
	return p.scopes.IsEmpty() && !p.inQuery
}

// Time returns the time taken to start the solver and the total time spent
// waiting on checks.
func (p *Session) Time() (time.Duration, time.Duration) {
	return p.timeInit, p.timeRun
}

// DisableIncremental stops this session from using push and pop.  Instead,
// the solver is reset and its declarations replayed before each query after
// the first.
func (p *Session) DisableIncremental() {
	p.incremental = false
}

// SetOption issues a solver option.  The recommended options bundle is
// expanded here.
func (p *Session) SetOption(option *vc.SetOption) error {
	p.logInitial(option)
	//
	for _, o := range expandOption(option) {
		p.history = append(p.history, o)
		//
		if err := p.send(o.Lisp()); err != nil {
			return err
		}
	}
	//
	return nil
}

// SetRlimit sets the resource limit for every check in this session.  This
// can only be done once per session.
func (p *Session) SetRlimit(rlimit uint64) error {
	if p.rlimit {
		panic("resource limit already set")
	}
	//
	p.rlimit = true
	//
	return p.SetOption(&vc.SetOption{Name: "rlimit", Value: fmt.Sprintf("%d", rlimit)})
}

// Declare issues a command outside of any query.  Options and declarations
// are retained so they can be replayed into spin-off sessions, whilst checks
// are not permitted here.
func (p *Session) Declare(cmd vc.Command) error {
	if p.inQuery {
		panic("declaration issued whilst a query is open")
	}
	//
	switch c := cmd.(type) {
	case *vc.SetOption:
		if c.Name == "rlimit" {
			return p.SetRlimit(parseRlimit(c.Value))
		}
		//
		return p.SetOption(c)
	case *vc.Declare:
		p.logInitial(c)
		p.history = append(p.history, c)
		//
		return p.send(lowerDecl(c.Decl))
	default:
		panic(fmt.Sprintf("unexpected command %T", cmd))
	}
}

// Comment writes a comment into whichever logs are kept for this session.
func (p *Session) Comment(text string) {
	for _, w := range []io.Writer{p.logs.Initial, p.logs.Final, p.logs.Smt} {
		if w != nil {
			fmt.Fprintf(w, "\n;; %s\n", text)
		}
	}
}

// Push opens a user scope.
func (p *Session) Push() error {
	if p.inQuery {
		panic("scope opened whilst a query is open")
	}
	//
	p.scopes.Push(len(p.history))
	p.logInitialText("(push)")
	//
	if p.incremental {
		return p.send(sexp.NewApp("push"))
	}
	//
	return nil
}

// Pop closes the innermost user scope, discarding everything declared in it.
func (p *Session) Pop() error {
	if p.scopes.IsEmpty() {
		panic("pop without matching push")
	} else if p.inQuery {
		panic("scope closed whilst a query is open")
	}
	//
	p.history = p.history[:p.scopes.Pop()]
	p.logInitialText("(pop)")
	//
	if p.incremental {
		return p.send(sexp.NewApp("pop"))
	}
	//
	p.dirty = true
	//
	return nil
}

// CheckValid checks every assertion of a query.  The query's scope remains
// open afterwards, so that it can be checked again or its unsat core
// requested, until FinishQuery is called.
func (p *Session) CheckValid(ctx context.Context, query *vc.Query, progress Progress) (ValidityResult, error) {
	if p.inQuery {
		panic("query already open")
	} else if err := p.reset(ctx); err != nil {
		return nil, err
	}
	//
	p.logInitial(&vc.CheckValid{Query: query})
	p.inQuery = true
	p.failure = -1
	p.goals = nil
	//
	if err := p.sendScope("push"); err != nil {
		return nil, err
	}
	//
	for _, d := range query.Local {
		if err := p.send(lowerDecl(d)); err != nil {
			return nil, err
		}
	}
	//
	_, asserts, conds := flatten(query.Assertion, nil, nil, nil)
	//
	for i, a := range asserts {
		name := fmt.Sprintf("goal!%d", p.counter)
		p.counter++
		p.goals = append(p.goals, goal{name, a, true})
		//
		if err := p.send(sexp.NewApp("declare-const", sexp.NewSymbol(name), sexp.NewSymbol("Bool"))); err != nil {
			return nil, err
		} else if err := p.send(lowerGoal(name, conds[i], a)); err != nil {
			return nil, err
		}
	}
	//
	return p.check(ctx, progress)
}

// CheckValidAgain rechecks the current query with the most recently failed
// assertion disabled.  When onlyEarlier holds, every assertion after the
// failed one is disabled as well.  When no assertion remains enabled, the
// result is valid and the solver is not consulted.  Non-incremental sessions
// only ever report their first failure.
func (p *Session) CheckValidAgain(ctx context.Context, onlyEarlier bool, progress Progress) (ValidityResult, error) {
	if !p.inQuery {
		panic("no query to check again")
	} else if p.failure < 0 {
		panic("no failure to recheck")
	} else if !p.incremental {
		return &Valid{Skipped: true}, nil
	}
	//
	for i := range p.goals {
		if i == p.failure || (onlyEarlier && i > p.failure) {
			p.goals[i].enabled = false
		}
	}
	//
	p.failure = -1
	//
	if !p.anyEnabled() {
		return &Valid{Skipped: true}, nil
	} else if err := p.sendScope("pop"); err != nil {
		return nil, err
	}
	//
	return p.check(ctx, progress)
}

// FinishQuery closes the scope of the current query.
func (p *Session) FinishQuery() error {
	if !p.inQuery {
		panic("no query to finish")
	}
	//
	p.inQuery = false
	p.goals = nil
	p.failure = -1
	//
	if !p.incremental {
		p.dirty = true
		return nil
	}
	// Goal scope, then query scope.
	if err := p.send(sexp.NewApp("pop")); err != nil {
		return err
	}
	//
	return p.send(sexp.NewApp("pop"))
}

// GetUnsatCore returns the names of the facts used to establish the current
// query.  This is only meaningful when the last check was valid and unsat
// cores were enabled when the session was opened.
func (p *Session) GetUnsatCore(ctx context.Context) ([]string, error) {
	if err := p.send(sexp.NewApp("get-unsat-core")); err != nil {
		return nil, err
	}
	//
	response, err := p.sync(ctx)
	if err != nil {
		return nil, err
	}
	//
	list, err := parseList(response)
	if err != nil {
		return nil, err
	}
	//
	core := make([]string, 0, list.Len())
	//
	for _, e := range list.Elements {
		if s := e.AsSymbol(); s != nil {
			core = append(core, s.Value)
		}
	}
	//
	return core, nil
}

// SpinOff starts a new session for a different decision procedure, which
// inherits every option and declaration currently in effect.  Any additional
// options are issued before anything inherited, and take the place of any
// inherited option of the same name.
func (p *Session) SpinOff(ctx context.Context, prover vc.Prover, logs Logs, options ...*vc.SetOption) (*Session,
	error) {
	child, err := Open(ctx, p.factory, prover, logs)
	if err != nil {
		return nil, err
	}
	//
	if prover == vc.BitVector {
		child.DisableIncremental()
	}
	//
	for _, o := range options {
		if err := child.SetOption(o); err != nil {
			return nil, err
		}
	}
	//
	if err := child.replay(inherit(p.history, options)); err != nil {
		return nil, err
	}
	//
	for _, o := range ProverOptions(prover) {
		if err := child.SetOption(o); err != nil {
			return nil, err
		}
	}
	//
	log.Debugf("spun off %s session with %d inherited commands", prover, len(p.history))
	//
	return child, nil
}

// CheckVersion checks the solver's reported version against a constraint,
// such as ">= 4.12".
func (p *Session) CheckVersion(ctx context.Context, constraint string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return err
	} else if err = p.send(sexp.NewApp("get-info", sexp.NewSymbol(":version"))); err != nil {
		return err
	}
	//
	response, err := p.sync(ctx)
	if err != nil {
		return err
	}
	//
	list, err := parseList(response)
	if err != nil {
		return err
	} else if list.Len() != 2 || list.Get(1).AsLiteral() == nil {
		return fmt.Errorf("unexpected version response: %s", strings.Join(response, " "))
	}
	//
	version, err := semver.NewVersion(list.Get(1).AsLiteral().Value)
	if err != nil {
		return err
	} else if !c.Check(version) {
		return fmt.Errorf("solver version %s does not satisfy %s", version, constraint)
	}
	//
	return nil
}

// Close terminates the solver.
func (p *Session) Close() error {
	return p.transport.Close()
}

// ============================================================================
// Helpers
// ============================================================================

func (p *Session) check(ctx context.Context, progress Progress) (ValidityResult, error) {
	if err := p.sendScope("push"); err != nil {
		return nil, err
	} else if err := p.send(lowerNegation(p.goals)); err != nil {
		return nil, err
	} else if err := p.send(sexp.NewApp("check-sat")); err != nil {
		return nil, err
	}
	//
	start := time.Now()
	response, err := p.syncWithProgress(ctx, progress)
	p.timeRun += time.Since(start)
	//
	if err != nil {
		return nil, err
	}
	//
	for i, line := range response {
		if strings.HasPrefix(line, "(error") {
			return &TypeError{extractError(line)}, nil
		} else if i != len(response)-1 {
			return &UnexpectedOutput{strings.Join(response, "\n")}, nil
		}
	}
	//
	switch {
	case len(response) == 0:
		return &UnexpectedOutput{"no response to check-sat"}, nil
	case response[0] == "unsat":
		return &Valid{}, nil
	case response[0] == "sat":
		return p.counterexample(ctx)
	case response[0] == "unknown":
		reason, err := p.reasonUnknown(ctx)
		if err != nil {
			return nil, err
		} else if isCanceled(reason) {
			return &Canceled{reason}, nil
		}
		// Incomplete quantifier reasoning
		return p.counterexample(ctx)
	default:
		return &UnexpectedOutput{response[0]}, nil
	}
}

// counterexample identifies the first enabled goal which the solver's model
// falsifies, and retrieves that model.
func (p *Session) counterexample(ctx context.Context) (ValidityResult, error) {
	var names []sexp.SExp
	//
	for _, g := range p.goals {
		if g.enabled {
			names = append(names, sexp.NewSymbol(g.name))
		}
	}
	//
	if err := p.send(sexp.NewApp("get-value", sexp.NewList(names...))); err != nil {
		return nil, err
	}
	//
	response, err := p.sync(ctx)
	if err != nil {
		return nil, err
	}
	//
	values, err := parseList(response)
	if err != nil {
		return &UnexpectedOutput{strings.Join(response, "\n")}, nil
	}
	//
	falsified := make(map[string]bool)
	//
	for _, e := range values.Elements {
		if pair := e.AsList(); pair != nil && pair.Len() == 2 && isFalse(pair.Get(1)) {
			falsified[pair.Head()] = true
		}
	}
	//
	for i, g := range p.goals {
		if g.enabled && falsified[g.name] {
			p.failure = i
			//
			if err := p.send(sexp.NewApp("get-model")); err != nil {
				return nil, err
			}
			//
			model, err := p.sync(ctx)
			if err != nil {
				return nil, err
			}
			//
			return &Invalid{strings.Join(model, "\n"), g.assert.Error, i}, nil
		}
	}
	//
	return &UnexpectedOutput{strings.Join(response, "\n")}, nil
}

func (p *Session) reasonUnknown(ctx context.Context) (string, error) {
	if err := p.send(sexp.NewApp("get-info", sexp.NewSymbol(":reason-unknown"))); err != nil {
		return "", err
	}
	//
	response, err := p.sync(ctx)
	if err != nil {
		return "", err
	}
	//
	if list, err := parseList(response); err == nil && list.Len() == 2 && list.Get(1).AsLiteral() != nil {
		return list.Get(1).AsLiteral().Value, nil
	}
	//
	return strings.Join(response, " "), nil
}

func (p *Session) anyEnabled() bool {
	for _, g := range p.goals {
		if g.enabled {
			return true
		}
	}
	//
	return false
}

// replay a sequence of commands into this session.
func (p *Session) replay(history []vc.Command) error {
	for _, cmd := range history {
		if err := p.Declare(cmd); err != nil {
			return err
		}
	}
	//
	return nil
}

// inherit filters out those options which are overridden.
func inherit(history []vc.Command, overrides []*vc.SetOption) []vc.Command {
	if len(overrides) == 0 {
		return history
	}
	//
	var inherited []vc.Command
	//
	for _, cmd := range history {
		if o, ok := cmd.(*vc.SetOption); ok && slices.ContainsFunc(overrides, func(x *vc.SetOption) bool {
			return x.Name == o.Name
		}) {
			continue
		}
		//
		inherited = append(inherited, cmd)
	}
	//
	return inherited
}

// reset a non-incremental session which has already run a query, so that its
// next query starts afresh.
func (p *Session) reset(ctx context.Context) error {
	if p.incremental || !p.dirty {
		return nil
	}
	//
	history := p.history
	p.history = nil
	p.rlimit = false
	p.dirty = false
	//
	if err := p.send(sexp.NewApp("reset")); err != nil {
		return err
	}
	//
	return p.replay(history)
}

// sendScope issues a push or pop, unless this session is non-incremental.
func (p *Session) sendScope(cmd string) error {
	if p.incremental {
		return p.send(sexp.NewApp(cmd))
	}
	//
	return nil
}

// send a command to the solver, mirroring it into the logs.
func (p *Session) send(cmd sexp.SExp) error {
	text := cmd.String(true)
	//
	if p.logs.Final != nil {
		fmt.Fprintln(p.logs.Final, p.formatter.Format(cmd))
	}
	//
	if p.logs.Smt != nil {
		fmt.Fprintln(p.logs.Smt, text)
	}
	//
	return p.transport.Write(text)
}

func (p *Session) sync(ctx context.Context) ([]string, error) {
	response, err := p.transport.Sync(ctx)
	//
	if p.logs.Smt != nil {
		for _, line := range response {
			fmt.Fprintf(p.logs.Smt, ";; %s\n", line)
		}
	}
	//
	return response, err
}

func (p *Session) syncWithProgress(ctx context.Context, progress Progress) ([]string, error) {
	if progress == nil {
		return p.sync(ctx)
	}
	//
	var (
		wg    sync.WaitGroup
		done  = make(chan struct{})
		start = time.Now()
	)
	//
	wg.Add(1)
	//
	go func() {
		defer wg.Done()
		//
		ticker := time.NewTicker(ProgressInterval)
		defer ticker.Stop()
		//
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				progress(time.Since(start))
			}
		}
	}()
	//
	response, err := p.sync(ctx)
	//
	close(done)
	wg.Wait()
	//
	return response, err
}

func (p *Session) logInitial(cmd vc.Command) {
	if p.logs.Initial != nil {
		fmt.Fprintln(p.logs.Initial, p.formatter.Format(cmd.Lisp()))
	}
}

func (p *Session) logInitialText(text string) {
	if p.logs.Initial != nil {
		fmt.Fprintln(p.logs.Initial, text)
	}
}

// parseList parses a response consisting of a single list, possibly spread
// over several lines.
func parseList(response []string) (*sexp.List, error) {
	terms, err := sexp.ParseString("response", strings.Join(response, "\n"))
	//
	if err != nil {
		return nil, err
	} else if len(terms) != 1 || terms[0].AsList() == nil {
		return nil, fmt.Errorf("expected list, found: %s", strings.Join(response, " "))
	}
	//
	return terms[0].AsList(), nil
}

func extractError(line string) string {
	if terms, err := sexp.ParseString("error", line); err == nil && len(terms) == 1 {
		if list := terms[0].AsList(); list != nil && list.Len() == 2 && list.Get(1).AsLiteral() != nil {
			return list.Get(1).AsLiteral().Value
		}
	}
	//
	return line
}

func isFalse(e sexp.SExp) bool {
	return e.AsSymbol() != nil && e.AsSymbol().Value == "false"
}

func isCanceled(reason string) bool {
	return strings.Contains(reason, "canceled") || strings.Contains(reason, "resource") ||
		strings.Contains(reason, "rlimit") || strings.Contains(reason, "timeout")
}

func parseRlimit(value string) uint64 {
	var rlimit uint64
	//
	if _, err := fmt.Sscanf(value, "%d", &rlimit); err != nil {
		panic(fmt.Sprintf("invalid rlimit \"%s\"", value))
	}
	//
	return rlimit
}
