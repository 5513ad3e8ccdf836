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
package obligation

import (
	"fmt"
	"os"
	"strings"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/util"
	"github.com/consensys/go-smtcheck/pkg/util/source"
	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/consensys/go-smtcheck/pkg/verifier"
	log "github.com/sirupsen/logrus"
)

// Load reads a bundle from a file.  A file which cannot be read gives an
// IOError, whilst malformed contents give one or more syntax errors.
func Load(path string) (*Bundle, []source.SyntaxError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &util.IOError{Path: path, Err: err}
	}
	//
	bundle, errs := Parse(source.NewSourceFile(path, data))
	//
	return bundle, errs, nil
}

// Parse a bundle from a source file.  A bundle consists of the following
// top-level forms, in any order:
//
//	(prelude cmd...)
//	(context name cmd...)
//	(module name)
//	(function name :module m [:spinoff] [:check-recommends] [:mode m] [:calls (f...)] section...)
//	(qid name "span")
//
// where the sections of a function are (decl cmd...), (spec cmd...), (axiom
// cmd...), (termination q), (spec-check q...), (body q...), (recommends q...)
// and (expand q...).  Each check is given as:
//
//	(query :desc "..." [:prover p] [:skip-recommends] [:span "..."] cmd...)
func Parse(file *source.File) (*Bundle, []source.SyntaxError) {
	terms, srcmap, serr := sexp.ParseAll(file)
	if serr != nil {
		return nil, []source.SyntaxError{*serr}
	}
	//
	p := &parser{
		vc:      vc.NewParser(srcmap),
		entries: make(map[string]*entry),
		spans:   make(map[string]string),
	}
	//
	for _, term := range terms {
		p.errors = append(p.errors, p.topLevel(term)...)
	}
	//
	if len(p.errors) > 0 {
		return nil, p.errors
	}
	//
	program, err := plan.NewProgram(p.modules, p.functions)
	if err != nil {
		return nil, p.vc.SyntaxErrors(terms[0], err.Error())
	}
	//
	log.Debugf("loaded %d functions in %d modules from %s", len(p.functions), len(p.modules), file.Filename())
	//
	return &Bundle{
		program:  program,
		prelude:  p.prelude,
		contexts: p.contexts,
		entries:  p.entries,
		metadata: check.NewMetadata(p.spans),
	}, nil
}

type parser struct {
	vc        *vc.Parser
	prelude   []vc.Command
	contexts  []verifier.Section
	modules   []string
	functions []*plan.Function
	entries   map[string]*entry
	spans     map[string]string
	errors    []source.SyntaxError
}

func (p *parser) topLevel(term sexp.SExp) []source.SyntaxError {
	l := term.AsList()
	//
	switch {
	case l == nil:
		return p.vc.SyntaxErrors(term, "expected declaration")
	case l.MatchSymbols(1, "prelude"):
		cmds, errs := p.commands(l.Elements[1:])
		p.prelude = append(p.prelude, cmds...)
		//
		return errs
	case l.MatchSymbols(2, "context"):
		cmds, errs := p.commands(l.Elements[2:])
		p.contexts = append(p.contexts, verifier.Section{Comment: l.Get(1).String(false), Commands: cmds})
		//
		return errs
	case l.MatchSymbols(2, "module") && l.Len() == 2:
		p.modules = append(p.modules, l.Get(1).String(false))
		return nil
	case l.MatchSymbols(2, "qid") && l.Len() == 3 && l.Get(2).AsLiteral() != nil:
		p.spans[l.Get(1).String(false)] = l.Get(2).AsLiteral().Value
		return nil
	case l.MatchSymbols(2, "function"):
		return p.function(l)
	default:
		return p.vc.SyntaxErrors(term, "unknown declaration")
	}
}

func (p *parser) function(l *sexp.List) []source.SyntaxError {
	var (
		fn     = &plan.Function{Name: l.Get(1).String(false), Mode: plan.Exec}
		e      = &entry{}
		errors []source.SyntaxError
	)
	//
	attributes, rest, errs := p.attributes(l.Elements[2:], "spinoff", "check-recommends")
	if len(errs) > 0 {
		return errs
	}
	//
	for key, value := range attributes {
		switch key {
		case "module":
			fn.Module = value.String(false)
		case "spinoff":
			fn.Spinoff = true
		case "check-recommends":
			fn.CheckRecommends = true
		case "mode":
			mode, err := plan.ParseMode(value.String(false))
			if err != nil {
				errors = append(errors, p.vc.SyntaxErrors(value, err.Error())...)
			}
			//
			fn.Mode = mode
		case "calls":
			calls := value.AsList()
			if calls == nil {
				errors = append(errors, p.vc.SyntaxErrors(value, "expected list of functions")...)
				continue
			}
			//
			for _, c := range calls.Elements {
				fn.Calls = append(fn.Calls, c.String(false))
			}
		default:
			errors = append(errors, p.vc.SyntaxErrors(l, "unknown attribute :"+key)...)
		}
	}
	//
	if fn.Module == "" {
		errors = append(errors, p.vc.SyntaxErrors(l, "missing :module")...)
	}
	//
	for _, s := range rest {
		errors = append(errors, p.section(e, s)...)
	}
	//
	if _, ok := p.entries[fn.Name]; ok {
		errors = append(errors, p.vc.SyntaxErrors(l, "duplicate function "+fn.Name)...)
	}
	//
	p.functions = append(p.functions, fn)
	p.entries[fn.Name] = e
	//
	return errors
}

func (p *parser) section(e *entry, s sexp.SExp) []source.SyntaxError {
	var (
		l    = s.AsList()
		errs []source.SyntaxError
	)
	//
	if l == nil || l.Len() == 0 || l.Get(0).AsSymbol() == nil {
		return p.vc.SyntaxErrors(s, "expected section")
	}
	//
	contents := l.Elements[1:]
	//
	switch l.Head() {
	case "decl":
		e.decl, errs = p.commands(contents)
	case "spec":
		e.specs, errs = p.commands(contents)
	case "axiom":
		e.axioms, errs = p.commands(contents)
	case "termination":
		var queries []*vc.CommandsWithContext
		//
		if queries, errs = p.queries(contents); len(queries) != 1 && len(errs) == 0 {
			return p.vc.SyntaxErrors(s, "expected exactly one termination check")
		} else if len(errs) == 0 {
			e.termination = queries[0]
		}
	case "spec-check":
		e.specChecks, errs = p.queries(contents)
	case "body":
		e.body, errs = p.queries(contents)
	case "recommends":
		e.recommends, errs = p.queries(contents)
	case "expand":
		e.expand, errs = p.queries(contents)
		//
		for _, q := range e.expand {
			markSplit(q)
		}
	default:
		return p.vc.SyntaxErrors(s, "unknown section")
	}
	//
	return errs
}

func (p *parser) queries(terms []sexp.SExp) ([]*vc.CommandsWithContext, []source.SyntaxError) {
	var (
		queries []*vc.CommandsWithContext
		errors  []source.SyntaxError
	)
	//
	for _, t := range terms {
		q, errs := p.query(t)
		if len(errs) > 0 {
			errors = append(errors, errs...)
			continue
		}
		//
		queries = append(queries, q)
	}
	//
	return queries, errors
}

func (p *parser) query(term sexp.SExp) (*vc.CommandsWithContext, []source.SyntaxError) {
	l := term.AsList()
	//
	if l == nil || !l.MatchSymbols(1, "query") {
		return nil, p.vc.SyntaxErrors(term, "expected query")
	}
	//
	attributes, rest, errs := p.attributes(l.Elements[1:], "skip-recommends")
	if len(errs) > 0 {
		return nil, errs
	}
	//
	var (
		q      = &vc.CommandsWithContext{Desc: "query"}
		errors []source.SyntaxError
	)
	//
	for key, value := range attributes {
		switch key {
		case "desc":
			q.Desc = literal(value)
		case "span":
			q.Span = literal(value)
		case "prover":
			prover, err := vc.ParseProver(value.String(false))
			if err != nil {
				errors = append(errors, p.vc.SyntaxErrors(value, err.Error())...)
			}
			//
			q.Prover = prover
		case "skip-recommends":
			q.SkipRecommends = true
		default:
			errors = append(errors, p.vc.SyntaxErrors(l, "unknown attribute :"+key)...)
		}
	}
	//
	q.Commands, errs = p.commands(rest)
	//
	return q, append(errors, errs...)
}

func (p *parser) commands(terms []sexp.SExp) ([]vc.Command, []source.SyntaxError) {
	var (
		commands []vc.Command
		errors   []source.SyntaxError
	)
	//
	for _, t := range terms {
		cmd, errs := p.vc.Command(t)
		if len(errs) > 0 {
			errors = append(errors, errs...)
			continue
		}
		//
		commands = append(commands, cmd)
	}
	//
	return commands, errors
}

// attributes splits a sequence of terms into leading keyword attributes and
// whatever follows.  Flags are keywords without a value.
func (p *parser) attributes(terms []sexp.SExp, flags ...string) (map[string]sexp.SExp, []sexp.SExp,
	[]source.SyntaxError) {
	attributes := make(map[string]sexp.SExp)
	//
	for len(terms) > 0 {
		symbol := terms[0].AsSymbol()
		//
		if symbol == nil || !strings.HasPrefix(symbol.Value, ":") {
			break
		}
		//
		key := symbol.Value[1:]
		//
		if isFlag(key, flags) {
			attributes[key] = symbol
			terms = terms[1:]
		} else if len(terms) < 2 {
			return nil, nil, p.vc.SyntaxErrors(symbol, "missing value for :"+key)
		} else {
			attributes[key] = terms[1]
			terms = terms[2:]
		}
	}
	//
	return attributes, terms, nil
}

// ============================================================================
// Helpers
// ============================================================================

func isFlag(key string, flags []string) bool {
	for _, f := range flags {
		if f == key {
			return true
		}
	}
	//
	return false
}

func literal(s sexp.SExp) string {
	if l := s.AsLiteral(); l != nil {
		return l.Value
	}
	//
	return s.String(false)
}

// markSplit marks the assertions of expanded checks, so their failures are
// reported when expanding errors.
func markSplit(q *vc.CommandsWithContext) {
	for i, cmd := range q.Commands {
		if c, ok := cmd.(*vc.CheckValid); ok {
			query := *c.Query
			query.Assertion = splitStmt(query.Assertion, q)
			q.Commands[i] = &vc.CheckValid{Query: &query}
		}
	}
}

func splitStmt(stmt vc.Stmt, q *vc.CommandsWithContext) vc.Stmt {
	switch s := stmt.(type) {
	case *vc.Assume:
		return s
	case *vc.Assert:
		msg := s.Error
		//
		if msg == nil {
			msg = report.NewError(q.Desc+" failed", q.Span)
		}
		//
		split := *msg
		split.Split = true
		//
		return &vc.Assert{Error: &split, Expr: s.Expr}
	case *vc.Block:
		stmts := make([]vc.Stmt, len(s.Stmts))
		//
		for i, st := range s.Stmts {
			stmts[i] = splitStmt(st, q)
		}
		//
		return &vc.Block{Stmts: stmts}
	default:
		panic(fmt.Sprintf("unknown statement %T", stmt))
	}
}
