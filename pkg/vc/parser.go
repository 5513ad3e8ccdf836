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
package vc

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/util/source"
	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
)

// Parser translates S-Expressions into commands, statements and expressions.
// Expression syntax follows SMT-LIB, extended with a choose binder.  Commands
// follow SMT-LIB as well, except for axioms and checks:
//
//	(axiom e [:named n])
//	(check-valid [(local decl...)] stmt)
//
// where statements are (assume e), (assert ["note" ["span"]] e) or
// (block stmt...).
type Parser struct {
	translator *sexp.Translator[Expr]
}

// NewParser constructs a parser for S-Expressions drawn from a given source
// map.
func NewParser(srcmap *source.Map[sexp.SExp]) *Parser {
	p := &Parser{sexp.NewTranslator[Expr](srcmap)}
	//
	p.translator.AddSymbolRule(constantRule)
	p.translator.AddSymbolRule(varRule)
	//
	for i, name := range unaryNames {
		p.translator.AddRecursiveListRule(name, unaryRule(UnaryOp(i)))
	}
	//
	for i, name := range binaryNames {
		p.translator.AddRecursiveListRule(name, binaryRule(BinaryOp(i)))
	}
	//
	for i, name := range multiNames {
		p.translator.AddRecursiveListRule(name, multiRule(MultiOp(i)))
	}
	//
	p.translator.AddRecursiveListRule("ite", iteRule)
	p.translator.AddListRule("let", p.parseLet)
	p.translator.AddListRule("forall", p.quantRule(Forall))
	p.translator.AddListRule("exists", p.quantRule(Exists))
	p.translator.AddListRule("lambda", p.parseLambda)
	p.translator.AddListRule("choose", p.parseChoose)
	p.translator.AddDefaultListRule(p.parseApply)
	//
	return p
}

// ParseCommands parses a complete string of commands.  This is primarily
// useful for testing.
func ParseCommands(name string, text string) ([]Command, error) {
	terms, srcmap, serr := sexp.ParseAll(source.NewSourceFile(name, []byte(text)))
	if serr != nil {
		return nil, serr
	}
	//
	var (
		parser   = NewParser(srcmap)
		commands = make([]Command, len(terms))
	)
	//
	for i, term := range terms {
		cmd, errs := parser.Command(term)
		if len(errs) > 0 {
			return nil, &errs[0]
		}
		//
		commands[i] = cmd
	}
	//
	return commands, nil
}

// ParseExpr parses a single expression from a string.
func ParseExpr(text string) (Expr, error) {
	term, srcmap, serr := sexp.Parse(source.NewSourceFile("expr", []byte(text)))
	if serr != nil {
		return nil, serr
	}
	//
	e, errs := NewParser(srcmap).Expr(term)
	if len(errs) > 0 {
		return nil, &errs[0]
	}
	//
	return e, nil
}

// Expr parses an expression.
func (p *Parser) Expr(s sexp.SExp) (Expr, []source.SyntaxError) {
	return p.translator.Translate(s)
}

// Exprs parses zero or more expressions.
func (p *Parser) Exprs(terms []sexp.SExp) ([]Expr, []source.SyntaxError) {
	var (
		exprs  = make([]Expr, len(terms))
		errors []source.SyntaxError
	)
	//
	for i, t := range terms {
		var errs []source.SyntaxError
		exprs[i], errs = p.Expr(t)
		errors = append(errors, errs...)
	}
	//
	return exprs, errors
}

// SyntaxErrors constructs an error for a given term.
func (p *Parser) SyntaxErrors(s sexp.SExp, msg string) []source.SyntaxError {
	return p.translator.SyntaxErrors(s, msg)
}

// Command parses a command.
func (p *Parser) Command(s sexp.SExp) (Command, []source.SyntaxError) {
	l := s.AsList()
	//
	switch {
	case l == nil:
		return nil, p.SyntaxErrors(s, "expected command")
	case l.MatchSymbols(3, "set-option") && l.Len() == 3:
		name := l.Get(1).AsSymbol()
		value := l.Get(2).AsSymbol()
		//
		if name == nil || value == nil || !strings.HasPrefix(name.Value, ":") {
			return nil, p.SyntaxErrors(l, "malformed option")
		}
		//
		return &SetOption{name.Value[1:], value.Value}, nil
	case l.MatchSymbols(1, "get-unsat-core") && l.Len() == 1:
		return &GetUnsatCore{}, nil
	case l.MatchSymbols(2, "check-valid"):
		query, errs := p.parseQuery(l)
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &CheckValid{query}, nil
	}
	//
	decl, errs := p.Decl(s)
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Declare{decl}, nil
}

func (p *Parser) parseQuery(l *sexp.List) (*Query, []source.SyntaxError) {
	var (
		local  []Decl
		errors []source.SyntaxError
		rest   = l.Elements[1:]
	)
	//
	if first := rest[0].AsList(); first != nil && first.MatchSymbols(1, "local") {
		for _, d := range first.Elements[1:] {
			decl, errs := p.Decl(d)
			errors = append(errors, errs...)
			local = append(local, decl)
		}
		//
		rest = rest[1:]
	}
	//
	if len(rest) != 1 {
		return nil, append(errors, p.SyntaxErrors(l, "expected exactly one statement")...)
	}
	//
	stmt, errs := p.Stmt(rest[0])
	if errors = append(errors, errs...); len(errors) > 0 {
		return nil, errors
	}
	//
	return &Query{local, stmt}, nil
}

// Decl parses a declaration.
func (p *Parser) Decl(s sexp.SExp) (Decl, []source.SyntaxError) {
	l := s.AsList()
	//
	switch {
	case l == nil:
		return nil, p.SyntaxErrors(s, "expected declaration")
	case l.MatchSymbols(2, "declare-sort") && (l.Len() == 2 || l.Len() == 3):
		name := l.Get(1).AsSymbol()
		//
		if name == nil || (l.Len() == 3 && l.Get(2).String(false) != "0") {
			return nil, p.SyntaxErrors(l, "malformed sort declaration")
		}
		//
		return &DeclareSort{name.Value}, nil
	case l.MatchSymbols(2, "declare-fun") && l.Len() == 4:
		name := l.Get(1).AsSymbol()
		params := l.Get(2).AsList()
		//
		if name == nil || params == nil {
			return nil, p.SyntaxErrors(l, "malformed function declaration")
		}
		//
		return &DeclareFun{name.Value, params.Elements, l.Get(3)}, nil
	case l.MatchSymbols(2, "declare-const") && l.Len() == 3:
		if name := l.Get(1).AsSymbol(); name != nil {
			return &DeclareConst{name.Value, l.Get(2)}, nil
		}
		//
		return nil, p.SyntaxErrors(l, "malformed constant declaration")
	case l.MatchSymbols(2, "axiom") && (l.Len() == 2 || l.Len() == 4):
		var name string
		//
		if l.Len() == 4 {
			if l.Get(2).String(false) != ":named" || l.Get(3).AsSymbol() == nil {
				return nil, p.SyntaxErrors(l, "malformed axiom")
			}
			//
			name = l.Get(3).AsSymbol().Value
		}
		//
		e, errs := p.Expr(l.Get(1))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &Axiom{e, name}, nil
	default:
		return nil, p.SyntaxErrors(l, "unknown declaration")
	}
}

// Stmt parses a statement.
func (p *Parser) Stmt(s sexp.SExp) (Stmt, []source.SyntaxError) {
	l := s.AsList()
	//
	switch {
	case l == nil:
		return nil, p.SyntaxErrors(s, "expected statement")
	case l.MatchSymbols(2, "assume") && l.Len() == 2:
		e, errs := p.Expr(l.Get(1))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &Assume{e}, nil
	case l.MatchSymbols(2, "assert") && l.Len() <= 4:
		return p.parseAssert(l)
	case l.MatchSymbols(1, "block"):
		var (
			stmts  = make([]Stmt, l.Len()-1)
			errors []source.SyntaxError
		)
		//
		for i, e := range l.Elements[1:] {
			var errs []source.SyntaxError
			stmts[i], errs = p.Stmt(e)
			errors = append(errors, errs...)
		}
		//
		if len(errors) > 0 {
			return nil, errors
		}
		//
		return &Block{stmts}, nil
	default:
		return nil, p.SyntaxErrors(l, "unknown statement")
	}
}

// Parse an assertion with an optional error note and span.
func (p *Parser) parseAssert(l *sexp.List) (Stmt, []source.SyntaxError) {
	var (
		n   = l.Len()
		msg *report.Message
	)
	//
	if n >= 3 {
		note := l.Get(1).AsLiteral()
		if note == nil {
			return nil, p.SyntaxErrors(l.Get(1), "expected error note")
		}
		//
		msg = report.NewError(note.Value)
	}
	//
	if n == 4 {
		span := l.Get(2).AsLiteral()
		if span == nil {
			return nil, p.SyntaxErrors(l.Get(2), "expected error span")
		}
		//
		msg.Spans = []string{span.Value}
	}
	//
	e, errs := p.Expr(l.Get(n - 1))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Assert{msg, e}, nil
}

// Params parses a list of typed parameters, such as ((x Int) (y Bool)).
func (p *Parser) Params(s sexp.SExp) ([]Param, []source.SyntaxError) {
	l := s.AsList()
	if l == nil {
		return nil, p.SyntaxErrors(s, "expected parameter list")
	}
	//
	params := make([]Param, l.Len())
	//
	for i, e := range l.Elements {
		ith := e.AsList()
		//
		if ith == nil || ith.Len() != 2 || ith.Get(0).AsSymbol() == nil {
			return nil, p.SyntaxErrors(e, "malformed parameter")
		}
		//
		params[i] = Param{ith.Get(0).AsSymbol().Value, ith.Get(1)}
	}
	//
	return params, nil
}

// ============================================================================
// Expression rules
// ============================================================================

func constantRule(symbol string) (Expr, bool, error) {
	switch {
	case symbol == "true" || symbol == "false":
		return NewBool(symbol == "true"), true, nil
	case len(symbol) > 0 && unicode.IsDigit(rune(symbol[0])):
		var value big.Int
		//
		if _, ok := value.SetString(symbol, 10); !ok {
			return nil, true, fmt.Errorf("invalid numeral \"%s\"", symbol)
		}
		//
		return &Const{Int: &value}, true, nil
	}
	//
	return nil, false, nil
}

func varRule(symbol string) (Expr, bool, error) {
	return NewVar(symbol), true, nil
}

func unaryRule(op UnaryOp) sexp.RecursiveRule[Expr] {
	return func(name string, args []Expr) (Expr, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s expects one argument", name)
		}
		//
		return &Unary{op, args[0]}, nil
	}
}

func binaryRule(op BinaryOp) sexp.RecursiveRule[Expr] {
	return func(name string, args []Expr) (Expr, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s expects two arguments", name)
		}
		//
		return &Binary{op, args[0], args[1]}, nil
	}
}

func multiRule(op MultiOp) sexp.RecursiveRule[Expr] {
	return func(name string, args []Expr) (Expr, error) {
		// Negative literals are written (- n)
		if c, ok := args0(args).(*Const); op == Sub && len(args) == 1 && ok && !c.IsBool() {
			return &Const{Int: new(big.Int).Neg(c.Int)}, nil
		}
		//
		return &Multi{op, args}, nil
	}
}

func args0(args []Expr) Expr {
	if len(args) == 0 {
		return nil
	}
	//
	return args[0]
}

func iteRule(name string, args []Expr) (Expr, error) {
	if len(args) != 3 {
		return nil, errors.New("ite expects three arguments")
	}
	//
	return &IfElse{args[0], args[1], args[2]}, nil
}

func (p *Parser) parseApply(l *sexp.List) (Expr, []source.SyntaxError) {
	if l.Head() == "" {
		return nil, p.SyntaxErrors(l, "invalid application")
	}
	//
	args, errs := p.Exprs(l.Elements[1:])
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Apply{l.Head(), args}, nil
}

func (p *Parser) parseLet(l *sexp.List) (Expr, []source.SyntaxError) {
	var bindings []Binding
	//
	if l.Len() != 3 || l.Get(1).AsList() == nil {
		return nil, p.SyntaxErrors(l, "malformed let")
	}
	//
	for _, b := range l.Get(1).AsList().Elements {
		ith := b.AsList()
		//
		if ith == nil || ith.Len() != 2 || ith.Get(0).AsSymbol() == nil {
			return nil, p.SyntaxErrors(b, "malformed binding")
		}
		//
		value, errs := p.Expr(ith.Get(1))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		bindings = append(bindings, Binding{ith.Get(0).AsSymbol().Value, value})
	}
	//
	body, errs := p.Expr(l.Get(2))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Bind{&Let{bindings}, body}, nil
}

func (p *Parser) parseLambda(l *sexp.List) (Expr, []source.SyntaxError) {
	if l.Len() != 3 {
		return nil, p.SyntaxErrors(l, "malformed lambda")
	}
	//
	params, errs := p.Params(l.Get(1))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	body, errs := p.Expr(l.Get(2))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Bind{&Lambda{params}, body}, nil
}

func (p *Parser) parseChoose(l *sexp.List) (Expr, []source.SyntaxError) {
	if l.Len() != 4 {
		return nil, p.SyntaxErrors(l, "malformed choose")
	}
	//
	params, errs := p.Params(l.Get(1))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	cond, triggers, qid, errs := p.parseAnnotated(l.Get(2))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	body, errs := p.Expr(l.Get(3))
	if len(errs) > 0 {
		return nil, errs
	}
	//
	return &Bind{&Choose{params, triggers, qid, cond}, body}, nil
}

func (p *Parser) quantRule(kind QuantKind) sexp.ListRule[Expr] {
	return func(l *sexp.List) (Expr, []source.SyntaxError) {
		if l.Len() != 3 {
			return nil, p.SyntaxErrors(l, "malformed quantifier")
		}
		//
		params, errs := p.Params(l.Get(1))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		body, triggers, qid, errs := p.parseAnnotated(l.Get(2))
		if len(errs) > 0 {
			return nil, errs
		}
		//
		return &Bind{&Quant{kind, params, triggers, qid}, body}, nil
	}
}

// Parse a term which may be annotated with patterns and a quantifier
// identifier, as in (! body :pattern (t1 t2) :qid q).  Any other attributes
// (e.g. :skolemid) are ignored.
func (p *Parser) parseAnnotated(s sexp.SExp) (Expr, [][]Expr, string, []source.SyntaxError) {
	var (
		triggers [][]Expr
		qid      string
		l        = s.AsList()
	)
	//
	if l == nil || !l.MatchSymbols(2, "!") {
		e, errs := p.Expr(s)
		return e, nil, "", errs
	}
	//
	body, errs := p.Expr(l.Get(1))
	if len(errs) > 0 {
		return nil, nil, "", errs
	}
	//
	for i := 2; i < l.Len(); i += 2 {
		attr := l.Get(i).AsSymbol()
		//
		if attr == nil || i+1 == l.Len() {
			return nil, nil, "", p.SyntaxErrors(l, "malformed attribute")
		}
		//
		switch value := l.Get(i + 1); attr.Value {
		case ":pattern":
			if value.AsList() == nil {
				return nil, nil, "", p.SyntaxErrors(value, "malformed pattern")
			}
			//
			trigger, errs := p.Exprs(value.AsList().Elements)
			if len(errs) > 0 {
				return nil, nil, "", errs
			}
			//
			triggers = append(triggers, trigger)
		case ":qid":
			if value.AsSymbol() == nil {
				return nil, nil, "", p.SyntaxErrors(value, "malformed qid")
			}
			//
			qid = value.AsSymbol().Value
		}
	}
	//
	return body, triggers, qid, nil
}
