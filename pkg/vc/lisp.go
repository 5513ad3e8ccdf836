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
	"fmt"
	"math/big"

	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
)

var unaryNames = []string{"not", "bvnot"}

var binaryNames = []string{"=>", "=", "<=", "<", ">=", ">", "div", "mod"}

var multiNames = []string{"and", "or", "xor", "+", "-", "*", "distinct"}

// Lisp converts a variable into a symbol.
func (p *Var) Lisp() sexp.SExp { return sexp.NewSymbol(p.Name) }

// Lisp converts a literal into a symbol, using the SMT-LIB notation for
// negative integers.
func (p *Const) Lisp() sexp.SExp {
	if p.IsBool() {
		return sexp.NewSymbol(fmt.Sprintf("%t", p.Bool))
	} else if p.Int.Sign() < 0 {
		abs := new(big.Int).Neg(p.Int)
		return sexp.NewApp("-", sexp.NewSymbol(abs.String()))
	}
	//
	return sexp.NewSymbol(p.Int.String())
}

// Lisp converts an application into a list, or a symbol when there are no
// arguments.
func (p *Apply) Lisp() sexp.SExp {
	if len(p.Args) == 0 {
		return sexp.NewSymbol(p.Fun)
	}
	//
	return sexp.NewApp(p.Fun, lispOfExprs(p.Args)...)
}

// Lisp converts a unary expression into a list.
func (p *Unary) Lisp() sexp.SExp {
	return sexp.NewApp(unaryNames[p.Op], p.Arg.Lisp())
}

// Lisp converts a binary expression into a list.
func (p *Binary) Lisp() sexp.SExp {
	return sexp.NewApp(binaryNames[p.Op], p.Lhs.Lisp(), p.Rhs.Lisp())
}

// Lisp converts an n-ary expression into a list.  Empty conjunctions and
// disjunctions become their units, since SMT-LIB does not permit them.
func (p *Multi) Lisp() sexp.SExp {
	switch {
	case len(p.Args) == 0 && p.Op == And:
		return sexp.NewSymbol("true")
	case len(p.Args) == 0 && p.Op == Or:
		return sexp.NewSymbol("false")
	case len(p.Args) == 1 && (p.Op == And || p.Op == Or):
		return p.Args[0].Lisp()
	}
	//
	return sexp.NewApp(multiNames[p.Op], lispOfExprs(p.Args)...)
}

// Lisp converts a conditional into an ite term.
func (p *IfElse) Lisp() sexp.SExp {
	return sexp.NewApp("ite", p.Cond.Lisp(), p.Then.Lisp(), p.Else.Lisp())
}

// Lisp converts a binding expression into a list.
func (p *Bind) Lisp() sexp.SExp {
	switch b := p.Binder.(type) {
	case *Let:
		bindings := make([]sexp.SExp, len(b.Bindings))
		//
		for i, binding := range b.Bindings {
			bindings[i] = sexp.NewList(sexp.NewSymbol(binding.Name), binding.Value.Lisp())
		}
		//
		return sexp.NewApp("let", sexp.NewList(bindings...), p.Body.Lisp())
	case *Lambda:
		return sexp.NewApp("lambda", lispOfParams(b.Params), p.Body.Lisp())
	case *Choose:
		cond := annotate(b.Cond.Lisp(), b.Triggers, b.Qid)
		return sexp.NewApp("choose", lispOfParams(b.Params), cond, p.Body.Lisp())
	case *Quant:
		name := "forall"
		//
		if b.Kind == Exists {
			name = "exists"
		}
		//
		return sexp.NewApp(name, lispOfParams(b.Params), annotate(p.Body.Lisp(), b.Triggers, b.Qid))
	default:
		panic(fmt.Sprintf("unknown binder %T", b))
	}
}

// Attach trigger and identifier attributes to a quantifier body.
func annotate(body sexp.SExp, triggers [][]Expr, qid string) sexp.SExp {
	if len(triggers) == 0 && qid == "" {
		return body
	}
	//
	list := sexp.NewApp("!", body)
	//
	for _, trigger := range triggers {
		list.Append(sexp.NewSymbol(":pattern"))
		list.Append(sexp.NewList(lispOfExprs(trigger)...))
	}
	//
	if qid != "" {
		list.Append(sexp.NewSymbol(":qid"))
		list.Append(sexp.NewSymbol(qid))
		list.Append(sexp.NewSymbol(":skolemid"))
		list.Append(sexp.NewSymbol("skolem_" + qid))
	}
	//
	return list
}

func lispOfParams(params []Param) sexp.SExp {
	list := sexp.EmptyList()
	//
	for _, p := range params {
		list.Append(sexp.NewList(sexp.NewSymbol(p.Name), p.Sort))
	}
	//
	return list
}

func lispOfExprs(exprs []Expr) []sexp.SExp {
	items := make([]sexp.SExp, len(exprs))
	//
	for i, e := range exprs {
		items[i] = e.Lisp()
	}
	//
	return items
}

// ============================================================================
// Statements, declarations and commands
// ============================================================================

// Lisp converts an assumption into a list.
func (p *Assume) Lisp() sexp.SExp {
	return sexp.NewApp("assume", p.Expr.Lisp())
}

// Lisp converts an assertion into a list, including its error message (if
// any) and the primary span of that message.
func (p *Assert) Lisp() sexp.SExp {
	list := sexp.NewApp("assert")
	//
	if p.Error != nil {
		list.Append(sexp.NewLiteral(p.Error.Note))
		//
		if len(p.Error.Spans) > 0 {
			list.Append(sexp.NewLiteral(p.Error.Spans[0]))
		}
	}
	//
	list.Append(p.Expr.Lisp())
	//
	return list
}

// Lisp converts a block into a list.
func (p *Block) Lisp() sexp.SExp {
	list := sexp.NewApp("block")
	//
	for _, s := range p.Stmts {
		list.Append(s.Lisp())
	}
	//
	return list
}

// Lisp converts a sort declaration into a list.
func (p *DeclareSort) Lisp() sexp.SExp {
	return sexp.NewApp("declare-sort", sexp.NewSymbol(p.Name), sexp.NewSymbol("0"))
}

// Lisp converts a function declaration into a list.
func (p *DeclareFun) Lisp() sexp.SExp {
	return sexp.NewApp("declare-fun", sexp.NewSymbol(p.Name), sexp.NewList(p.Params...), p.Result)
}

// Lisp converts a constant declaration into a list.
func (p *DeclareConst) Lisp() sexp.SExp {
	return sexp.NewApp("declare-const", sexp.NewSymbol(p.Name), p.Sort)
}

// Lisp converts an axiom into a list.
func (p *Axiom) Lisp() sexp.SExp {
	if p.Name != "" {
		return sexp.NewApp("axiom", p.Expr.Lisp(), sexp.NewSymbol(":named"), sexp.NewSymbol(p.Name))
	}
	//
	return sexp.NewApp("axiom", p.Expr.Lisp())
}

// Lisp converts an option into a list.
func (p *SetOption) Lisp() sexp.SExp {
	return sexp.NewApp("set-option", sexp.NewSymbol(":"+p.Name), sexp.NewSymbol(p.Value))
}

// Lisp converts a declaration command into a list.
func (p *Declare) Lisp() sexp.SExp { return p.Decl.Lisp() }

// Lisp converts a check into a list.
func (p *CheckValid) Lisp() sexp.SExp {
	local := sexp.NewApp("local")
	//
	for _, d := range p.Query.Local {
		local.Append(d.Lisp())
	}
	//
	return sexp.NewApp("check-valid", local, p.Query.Assertion.Lisp())
}

// Lisp converts an unsat core request into a list.
func (p *GetUnsatCore) Lisp() sexp.SExp { return sexp.NewApp("get-unsat-core") }

// NewLogFormatter returns a formatter suitable for writing commands into log
// files.
func NewLogFormatter() *sexp.Formatter {
	return sexp.NewFormatter(100,
		&sexp.HeadFormatter{Head: "check-valid", Keep: 1, Priority: 0},
		&sexp.HeadFormatter{Head: "block", Keep: 1, Priority: 0},
		&sexp.HeadFormatter{Head: "local", Keep: 1, Priority: 1},
		&sexp.HeadFormatter{Head: "forall", Keep: 2, Priority: 1},
		&sexp.HeadFormatter{Head: "exists", Keep: 2, Priority: 1},
		&sexp.HeadFormatter{Head: "=>", Keep: 2, Priority: 2},
		&sexp.HeadFormatter{Head: "and", Keep: 1, Priority: 2},
		&sexp.HeadFormatter{Head: "let", Keep: 2, Priority: 2},
	)
}
