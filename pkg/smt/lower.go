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
	"fmt"

	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
	"github.com/consensys/go-smtcheck/pkg/vc"
)

// goal is an assertion of the query currently being checked, lowered into a
// boolean constant which holds exactly when the assertion follows from its
// path condition.
type goal struct {
	name    string
	assert  *vc.Assert
	enabled bool
}

// lowerDecl converts a declaration into the corresponding SMT-LIB command.
// Axioms become assertions, carrying a name when they have one.
func lowerDecl(decl vc.Decl) sexp.SExp {
	switch d := decl.(type) {
	case *vc.DeclareSort, *vc.DeclareFun, *vc.DeclareConst:
		return d.Lisp()
	case *vc.Axiom:
		if d.Name != "" {
			named := sexp.NewApp("!", d.Expr.Lisp(), sexp.NewSymbol(":named"), sexp.NewSymbol(d.Name))
			return sexp.NewApp("assert", named)
		}
		//
		return sexp.NewApp("assert", d.Expr.Lisp())
	default:
		panic(fmt.Sprintf("unknown declaration %T", decl))
	}
}

// flatten the assertion block of a query into its goals, where each goal is
// paired with its path condition.  The path condition of an assertion
// consists of every assumption and every assertion preceding it, since later
// assertions are only checked under the hypothesis that earlier ones hold.
func flatten(stmt vc.Stmt, path []vc.Expr, asserts []*vc.Assert, conds [][]vc.Expr) ([]vc.Expr,
	[]*vc.Assert, [][]vc.Expr) {
	switch s := stmt.(type) {
	case *vc.Assume:
		return append(path, s.Expr), asserts, conds
	case *vc.Assert:
		conds = append(conds, append([]vc.Expr{}, path...))
		asserts = append(asserts, s)
		//
		return append(path, s.Expr), asserts, conds
	case *vc.Block:
		for _, c := range s.Stmts {
			path, asserts, conds = flatten(c, path, asserts, conds)
		}
		//
		return path, asserts, conds
	default:
		panic(fmt.Sprintf("unknown statement %T", stmt))
	}
}

// lowerGoal constructs the definition of a goal constant.  An empty path
// condition is written as true, so every definition has the same shape.
func lowerGoal(name string, cond []vc.Expr, assert *vc.Assert) sexp.SExp {
	body := vc.NewImplies(vc.NewAnd(cond...), assert.Expr)
	//
	return sexp.NewApp("assert", sexp.NewApp("=", sexp.NewSymbol(name), body.Lisp()))
}

// lowerNegation constructs the assertion that at least one enabled goal
// fails.
func lowerNegation(goals []goal) sexp.SExp {
	var conjuncts []vc.Expr
	//
	for _, g := range goals {
		if g.enabled {
			conjuncts = append(conjuncts, vc.NewVar(g.name))
		}
	}
	//
	return sexp.NewApp("assert", vc.NewNot(vc.NewAnd(conjuncts...)).Lisp())
}
