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
	"math/big"

	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
)

// Expr represents an assertion expression.  Expressions form immutable trees
// which can be freely shared between commands.  No transformation ever updates
// a node in place; instead, a new tree is constructed (which may share
// unchanged subtrees with the original).
type Expr interface {
	// Lisp converts this expression into an SMT-LIB term.
	Lisp() sexp.SExp
	// Prevent types outside this package implementing Expr.
	isExpr()
}

// Sort is an SMT-LIB sort, such as Int or (Array Int Bool).
type Sort = sexp.SExp

// Param is a typed formal parameter introduced by a binder.
type Param struct {
	Name string
	Sort Sort
}

// NewParam constructs a parameter with a simple (symbolic) sort.
func NewParam(name string, sort string) Param {
	return Param{name, sexp.NewSymbol(sort)}
}

// ============================================================================
// Var
// ============================================================================

// Var is a reference to a variable or nullary constant.
type Var struct {
	Name string
}

// NewVar constructs a variable reference.
func NewVar(name string) *Var { return &Var{name} }

func (p *Var) isExpr() {}

// ============================================================================
// Const
// ============================================================================

// Const is either a boolean or an integer literal.  Integer literals have a
// non-nil Int field.
type Const struct {
	Bool bool
	Int  *big.Int
}

// NewBool constructs a boolean literal.
func NewBool(value bool) *Const { return &Const{Bool: value} }

// NewInt constructs an integer literal.
func NewInt(value int64) *Const { return &Const{Int: big.NewInt(value)} }

// IsBool checks whether this is a boolean literal.
func (p *Const) IsBool() bool { return p.Int == nil }

func (p *Const) isExpr() {}

// ============================================================================
// Apply
// ============================================================================

// Apply is the application of an uninterpreted (or theory) function to zero or
// more arguments.
type Apply struct {
	Fun  string
	Args []Expr
}

// NewApply constructs a function application.
func NewApply(fun string, args ...Expr) *Apply { return &Apply{fun, args} }

func (p *Apply) isExpr() {}

// ============================================================================
// Unary
// ============================================================================

// UnaryOp identifies a unary operator.
type UnaryOp uint8

const (
	// Not is logical negation.
	Not UnaryOp = iota
	// BitNot is bitwise negation of a bitvector.
	BitNot
)

// Unary is the application of a unary operator.
type Unary struct {
	Op  UnaryOp
	Arg Expr
}

// NewNot constructs a logical negation.
func NewNot(arg Expr) *Unary { return &Unary{Not, arg} }

func (p *Unary) isExpr() {}

// ============================================================================
// Binary
// ============================================================================

// BinaryOp identifies a binary operator.
type BinaryOp uint8

const (
	// Implies is logical implication.
	Implies BinaryOp = iota
	// Eq is equality.
	Eq
	// Le is less-than-or-equals.
	Le
	// Lt is less-than.
	Lt
	// Ge is greater-than-or-equals.
	Ge
	// Gt is greater-than.
	Gt
	// EuclideanDiv is integer division.
	EuclideanDiv
	// EuclideanMod is integer remainder.
	EuclideanMod
)

// Binary is the application of a binary operator.
type Binary struct {
	Op  BinaryOp
	Lhs Expr
	Rhs Expr
}

// NewImplies constructs an implication.
func NewImplies(lhs Expr, rhs Expr) *Binary { return &Binary{Implies, lhs, rhs} }

// NewEq constructs an equality.
func NewEq(lhs Expr, rhs Expr) *Binary { return &Binary{Eq, lhs, rhs} }

func (p *Binary) isExpr() {}

// ============================================================================
// Multi
// ============================================================================

// MultiOp identifies an n-ary operator.
type MultiOp uint8

const (
	// And is conjunction.
	And MultiOp = iota
	// Or is disjunction.
	Or
	// Xor is exclusive or.
	Xor
	// Add is integer addition.
	Add
	// Sub is integer subtraction.
	Sub
	// Mul is integer multiplication.
	Mul
	// Distinct holds when all arguments are pairwise different.
	Distinct
)

// Multi is the application of an n-ary operator.
type Multi struct {
	Op   MultiOp
	Args []Expr
}

// NewAnd constructs a conjunction.
func NewAnd(args ...Expr) *Multi { return &Multi{And, args} }

// NewOr constructs a disjunction.
func NewOr(args ...Expr) *Multi { return &Multi{Or, args} }

func (p *Multi) isExpr() {}

// ============================================================================
// IfElse
// ============================================================================

// IfElse is a conditional expression.
type IfElse struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (p *IfElse) isExpr() {}

// ============================================================================
// Bind
// ============================================================================

// Binder introduces names which are in scope for the body of a Bind.
type Binder interface {
	// Names returns the names bound by this binder.
	Names() []string
	// Prevent types outside this package implementing Binder.
	isBinder()
}

// Bind is an expression whose body is evaluated under a binder.
type Bind struct {
	Binder Binder
	Body   Expr
}

// NewBind constructs a binding expression.
func NewBind(binder Binder, body Expr) *Bind { return &Bind{binder, body} }

func (p *Bind) isExpr() {}

// Binding associates a let-bound name with its value.
type Binding struct {
	Name  string
	Value Expr
}

// Let binds names to values.  Values are evaluated outside the scope of the
// binder.
type Let struct {
	Bindings []Binding
}

// Names returns the let-bound names.
func (p *Let) Names() []string {
	names := make([]string, len(p.Bindings))
	//
	for i, b := range p.Bindings {
		names[i] = b.Name
	}
	//
	return names
}

func (p *Let) isBinder() {}

// Lambda introduces an anonymous function.
type Lambda struct {
	Params []Param
}

// Names returns the lambda parameter names.
func (p *Lambda) Names() []string { return paramNames(p.Params) }

func (p *Lambda) isBinder() {}

// Choose binds some values satisfying a condition.  The condition is within
// the scope of the chosen names.
type Choose struct {
	Params   []Param
	Triggers [][]Expr
	Qid      string
	Cond     Expr
}

// Names returns the chosen names.
func (p *Choose) Names() []string { return paramNames(p.Params) }

func (p *Choose) isBinder() {}

// QuantKind distinguishes universal from existential quantification.
type QuantKind uint8

const (
	// Forall is universal quantification.
	Forall QuantKind = iota
	// Exists is existential quantification.
	Exists
)

// Quant is a universal or existential quantifier.  Triggers are the patterns
// which the solver uses to instantiate the quantifier, and the (optional) QID
// identifies it in instantiation traces.  An empty QID means none was given.
type Quant struct {
	Kind     QuantKind
	Params   []Param
	Triggers [][]Expr
	Qid      string
}

// NewForall constructs a universally quantified expression.
func NewForall(params []Param, triggers [][]Expr, qid string, body Expr) *Bind {
	return &Bind{&Quant{Forall, params, triggers, qid}, body}
}

// Names returns the quantified names.
func (p *Quant) Names() []string { return paramNames(p.Params) }

func (p *Quant) isBinder() {}

func paramNames(params []Param) []string {
	names := make([]string, len(params))
	//
	for i, p := range params {
		names[i] = p.Name
	}
	//
	return names
}
