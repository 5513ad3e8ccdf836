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

	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/util/source/sexp"
)

// ============================================================================
// Statements
// ============================================================================

// Stmt is a statement within the assertion block of a query.  Assumptions
// constrain everything following them, whilst assertions are the goals to be
// proven.
type Stmt interface {
	// Lisp converts this statement into an S-Expression.
	Lisp() sexp.SExp
	// Prevent types outside this package implementing Stmt.
	isStmt()
}

// Assume introduces a fact which holds for all subsequent statements.
type Assume struct {
	Expr Expr
}

func (p *Assume) isStmt() {}

// Assert is a goal to prove, along with the message to report when it cannot
// be proven.
type Assert struct {
	Error *report.Message
	Expr  Expr
}

func (p *Assert) isStmt() {}

// Block is a sequence of statements.
type Block struct {
	Stmts []Stmt
}

func (p *Block) isStmt() {}

// ============================================================================
// Declarations
// ============================================================================

// Decl is a declaration which can be issued globally (i.e. shared by all
// queries in a session) or locally within a single query.
type Decl interface {
	// Lisp converts this declaration into an S-Expression.
	Lisp() sexp.SExp
	// Prevent types outside this package implementing Decl.
	isDecl()
}

// DeclareSort declares an uninterpreted sort.
type DeclareSort struct {
	Name string
}

func (p *DeclareSort) isDecl() {}

// DeclareFun declares an uninterpreted function.
type DeclareFun struct {
	Name   string
	Params []Sort
	Result Sort
}

func (p *DeclareFun) isDecl() {}

// DeclareConst declares an uninterpreted constant.
type DeclareConst struct {
	Name string
	Sort Sort
}

func (p *DeclareConst) isDecl() {}

// Axiom asserts a fact.  Named axioms can appear in unsat cores.
type Axiom struct {
	Expr Expr
	Name string
}

func (p *Axiom) isDecl() {}

// ============================================================================
// Commands
// ============================================================================

// Command is a single instruction for a solver session.
type Command interface {
	// Lisp converts this command into an S-Expression.
	Lisp() sexp.SExp
	// Prevent types outside this package implementing Command.
	isCommand()
}

// SetOption sets a solver option.
type SetOption struct {
	Name  string
	Value string
}

func (p *SetOption) isCommand() {}

// Declare issues a declaration.
type Declare struct {
	Decl Decl
}

func (p *Declare) isCommand() {}

// CheckValid checks that every assertion of a query holds.
type CheckValid struct {
	Query *Query
}

func (p *CheckValid) isCommand() {}

// GetUnsatCore requests the names of the facts used in the last unsat result.
type GetUnsatCore struct{}

func (p *GetUnsatCore) isCommand() {}

// Query is a block of statements to check, along with declarations local to
// that check.
type Query struct {
	Local     []Decl
	Assertion Stmt
}

// ============================================================================
// Commands with context
// ============================================================================

// Prover selects the decision procedure used for a group of commands.
type Prover uint8

const (
	// Default runs commands in the main session.
	Default Prover = iota
	// Nonlinear runs commands in a spin-off session with nonlinear arithmetic
	// enabled.
	Nonlinear
	// BitVector runs commands in a non-incremental spin-off session.
	BitVector
	// Singular runs commands with an external Groebner basis engine.
	Singular
)

var proverNames = []string{"default", "nonlinear", "bitvector", "singular"}

func (p Prover) String() string {
	return proverNames[p]
}

// ParseProver converts a prover name into a prover choice.
func ParseProver(name string) (Prover, error) {
	for i, n := range proverNames {
		if n == name {
			return Prover(i), nil
		}
	}
	//
	return Default, fmt.Errorf("unknown prover \"%s\"", name)
}

// CommandsWithContext is a group of commands generated for one source-level
// purpose (e.g. checking a function body), along with how they should be
// run.
type CommandsWithContext struct {
	// Source location the commands originate from.
	Span string
	// Human readable description (e.g. "function body check").
	Desc string
	// Commands to run, in order.
	Commands []Command
	// Decision procedure to run the commands with.
	Prover Prover
	// Indicates these commands are not run when rechecking with recommends.
	SkipRecommends bool
}

// Queries returns the check-valid commands in this group.
func (p *CommandsWithContext) Queries() []*Query {
	var queries []*Query
	//
	for _, cmd := range p.Commands {
		if c, ok := cmd.(*CheckValid); ok {
			queries = append(queries, c.Query)
		}
	}
	//
	return queries
}

// ============================================================================
// Instantiations
// ============================================================================

// Instantiation is a ground instance of a tracked quantifier observed in a
// solver trace.  Index is unique within a run and determines the name under
// which the instance is asserted (see InstanceName).
type Instantiation struct {
	Index int
	Qid   string
	Terms []Expr
	Used  bool
}

// InstanceName returns the name of the axiom asserting a given instance.
func InstanceName(index int) string {
	return fmt.Sprintf("named-instance-%d", index)
}

// Table maps quantifier identifiers to their instantiations.
type Table map[string][]*Instantiation
