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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Substitute_00(t *testing.T) {
	check_Substitute(t, "(f x y)", "(f 1 y)", "x", "1")
}

func Test_Substitute_01(t *testing.T) {
	// Quantified variables shadow the mapping
	check_Substitute(t, "(and (P x) (forall ((x Int)) (P x)))", "(and (P 5) (forall ((x Int)) (P x)))", "x", "5")
}

func Test_Substitute_02(t *testing.T) {
	// Free variables under a quantifier are still replaced
	check_Substitute(t, "(forall ((y Int)) (! (=> (P y) (Q x)) :pattern ((P y)) :qid inst_1))",
		"(forall ((y Int)) (! (=> (P y) (Q (g 2))) :pattern ((P y)) :qid inst_1 :skolemid skolem_inst_1))", "x", "(g 2)")
}

func Test_Substitute_03(t *testing.T) {
	// Let values are outside the scope of the let
	check_Substitute(t, "(let ((x (+ x 1))) (< x y))", "(let ((x (+ 7 1))) (< x y))", "x", "7")
}

func Test_Substitute_04(t *testing.T) {
	check_Substitute(t, "(let ((z (+ x 1))) (< z x))", "(let ((z (+ 7 1))) (< z 7))", "x", "7")
}

func Test_Substitute_05(t *testing.T) {
	check_Substitute(t, "(lambda ((x Int)) (+ x y))", "(lambda ((x Int)) (+ x 3))", "y", "3")
	check_Substitute(t, "(lambda ((x Int)) (+ x y))", "(lambda ((x Int)) (+ x y))", "x", "3")
}

func Test_Substitute_06(t *testing.T) {
	// The condition of a choose is within its scope
	check_Substitute(t, "(choose ((x Int)) (> x y) (f x))", "(choose ((x Int)) (> x 0) (f x))", "y", "0")
	check_Substitute(t, "(choose ((x Int)) (> x y) (f x))", "(choose ((x Int)) (> x y) (f x))", "x", "0")
}

func Test_Substitute_07(t *testing.T) {
	check_Substitute(t, "(ite (not b) (- 3) (* x x))", "(ite (not b) (- 3) (* (- 2) (- 2)))", "x", "(- 2)")
}

func Test_Substitute_08(t *testing.T) {
	// The original expression is untouched
	e, err := ParseExpr("(and (P x) (exists ((y Int)) (Q x y)))")
	require.Nil(t, err)
	//
	before := e.Lisp().String(true)
	after := Substitute(map[string]Expr{"x": NewInt(1)}, e)
	//
	assert.Equal(t, before, e.Lisp().String(true))
	assert.Equal(t, "(and (P 1) (exists ((y Int)) (Q 1 y)))", after.Lisp().String(true))
}

func Test_Substitute_09(t *testing.T) {
	// Randomised check that substituted names are never left free
	rnd := rand.New(rand.NewSource(1))
	//
	for i := 0; i < 500; i++ {
		e := randomExpr(rnd, 4, nil)
		mapping := map[string]Expr{"x": NewInt(int64(i)), "y": NewApply("g", NewBool(true))}
		result := Substitute(mapping, e)
		free := FreeVars(result)
		//
		assert.False(t, free["x"] || free["y"], "%s became %s", e.Lisp().String(true), result.Lisp().String(true))
		// Variables not in the mapping are unaffected
		assert.Equal(t, FreeVars(e)["z"], free["z"])
	}
}

func Test_FreeVars_00(t *testing.T) {
	e, err := ParseExpr("(let ((a x)) (forall ((b Int)) (f a b c)))")
	require.Nil(t, err)
	assert.Equal(t, map[string]bool{"x": true, "c": true}, FreeVars(e))
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_Substitute(t *testing.T, input string, expected string, name string, value string) {
	e, err := ParseExpr(input)
	require.Nil(t, err)
	//
	v, err := ParseExpr(value)
	require.Nil(t, err)
	//
	result := Substitute(map[string]Expr{name: v}, e)
	assert.Equal(t, expected, result.Lisp().String(true))
}

var randomNames = []string{"x", "y", "z"}

// Generate a random expression over a small set of variable names.  Triggers
// only mention bound variables.
func randomExpr(rnd *rand.Rand, depth int, bound []string) Expr {
	if depth == 0 {
		if rnd.Intn(4) == 0 {
			return NewInt(int64(rnd.Intn(10)))
		}
		//
		return NewVar(randomNames[rnd.Intn(len(randomNames))])
	}
	//
	name := randomNames[rnd.Intn(len(randomNames))]
	sub := func() Expr { return randomExpr(rnd, depth-1, bound) }
	inner := func() Expr { return randomExpr(rnd, depth-1, append(bound, name)) }
	//
	switch rnd.Intn(8) {
	case 0:
		return NewApply(fmt.Sprintf("f%d", depth), sub(), sub())
	case 1:
		return &Binary{Le, sub(), sub()}
	case 2:
		return &Multi{Add, []Expr{sub(), sub(), sub()}}
	case 3:
		return &IfElse{sub(), sub(), sub()}
	case 4:
		return &Bind{&Let{[]Binding{{name, sub()}}}, inner()}
	case 5:
		trigger := []Expr{NewApply("P", NewVar(name))}
		return &Bind{&Quant{Forall, []Param{NewParam(name, "Int")}, [][]Expr{trigger}, "inst_q"}, inner()}
	case 6:
		return &Bind{&Lambda{[]Param{NewParam(name, "Int")}}, inner()}
	default:
		return &Bind{&Choose{[]Param{NewParam(name, "Int")}, nil, "", inner()}, inner()}
	}
}
