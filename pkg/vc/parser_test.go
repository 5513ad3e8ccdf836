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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parser_00(t *testing.T) {
	check_Commands(t, "(declare-sort Node 0)", "(declare-fun f (Int Node) Bool)", "(declare-const c Int)",
		"(axiom (> c 0))", "(axiom (< c 10) :named bound)", "(set-option :rlimit 100)", "(get-unsat-core)")
}

func Test_Parser_01(t *testing.T) {
	check_Commands(t,
		`(check-valid (local (declare-const x Int)) (block (assume (> x 0)) (assert "postcondition not satisfied" "lib.rs:3:5" (> x (- 1)))))`)
}

func Test_Parser_02(t *testing.T) {
	check_Commands(t, "(check-valid (local) (assert (= (div 7 2) (mod 7 4))))")
}

func Test_Parser_03(t *testing.T) {
	commands, err := ParseCommands("test", `(check-valid (block (assert "a failed" (P 1)) (assert (Q 2))))`)
	require.Nil(t, err)
	//
	query := commands[0].(*CheckValid).Query
	block := query.Assertion.(*Block)
	//
	require.Len(t, block.Stmts, 2)
	assert.Equal(t, "a failed", block.Stmts[0].(*Assert).Error.Note)
	assert.Nil(t, block.Stmts[1].(*Assert).Error)
}

func Test_Parser_04(t *testing.T) {
	e, err := ParseExpr("(forall ((x Int) (y Int)) (! (=> (P x) (Q y)) :pattern ((P x) (Q y)) :qid inst_pq :skolemid s))")
	require.Nil(t, err)
	//
	bind := e.(*Bind)
	quant := bind.Binder.(*Quant)
	//
	assert.Equal(t, Forall, quant.Kind)
	assert.Equal(t, "inst_pq", quant.Qid)
	assert.Equal(t, []string{"x", "y"}, quant.Names())
	require.Len(t, quant.Triggers, 1)
	assert.Len(t, quant.Triggers[0], 2)
}

func Test_Parser_05(t *testing.T) {
	check_InvalidCommand(t, "(declare-fun f Int)")
	check_InvalidCommand(t, "(check-valid)")
	check_InvalidCommand(t, "(check-valid (assume true) (assert true))")
	check_InvalidCommand(t, "(axiom (ite a b))")
	check_InvalidCommand(t, "(axiom (not a b))")
	check_InvalidCommand(t, "(axiom (forall (x) (P x)))")
	check_InvalidCommand(t, "(frobnicate)")
	check_InvalidCommand(t, `(check-valid (assert 1 2 3 4))`)
}

func Test_Parser_06(t *testing.T) {
	e, err := ParseExpr("(- 42)")
	require.Nil(t, err)
	assert.Equal(t, int64(-42), e.(*Const).Int.Int64())
	//
	e, err = ParseExpr("(- x)")
	require.Nil(t, err)
	assert.Equal(t, Sub, e.(*Multi).Op)
}

func Test_Formatter_00(t *testing.T) {
	commands, err := ParseCommands("test", "(check-valid (local (declare-const x Int)) (assert (> x 0)))")
	require.Nil(t, err)
	//
	text := NewLogFormatter().Format(commands[0].Lisp())
	assert.Equal(t, "(check-valid\n  (local (declare-const x Int))\n  (assert (> x 0)))", text)
}

// ===================================================================
// Test Helpers
// ===================================================================

// Check commands parse and print back identically.
func check_Commands(t *testing.T, lines ...string) {
	for _, line := range lines {
		commands, err := ParseCommands("test", line)
		require.Nil(t, err, line)
		require.Len(t, commands, 1)
		assert.Equal(t, line, commands[0].Lisp().String(true))
	}
}

func check_InvalidCommand(t *testing.T, line string) {
	_, err := ParseCommands("test", line)
	assert.NotNil(t, err, line)
}
