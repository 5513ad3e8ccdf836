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
	"testing"

	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/util/source"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/consensys/go-smtcheck/pkg/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load_00(t *testing.T) {
	bundle, errs, err := Load("testdata/list.vcl")
	require.NoError(t, err)
	require.Empty(t, errs)
	//
	program := bundle.Program()
	assert.Equal(t, []string{"lib", "lib::list"}, program.Modules())
	require.Len(t, program.Functions(), 3)
	//
	main, ok := program.Function("lib::main")
	require.True(t, ok)
	assert.Equal(t, &plan.Function{Name: "lib::main", Module: "lib", Spinoff: true, CheckRecommends: true,
		Mode: plan.Exec, Calls: []string{"lib::list::push"}}, main)
	//
	length, _ := program.Function("lib::list::len")
	assert.Equal(t, plan.Spec, length.Mode)
}

func Test_Load_01(t *testing.T) {
	bundle := load(t)
	//
	assert.Len(t, bundle.Prelude(), 2)
	require.Len(t, bundle.Context(nil), 1)
	assert.Equal(t, "Datatypes", bundle.Context(nil)[0].Comment)
	assert.Len(t, bundle.Context(nil)[0].Commands, 3)
	assert.Len(t, bundle.Decl("lib::list::len"), 1)
	assert.Len(t, bundle.Axioms("lib::list::len"), 1)
	assert.Empty(t, bundle.Specs("lib::list::len"))
	assert.Nil(t, bundle.Termination("lib::list::push"))
	//
	termination := bundle.Termination("lib::list::len")
	require.NotNil(t, termination)
	assert.Equal(t, "termination proof", termination.Desc)
	assert.Equal(t, "src/list.rs:2:1", termination.Span)
	//
	span, ok := bundle.Metadata().QidSpan("user_len_nonneg")
	assert.True(t, ok)
	assert.Equal(t, "src/list.rs:3:1", span)
}

func Test_Load_02(t *testing.T) {
	bundle := load(t)
	//
	body := bundle.Body("lib::main", verifier.CheckingBody, nil)
	require.Len(t, body, 1)
	assert.Equal(t, vc.Nonlinear, body[0].Prover)
	// Separate recommends checks are used when given
	recommends := bundle.Body("lib::main", verifier.CheckingRecommends, nil)
	require.Len(t, recommends, 1)
	assert.True(t, recommends[0].SkipRecommends)
	// Otherwise the body is rechecked
	assert.Equal(t, bundle.Body("lib::list::push", verifier.CheckingBody, nil),
		bundle.Body("lib::list::push", verifier.CheckingRecommends, nil))
	assert.Empty(t, bundle.Body("lib::list::push", verifier.ExpandingErrors, nil))
}

func Test_Load_03(t *testing.T) {
	bundle := load(t)
	// Every assertion of an expanded check is marked as split
	expand := bundle.Body("lib::main", verifier.ExpandingErrors, nil)
	require.Len(t, expand, 1)
	//
	block := expand[0].Commands[0].(*vc.CheckValid).Query.Assertion.(*vc.Block)
	require.Len(t, block.Stmts, 2)
	//
	for _, stmt := range block.Stmts {
		assertion := stmt.(*vc.Assert)
		require.NotNil(t, assertion.Error)
		assert.True(t, assertion.Error.Split)
	}
	//
	assert.Equal(t, "function body check failed", block.Stmts[0].(*vc.Assert).Error.Note)
	assert.Equal(t, "split assertion failed", block.Stmts[1].(*vc.Assert).Error.Note)
}

func Test_Load_04(t *testing.T) {
	_, _, err := Load("testdata/missing.vcl")
	assert.Error(t, err)
}

func Test_Parse_00(t *testing.T) {
	check_Invalid(t, "(module m) (function f)", "missing :module")
	check_Invalid(t, "(module m) (function f :module m :mode ghost)", "unknown mode \"ghost\"")
	check_Invalid(t, "(module m) (function f :module m (body (query :prover magic (check-valid (assert true)))))",
		"unknown prover \"magic\"")
	check_Invalid(t, "(module m) (function f :module m (bodies))", "unknown section")
	check_Invalid(t, "(module m) (function f :module m (termination))", "expected exactly one termination check")
	check_Invalid(t, "(module m) (function f :module m) (function f :module m)", "duplicate function f")
	check_Invalid(t, "(modules m)", "unknown declaration")
	check_Invalid(t, "(module m) (function f :module m :calls (g))", "function f calls unknown function g")
	check_Invalid(t, "(prelude (declare-const))", "unknown declaration")
	check_Invalid(t, "(prelude", "")
}

// ============================================================================
// Helpers
// ============================================================================

func load(t *testing.T) *Bundle {
	bundle, errs, err := Load("testdata/list.vcl")
	require.NoError(t, err)
	require.Empty(t, errs)
	//
	return bundle
}

func check_Invalid(t *testing.T, text string, expected string) {
	bundle, errs := Parse(source.NewSourceFile("test.vcl", []byte(text)))
	//
	assert.Nil(t, bundle, text)
	require.NotEmpty(t, errs, text)
	//
	if expected != "" {
		assert.Equal(t, expected, errs[0].Message(), text)
	}
}
