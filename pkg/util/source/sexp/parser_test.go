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
package sexp

import (
	"testing"
)

func Test_Parser_00(t *testing.T) {
	check_RoundTrip(t, "(check-sat)", "(check-sat)")
}

func Test_Parser_01(t *testing.T) {
	check_RoundTrip(t, "(assert (! (=> p q) :named |named instance 1|))",
		"(assert (! (=> p q) :named |named instance 1|))")
}

func Test_Parser_02(t *testing.T) {
	check_RoundTrip(t, `(error "line 3 column 7: unknown ""constant"" x")`,
		`(error "line 3 column 7: unknown ""constant"" x")`)
}

func Test_Parser_03(t *testing.T) {
	// Comments and surplus whitespace disappear
	check_RoundTrip(t, "( push  1 ) ; scope\n", "(push 1)")
}

func Test_Parser_04(t *testing.T) {
	terms := check_Parse(t, "sat\n((goal!0 true) (goal!1 false))\n", 2)
	//
	if s := terms[0].AsSymbol(); s == nil || s.Value != "sat" {
		t.Errorf("expected sat, got %s", terms[0].String(true))
	}
	//
	values := terms[1].AsList()
	if values == nil || values.Len() != 2 {
		t.Fatalf("expected two values, got %s", terms[1].String(true))
	} else if head := values.Get(1).AsList().Head(); head != "goal!1" {
		t.Errorf("expected goal!1, got %s", head)
	}
}

func Test_Parser_05(t *testing.T) {
	check_Invalid(t, "(push 1")
	check_Invalid(t, ")")
	check_Invalid(t, "(echo \"done)")
	check_Invalid(t, "|unterminated")
}

func Test_Parser_06(t *testing.T) {
	terms := check_Parse(t, `(echo "x") | a b |`, 2)
	//
	if v := terms[0].AsList().Get(1).AsLiteral().Value; v != "x" {
		t.Errorf("expected literal x, got %q", v)
	}
	//
	if v := terms[1].AsSymbol().Value; v != " a b " {
		t.Errorf("expected symbol \" a b \", got %q", v)
	}
}

func Test_Formatter_00(t *testing.T) {
	terms := check_Parse(t, "(assert (forall ((x Int)) (=> (P x) (Q x))))", 1)
	formatter := NewFormatter(20, &HeadFormatter{"forall", 2, 1})
	//
	check_Formatted(t, "(assert (forall ((x Int))\n  (=> (P x) (Q x))))", formatter.Format(terms[0]))
}

func Test_Formatter_01(t *testing.T) {
	terms := check_Parse(t, "(assert (forall ((x Int)) (P x)))", 1)
	// Fits, so nothing changes
	formatter := NewFormatter(80, &HeadFormatter{"forall", 2, 1})
	//
	check_Formatted(t, "(assert (forall ((x Int)) (P x)))", formatter.Format(terms[0]))
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_Parse(t *testing.T, input string, n int) []SExp {
	terms, err := ParseString("test", input)
	//
	if err != nil {
		t.Fatalf("unexpected error parsing %q: %s", input, err.Error())
	} else if len(terms) != n {
		t.Fatalf("expected %d terms, got %d", n, len(terms))
	}
	//
	return terms
}

func check_RoundTrip(t *testing.T, input string, expected string) {
	terms := check_Parse(t, input, 1)
	//
	if actual := terms[0].String(true); actual != expected {
		t.Errorf("expected %s, got %s", expected, actual)
	}
}

func check_Formatted(t *testing.T, expected string, actual string) {
	if expected != actual {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, actual)
	}
}

func check_Invalid(t *testing.T, input string) {
	if _, err := ParseString("test", input); err == nil {
		t.Errorf("expected syntax error for %q", input)
	}
}
