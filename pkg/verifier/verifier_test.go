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
package verifier_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/consensys/go-smtcheck/pkg/check"
	"github.com/consensys/go-smtcheck/pkg/obligation"
	"github.com/consensys/go-smtcheck/pkg/plan"
	"github.com/consensys/go-smtcheck/pkg/report"
	"github.com/consensys/go-smtcheck/pkg/smt/smttest"
	"github.com/consensys/go-smtcheck/pkg/util/source"
	"github.com/consensys/go-smtcheck/pkg/vc"
	"github.com/consensys/go-smtcheck/pkg/verifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const library = `
(module lib)
(module lib::list)
(prelude (declare-sort Poly))
(context Datatypes
  (declare-sort List)
  (declare-fun nil () List)
  (declare-fun len (List) Int))
(function lib::list::len :module lib::list :mode spec
  (axiom (axiom (forall ((l List)) (! (>= (len l) 0) :qid user_len))))
  (termination (query :desc "termination proof" (check-valid (assert true)))))
(function lib::list::push :module lib::list :calls (lib::list::len)
  (body (query :desc "push body" :span "list.rs:10:1"
    (check-valid (assert "postcondition not satisfied" "list.rs:12:5" (>= (len nil) 0))))))
(function lib::main :module lib :spinoff :check-recommends :calls (lib::list::push)
  (spec-check (query :desc "spec check" (check-valid (assert true))))
  (body (query :desc "main body" :prover nonlinear
    (check-valid (assert "assertion failed" "main.rs:2:5" (= (* 2 3) 6)))))
  (recommends (query :desc "main body" :skip-recommends (check-valid (assert true))))
  (expand (query :desc "main body"
    (check-valid (block (assert (= 2 2)) (assert "split assertion failed" "main.rs:2:10" (= 3 3)))))))
`

func Test_Verifier_00(t *testing.T) {
	var sink report.Collector
	//
	result, factory := run(t, library, smttest.Unsat, config(t), &sink)
	//
	assert.Equal(t, 2, result.Buckets)
	assert.Equal(t, check.Stats{Verified: 3, Errors: 0, Submissions: 4}, result.Stats)
	assert.Empty(t, sink.Entries())
	// Every solver is closed once done
	for _, s := range factory.Started() {
		assert.True(t, s.Closed())
	}
}

func Test_Verifier_01(t *testing.T) {
	// Checking in parallel gives the same outcome as checking sequentially
	var (
		text   = modules(6)
		oracle = smttest.FailWhen("(= 1 2)", "(= 2 3)")
	)
	//
	for _, threads := range []uint{2, 4, 8} {
		var sequential, parallel report.Collector
		//
		cfg := config(t)
		first, _ := run(t, text, oracle, cfg, &sequential)
		cfg.NumThreads = threads
		second, _ := run(t, text, oracle, cfg, &parallel)
		//
		assert.Equal(t, first.Stats, second.Stats)
		assert.ElementsMatch(t, sequential.Notes(), parallel.Notes())
		check_Contiguous(t, parallel.Notes())
	}
}

func Test_Verifier_02(t *testing.T) {
	// Within each component, specs come before termination checks, which
	// come before axioms.  Components are checked callees first.
	text := `
(module m)
(function c :module m :calls (a) ` + function("c") + `)
(function a :module m :calls (b) ` + function("a") + `)
(function b :module m :calls (a) ` + function("b") + `)
`
	_, factory := run(t, text, smttest.Unsat, config(t), &report.Collector{})
	commands := factory.Started()[0].Commands()
	//
	order := []string{"spec_a", "spec_b", "term_a", "term_b", "axiom_a", "axiom_b", "spec_c", "term_c", "axiom_c"}
	check_Order(t, commands, order...)
}

func Test_Verifier_03(t *testing.T) {
	_, factory := run(t, library, smttest.Unsat, config(t), &report.Collector{})
	//
	started := factory.Started()
	require.Len(t, started, 3)
	// The nonlinear check of lib::main runs in a session of its own
	assert.Equal(t, vc.Default, started[0].Prover())
	assert.Equal(t, vc.Nonlinear, started[1].Prover())
	assert.Equal(t, vc.Default, started[2].Prover())
	//
	commands := started[1].Commands()
	assert.Contains(t, commands, "(declare-sort List 0)")
	assert.Contains(t, commands, "(set-option :smt.arith.nl true)")
	assert.Contains(t, commands, fmt.Sprintf("(set-option :rlimit %d)", 10*verifier.RlimitPerSecond))
	//
	checks := started[1].Checks()
	require.Len(t, checks, 1)
	require.Len(t, checks[0].Goals, 1)
	assert.Contains(t, checks[0].Goals[0].Conclusion, "(* 2 3)")
}

func Test_Verifier_04(t *testing.T) {
	cfg := config(t)
	cfg.LogAll = true
	//
	run(t, library, smttest.Unsat, cfg, &report.Collector{})
	//
	for _, name := range []string{"lib__lib__main.air", "lib__lib__main-final.air", "lib__lib__main.smt2",
		"lib__lib__main_01.smt2", "lib__list.air", "lib__list.smt2"} {
		_, err := os.Stat(filepath.Join(cfg.LogDir, name))
		assert.NoError(t, err, name)
	}
	//
	data, err := os.ReadFile(filepath.Join(cfg.LogDir, "lib__list.smt2"))
	require.NoError(t, err)
	assert.Contains(t, string(data), ";; Prelude")
	assert.Contains(t, string(data), ";; Function-Def lib::list::push")
}

func Test_Verifier_05(t *testing.T) {
	var sink report.Collector
	//
	cfg := config(t)
	cfg.Functions = []string{"push"}
	//
	result, factory := run(t, library, smttest.Unsat, cfg, &sink)
	//
	assert.Equal(t, 1, result.Buckets)
	assert.Equal(t, check.Stats{Verified: 1, Submissions: 1}, result.Stats)
	assert.Equal(t, []string{"verifying lib::list (selected functions)"}, sink.Notes())
	// Excluded functions are still declared
	assert.Contains(t, factory.Started()[0].Commands(), "(declare-fun len (List) Int)")
}

func Test_Verifier_06(t *testing.T) {
	cfg := config(t)
	cfg.Modules = []string{"nope"}
	//
	v := verifier.NewVerifier(cfg, parse(t, library), smttest.NewFactory(smttest.Unsat))
	_, err := v.Run(context.Background(), &report.Collector{})
	assert.ErrorContains(t, err, "could not find module nope specified by --verify-module")
}

func Test_Verifier_07(t *testing.T) {
	var sink report.Collector
	//
	cfg := config(t)
	cfg.ExpandErrors = true
	//
	result, _ := run(t, library, smttest.FailWhen("(* 2 3)", "(= 3 3)"), cfg, &sink)
	//
	entries := sink.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "assertion failed", entries[0].Message.Note)
	assert.Equal(t, report.Error, entries[0].Level)
	// Only split assertions are reported when expanding
	assert.Equal(t, "split assertion failed", entries[1].Message.Note)
	assert.Equal(t, report.Note, entries[1].Level)
	assert.Equal(t, uint(1), result.Stats.Errors)
}

func Test_Verifier_08(t *testing.T) {
	var sink report.Collector
	// Recommends are rechecked after a failure, except where skipped
	result, factory := run(t, library, smttest.FailWhen("(len nil)"), config(t), &sink)
	//
	assert.Equal(t, []string{"postcondition not satisfied", "postcondition not satisfied"}, sink.Notes())
	assert.Equal(t, report.Error, sink.Entries()[0].Level)
	assert.Equal(t, report.Note, sink.Entries()[1].Level)
	assert.Equal(t, uint(1), result.Stats.Errors)
	assert.Equal(t, uint(2), result.Stats.Verified)
	// lib::list session checks termination, and push twice
	assert.Len(t, factory.Started()[2].Checks(), 3)
}

func Test_Verifier_09(t *testing.T) {
	cfg := config(t)
	cfg.Profile = "all"
	//
	_, factory := run(t, library, smttest.Unsat, cfg, &report.Collector{})
	started := factory.Started()
	// Spin-off sessions write traces of their own
	assert.Contains(t, started[0].Commands(), "(set-option :trace true)")
	assert.Contains(t, started[0].Commands(),
		fmt.Sprintf("(set-option :trace_file_name %s)", filepath.Join(cfg.LogDir, "lib__lib__main.trace")))
	assert.Contains(t, started[1].Commands(),
		fmt.Sprintf("(set-option :trace_file_name %s)", filepath.Join(cfg.LogDir, "lib__lib__main_01.trace")))
	assert.NotContains(t, started[1].Commands(),
		fmt.Sprintf("(set-option :trace_file_name %s)", filepath.Join(cfg.LogDir, "lib__lib__main.trace")))
}

func Test_Verifier_10(t *testing.T) {
	cfg := config(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "metrics.prom")
	//
	run(t, library, smttest.Unsat, cfg, &report.Collector{})
	//
	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "smtcheck_buckets_total 2")
	assert.Contains(t, string(data), "smtcheck_verified_total 3")
}

func Test_Verifier_11(t *testing.T) {
	cfg := config(t)
	cfg.SolverVersion = ">= 4.13"
	// Solver version is checked when opening a bucket
	v := verifier.NewVerifier(cfg, parse(t, library), smttest.NewFactory(smttest.Unsat).WithVersion("4.12.2"))
	_, err := v.Run(context.Background(), &report.Collector{})
	assert.ErrorContains(t, err, "does not satisfy")
}

func Test_LogName_00(t *testing.T) {
	bundle := parse(t, library)
	buckets := bucketIds(t, bundle)
	//
	assert.Equal(t, "lib__lib__main", verifier.LogName(buckets[0], false, 0, false))
	assert.Equal(t, "lib__lib__main_rerun_02_expand", verifier.LogName(buckets[0], true, 2, true))
	assert.Equal(t, "lib__list_01", verifier.LogName(buckets[1], false, 1, false))
}

// ============================================================================
// Helpers
// ============================================================================

func config(t *testing.T) verifier.Config {
	cfg := verifier.DefaultConfig()
	cfg.LogDir = t.TempDir()
	//
	return cfg
}

func parse(t *testing.T, text string) *obligation.Bundle {
	bundle, errs := obligation.Parse(source.NewSourceFile("test.vcl", []byte(text)))
	require.Empty(t, errs)
	//
	return bundle
}

func run(t *testing.T, text string, oracle smttest.Oracle, cfg verifier.Config,
	sink report.Reporter) (verifier.Result, *smttest.Factory) {
	factory := smttest.NewFactory(oracle)
	v := verifier.NewVerifier(cfg, parse(t, text), factory)
	//
	result, err := v.Run(context.Background(), sink)
	require.NoError(t, err)
	//
	return result, factory
}

// modules constructs a program with n modules of one function each, whose
// body has two assertions which fail for some modules.
func modules(n int) string {
	var builder strings.Builder
	//
	for i := 0; i < n; i++ {
		fmt.Fprintf(&builder, "(module m%d)\n", i)
	}
	//
	for i := 0; i < n; i++ {
		fmt.Fprintf(&builder, `(function f%d :module m%d
  (body (query :desc "m%d body" (check-valid (block
    (assert "m%d first" (= %d %d))
    (assert "m%d second" (= %d %d)))))))
`, i, i, i, i, i%3, 1+i%2, i, 2, 2+i%2)
	}
	//
	return builder.String()
}

// function constructs the sections of a function whose specs, termination
// check and axioms each declare a distinct constant.
func function(name string) string {
	return fmt.Sprintf(`(spec (declare-const spec_%s Int))
  (axiom (declare-const axiom_%s Int))
  (termination (query :desc "termination" (check-valid (local (declare-const term_%s Int)) (assert true))))`,
		name, name, name)
}

func bucketIds(t *testing.T, bundle *obligation.Bundle) []plan.BucketId {
	buckets, err := plan.Plan(bundle.Program(), &plan.UserFilter{})
	require.NoError(t, err)
	//
	ids := make([]plan.BucketId, len(buckets))
	for i, b := range buckets {
		ids[i] = b.Id
	}
	//
	return ids
}

// check_Order checks each declaration is issued, in the given order.
func check_Order(t *testing.T, commands []string, names ...string) {
	last := -1
	//
	for _, name := range names {
		i := slices.Index(commands, fmt.Sprintf("(declare-const %s Int)", name))
		require.GreaterOrEqual(t, i, 0, name)
		assert.Greater(t, i, last, name)
		last = i
	}
}

// check_Contiguous checks that the messages of each module are reported
// together.  Messages not naming a module are ignored.
func check_Contiguous(t *testing.T, notes []string) {
	var (
		seen    = make(map[string]bool)
		current = ""
	)
	//
	for _, note := range notes {
		module := strings.Fields(note)[0]
		//
		if !strings.HasPrefix(module, "m") {
			continue
		} else if module != current {
			assert.False(t, seen[module], "messages of %s are interleaved", module)
			seen[module] = true
			current = module
		}
	}
}
