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
package plan

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SCC_00(t *testing.T) {
	program := newProgram(t, fn("m", "a", "b"), fn("m", "b", "c"), fn("m", "c", "b"), fn("m", "d"))
	//
	sccs := NewCallGraph(program).SCCs()
	assert.Equal(t, []SCC{{"b", "c"}, {"a"}, {"d"}}, sccs)
}

func Test_SCC_01(t *testing.T) {
	// Self recursion and a chain
	program := newProgram(t, fn("m", "a", "a", "b"), fn("m", "b", "c"), fn("m", "c"))
	//
	sccs := NewCallGraph(program).SCCs()
	assert.Equal(t, []SCC{{"c"}, {"b"}, {"a"}}, sccs)
}

func Test_SCC_02(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		check_SCCs(t, randomProgram(t, seed, 12))
	}
}

func Test_Bucket_00(t *testing.T) {
	program := newProgram(t, fn("m1", "a", "x"), spinoff("m1", "s", "a"), fn("m1", "b"), fn("m2", "x", "y"),
		fn("m2", "y"), fn("m3", "z"))
	buckets := Buckets(program, program.Modules())
	//
	require.Len(t, buckets, 4)
	assert.Equal(t, "m1", buckets[0].Id.String())
	assert.Equal(t, []string{"a", "b"}, buckets[0].Functions)
	assert.Equal(t, []string{"a", "s", "b", "x", "y"}, buckets[0].Context)
	assert.Equal(t, "m1::s", buckets[1].Id.String())
	assert.Equal(t, "m1__s", buckets[1].Id.FileName())
	assert.Equal(t, []string{"s"}, buckets[1].Functions)
	assert.Equal(t, []string{"x", "y"}, buckets[2].Functions)
	assert.Equal(t, []string{"x", "y"}, buckets[2].Context)
	assert.Equal(t, []string{"z"}, buckets[3].Context)
	//
	assert.True(t, buckets[0].Owns(program, "a"))
	assert.False(t, buckets[0].Owns(program, "s"))
	assert.True(t, buckets[0].InContext(program, "s"))
}

func Test_Bucket_01(t *testing.T) {
	program := newProgram(t, fn("m1", "a"), fn("m2", "b"))
	// Claiming a function twice is a defect
	assert.Panics(t, func() { Buckets(program, []string{"m1", "m1"}) })
}

func Test_Bucket_02(t *testing.T) {
	program := newProgram(t, fn("m1", "a", "b"), fn("m1", "b", "a"), fn("m2", "c", "d"), fn("m2", "d"))
	buckets := Buckets(program, program.Modules())
	sccs := NewCallGraph(program).SCCs()
	//
	assert.Equal(t, []SCC{{"a", "b"}}, buckets[0].Order(program, sccs))
	assert.Equal(t, []SCC{{"d"}, {"c"}}, buckets[1].Order(program, sccs))
}

func Test_Bucket_03(t *testing.T) {
	// Planning is deterministic
	for seed := int64(0); seed < 20; seed++ {
		program := randomProgram(t, seed, 15)
		filter := &UserFilter{Functions: []string{"f3", "f7"}}
		//
		first, err := Plan(program, filter)
		require.NoError(t, err)
		second, err := Plan(program, filter)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	}
}

func Test_Filter_00(t *testing.T) {
	program := newProgram(t, fn("m1", "m1::a", "m2::b"), fn("m2", "m2::b"), fn("m2", "m2::c"))
	//
	buckets, err := Plan(program, &UserFilter{Functions: []string{"b"}})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "m2", buckets[0].Id.Module)
	// Kept buckets are unchanged by filtering
	assert.Equal(t, []string{"m2::b", "m2::c"}, buckets[0].Functions)
}

func Test_Filter_01(t *testing.T) {
	program := newProgram(t, fn("m1", "a", "b"), fn("m2", "b"))
	//
	buckets, err := Plan(program, &UserFilter{Modules: []string{"m1"}})
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	// Context still includes functions from other modules
	assert.Equal(t, []string{"a", "b"}, buckets[0].Context)
	//
	_, err = Plan(program, &UserFilter{Modules: []string{"m3"}})
	assert.Error(t, err)
}

func Test_Filter_02(t *testing.T) {
	filter := &UserFilter{Modules: []string{"m1"}, Functions: []string{"a"}}
	//
	assert.True(t, filter.IncludesFunction(&Function{Name: "m1::a", Module: "m1"}))
	assert.False(t, filter.IncludesFunction(&Function{Name: "m1::ba", Module: "m1"}))
	assert.False(t, filter.IncludesFunction(&Function{Name: "m2::a", Module: "m2"}))
}

func Test_Program_00(t *testing.T) {
	_, err := NewProgram([]string{"m"}, []*Function{{Name: "a", Module: "m", Calls: []string{"b"}}})
	assert.Error(t, err)
	_, err = NewProgram([]string{"m"}, []*Function{{Name: "a", Module: "n"}})
	assert.Error(t, err)
	_, err = NewProgram([]string{"m"}, []*Function{{Name: "a", Module: "m"}, {Name: "a", Module: "m"}})
	assert.Error(t, err)
}

// ============================================================================
// Helpers
// ============================================================================

// check_SCCs checks that callees never come after their callers, and that
// the members of each component reach one another.
func check_SCCs(t *testing.T, program *Program) {
	sccs := NewCallGraph(program).SCCs()
	component := make(map[string]int)
	//
	for i, scc := range sccs {
		for _, f := range scc {
			_, ok := component[f]
			require.False(t, ok, "function %s in two components", f)
			component[f] = i
		}
	}
	//
	require.Len(t, component, len(program.Functions()))
	//
	for _, f := range program.Functions() {
		for _, c := range f.Calls {
			assert.LessOrEqual(t, component[c], component[f.Name], "%s calls %s", f.Name, c)
		}
	}
	//
	for _, scc := range sccs {
		for _, f := range scc {
			for _, g := range scc {
				assert.True(t, reaches(program, f, g), "%s does not reach %s", f, g)
			}
		}
	}
	// Deterministic
	assert.Equal(t, sccs, NewCallGraph(program).SCCs())
}

func reaches(program *Program, from string, to string) bool {
	var (
		visited  = make(map[string]bool)
		worklist = []string{from}
	)
	//
	for len(worklist) > 0 {
		next := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		//
		if next == to {
			return true
		} else if visited[next] {
			continue
		}
		//
		visited[next] = true
		f, _ := program.Function(next)
		worklist = append(worklist, f.Calls...)
	}
	//
	return false
}

func randomProgram(t *testing.T, seed int64, n int) *Program {
	var (
		rng       = rand.New(rand.NewSource(seed))
		modules   = []string{"m0", "m1", "m2"}
		functions []*Function
	)
	//
	for i := 0; i < n; i++ {
		var calls []string
		//
		for j := 0; j < n; j++ {
			if rng.Intn(6) == 0 {
				calls = append(calls, fmt.Sprintf("f%d", j))
			}
		}
		//
		functions = append(functions, &Function{Name: fmt.Sprintf("f%d", i), Module: modules[rng.Intn(3)],
			Spinoff: rng.Intn(5) == 0, Calls: calls})
	}
	//
	program, err := NewProgram(modules, functions)
	require.NoError(t, err)
	//
	return program
}

func newProgram(t *testing.T, functions ...*Function) *Program {
	var modules []string
	//
	for _, f := range functions {
		if len(modules) == 0 || modules[len(modules)-1] != f.Module {
			modules = append(modules, f.Module)
		}
	}
	//
	program, err := NewProgram(modules, functions)
	require.NoError(t, err)
	//
	return program
}

func fn(module string, name string, calls ...string) *Function {
	return &Function{Name: name, Module: module, Calls: calls}
}

func spinoff(module string, name string, calls ...string) *Function {
	return &Function{Name: name, Module: module, Spinoff: true, Calls: calls}
}
