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
	"sort"

	"github.com/consensys/go-smtcheck/pkg/util/collection/stack"
)

// SCC is a strongly connected component of the call graph, whose functions
// are listed in declaration order.
type SCC []string

// CallGraph records which functions depend on which others.
type CallGraph struct {
	program *Program
}

// NewCallGraph constructs the call graph of a program.
func NewCallGraph(program *Program) *CallGraph {
	return &CallGraph{program}
}

// SCCs returns the strongly connected components of this graph, such that
// every component comes after all components it depends upon.  Components are
// discovered in declaration order, and edges followed in the order declared,
// so the result depends only on the program.
func (p *CallGraph) SCCs() []SCC {
	var (
		functions = p.program.Functions()
		n         = len(functions)
		counter   = 0
		indices   = make([]int, n)
		lowlinks  = make([]int, n)
		onStack   = make([]bool, n)
		visiting  = stack.NewStack[int]()
		sccs      []SCC
		connect   func(v int)
	)
	//
	for i := range indices {
		indices[i] = -1
	}
	//
	connect = func(v int) {
		indices[v] = counter
		lowlinks[v] = counter
		counter++
		//
		visiting.Push(v)
		onStack[v] = true
		//
		for _, callee := range functions[v].Calls {
			w := p.program.Position(callee)
			//
			if indices[w] < 0 {
				connect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indices[w])
			}
		}
		// Root of a component?
		if lowlinks[v] == indices[v] {
			var members []int
			//
			for {
				w := visiting.Pop()
				onStack[w] = false
				members = append(members, w)
				//
				if w == v {
					break
				}
			}
			//
			sort.Ints(members)
			//
			scc := make(SCC, len(members))
			//
			for i, m := range members {
				scc[i] = functions[m].Name
			}
			//
			sccs = append(sccs, scc)
		}
	}
	//
	for v := range functions {
		if indices[v] < 0 {
			connect(v)
		}
	}
	//
	return sccs
}
