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
	"strings"

	"github.com/consensys/go-smtcheck/pkg/util/collection/set"
)

// BucketId identifies a bucket.  Functions checked in a bucket of their own
// are identified by their module and their name.
type BucketId struct {
	Module string
	// Set only for spin-off buckets.
	Function string
}

// String returns a human readable name for this bucket.
func (p BucketId) String() string {
	if p.Function != "" {
		return fmt.Sprintf("%s::%s", p.Module, p.Function)
	}
	//
	return p.Module
}

// FileName returns a name for this bucket suitable for naming files.
func (p BucketId) FileName() string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', '<', '>', ' ', '*', '?', '"', '|':
			return '_'
		default:
			return r
		}
	}, p.String())
}

// Bucket is a group of functions whose obligations are checked together in
// one solver session.  Buckets also record the functions which provide the
// context needed to check them, which includes (but is not limited to) the
// functions of the bucket itself.
type Bucket struct {
	Id BucketId
	// Functions checked in this bucket, in declaration order.
	Functions []string
	// Functions whose declarations are needed, in declaration order.
	Context []string
	owned   set.SortedSet[int]
	context set.SortedSet[int]
}

// Owns determines whether a given function is checked in this bucket.
func (p *Bucket) Owns(program *Program, function string) bool {
	return p.owned.Contains(program.Position(function))
}

// InContext determines whether a given function is needed for this bucket.
func (p *Bucket) InContext(program *Program, function string) bool {
	return p.context.Contains(program.Position(function))
}

// Order restricts the components of the call graph to those involving
// functions needed by this bucket, retaining their order.  Functions outside
// this bucket's context are removed from the components which remain.
func (p *Bucket) Order(program *Program, sccs []SCC) []SCC {
	var order []SCC
	//
	for _, scc := range sccs {
		var members SCC
		//
		for _, f := range scc {
			if p.InContext(program, f) {
				members = append(members, f)
			}
		}
		//
		if len(members) > 0 {
			order = append(order, members)
		}
	}
	//
	return order
}

// Buckets partitions the functions of the given modules into buckets.  Each
// module has one bucket for all of its functions, except those marked as
// spin-offs which have a bucket each.  The order of buckets follows that of
// modules and then functions, so the result depends only on its inputs.
func Buckets(program *Program, modules []string) []*Bucket {
	var (
		buckets []*Bucket
		owner   = make(map[string]BucketId)
	)
	//
	for _, m := range modules {
		shared := &Bucket{Id: BucketId{Module: m}}
		//
		for i, f := range program.Functions() {
			if f.Module != m {
				continue
			}
			//
			if f.Spinoff {
				bucket := &Bucket{Id: BucketId{m, f.Name}}
				claim(owner, bucket, f.Name, i)
				buckets = append(buckets, bucket)
			} else {
				claim(owner, shared, f.Name, i)
			}
		}
		//
		if len(shared.Functions) > 0 {
			// Shared bucket comes first within its module
			buckets = insertBefore(buckets, m, shared)
		}
	}
	//
	for _, b := range buckets {
		b.computeContext(program)
	}
	//
	return buckets
}

// claim a function for a bucket.  A function can belong to only one bucket.
func claim(owner map[string]BucketId, bucket *Bucket, function string, position int) {
	if id, ok := owner[function]; ok {
		panic(fmt.Sprintf("function %s claimed by buckets %s and %s", function, id, bucket.Id))
	}
	//
	owner[function] = bucket.Id
	bucket.Functions = append(bucket.Functions, function)
	bucket.owned.Insert(position)
}

// insertBefore inserts a module's shared bucket ahead of its spin-off buckets.
func insertBefore(buckets []*Bucket, module string, shared *Bucket) []*Bucket {
	for i, b := range buckets {
		if b.Id.Module == module {
			return append(buckets[:i], append([]*Bucket{shared}, buckets[i:]...)...)
		}
	}
	//
	return append(buckets, shared)
}

// computeContext determines the functions needed to check a bucket: its own
// functions, every function of its module, and everything they transitively
// call.
func (p *Bucket) computeContext(program *Program) {
	var worklist []int
	//
	for i, f := range program.Functions() {
		if f.Module == p.Id.Module || p.owned.Contains(i) {
			worklist = append(worklist, i)
		}
	}
	//
	for len(worklist) > 0 {
		n := len(worklist) - 1
		next := worklist[n]
		worklist = worklist[:n]
		//
		if !p.context.Insert(next) {
			continue
		}
		//
		for _, callee := range program.Functions()[next].Calls {
			worklist = append(worklist, program.Position(callee))
		}
	}
	//
	p.Context = make([]string, len(p.context))
	//
	for i, position := range p.context {
		p.Context[i] = program.Functions()[position].Name
	}
}
