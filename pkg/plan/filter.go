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
	"slices"
	"strings"
)

// UserFilter restricts which modules and functions are checked.  An empty
// filter includes everything.  Filtering never changes which functions are
// present for context.
type UserFilter struct {
	Modules   []string
	Functions []string
}

// IncludesFunction determines whether a function's obligations should be
// checked.  Functions are matched by their full name, or by any suffix of it
// which starts at a path separator.
func (p *UserFilter) IncludesFunction(function *Function) bool {
	if len(p.Modules) > 0 && !slices.Contains(p.Modules, function.Module) {
		return false
	} else if len(p.Functions) == 0 {
		return true
	}
	//
	for _, f := range p.Functions {
		if function.Name == f || strings.HasSuffix(function.Name, "::"+f) {
			return true
		}
	}
	//
	return false
}

// FilterModules returns the modules to be checked, in declaration order.  It is
// an error to name a module which does not exist.
func (p *UserFilter) FilterModules(program *Program) ([]string, error) {
	if len(p.Modules) == 0 {
		return program.Modules(), nil
	}
	//
	for _, m := range p.Modules {
		if !slices.Contains(program.Modules(), m) {
			return nil, fmt.Errorf("could not find module %s specified by --verify-module", m)
		}
	}
	//
	var modules []string
	//
	for _, m := range program.Modules() {
		if slices.Contains(p.Modules, m) {
			modules = append(modules, m)
		}
	}
	//
	return modules, nil
}

// FilterBuckets removes buckets which have no included function.  Buckets
// which are kept are unchanged.
func (p *UserFilter) FilterBuckets(program *Program, buckets []*Bucket) []*Bucket {
	var kept []*Bucket
	//
	for _, b := range buckets {
		for _, name := range b.Functions {
			if f, _ := program.Function(name); p.IncludesFunction(f) {
				kept = append(kept, b)
				break
			}
		}
	}
	//
	return kept
}

// Plan computes the buckets to check for a program under a given filter.
func Plan(program *Program, filter *UserFilter) ([]*Bucket, error) {
	modules, err := filter.FilterModules(program)
	if err != nil {
		return nil, err
	}
	//
	return filter.FilterBuckets(program, Buckets(program, modules)), nil
}
